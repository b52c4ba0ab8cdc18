// Package trading implements the order-execution and position-lifecycle
// use cases: pricing a trade against the live tick, reserving margin,
// mutating wallet and position state atomically, appending the deal
// audit trail, and emitting domain events after commit.
package trading

import (
	"context"
	"log/slog"
	"time"

	"lv-marginfx/internal/apperr"
	"lv-marginfx/internal/events"
	"lv-marginfx/internal/instruments"
	"lv-marginfx/internal/ledger"
	"lv-marginfx/internal/margin"
	"lv-marginfx/internal/marketdata"
	"lv-marginfx/internal/metrics"
	"lv-marginfx/internal/model"
	"lv-marginfx/internal/types"

	"github.com/shopspring/decimal"
)

type Service struct {
	store  ledger.Store
	market marketdata.Source
	pub    events.Publisher
	log    *slog.Logger
}

func NewService(store ledger.Store, market marketdata.Source, pub events.Publisher, log *slog.Logger) *Service {
	return &Service{store: store, market: market, pub: pub, log: log}
}

type OrderRequest struct {
	Instrument string
	Type       int
	Volume     decimal.Decimal
	Price      decimal.Decimal
	SL         decimal.Decimal
	TP         decimal.Decimal
	OneClick   bool
}

type OrderResult struct {
	OrderID    string          `json:"orderId"`
	PositionID string          `json:"positionId"`
	Price      decimal.Decimal `json:"price"`
	Time       int64           `json:"time"`
}

// ExecuteOrder opens a position. Pricing and margin computation happen
// outside the transaction and are advisory; the free-margin check that
// counts runs against the locked wallet row, because the pre-transaction
// read is not trustworthy under concurrent mutation.
func (s *Service) ExecuteOrder(ctx context.Context, userID, walletID string, req OrderRequest) (OrderResult, error) {
	if !req.Volume.IsPositive() {
		return OrderResult{}, apperr.New(apperr.KindInvalid, "volume must be greater than 0")
	}
	side, kind, err := margin.DecodeOrderType(req.Type)
	if err != nil {
		return OrderResult{}, err
	}
	if kind != types.OrderKindMarket {
		return OrderResult{}, apperr.New(apperr.KindInvalid, "pending orders not supported yet")
	}
	cfg, err := instruments.Lookup(req.Instrument)
	if err != nil {
		return OrderResult{}, err
	}
	symbol := cfg.Symbol

	tick, err := s.market.Tick(ctx, symbol)
	if err != nil {
		return OrderResult{}, err
	}
	executedPrice := tick.Ask
	if side == types.SideSell {
		executedPrice = tick.Bid
	}

	w, err := s.store.WalletByID(ctx, walletID, userID)
	if err != nil {
		return OrderResult{}, err
	}
	rawMargin, err := margin.Required(req.Volume, executedPrice, w.Leverage, cfg.ContractSize, cfg.MarginFactor)
	if err != nil {
		return OrderResult{}, err
	}
	requiredMargin := margin.RoundCurrency(rawMargin)
	if !requiredMargin.IsPositive() {
		return OrderResult{}, apperr.New(apperr.KindInvalid, "invalid margin calculation")
	}

	var (
		o  model.Order
		p  model.Position
		d  model.Deal
		uw model.Wallet
	)
	err = s.store.Within(ctx, func(tx ledger.Tx) error {
		locked, err := tx.WalletForUpdate(ctx, walletID, userID)
		if err != nil {
			return err
		}
		currentFree := locked.FreeMargin
		if currentFree.IsZero() && locked.Margin.IsZero() {
			currentFree = locked.Balance
		}
		if currentFree.LessThan(requiredMargin) {
			return apperr.New(apperr.KindInvalid, "insufficient free margin for this order")
		}

		o, err = tx.CreateOrder(ctx, model.Order{
			UserID:         userID,
			Instrument:     symbol,
			Side:           side,
			OrderKind:      kind,
			Volume:         req.Volume,
			RequestedPrice: req.Price,
			OneClick:       req.OneClick,
			Status:         types.OrderStatusPending,
		})
		if err != nil {
			return err
		}
		p, err = tx.CreatePosition(ctx, model.Position{
			UserID:         userID,
			Instrument:     symbol,
			Side:           side,
			Volume:         req.Volume,
			RequiredMargin: requiredMargin,
			OpenPrice:      executedPrice,
			SL:             req.SL,
			TP:             req.TP,
			Status:         types.PositionStatusOpen,
		})
		if err != nil {
			return err
		}
		d, err = tx.CreateDeal(ctx, model.Deal{
			OrderID:      o.ID,
			PositionID:   p.ID,
			Type:         req.Type,
			Direction:    types.DealDirectionOpen,
			Price:        executedPrice,
			Time:         p.OpenedAt,
			Volume:       req.Volume,
			VolumeClosed: decimal.Zero,
			Instrument:   symbol,
			Profit:       decimal.Zero,
			SL:           req.SL,
			TP:           req.TP,
			Reason:       types.DealReasonClient,
		})
		if err != nil {
			return err
		}
		if err := tx.MarkOrderFilled(ctx, o.ID, userID, executedPrice, p.OpenedAt, p.ID); err != nil {
			return err
		}

		newMargin := locked.Margin.Add(requiredMargin)
		newFree := currentFree.Sub(requiredMargin)
		uw, err = tx.UpdateWallet(ctx, walletID, userID, ledger.WalletPatch{
			Margin:     &newMargin,
			FreeMargin: &newFree,
		})
		return err
	})
	if err != nil {
		metrics.OrdersRejected.Inc()
		return OrderResult{}, err
	}

	metrics.OrdersExecuted.WithLabelValues(string(side)).Inc()
	s.flushOpenEvents(ctx, userID, req, o, p, d, uw)

	return OrderResult{
		OrderID:    o.ID,
		PositionID: p.ID,
		Price:      executedPrice,
		Time:       p.OpenedAt.UnixMilli(),
	}, nil
}

type CloseRequest struct {
	Volume decimal.Decimal
}

type CloseResult struct {
	PositionID string          `json:"positionId"`
	Price      decimal.Decimal `json:"price"`
	Time       int64           `json:"time"`
}

// ClosePosition closes all or part of a position. Lock order is
// position first, wallet second; the same order everywhere keeps the
// two use cases deadlock-free.
func (s *Service) ClosePosition(ctx context.Context, userID, walletID, positionID string, req CloseRequest) (CloseResult, error) {
	closingVolume := req.Volume
	if !closingVolume.IsPositive() {
		return CloseResult{}, apperr.New(apperr.KindInvalid, "closing volume must be greater than 0")
	}

	var (
		p          model.Position
		cp         model.Position
		o          model.Order
		d          model.Deal
		uw         model.Wallet
		closePrice decimal.Decimal
		pnl        decimal.Decimal
		isPartial  bool
	)
	err := s.store.Within(ctx, func(tx ledger.Tx) error {
		var err error
		p, err = tx.PositionForUpdate(ctx, positionID, userID)
		if err != nil {
			return err
		}
		if p.Status == types.PositionStatusClosed {
			return apperr.New(apperr.KindInvalid, "position already closed")
		}
		if closingVolume.GreaterThan(p.Volume) {
			return apperr.Newf(apperr.KindInvalid, "cannot close more than available volume, available: %s", p.Volume)
		}
		isPartial = closingVolume.LessThan(p.Volume)

		locked, err := tx.WalletForUpdate(ctx, walletID, userID)
		if err != nil {
			return err
		}

		tick, err := s.market.Tick(ctx, p.Instrument)
		if err != nil {
			return err
		}
		closePrice = tick.Ask
		if p.Side == types.SideSell {
			closePrice = tick.Bid
		}
		// One settlement moment for the position and its closing deal.
		settledAt := time.Now().UTC()

		marginToRelease := margin.RoundCurrency(p.RequiredMargin.Mul(closingVolume).Div(p.Volume))
		remainingMargin := p.RequiredMargin.Sub(marginToRelease)
		newVolume := p.Volume.Sub(closingVolume)
		if remainingMargin.IsNegative() || newVolume.IsNegative() {
			s.log.Error("margin release arithmetic produced negative remainder",
				"position", p.ID,
				"remaining_margin", remainingMargin,
				"new_volume", newVolume,
			)
			return apperr.New(apperr.KindFatal, "calculation error, please try again")
		}

		cfg, err := instruments.Lookup(p.Instrument)
		if err != nil {
			return apperr.Wrap(apperr.KindUnavailable, "contract size not available", err)
		}
		pnl = margin.RoundCurrency(margin.PnL(p.Side, p.OpenPrice, closePrice, cfg.ContractSize, closingVolume))

		patch := ledger.PositionPatch{
			Volume:         &newVolume,
			RequiredMargin: &remainingMargin,
		}
		status := types.PositionStatusOpen
		if !isPartial {
			status = types.PositionStatusClosed
			patch.ClosePrice = &closePrice
			patch.ClosedAt = &settledAt
			patch.PnL = &pnl
		}
		patch.Status = &status
		cp, err = tx.UpdatePosition(ctx, positionID, userID, patch)
		if err != nil {
			return err
		}

		newBalance := locked.Balance.Add(pnl)
		newEquity := locked.Equity.Add(pnl)
		newMargin := locked.Margin.Sub(marginToRelease)
		// Realized pnl and the released margin both return to free
		// margin, keeping freeMargin = balance - margin.
		newFree := newBalance.Sub(newMargin)
		uw, err = tx.UpdateWallet(ctx, walletID, userID, ledger.WalletPatch{
			Balance:    &newBalance,
			Equity:     &newEquity,
			Margin:     &newMargin,
			FreeMargin: &newFree,
		})
		if err != nil {
			return err
		}

		o, err = tx.OrderByPositionID(ctx, positionID)
		if err != nil {
			return err
		}
		d, err = tx.CreateDeal(ctx, model.Deal{
			OrderID:      o.ID,
			PositionID:   p.ID,
			Type:         margin.EncodeOrderType(p.Side),
			Direction:    types.DealDirectionClose,
			Price:        closePrice,
			Time:         settledAt,
			Volume:       closingVolume,
			VolumeClosed: closingVolume,
			Instrument:   p.Instrument,
			Profit:       pnl,
			SL:           p.SL,
			TP:           p.TP,
			Reason:       types.DealReasonClient,
		})
		return err
	})
	if err != nil {
		if apperr.IsKind(err, apperr.KindFatal) {
			metrics.InvariantViolations.Inc()
		}
		return CloseResult{}, err
	}

	kind := "full"
	if isPartial {
		kind = "partial"
	}
	metrics.PositionsClosed.WithLabelValues(kind).Inc()
	s.flushCloseEvents(ctx, userID, p, cp, o, d, uw, closePrice, pnl, closingVolume, isPartial)

	return CloseResult{
		PositionID: cp.ID,
		Price:      closePrice,
		Time:       d.Time.UnixMilli(),
	}, nil
}
