package trading

import (
	"context"
	"time"

	"lv-marginfx/internal/instruments"
	"lv-marginfx/internal/margin"
	"lv-marginfx/internal/model"
	"lv-marginfx/internal/types"

	"github.com/shopspring/decimal"
)

// PositionView is an open position decorated with the current quote and
// the floating pnl it implies.
type PositionView struct {
	PositionID   string          `json:"positionId"`
	Symbol       string          `json:"symbol"`
	Type         int             `json:"type"`
	Volume       decimal.Decimal `json:"volume"`
	OpenPrice    decimal.Decimal `json:"openPrice"`
	CurrentPrice decimal.Decimal `json:"currentPrice"`
	SL           decimal.Decimal `json:"sl"`
	TP           decimal.Decimal `json:"tp"`
	OpenTime     int64           `json:"openTime"`
	Margin       decimal.Decimal `json:"margin"`
	Profit       decimal.Decimal `json:"profit"`
}

// OpenPositions lists the caller's open positions with floating pnl
// marked to the live tick. A missing or stale quote fails the whole
// request rather than returning a silently wrong pnl.
func (s *Service) OpenPositions(ctx context.Context, userID string) ([]PositionView, error) {
	positions, err := s.store.OpenPositions(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]PositionView, 0, len(positions))
	for _, p := range positions {
		cfg, err := instruments.Lookup(p.Instrument)
		if err != nil {
			return nil, err
		}
		tick, err := s.market.Tick(ctx, p.Instrument)
		if err != nil {
			return nil, err
		}
		// Mark at the price a close would execute at.
		current := tick.Ask
		if p.Side == types.SideSell {
			current = tick.Bid
		}
		profit := margin.RoundCurrency(margin.PnL(p.Side, p.OpenPrice, current, cfg.ContractSize, p.Volume))
		views = append(views, PositionView{
			PositionID:   p.ID,
			Symbol:       p.Instrument,
			Type:         margin.EncodeOrderType(p.Side),
			Volume:       p.Volume,
			OpenPrice:    p.OpenPrice,
			CurrentPrice: current,
			SL:           p.SL,
			TP:           p.TP,
			OpenTime:     p.OpenedAt.UnixMilli(),
			Margin:       p.RequiredMargin,
			Profit:       profit,
		})
	}
	return views, nil
}

// HistoryRow is a closing deal joined to its position for the trade
// history view.
type HistoryRow struct {
	DealID     string           `json:"dealId"`
	PositionID string           `json:"positionId"`
	Type       int              `json:"type"`
	Symbol     string           `json:"symbol"`
	Volume     decimal.Decimal  `json:"volume"`
	Profit     decimal.Decimal  `json:"profit"`
	OpenPrice  decimal.Decimal  `json:"openPrice"`
	ClosePrice *decimal.Decimal `json:"closePrice"`
	SL         decimal.Decimal  `json:"sl"`
	TP         decimal.Decimal  `json:"tp"`
	Commission decimal.Decimal  `json:"commission"`
	Fee        decimal.Decimal  `json:"fee"`
	Swap       decimal.Decimal  `json:"swap"`
	OpenTime   int64            `json:"openTime"`
	CloseTime  *int64           `json:"closeTime"`
	Reason     int              `json:"reason"`
}

// History returns the closing deals of the requested window, newest
// first, exactly as recorded at settlement time.
func (s *Service) History(ctx context.Context, userID string, from, to time.Time) ([]HistoryRow, error) {
	rows, err := s.store.DealHistory(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]HistoryRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, historyRow(r))
	}
	return out, nil
}

func historyRow(r model.DealHistoryRow) HistoryRow {
	row := HistoryRow{
		DealID:     r.DealID,
		PositionID: r.PositionID,
		Type:       r.Type,
		Symbol:     r.Instrument,
		Volume:     r.Volume,
		Profit:     r.Profit,
		OpenPrice:  r.OpenPrice,
		ClosePrice: r.ClosePrice,
		SL:         r.SL,
		TP:         r.TP,
		Commission: r.Commission,
		Fee:        r.Fee,
		Swap:       r.Swap,
		OpenTime:   r.OpenTime.UnixMilli(),
		Reason:     r.Reason,
	}
	if r.CloseTime != nil {
		millis := r.CloseTime.UnixMilli()
		row.CloseTime = &millis
	}
	return row
}
