package trading

import (
	"context"

	"lv-marginfx/internal/events"
	"lv-marginfx/internal/margin"
	"lv-marginfx/internal/model"

	"github.com/shopspring/decimal"
)

// Event assembly for the two use cases. Every payload is built from the
// post-commit row values, queued on a per-call outbox and flushed only
// after the transaction is durable.

func (s *Service) flushOpenEvents(ctx context.Context, userID string, req OrderRequest, o model.Order, p model.Position, d model.Deal, w model.Wallet) {
	out := events.NewOutbox(s.pub, s.log)
	openMillis := p.OpenedAt.UnixMilli()

	out.Add(events.TopicOrders, o.ID, events.Event{
		Stream: events.TopicOrders,
		Type:   events.OrderNew,
		UserID: userID,
		Data: events.OrderPayload{
			UserID:     userID,
			OrderID:    o.ID,
			Type:       req.Type,
			Price:      p.OpenPrice,
			Volume:     p.Volume,
			Instrument: p.Instrument,
			SL:         p.SL,
			TP:         p.TP,
			OpenTime:   openMillis,
			MarginRate: p.OpenPrice,
		},
	})
	out.Add(events.TopicOrders, o.ID, events.Event{
		Stream: events.TopicOrders,
		Type:   events.OrderDel,
		UserID: userID,
		Data: events.OrderPayload{
			UserID:     userID,
			OrderID:    o.ID,
			Type:       req.Type,
			Price:      p.OpenPrice,
			Volume:     p.Volume,
			Instrument: p.Instrument,
			SL:         p.SL,
			TP:         p.TP,
			OpenTime:   openMillis,
			MarginRate: p.OpenPrice,
			PositionID: p.ID,
		},
	})
	zeroProfit := decimal.Zero
	out.Add(events.TopicPositions, p.ID, events.Event{
		Stream: events.TopicPositions,
		Type:   events.PosOpen,
		UserID: userID,
		Data: events.PositionPayload{
			UserID:     userID,
			DealID:     d.ID,
			PositionID: p.ID,
			Type:       req.Type,
			Price:      p.OpenPrice,
			OpenPrice:  p.OpenPrice,
			Volume:     p.Volume,
			Instrument: p.Instrument,
			SL:         p.SL,
			TP:         p.TP,
			OpenTime:   openMillis,
			Profit:     &zeroProfit,
			MarginRate: p.OpenPrice,
			Reason:     d.Reason,
		},
	})
	out.Add(events.TopicDeals, d.ID, events.Event{
		Stream: events.TopicDeals,
		Type:   events.DealIn,
		UserID: userID,
		Data:   dealPayload(userID, d),
	})
	out.Add(events.TopicAccount, w.ID, accountEvent(userID, w))

	out.Flush(ctx)
}

func (s *Service) flushCloseEvents(ctx context.Context, userID string, prev, cur model.Position, o model.Order, d model.Deal, w model.Wallet, closePrice, pnl, closedVolume decimal.Decimal, isPartial bool) {
	out := events.NewOutbox(s.pub, s.log)
	typ := margin.EncodeOrderType(prev.Side)
	openMillis := prev.OpenedAt.UnixMilli()

	if isPartial {
		// The surviving remainder, then the slice that was taken off.
		out.Add(events.TopicPositions, cur.ID, events.Event{
			Stream: events.TopicPositions,
			Type:   events.PosUpdate,
			UserID: userID,
			Data: events.PositionPayload{
				UserID:     userID,
				DealID:     d.ID,
				PositionID: cur.ID,
				Type:       typ,
				Price:      prev.OpenPrice,
				OpenPrice:  prev.OpenPrice,
				Volume:     cur.Volume,
				Instrument: cur.Instrument,
				SL:         cur.SL,
				TP:         cur.TP,
				OpenTime:   openMillis,
				MarginRate: prev.OpenPrice,
				Reason:     d.Reason,
			},
		})
		closeMillis := d.Time.UnixMilli()
		out.Add(events.TopicPositions, cur.ID, events.Event{
			Stream: events.TopicPositions,
			Type:   events.PosPartialClose,
			UserID: userID,
			Data: events.PositionPayload{
				UserID:     userID,
				DealID:     d.ID,
				PositionID: cur.ID,
				Type:       typ,
				Price:      closePrice,
				OpenPrice:  prev.OpenPrice,
				ClosePrice: &closePrice,
				Volume:     closedVolume,
				Instrument: cur.Instrument,
				SL:         cur.SL,
				TP:         cur.TP,
				OpenTime:   openMillis,
				CloseTime:  &closeMillis,
				Profit:     &pnl,
				MarginRate: closePrice,
				Reason:     d.Reason,
			},
		})
	} else {
		closeMillis := d.Time.UnixMilli()
		out.Add(events.TopicPositions, cur.ID, events.Event{
			Stream: events.TopicPositions,
			Type:   events.PosClose,
			UserID: userID,
			Data: events.PositionPayload{
				UserID:     userID,
				DealID:     d.ID,
				PositionID: cur.ID,
				Type:       typ,
				Price:      closePrice,
				OpenPrice:  prev.OpenPrice,
				ClosePrice: &closePrice,
				Volume:     closedVolume,
				Instrument: cur.Instrument,
				SL:         cur.SL,
				TP:         cur.TP,
				OpenTime:   openMillis,
				CloseTime:  &closeMillis,
				Profit:     &pnl,
				MarginRate: closePrice,
				Reason:     d.Reason,
			},
		})
	}
	out.Add(events.TopicDeals, d.ID, events.Event{
		Stream: events.TopicDeals,
		Type:   events.DealOut,
		UserID: userID,
		Data:   dealPayload(userID, d),
	})
	out.Add(events.TopicAccount, w.ID, accountEvent(userID, w))

	out.Flush(ctx)
}

func dealPayload(userID string, d model.Deal) events.DealPayload {
	return events.DealPayload{
		UserID:       userID,
		DealID:       d.ID,
		OrderID:      d.OrderID,
		PositionID:   d.PositionID,
		Type:         d.Type,
		Direction:    d.Direction,
		Price:        d.Price,
		Time:         d.Time.UnixMilli(),
		Volume:       d.Volume,
		VolumeClosed: d.VolumeClosed,
		Instrument:   d.Instrument,
		Profit:       d.Profit,
		SL:           d.SL,
		TP:           d.TP,
		Commission:   d.Commission,
		Fee:          d.Fee,
		Swap:         d.Swap,
		Reason:       d.Reason,
	}
}

func accountEvent(userID string, w model.Wallet) events.Event {
	return events.Event{
		Stream: events.TopicAccount,
		Type:   events.AccountUpdate,
		UserID: userID,
		Data: events.AccountPayload{
			UserID: userID,
			Balance: events.AccountBalance{
				Balance: w.Balance,
				Credit:  decimal.Zero,
			},
			Settings: events.AccountSettings{
				Currency: w.Currency,
				Leverage: w.Leverage,
			},
		},
	}
}
