// Package events carries domain-event publication: envelope shapes, the
// pub/sub publisher, the in-process bus feeding the WebSocket stream,
// and the per-request outbox flushed after commit.
package events

import (
	"github.com/shopspring/decimal"
)

// Topics are the named channels trades publish to.
const (
	TopicOrders    = "orders"
	TopicPositions = "positions"
	TopicDeals     = "deals"
	TopicAccount   = "account"
)

// Event subtypes per topic.
const (
	OrderNew        = "new"
	OrderDel        = "del"
	PosOpen         = "open"
	PosUpdate       = "upd"
	PosPartialClose = "part_close"
	PosClose        = "close"
	DealIn          = "in"
	DealOut         = "out"
	AccountUpdate   = "upd"
)

// Event is the wire envelope: stream name, subtype, payload. UserID is
// routing metadata for the in-process stream and is not serialized.
type Event struct {
	Stream string `json:"e"`
	Type   string `json:"t"`
	Data   any    `json:"d"`
	UserID string `json:"-"`
}

type OrderPayload struct {
	UserID     string          `json:"userId"`
	OrderID    string          `json:"orderId"`
	Type       int             `json:"type"`
	Price      decimal.Decimal `json:"price"`
	Volume     decimal.Decimal `json:"volume"`
	Instrument string          `json:"instrument"`
	SL         decimal.Decimal `json:"sl"`
	TP         decimal.Decimal `json:"tp"`
	OpenTime   int64           `json:"openTime"`
	MarginRate decimal.Decimal `json:"marginRate"`
	PositionID string          `json:"positionId"`
}

type PositionPayload struct {
	UserID     string           `json:"userId"`
	DealID     string           `json:"dealId"`
	PositionID string           `json:"positionId"`
	Type       int              `json:"type"`
	Price      decimal.Decimal  `json:"price"`
	OpenPrice  decimal.Decimal  `json:"openPrice"`
	ClosePrice *decimal.Decimal `json:"closePrice,omitempty"`
	Volume     decimal.Decimal  `json:"volume"`
	Instrument string           `json:"instrument"`
	SL         decimal.Decimal  `json:"sl"`
	TP         decimal.Decimal  `json:"tp"`
	Commission decimal.Decimal  `json:"commission"`
	Fee        decimal.Decimal  `json:"fee"`
	Swap       decimal.Decimal  `json:"swap"`
	OpenTime   int64            `json:"openTime"`
	CloseTime  *int64           `json:"closeTime"`
	Profit     *decimal.Decimal `json:"profit"`
	MarginRate decimal.Decimal  `json:"marginRate"`
	Reason     int              `json:"reason"`
}

type DealPayload struct {
	UserID       string          `json:"userId"`
	DealID       string          `json:"dealId"`
	OrderID      string          `json:"orderId"`
	PositionID   string          `json:"positionId"`
	Type         int             `json:"type"`
	Direction    int             `json:"direction"`
	Price        decimal.Decimal `json:"price"`
	Time         int64           `json:"time"`
	Volume       decimal.Decimal `json:"volume"`
	VolumeClosed decimal.Decimal `json:"volumeClosed"`
	Instrument   string          `json:"instrument"`
	Profit       decimal.Decimal `json:"profit"`
	SL           decimal.Decimal `json:"sl"`
	TP           decimal.Decimal `json:"tp"`
	Commission   decimal.Decimal `json:"commission"`
	Fee          decimal.Decimal `json:"fee"`
	Swap         decimal.Decimal `json:"swap"`
	Reason       int             `json:"reason"`
}

type AccountPayload struct {
	UserID   string          `json:"userId"`
	Balance  AccountBalance  `json:"balance"`
	Settings AccountSettings `json:"settings"`
}

type AccountBalance struct {
	Balance decimal.Decimal `json:"balance"`
	Credit  decimal.Decimal `json:"credit"`
}

type AccountSettings struct {
	Currency     string `json:"currency"`
	Leverage     int    `json:"leverage"`
	PositionMode int    `json:"positionMode"`
}
