package model

import (
	"time"

	"lv-marginfx/internal/types"

	"github.com/shopspring/decimal"
)

type Wallet struct {
	ID         string           `json:"id"`
	UserID     string           `json:"user_id"`
	Type       types.WalletType `json:"type"`
	Balance    decimal.Decimal  `json:"balance"`
	Equity     decimal.Decimal  `json:"equity"`
	Margin     decimal.Decimal  `json:"margin"`
	FreeMargin decimal.Decimal  `json:"free_margin"`
	Currency   string           `json:"currency"`
	Leverage   int              `json:"leverage"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

type Order struct {
	ID             string            `json:"id"`
	UserID         string            `json:"user_id"`
	Instrument     string            `json:"instrument"`
	Side           types.Side        `json:"side"`
	OrderKind      types.OrderKind   `json:"order_kind"`
	Volume         decimal.Decimal   `json:"volume"`
	RequestedPrice decimal.Decimal   `json:"requested_price"`
	ExecutedPrice  *decimal.Decimal  `json:"executed_price"`
	OneClick       bool              `json:"one_click"`
	Status         types.OrderStatus `json:"status"`
	PositionID     *string           `json:"position_id"`
	RequestedAt    time.Time         `json:"requested_at"`
	ExecutedAt     *time.Time        `json:"executed_at"`
}

type Position struct {
	ID             string               `json:"id"`
	UserID         string               `json:"user_id"`
	Instrument     string               `json:"instrument"`
	Side           types.Side           `json:"side"`
	Volume         decimal.Decimal      `json:"volume"`
	RequiredMargin decimal.Decimal      `json:"required_margin"`
	OpenPrice      decimal.Decimal      `json:"open_price"`
	ClosePrice     *decimal.Decimal     `json:"close_price"`
	SL             decimal.Decimal      `json:"sl"`
	TP             decimal.Decimal      `json:"tp"`
	Status         types.PositionStatus `json:"status"`
	OpenedAt       time.Time            `json:"opened_at"`
	ClosedAt       *time.Time           `json:"closed_at"`
	PnL            *decimal.Decimal     `json:"pnl"`
}

type Deal struct {
	ID           string          `json:"id"`
	OrderID      string          `json:"order_id"`
	PositionID   string          `json:"position_id"`
	Type         int             `json:"type"`
	Direction    int             `json:"direction"`
	Price        decimal.Decimal `json:"price"`
	Time         time.Time       `json:"time"`
	Volume       decimal.Decimal `json:"volume"`
	VolumeClosed decimal.Decimal `json:"volume_closed"`
	Instrument   string          `json:"instrument"`
	Profit       decimal.Decimal `json:"profit"`
	SL           decimal.Decimal `json:"sl"`
	TP           decimal.Decimal `json:"tp"`
	Commission   decimal.Decimal `json:"commission"`
	Fee          decimal.Decimal `json:"fee"`
	Swap         decimal.Decimal `json:"swap"`
	Reason       int             `json:"reason"`
}

// DealHistoryRow is a deal joined to its position, the shape returned by
// the history query.
type DealHistoryRow struct {
	DealID     string           `json:"deal_id"`
	PositionID string           `json:"position_id"`
	Type       int              `json:"type"`
	Instrument string           `json:"instrument"`
	Volume     decimal.Decimal  `json:"volume"`
	Profit     decimal.Decimal  `json:"profit"`
	OpenPrice  decimal.Decimal  `json:"open_price"`
	ClosePrice *decimal.Decimal `json:"close_price"`
	SL         decimal.Decimal  `json:"sl"`
	TP         decimal.Decimal  `json:"tp"`
	Commission decimal.Decimal  `json:"commission"`
	Fee        decimal.Decimal  `json:"fee"`
	Swap       decimal.Decimal  `json:"swap"`
	OpenTime   time.Time        `json:"open_time"`
	CloseTime  *time.Time       `json:"close_time"`
	Reason     int              `json:"reason"`
}
