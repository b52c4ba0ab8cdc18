// Package ledger is the transactional store behind the trading engine:
// wallets, orders, positions, and the append-only deal audit trail.
//
// All trade mutations run through Within, a unit of work bound to one
// database transaction. Locked reads take row-level exclusive locks and
// are the only reads trade logic may act on; the unlocked reads on Store
// are display queries that tolerate staleness.
package ledger

import (
	"context"
	"time"

	"lv-marginfx/internal/model"
	"lv-marginfx/internal/types"

	"github.com/shopspring/decimal"
)

// Tx is the repository handle bound to one transaction. Every write of
// a single trade goes through the same handle and commits atomically.
type Tx interface {
	// WalletForUpdate re-fetches the wallet under an exclusive row lock,
	// scoped by user to prevent cross-tenant access.
	WalletForUpdate(ctx context.Context, walletID, userID string) (model.Wallet, error)
	UpdateWallet(ctx context.Context, walletID, userID string, patch WalletPatch) (model.Wallet, error)

	CreateOrder(ctx context.Context, o model.Order) (model.Order, error)
	MarkOrderFilled(ctx context.Context, orderID, userID string, executedPrice decimal.Decimal, executedAt time.Time, positionID string) error
	OrderByPositionID(ctx context.Context, positionID string) (model.Order, error)

	CreatePosition(ctx context.Context, p model.Position) (model.Position, error)
	// PositionForUpdate locks the position row by (id, user).
	PositionForUpdate(ctx context.Context, positionID, userID string) (model.Position, error)
	UpdatePosition(ctx context.Context, positionID, userID string, patch PositionPatch) (model.Position, error)

	CreateDeal(ctx context.Context, d model.Deal) (model.Deal, error)
}

type Store interface {
	// Within runs fn inside one transaction; any error aborts the whole
	// unit with no partial writes.
	Within(ctx context.Context, fn func(tx Tx) error) error

	CreateWallet(ctx context.Context, w model.Wallet) (model.Wallet, error)
	WalletByType(ctx context.Context, userID string, wt types.WalletType) (model.Wallet, error)
	WalletByID(ctx context.Context, walletID, userID string) (model.Wallet, error)

	// Display reads; no locks, staleness tolerated.
	OpenPositions(ctx context.Context, userID string) ([]model.Position, error)
	DealHistory(ctx context.Context, userID string, from, to time.Time) ([]model.DealHistoryRow, error)
}

// WalletPatch mutates only the fields set. Balance, equity, margin and
// free margin are the sole mutable wallet fields post-creation.
type WalletPatch struct {
	Balance    *decimal.Decimal
	Equity     *decimal.Decimal
	Margin     *decimal.Decimal
	FreeMargin *decimal.Decimal
}

// PositionPatch mutates only the fields set. Close price, closed-at and
// pnl stay untouched (null) on partial closes.
type PositionPatch struct {
	Volume         *decimal.Decimal
	RequiredMargin *decimal.Decimal
	Status         *types.PositionStatus
	ClosePrice     *decimal.Decimal
	ClosedAt       *time.Time
	PnL            *decimal.Decimal
}
