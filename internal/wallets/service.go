// Package wallets manages account creation and lookup. A user holds at
// most one wallet per type; demo wallets start funded.
package wallets

import (
	"context"
	"log/slog"
	"time"

	"lv-marginfx/internal/apperr"
	"lv-marginfx/internal/ledger"
	"lv-marginfx/internal/model"
	"lv-marginfx/internal/types"

	"github.com/shopspring/decimal"
)

const (
	DefaultCurrency = "USD"
	DefaultLeverage = 200
)

// DefaultDemoDeposit is the opening balance of a demo wallet when none
// is configured.
var DefaultDemoDeposit = decimal.NewFromInt(10000)

type Service struct {
	store       ledger.Store
	demoDeposit decimal.Decimal
	log         *slog.Logger
}

func NewService(store ledger.Store, demoDeposit decimal.Decimal, log *slog.Logger) *Service {
	if !demoDeposit.IsPositive() {
		demoDeposit = DefaultDemoDeposit
	}
	return &Service{store: store, demoDeposit: demoDeposit, log: log}
}

// Create provisions a wallet of the given type for the user. Real
// wallets open empty; demo wallets open with the configured deposit.
// A second wallet of the same type is a conflict.
func (s *Service) Create(ctx context.Context, userID string, wt types.WalletType) (model.Wallet, error) {
	if wt != types.WalletTypeReal && wt != types.WalletTypeDemo {
		return model.Wallet{}, apperr.Newf(apperr.KindInvalid, "invalid wallet type: %s", wt)
	}

	balance := decimal.Zero
	if wt == types.WalletTypeDemo {
		balance = s.demoDeposit
	}
	now := time.Now().UTC()
	w, err := s.store.CreateWallet(ctx, model.Wallet{
		UserID:     userID,
		Type:       wt,
		Balance:    balance,
		Equity:     balance,
		Margin:     decimal.Zero,
		FreeMargin: balance,
		Currency:   DefaultCurrency,
		Leverage:   DefaultLeverage,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return model.Wallet{}, err
	}
	s.log.Info("wallet created", "wallet", w.ID, "user", userID, "type", wt)
	return w, nil
}

// ByType returns the user's wallet of the given type.
func (s *Service) ByType(ctx context.Context, userID string, wt types.WalletType) (model.Wallet, error) {
	return s.store.WalletByType(ctx, userID, wt)
}

// ByID returns the wallet only if it belongs to the user.
func (s *Service) ByID(ctx context.Context, walletID, userID string) (model.Wallet, error) {
	return s.store.WalletByID(ctx, walletID, userID)
}
