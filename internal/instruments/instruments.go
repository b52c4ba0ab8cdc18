// Package instruments is the static instrument reference: contract size,
// price precision, margin factor, and asset class per tradable symbol.
package instruments

import (
	"strings"

	"lv-marginfx/internal/apperr"
	"lv-marginfx/internal/types"

	"github.com/shopspring/decimal"
)

type Config struct {
	Symbol       string           `json:"symbol"`
	ContractSize decimal.Decimal  `json:"contract_size"`
	Digits       int              `json:"digits"`
	MarginFactor decimal.Decimal  `json:"margin_factor"`
	AssetClass   types.AssetClass `json:"asset_class"`
}

var catalog = map[string]Config{
	"EURUSD":  fx("EURUSD", 5),
	"GBPUSD":  fx("GBPUSD", 5),
	"USDJPY":  fx("USDJPY", 3),
	"EURUSDm": fx("EURUSDm", 5),

	"XAUUSD": metal("XAUUSD", 100, 2),
	"XAGUSD": metal("XAGUSD", 5000, 3),

	"BTCUSD": crypto("BTCUSD"),
	"ETHUSD": crypto("ETHUSD"),
	"LTCUSD": crypto("LTCUSD"),
}

func fx(symbol string, digits int) Config {
	return Config{
		Symbol:       symbol,
		ContractSize: decimal.NewFromInt(100_000),
		Digits:       digits,
		MarginFactor: decimal.NewFromInt(1),
		AssetClass:   types.AssetClassForex,
	}
}

func metal(symbol string, contractSize int64, digits int) Config {
	return Config{
		Symbol:       symbol,
		ContractSize: decimal.NewFromInt(contractSize),
		Digits:       digits,
		MarginFactor: decimal.NewFromInt(1),
		AssetClass:   types.AssetClassMetal,
	}
}

func crypto(symbol string) Config {
	return Config{
		Symbol:       symbol,
		ContractSize: decimal.NewFromInt(1),
		Digits:       2,
		MarginFactor: decimal.NewFromFloat(0.5),
		AssetClass:   types.AssetClassCrypto,
	}
}

// Normalize strips the display slash: "EUR/USD" and "EURUSD" address the
// same instrument.
func Normalize(symbol string) string {
	return strings.ReplaceAll(symbol, "/", "")
}

func Lookup(symbol string) (Config, error) {
	cfg, ok := catalog[Normalize(symbol)]
	if !ok {
		return Config{}, apperr.Newf(apperr.KindNotFound, "unknown instrument %q", symbol)
	}
	return cfg, nil
}

// Symbols lists the catalog in no particular order.
func Symbols() []string {
	out := make([]string, 0, len(catalog))
	for s := range catalog {
		out = append(out, s)
	}
	return out
}
