// Package margin holds the pure arithmetic of the engine: required
// margin, realized profit and loss, and the order-type decoding table.
// No I/O, all money math on decimals.
package margin

import (
	"lv-marginfx/internal/apperr"
	"lv-marginfx/internal/types"

	"github.com/shopspring/decimal"
)

// CurrencyPrecision is the ledger's precision: wallet mutations round to
// cents, full precision is kept everywhere in between.
const CurrencyPrecision = 2

// Required computes the margin reserved against an open exposure:
//
//	volumeLots * contractSize * price * marginFactor / leverage
//
// Callers reject non-positive results.
func Required(volumeLots, price decimal.Decimal, leverage int, contractSize, marginFactor decimal.Decimal) (decimal.Decimal, error) {
	if leverage <= 0 {
		return decimal.Zero, apperr.Newf(apperr.KindInvalid, "invalid leverage %d", leverage)
	}
	return volumeLots.
		Mul(contractSize).
		Mul(price).
		Mul(marginFactor).
		Div(decimal.NewFromInt(int64(leverage))), nil
}

// PnL is the realized profit of closing closingVolume lots at closePrice
// against a position opened at openPrice. Buy profits when the price
// rises, sell when it falls.
func PnL(side types.Side, openPrice, closePrice, contractSize, closingVolume decimal.Decimal) decimal.Decimal {
	diff := closePrice.Sub(openPrice)
	if side == types.SideSell {
		diff = diff.Neg()
	}
	return diff.Mul(closingVolume).Mul(contractSize)
}

// RoundCurrency rounds to the ledger precision. Applied only at the
// point of wallet mutation so repeated partial closes do not drift.
func RoundCurrency(v decimal.Decimal) decimal.Decimal {
	return v.Round(CurrencyPrecision)
}

// DecodeOrderType maps the numeric order-type code of the wire protocol
// onto side and kind. Anything outside the fixed table is an input
// error, never a silent default.
func DecodeOrderType(code int) (types.Side, types.OrderKind, error) {
	switch code {
	case 0:
		return types.SideBuy, types.OrderKindMarket, nil
	case 1:
		return types.SideSell, types.OrderKindMarket, nil
	case 2:
		return types.SideBuy, types.OrderKindPending, nil
	case 3:
		return types.SideSell, types.OrderKindPending, nil
	default:
		return "", "", apperr.Newf(apperr.KindInvalid, "invalid order type: %d", code)
	}
}

// EncodeOrderType is the inverse mapping used when assembling event
// payloads from a stored side.
func EncodeOrderType(side types.Side) int {
	if side == types.SideSell {
		return 1
	}
	return 0
}
