// Package marketdata looks up the latest bid/ask tick for an instrument.
// Ticks live in a short-lived Redis hash maintained by the price feed;
// a missing, malformed, or stale tick is a hard failure, never a
// fallback to an old value.
package marketdata

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"lv-marginfx/internal/apperr"
	"lv-marginfx/internal/instruments"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// PriceKey is the Redis hash holding one JSON tick per normalized symbol.
const PriceKey = "market:prices"

// DefaultMaxAge bounds how old a tick may be before it counts as stale.
const DefaultMaxAge = 15 * time.Second

type Tick struct {
	Bid  decimal.Decimal
	Ask  decimal.Decimal
	Time time.Time
}

type Source interface {
	Tick(ctx context.Context, symbol string) (Tick, error)
}

type RedisSource struct {
	rdb    *redis.Client
	maxAge time.Duration
}

func NewRedisSource(rdb *redis.Client, maxAge time.Duration) *RedisSource {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &RedisSource{rdb: rdb, maxAge: maxAge}
}

func (s *RedisSource) Tick(ctx context.Context, symbol string) (Tick, error) {
	sym := instruments.Normalize(symbol)
	raw, err := s.rdb.HGet(ctx, PriceKey, sym).Result()
	if err == redis.Nil {
		return Tick{}, apperr.Newf(apperr.KindUnavailable, "market data unavailable for %s", sym)
	}
	if err != nil {
		return Tick{}, apperr.Wrap(apperr.KindUnavailable, "failed to fetch market price", err)
	}
	return parseTick([]byte(raw), sym, time.Now().UTC(), s.maxAge)
}

// wireTick is the feed's JSON shape; times are epoch milliseconds.
type wireTick struct {
	Bid  float64 `json:"bid"`
	Ask  float64 `json:"ask"`
	Time int64   `json:"time"`
}

func parseTick(raw []byte, symbol string, now time.Time, maxAge time.Duration) (Tick, error) {
	var wt wireTick
	if err := json.Unmarshal(raw, &wt); err != nil {
		return Tick{}, apperr.Wrap(apperr.KindUnavailable, "malformed tick for "+symbol, err)
	}
	if !validQuote(wt.Bid) || !validQuote(wt.Ask) {
		return Tick{}, apperr.Newf(apperr.KindUnavailable, "market price unavailable for %s", symbol)
	}
	at := time.UnixMilli(wt.Time).UTC()
	if maxAge > 0 && now.Sub(at) > maxAge {
		return Tick{}, apperr.Newf(apperr.KindUnavailable, "stale tick for %s", symbol)
	}
	return Tick{
		Bid:  decimal.NewFromFloat(wt.Bid),
		Ask:  decimal.NewFromFloat(wt.Ask),
		Time: at,
	}, nil
}

func validQuote(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
