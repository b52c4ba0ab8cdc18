package marketdata

import (
	"context"
	"sync"

	"lv-marginfx/internal/apperr"
	"lv-marginfx/internal/instruments"
)

// MemorySource implements Source with a fixed tick table. Used for
// testing; ticks set here never go stale.
type MemorySource struct {
	mu    sync.RWMutex
	ticks map[string]Tick
}

func NewMemorySource() *MemorySource {
	return &MemorySource{ticks: make(map[string]Tick)}
}

func (s *MemorySource) Set(symbol string, t Tick) {
	s.mu.Lock()
	s.ticks[instruments.Normalize(symbol)] = t
	s.mu.Unlock()
}

func (s *MemorySource) Delete(symbol string) {
	s.mu.Lock()
	delete(s.ticks, instruments.Normalize(symbol))
	s.mu.Unlock()
}

func (s *MemorySource) Tick(_ context.Context, symbol string) (Tick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.ticks[instruments.Normalize(symbol)]
	if !ok {
		return Tick{}, apperr.Newf(apperr.KindUnavailable, "market data unavailable for %s", symbol)
	}
	return t, nil
}
