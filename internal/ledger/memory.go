package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"lv-marginfx/internal/apperr"
	"lv-marginfx/internal/model"
	"lv-marginfx/internal/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryStore implements Store with in-memory maps. Used for testing.
// It preserves the locking semantics of the Postgres store: a locked
// read takes the row's mutex and holds it until the unit of work ends,
// so concurrent transactions on one wallet serialize exactly as they do
// against SELECT ... FOR UPDATE. Writes stage inside the transaction and
// apply only on commit.
type MemoryStore struct {
	mu        sync.Mutex
	wallets   map[string]*lockedRow[model.Wallet]
	orders    map[string]model.Order
	positions map[string]*lockedRow[model.Position]
	deals     []model.Deal
}

type lockedRow[T any] struct {
	mu  sync.Mutex
	val T
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		wallets:   make(map[string]*lockedRow[model.Wallet]),
		positions: make(map[string]*lockedRow[model.Position]),
		orders:    make(map[string]model.Order),
	}
}

func (s *MemoryStore) Within(_ context.Context, fn func(tx Tx) error) error {
	t := &memTx{
		store:         s,
		stagedWallets: make(map[string]model.Wallet),
		stagedPosns:   make(map[string]model.Position),
		stagedOrders:  make(map[string]model.Order),
	}
	defer t.unlockAll()

	if err := fn(t); err != nil {
		return err
	}
	t.commit()
	return nil
}

type memTx struct {
	store         *MemoryStore
	locked        []*sync.Mutex
	stagedWallets map[string]model.Wallet
	stagedPosns   map[string]model.Position
	stagedOrders  map[string]model.Order
	stagedDeals   []model.Deal
}

func (t *memTx) unlockAll() {
	for i := len(t.locked) - 1; i >= 0; i-- {
		t.locked[i].Unlock()
	}
	t.locked = nil
}

func (t *memTx) commit() {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, w := range t.stagedWallets {
		if row, ok := s.wallets[id]; ok {
			row.val = w
		}
	}
	for id, p := range t.stagedPosns {
		if row, ok := s.positions[id]; ok {
			row.val = p
		} else {
			s.positions[id] = &lockedRow[model.Position]{val: p}
		}
	}
	for id, o := range t.stagedOrders {
		s.orders[id] = o
	}
	s.deals = append(s.deals, t.stagedDeals...)
}

func (t *memTx) WalletForUpdate(_ context.Context, walletID, userID string) (model.Wallet, error) {
	t.store.mu.Lock()
	row, ok := t.store.wallets[walletID]
	t.store.mu.Unlock()
	if !ok || row.val.UserID != userID {
		return model.Wallet{}, apperr.New(apperr.KindNotFound, "wallet not found")
	}
	row.mu.Lock()
	t.locked = append(t.locked, &row.mu)
	t.stagedWallets[walletID] = row.val
	return row.val, nil
}

func (t *memTx) UpdateWallet(_ context.Context, walletID, userID string, patch WalletPatch) (model.Wallet, error) {
	w, ok := t.stagedWallets[walletID]
	if !ok || w.UserID != userID {
		return model.Wallet{}, apperr.New(apperr.KindNotFound, "wallet not found")
	}
	if patch.Balance != nil {
		w.Balance = *patch.Balance
	}
	if patch.Equity != nil {
		w.Equity = *patch.Equity
	}
	if patch.Margin != nil {
		w.Margin = *patch.Margin
	}
	if patch.FreeMargin != nil {
		w.FreeMargin = *patch.FreeMargin
	}
	w.UpdatedAt = time.Now().UTC()
	t.stagedWallets[walletID] = w
	return w, nil
}

func (t *memTx) CreateOrder(_ context.Context, o model.Order) (model.Order, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.RequestedAt.IsZero() {
		o.RequestedAt = time.Now().UTC()
	}
	t.stagedOrders[o.ID] = o
	return o, nil
}

func (t *memTx) MarkOrderFilled(_ context.Context, orderID, userID string, executedPrice decimal.Decimal, executedAt time.Time, positionID string) error {
	o, ok := t.stagedOrders[orderID]
	if !ok {
		t.store.mu.Lock()
		o, ok = t.store.orders[orderID]
		t.store.mu.Unlock()
	}
	if !ok || o.UserID != userID {
		return apperr.New(apperr.KindNotFound, "order not found")
	}
	o.Status = types.OrderStatusFilled
	o.ExecutedPrice = &executedPrice
	o.ExecutedAt = &executedAt
	o.PositionID = &positionID
	t.stagedOrders[orderID] = o
	return nil
}

func (t *memTx) OrderByPositionID(_ context.Context, positionID string) (model.Order, error) {
	for _, o := range t.stagedOrders {
		if o.PositionID != nil && *o.PositionID == positionID {
			return o, nil
		}
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, o := range t.store.orders {
		if o.PositionID != nil && *o.PositionID == positionID {
			return o, nil
		}
	}
	return model.Order{}, apperr.New(apperr.KindNotFound, "order not found")
}

func (t *memTx) CreatePosition(_ context.Context, p model.Position) (model.Position, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.OpenedAt.IsZero() {
		p.OpenedAt = time.Now().UTC()
	}
	t.stagedPosns[p.ID] = p
	return p, nil
}

func (t *memTx) PositionForUpdate(_ context.Context, positionID, userID string) (model.Position, error) {
	t.store.mu.Lock()
	row, ok := t.store.positions[positionID]
	t.store.mu.Unlock()
	if !ok || row.val.UserID != userID {
		return model.Position{}, apperr.New(apperr.KindNotFound, "position not found")
	}
	row.mu.Lock()
	t.locked = append(t.locked, &row.mu)
	t.stagedPosns[positionID] = row.val
	return row.val, nil
}

func (t *memTx) UpdatePosition(_ context.Context, positionID, userID string, patch PositionPatch) (model.Position, error) {
	p, ok := t.stagedPosns[positionID]
	if !ok || p.UserID != userID {
		return model.Position{}, apperr.New(apperr.KindNotFound, "position not found")
	}
	if patch.Volume != nil {
		p.Volume = *patch.Volume
	}
	if patch.RequiredMargin != nil {
		p.RequiredMargin = *patch.RequiredMargin
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.ClosePrice != nil {
		p.ClosePrice = patch.ClosePrice
	}
	if patch.ClosedAt != nil {
		p.ClosedAt = patch.ClosedAt
	}
	if patch.PnL != nil {
		p.PnL = patch.PnL
	}
	t.stagedPosns[positionID] = p
	return p, nil
}

func (t *memTx) CreateDeal(_ context.Context, d model.Deal) (model.Deal, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Time.IsZero() {
		d.Time = time.Now().UTC()
	}
	t.stagedDeals = append(t.stagedDeals, d)
	return d, nil
}

// --- unlocked reads ---

func (s *MemoryStore) CreateWallet(_ context.Context, w model.Wallet) (model.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.wallets {
		if row.val.UserID == w.UserID && row.val.Type == w.Type {
			return model.Wallet{}, apperr.New(apperr.KindConflict, "wallet already exists")
		}
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	w.CreatedAt, w.UpdatedAt = now, now
	s.wallets[w.ID] = &lockedRow[model.Wallet]{val: w}
	return w, nil
}

func (s *MemoryStore) WalletByType(_ context.Context, userID string, wt types.WalletType) (model.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.wallets {
		if row.val.UserID == userID && row.val.Type == wt {
			return row.val, nil
		}
	}
	return model.Wallet{}, apperr.New(apperr.KindNotFound, "wallet not found")
}

func (s *MemoryStore) WalletByID(_ context.Context, walletID, userID string) (model.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.wallets[walletID]
	if !ok || row.val.UserID != userID {
		return model.Wallet{}, apperr.New(apperr.KindNotFound, "wallet not found")
	}
	return row.val, nil
}

func (s *MemoryStore) OpenPositions(_ context.Context, userID string) ([]model.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Position
	for _, row := range s.positions {
		if row.val.UserID == userID && row.val.Status == types.PositionStatusOpen {
			out = append(out, row.val)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.After(out[j].OpenedAt) })
	return out, nil
}

func (s *MemoryStore) DealHistory(_ context.Context, userID string, from, to time.Time) ([]model.DealHistoryRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.DealHistoryRow
	for _, d := range s.deals {
		if d.Direction != types.DealDirectionClose || d.Time.Before(from) || d.Time.After(to) {
			continue
		}
		row, ok := s.positions[d.PositionID]
		if !ok || row.val.UserID != userID {
			continue
		}
		price := d.Price
		closeTime := d.Time
		out = append(out, model.DealHistoryRow{
			DealID:     d.ID,
			PositionID: d.PositionID,
			Type:       d.Type,
			Instrument: d.Instrument,
			Volume:     d.Volume,
			Profit:     d.Profit,
			OpenPrice:  row.val.OpenPrice,
			ClosePrice: &price,
			SL:         d.SL,
			TP:         d.TP,
			Commission: d.Commission,
			Fee:        d.Fee,
			Swap:       d.Swap,
			OpenTime:   row.val.OpenedAt,
			CloseTime:  &closeTime,
			Reason:     d.Reason,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CloseTime.After(*out[j].CloseTime) })
	return out, nil
}

// Position returns the stored row by id, open or closed. Like Deals, a
// test-side accessor for consistency checks.
func (s *MemoryStore) Position(id string) (model.Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.positions[id]
	if !ok {
		return model.Position{}, false
	}
	return row.val, true
}

// Deals returns a copy of the audit trail for consistency checks in
// tests: wallet and position aggregates must be derivable from replay.
func (s *MemoryStore) Deals() []model.Deal {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Deal, len(s.deals))
	copy(out, s.deals)
	return out
}

var _ Store = (*MemoryStore)(nil)
