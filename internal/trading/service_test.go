package trading

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"lv-marginfx/internal/apperr"
	"lv-marginfx/internal/events"
	"lv-marginfx/internal/ledger"
	"lv-marginfx/internal/marketdata"
	"lv-marginfx/internal/model"
	"lv-marginfx/internal/types"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type capturedEvent struct {
	topic string
	evt   events.Event
}

type capturePublisher struct {
	mu     sync.Mutex
	events []capturedEvent
}

func (p *capturePublisher) Publish(_ context.Context, topic string, evt events.Event) error {
	p.mu.Lock()
	p.events = append(p.events, capturedEvent{topic: topic, evt: evt})
	p.mu.Unlock()
	return nil
}

func (p *capturePublisher) all() []capturedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]capturedEvent, len(p.events))
	copy(out, p.events)
	return out
}

func (p *capturePublisher) reset() {
	p.mu.Lock()
	p.events = nil
	p.mu.Unlock()
}

type fixture struct {
	store  *ledger.MemoryStore
	market *marketdata.MemorySource
	pub    *capturePublisher
	svc    *Service
	wallet model.Wallet
}

// newFixture funds one wallet and quotes EURUSD at 1.0998/1.1000.
func newFixture(t *testing.T, balance string, leverage int) *fixture {
	t.Helper()
	store := ledger.NewMemoryStore()
	market := marketdata.NewMemorySource()
	pub := &capturePublisher{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(store, market, pub, log)

	w, err := store.CreateWallet(context.Background(), model.Wallet{
		UserID:     "u1",
		Type:       types.WalletTypeDemo,
		Balance:    dec(balance),
		Equity:     dec(balance),
		Margin:     decimal.Zero,
		FreeMargin: dec(balance),
		Currency:   "USD",
		Leverage:   leverage,
	})
	if err != nil {
		t.Fatalf("CreateWallet: %v", err)
	}
	market.Set("EURUSD", marketdata.Tick{Bid: dec("1.0998"), Ask: dec("1.1000"), Time: time.Now()})
	return &fixture{store: store, market: market, pub: pub, svc: svc, wallet: w}
}

func (f *fixture) openBuy(t *testing.T, volume string) OrderResult {
	t.Helper()
	res, err := f.svc.ExecuteOrder(context.Background(), "u1", f.wallet.ID, OrderRequest{
		Instrument: "EURUSD",
		Type:       0,
		Volume:     dec(volume),
	})
	if err != nil {
		t.Fatalf("ExecuteOrder: %v", err)
	}
	return res
}

func (f *fixture) walletNow(t *testing.T) model.Wallet {
	t.Helper()
	w, err := f.store.WalletByID(context.Background(), f.wallet.ID, "u1")
	if err != nil {
		t.Fatalf("WalletByID: %v", err)
	}
	return w
}

func checkInvariant(t *testing.T, w model.Wallet) {
	t.Helper()
	if !w.FreeMargin.Equal(w.Balance.Sub(w.Margin)) {
		t.Fatalf("free margin invariant broken: free=%s balance=%s margin=%s", w.FreeMargin, w.Balance, w.Margin)
	}
}

func TestExecuteOrderOpensBuyPosition(t *testing.T) {
	f := newFixture(t, "10000", 100)
	res := f.openBuy(t, "1")

	if !res.Price.Equal(dec("1.1000")) {
		t.Fatalf("executed price = %s, want 1.1000", res.Price)
	}

	w := f.walletNow(t)
	if !w.Margin.Equal(dec("1100")) {
		t.Fatalf("margin = %s, want 1100", w.Margin)
	}
	if !w.FreeMargin.Equal(dec("8900")) {
		t.Fatalf("free margin = %s, want 8900", w.FreeMargin)
	}
	if !w.Balance.Equal(dec("10000")) {
		t.Fatalf("balance = %s, want unchanged 10000", w.Balance)
	}
	checkInvariant(t, w)

	positions, err := f.store.OpenPositions(context.Background(), "u1")
	if err != nil {
		t.Fatalf("OpenPositions: %v", err)
	}
	if len(positions) != 1 {
		t.Fatalf("open positions = %d, want 1", len(positions))
	}
	p := positions[0]
	if p.ID != res.PositionID || !p.RequiredMargin.Equal(dec("1100")) || !p.OpenPrice.Equal(dec("1.1000")) {
		t.Fatalf("unexpected position: %+v", p)
	}
	if p.Side != types.SideBuy || p.Status != types.PositionStatusOpen {
		t.Fatalf("unexpected position state: %+v", p)
	}

	deals := f.store.Deals()
	if len(deals) != 1 {
		t.Fatalf("deals = %d, want 1", len(deals))
	}
	d := deals[0]
	if d.Direction != types.DealDirectionOpen || !d.Profit.IsZero() || !d.Price.Equal(dec("1.1000")) {
		t.Fatalf("unexpected open deal: %+v", d)
	}
}

func TestExecuteOrderSellUsesBid(t *testing.T) {
	f := newFixture(t, "10000", 100)
	res, err := f.svc.ExecuteOrder(context.Background(), "u1", f.wallet.ID, OrderRequest{
		Instrument: "EURUSD",
		Type:       1,
		Volume:     dec("1"),
	})
	if err != nil {
		t.Fatalf("ExecuteOrder: %v", err)
	}
	if !res.Price.Equal(dec("1.0998")) {
		t.Fatalf("executed price = %s, want bid 1.0998", res.Price)
	}
}

func TestExecuteOrderRejections(t *testing.T) {
	f := newFixture(t, "10000", 100)
	ctx := context.Background()

	tests := []struct {
		name string
		req  OrderRequest
		kind apperr.Kind
	}{
		{"zero volume", OrderRequest{Instrument: "EURUSD", Type: 0, Volume: decimal.Zero}, apperr.KindInvalid},
		{"negative volume", OrderRequest{Instrument: "EURUSD", Type: 0, Volume: dec("-1")}, apperr.KindInvalid},
		{"bad type code", OrderRequest{Instrument: "EURUSD", Type: 7, Volume: dec("1")}, apperr.KindInvalid},
		{"pending kind", OrderRequest{Instrument: "EURUSD", Type: 2, Volume: dec("1")}, apperr.KindInvalid},
		{"unknown instrument", OrderRequest{Instrument: "DOGEUSD", Type: 0, Volume: dec("1")}, apperr.KindNotFound},
		{"no tick", OrderRequest{Instrument: "GBPUSD", Type: 0, Volume: dec("1")}, apperr.KindUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.ExecuteOrder(ctx, "u1", f.wallet.ID, tt.req)
			if !apperr.IsKind(err, tt.kind) {
				t.Fatalf("got %v, want kind %d", err, tt.kind)
			}
		})
	}

	// Nothing may have been written.
	if deals := f.store.Deals(); len(deals) != 0 {
		t.Fatalf("deals = %d, want 0", len(deals))
	}
	w := f.walletNow(t)
	if !w.Margin.IsZero() || !w.FreeMargin.Equal(dec("10000")) {
		t.Fatalf("wallet touched by rejected orders: %+v", w)
	}
}

func TestExecuteOrderInsufficientMargin(t *testing.T) {
	f := newFixture(t, "50", 100)
	_, err := f.svc.ExecuteOrder(context.Background(), "u1", f.wallet.ID, OrderRequest{
		Instrument: "EURUSD",
		Type:       0,
		Volume:     dec("1"),
	})
	if !apperr.IsKind(err, apperr.KindInvalid) {
		t.Fatalf("got %v, want invalid input", err)
	}

	w := f.walletNow(t)
	if !w.Balance.Equal(dec("50")) || !w.Margin.IsZero() || !w.FreeMargin.Equal(dec("50")) {
		t.Fatalf("wallet touched by rejected order: %+v", w)
	}
	positions, _ := f.store.OpenPositions(context.Background(), "u1")
	if len(positions) != 0 || len(f.store.Deals()) != 0 {
		t.Fatalf("rows created by rejected order: %d positions, %d deals", len(positions), len(f.store.Deals()))
	}
	if len(f.pub.all()) != 0 {
		t.Fatal("events published for rejected order")
	}
}

func TestExecuteOrderUnknownWallet(t *testing.T) {
	f := newFixture(t, "10000", 100)
	_, err := f.svc.ExecuteOrder(context.Background(), "u1", "missing", OrderRequest{
		Instrument: "EURUSD",
		Type:       0,
		Volume:     dec("1"),
	})
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("got %v, want not found", err)
	}
}

func TestCloseFullBuyProfit(t *testing.T) {
	f := newFixture(t, "10000", 100)
	res := f.openBuy(t, "1")
	f.pub.reset()

	f.market.Set("EURUSD", marketdata.Tick{Bid: dec("1.1048"), Ask: dec("1.1050"), Time: time.Now()})
	closeRes, err := f.svc.ClosePosition(context.Background(), "u1", f.wallet.ID, res.PositionID, CloseRequest{Volume: dec("1")})
	if err != nil {
		t.Fatalf("ClosePosition: %v", err)
	}
	if !closeRes.Price.Equal(dec("1.1050")) {
		t.Fatalf("close price = %s, want 1.1050", closeRes.Price)
	}

	w := f.walletNow(t)
	if !w.Balance.Equal(dec("10500")) {
		t.Fatalf("balance = %s, want 10500", w.Balance)
	}
	if !w.Margin.IsZero() {
		t.Fatalf("margin = %s, want 0", w.Margin)
	}
	if !w.FreeMargin.Equal(dec("10500")) {
		t.Fatalf("free margin = %s, want 10500", w.FreeMargin)
	}
	checkInvariant(t, w)

	positions, _ := f.store.OpenPositions(context.Background(), "u1")
	if len(positions) != 0 {
		t.Fatalf("open positions = %d, want 0", len(positions))
	}

	deals := f.store.Deals()
	if len(deals) != 2 {
		t.Fatalf("deals = %d, want 2", len(deals))
	}
	closing := deals[1]
	if closing.Direction != types.DealDirectionClose || !closing.Profit.Equal(dec("500")) {
		t.Fatalf("unexpected closing deal: %+v", closing)
	}
	if !closing.Volume.Equal(dec("1")) || !closing.VolumeClosed.Equal(dec("1")) {
		t.Fatalf("closing deal volumes: %+v", closing)
	}
}

func TestCloseUsesOneSettlementMoment(t *testing.T) {
	f := newFixture(t, "10000", 100)
	res := f.openBuy(t, "1")

	closeRes, err := f.svc.ClosePosition(context.Background(), "u1", f.wallet.ID, res.PositionID, CloseRequest{Volume: dec("1")})
	if err != nil {
		t.Fatalf("ClosePosition: %v", err)
	}

	p, ok := f.store.Position(res.PositionID)
	if !ok || p.ClosedAt == nil {
		t.Fatalf("closed position not stamped: %+v", p)
	}
	deals := f.store.Deals()
	closing := deals[len(deals)-1]
	if !p.ClosedAt.Equal(closing.Time) {
		t.Fatalf("position closed at %s, deal at %s", p.ClosedAt, closing.Time)
	}
	if closeRes.Time != closing.Time.UnixMilli() {
		t.Fatalf("result time %d, deal time %d", closeRes.Time, closing.Time.UnixMilli())
	}
}

func TestClosePartial(t *testing.T) {
	f := newFixture(t, "10000", 100)
	res := f.openBuy(t, "1")

	f.market.Set("EURUSD", marketdata.Tick{Bid: dec("1.1018"), Ask: dec("1.1020"), Time: time.Now()})
	if _, err := f.svc.ClosePosition(context.Background(), "u1", f.wallet.ID, res.PositionID, CloseRequest{Volume: dec("0.4")}); err != nil {
		t.Fatalf("ClosePosition: %v", err)
	}

	w := f.walletNow(t)
	if !w.Balance.Equal(dec("10080")) {
		t.Fatalf("balance = %s, want 10080", w.Balance)
	}
	if !w.Margin.Equal(dec("660")) {
		t.Fatalf("margin = %s, want 660", w.Margin)
	}
	if !w.FreeMargin.Equal(dec("9420")) {
		t.Fatalf("free margin = %s, want 9420", w.FreeMargin)
	}
	checkInvariant(t, w)

	positions, _ := f.store.OpenPositions(context.Background(), "u1")
	if len(positions) != 1 {
		t.Fatalf("open positions = %d, want 1", len(positions))
	}
	p := positions[0]
	if p.Status != types.PositionStatusOpen || !p.Volume.Equal(dec("0.6")) || !p.RequiredMargin.Equal(dec("660")) {
		t.Fatalf("unexpected remainder: %+v", p)
	}
	if p.ClosePrice != nil || p.ClosedAt != nil || p.PnL != nil {
		t.Fatalf("partial close must not stamp close fields: %+v", p)
	}

	deals := f.store.Deals()
	closing := deals[len(deals)-1]
	if !closing.Profit.Equal(dec("80")) || !closing.VolumeClosed.Equal(dec("0.4")) {
		t.Fatalf("unexpected partial deal: %+v", closing)
	}
}

func TestPartialThenFullReleasesAllMargin(t *testing.T) {
	f := newFixture(t, "10000", 100)
	res := f.openBuy(t, "1")

	f.market.Set("EURUSD", marketdata.Tick{Bid: dec("1.1018"), Ask: dec("1.1020"), Time: time.Now()})
	if _, err := f.svc.ClosePosition(context.Background(), "u1", f.wallet.ID, res.PositionID, CloseRequest{Volume: dec("0.4")}); err != nil {
		t.Fatalf("partial close: %v", err)
	}
	if _, err := f.svc.ClosePosition(context.Background(), "u1", f.wallet.ID, res.PositionID, CloseRequest{Volume: dec("0.6")}); err != nil {
		t.Fatalf("final close: %v", err)
	}

	// 80 on the first slice, 120 on the second: same total as one close.
	w := f.walletNow(t)
	if !w.Balance.Equal(dec("10200")) {
		t.Fatalf("balance = %s, want 10200", w.Balance)
	}
	if !w.Margin.IsZero() {
		t.Fatalf("margin = %s, want all 1100 released", w.Margin)
	}
	checkInvariant(t, w)

	positions, _ := f.store.OpenPositions(context.Background(), "u1")
	if len(positions) != 0 {
		t.Fatalf("open positions = %d, want 0", len(positions))
	}
}

func TestCloseMoreThanAvailable(t *testing.T) {
	f := newFixture(t, "10000", 100)
	res := f.openBuy(t, "1")
	before := f.walletNow(t)

	_, err := f.svc.ClosePosition(context.Background(), "u1", f.wallet.ID, res.PositionID, CloseRequest{Volume: dec("1.5")})
	if !apperr.IsKind(err, apperr.KindInvalid) {
		t.Fatalf("got %v, want invalid input", err)
	}

	after := f.walletNow(t)
	if !after.Balance.Equal(before.Balance) || !after.Margin.Equal(before.Margin) || !after.FreeMargin.Equal(before.FreeMargin) {
		t.Fatalf("wallet changed by rejected close: before %+v after %+v", before, after)
	}
	positions, _ := f.store.OpenPositions(context.Background(), "u1")
	if len(positions) != 1 || !positions[0].Volume.Equal(dec("1")) {
		t.Fatalf("position changed by rejected close: %+v", positions)
	}
}

func TestCloseAlreadyClosed(t *testing.T) {
	f := newFixture(t, "10000", 100)
	res := f.openBuy(t, "1")
	if _, err := f.svc.ClosePosition(context.Background(), "u1", f.wallet.ID, res.PositionID, CloseRequest{Volume: dec("1")}); err != nil {
		t.Fatalf("first close: %v", err)
	}
	_, err := f.svc.ClosePosition(context.Background(), "u1", f.wallet.ID, res.PositionID, CloseRequest{Volume: dec("1")})
	if !apperr.IsKind(err, apperr.KindInvalid) {
		t.Fatalf("got %v, want invalid input", err)
	}
}

func TestCloseWithoutTickAborts(t *testing.T) {
	f := newFixture(t, "10000", 100)
	res := f.openBuy(t, "1")
	before := f.walletNow(t)

	f.market.Delete("EURUSD")
	_, err := f.svc.ClosePosition(context.Background(), "u1", f.wallet.ID, res.PositionID, CloseRequest{Volume: dec("1")})
	if !apperr.IsKind(err, apperr.KindUnavailable) {
		t.Fatalf("got %v, want unavailable", err)
	}

	after := f.walletNow(t)
	if !after.Margin.Equal(before.Margin) || !after.Balance.Equal(before.Balance) {
		t.Fatalf("wallet changed by aborted close: %+v", after)
	}
	positions, _ := f.store.OpenPositions(context.Background(), "u1")
	if len(positions) != 1 || positions[0].Status != types.PositionStatusOpen {
		t.Fatalf("position changed by aborted close: %+v", positions)
	}
}

func TestConcurrentOrdersOneWinner(t *testing.T) {
	// Free margin covers exactly one 1-lot order at 1.1000.
	f := newFixture(t, "1100", 100)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.ExecuteOrder(context.Background(), "u1", f.wallet.ID, OrderRequest{
				Instrument: "EURUSD",
				Type:       0,
				Volume:     dec("1"),
			})
		}(i)
	}
	wg.Wait()

	var wins, rejections int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case apperr.IsKind(err, apperr.KindInvalid):
			rejections++
		default:
			t.Fatalf("unexpected error kind: %v", err)
		}
	}
	if wins != 1 || rejections != n-1 {
		t.Fatalf("wins = %d, rejections = %d, want 1 and %d", wins, rejections, n-1)
	}

	w := f.walletNow(t)
	if !w.Margin.Equal(dec("1100")) || !w.FreeMargin.IsZero() {
		t.Fatalf("wallet debited other than once: %+v", w)
	}
	checkInvariant(t, w)

	positions, _ := f.store.OpenPositions(context.Background(), "u1")
	if len(positions) != 1 {
		t.Fatalf("open positions = %d, want 1", len(positions))
	}
	if deals := f.store.Deals(); len(deals) != 1 {
		t.Fatalf("deals = %d, want 1", len(deals))
	}
}

func TestMarginMatchesOpenPositions(t *testing.T) {
	f := newFixture(t, "10000", 100)
	f.openBuy(t, "1")
	f.openBuy(t, "0.5")
	res := f.openBuy(t, "0.3")
	if _, err := f.svc.ClosePosition(context.Background(), "u1", f.wallet.ID, res.PositionID, CloseRequest{Volume: dec("0.3")}); err != nil {
		t.Fatalf("ClosePosition: %v", err)
	}

	positions, err := f.store.OpenPositions(context.Background(), "u1")
	if err != nil {
		t.Fatalf("OpenPositions: %v", err)
	}
	total := decimal.Zero
	for _, p := range positions {
		total = total.Add(p.RequiredMargin)
	}
	w := f.walletNow(t)
	if !w.Margin.Equal(total) {
		t.Fatalf("wallet margin %s does not match open position margin %s", w.Margin, total)
	}
	checkInvariant(t, w)
}

func TestOpenEventOrder(t *testing.T) {
	f := newFixture(t, "10000", 100)
	f.openBuy(t, "1")

	got := f.pub.all()
	want := []struct{ topic, typ string }{
		{events.TopicOrders, events.OrderNew},
		{events.TopicOrders, events.OrderDel},
		{events.TopicPositions, events.PosOpen},
		{events.TopicDeals, events.DealIn},
		{events.TopicAccount, events.AccountUpdate},
	}
	if len(got) != len(want) {
		t.Fatalf("published %d events, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].topic != w.topic || got[i].evt.Type != w.typ {
			t.Fatalf("event %d = %s/%s, want %s/%s", i, got[i].topic, got[i].evt.Type, w.topic, w.typ)
		}
		if got[i].evt.UserID != "u1" {
			t.Fatalf("event %d missing user routing: %+v", i, got[i].evt)
		}
	}
}

func TestCloseEventOrder(t *testing.T) {
	f := newFixture(t, "10000", 100)
	res := f.openBuy(t, "1")

	f.market.Set("EURUSD", marketdata.Tick{Bid: dec("1.1018"), Ask: dec("1.1020"), Time: time.Now()})

	f.pub.reset()
	if _, err := f.svc.ClosePosition(context.Background(), "u1", f.wallet.ID, res.PositionID, CloseRequest{Volume: dec("0.4")}); err != nil {
		t.Fatalf("partial close: %v", err)
	}
	got := f.pub.all()
	wantPartial := []struct{ topic, typ string }{
		{events.TopicPositions, events.PosUpdate},
		{events.TopicPositions, events.PosPartialClose},
		{events.TopicDeals, events.DealOut},
		{events.TopicAccount, events.AccountUpdate},
	}
	if len(got) != len(wantPartial) {
		t.Fatalf("published %d events, want %d", len(got), len(wantPartial))
	}
	for i, w := range wantPartial {
		if got[i].topic != w.topic || got[i].evt.Type != w.typ {
			t.Fatalf("event %d = %s/%s, want %s/%s", i, got[i].topic, got[i].evt.Type, w.topic, w.typ)
		}
	}

	f.pub.reset()
	if _, err := f.svc.ClosePosition(context.Background(), "u1", f.wallet.ID, res.PositionID, CloseRequest{Volume: dec("0.6")}); err != nil {
		t.Fatalf("final close: %v", err)
	}
	got = f.pub.all()
	wantFull := []struct{ topic, typ string }{
		{events.TopicPositions, events.PosClose},
		{events.TopicDeals, events.DealOut},
		{events.TopicAccount, events.AccountUpdate},
	}
	if len(got) != len(wantFull) {
		t.Fatalf("published %d events, want %d", len(got), len(wantFull))
	}
	for i, w := range wantFull {
		if got[i].topic != w.topic || got[i].evt.Type != w.typ {
			t.Fatalf("event %d = %s/%s, want %s/%s", i, got[i].topic, got[i].evt.Type, w.topic, w.typ)
		}
	}
}

func TestOpenPositionsView(t *testing.T) {
	f := newFixture(t, "10000", 100)
	res := f.openBuy(t, "1")

	f.market.Set("EURUSD", marketdata.Tick{Bid: dec("1.1048"), Ask: dec("1.1050"), Time: time.Now()})
	views, err := f.svc.OpenPositions(context.Background(), "u1")
	if err != nil {
		t.Fatalf("OpenPositions: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("views = %d, want 1", len(views))
	}
	v := views[0]
	if v.PositionID != res.PositionID || v.Symbol != "EURUSD" || v.Type != 0 {
		t.Fatalf("unexpected view: %+v", v)
	}
	if !v.CurrentPrice.Equal(dec("1.1050")) {
		t.Fatalf("current price = %s, want 1.1050", v.CurrentPrice)
	}
	if !v.Profit.Equal(dec("500")) {
		t.Fatalf("floating profit = %s, want 500", v.Profit)
	}

	f.market.Delete("EURUSD")
	if _, err := f.svc.OpenPositions(context.Background(), "u1"); !apperr.IsKind(err, apperr.KindUnavailable) {
		t.Fatalf("got %v, want unavailable on missing tick", err)
	}
}

func TestHistory(t *testing.T) {
	f := newFixture(t, "10000", 100)
	res := f.openBuy(t, "1")
	f.market.Set("EURUSD", marketdata.Tick{Bid: dec("1.1048"), Ask: dec("1.1050"), Time: time.Now()})
	if _, err := f.svc.ClosePosition(context.Background(), "u1", f.wallet.ID, res.PositionID, CloseRequest{Volume: dec("1")}); err != nil {
		t.Fatalf("ClosePosition: %v", err)
	}

	now := time.Now().UTC()
	rows, err := f.svc.History(context.Background(), "u1", now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("history rows = %d, want 1", len(rows))
	}
	r := rows[0]
	if r.PositionID != res.PositionID || !r.Profit.Equal(dec("500")) || r.Symbol != "EURUSD" {
		t.Fatalf("unexpected history row: %+v", r)
	}
	if r.ClosePrice == nil || !r.ClosePrice.Equal(dec("1.1050")) {
		t.Fatalf("close price missing on history row: %+v", r)
	}

	// An empty window returns nothing.
	rows, err = f.svc.History(context.Background(), "u1", now.Add(-2*time.Hour), now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("history rows = %d, want 0", len(rows))
	}
}
