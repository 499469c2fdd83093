package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"SignalDesk/internal/domain/models"
	"SignalDesk/pkg/cache"
)

func newTestBoard(t *testing.T, src *fakeSource, stocks models.MonitoredStocks, opts ...BoardOption) (*SignalBoard, *StrategyRegistry) {
	t.Helper()
	svc, reg := newStubService(t, src,
		stub("momentum", models.RiskHigh, models.SignalBuy),
		stub("buy_hold", models.RiskLow, models.SignalHold),
	)
	opts = append([]BoardOption{WithBoardClock(fixedNow), WithBoardWorkers(3)}, opts...)
	return NewSignalBoard(svc, reg, stocks, opts...), reg
}

func TestBoardWatchlist(t *testing.T) {
	store := &memWatchlist{}
	b, _ := newTestBoard(t, newFakeSource(), nil, WithWatchlistStore(store))
	ctx := context.Background()

	if got := b.Symbols(); len(got) != 5 || got[0] != "QQQ" || got[3] != "0050.TW" {
		t.Fatalf("default symbols = %v", got)
	}

	region, added, err := b.AddStock(ctx, "2330.tw", "")
	if err != nil || !added || region != models.RegionTW {
		t.Fatalf("AddStock = %s %v %v", region, added, err)
	}
	if _, added, _ := b.AddStock(ctx, "2330.TW", ""); added {
		t.Fatal("duplicate add reported as added")
	}
	if got := store.stocks[models.RegionTW]; len(got) != 3 || got[2] != "2330.TW" {
		t.Fatalf("store = %v", store.stocks)
	}

	var unknown *models.UnknownSymbolError
	if err := b.RemoveStock(ctx, "AAPL", ""); !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownSymbolError, got %v", err)
	}
	if err := b.RemoveStock(ctx, "nvda", models.RegionUS); err != nil {
		t.Fatal(err)
	}
	if got := b.Monitored()[models.RegionUS]; len(got) != 2 || got[0] != "QQQ" || got[1] != "VOO" {
		t.Fatalf("US after remove = %v", got)
	}
}

func TestBoardRestore(t *testing.T) {
	store := &memWatchlist{saved: true, stocks: models.MonitoredStocks{models.RegionUS: {"AAPL"}}}
	b, _ := newTestBoard(t, newFakeSource(), nil, WithWatchlistStore(store))
	if err := b.Restore(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := b.Symbols(); len(got) != 1 || got[0] != "AAPL" {
		t.Fatalf("restored = %v", got)
	}
}

func TestBoardSignalsForAllKeepsOrderAndIsolatesFailures(t *testing.T) {
	src := newFakeSource().
		with("QQQ", linear(30, 500, 1)).
		with("VOO", linear(30, 400, 1)).
		failing("NVDA", errors.New("upstream down"))
	stocks := models.MonitoredStocks{
		models.RegionUS: {"QQQ", "NVDA", "VOO"},
		models.RegionTW: {"0050.TW"},
	}
	b, _ := newTestBoard(t, src, stocks)

	batch, err := b.SignalsForAll(context.Background(), "buy_hold")
	if err != nil {
		t.Fatal(err)
	}
	if batch.StrategyID != "buy_hold" || batch.TotalSignals != 4 {
		t.Fatalf("batch = %+v", batch)
	}
	want := []struct {
		symbol string
		typ    models.SignalType
	}{
		{"QQQ", models.SignalHold},
		{"NVDA", models.SignalError},
		{"VOO", models.SignalHold},
		{"0050.TW", models.SignalError},
	}
	for i, w := range want {
		if batch.Signals[i].Symbol != w.symbol || batch.Signals[i].Signal != w.typ {
			t.Errorf("signals[%d] = %s %s, want %s %s", i, batch.Signals[i].Symbol, batch.Signals[i].Signal, w.symbol, w.typ)
		}
	}

	if _, err := b.SignalsForAll(context.Background(), "nope"); err == nil {
		t.Fatal("unknown strategy accepted")
	}
}

func TestBoardTimeout(t *testing.T) {
	src := newFakeSource().with("QQQ", linear(30, 500, 1))
	stocks := models.MonitoredStocks{models.RegionUS: {"QQQ"}}

	configured, _ := newTestBoard(t, src, stocks, WithBoardTimeout(3*time.Second))
	if configured.timeout != 3*time.Second {
		t.Fatalf("timeout = %v", configured.timeout)
	}

	b, _ := newTestBoard(t, src, stocks, WithBoardTimeout(0))
	if b.timeout != 10*time.Second {
		t.Fatalf("zero timeout replaced the default: %v", b.timeout)
	}
	batch, err := b.SignalsForAll(context.Background(), "buy_hold")
	if err != nil {
		t.Fatal(err)
	}
	if batch.Signals[0].Signal != models.SignalHold {
		t.Fatalf("expected HOLD, got %+v", batch.Signals[0])
	}
}

func TestBoardRefreshFiltersAndPublishes(t *testing.T) {
	src := newFakeSource().with("NVDA", linear(30, 100, 1))
	mc := cache.NewMemoryCache()
	defer mc.Close()
	clock := &stepClock{now: testNow}
	filter := NewSignalFilter(mc, DefaultFilterConfig(), WithFilterClock(clock.Now))
	pub := &capturePublisher{}
	failing := &capturePublisher{err: errors.New("broker unavailable")}

	b, _ := newTestBoard(t, src, models.MonitoredStocks{models.RegionUS: {"NVDA"}},
		WithSignalFilter(filter), WithPublishers(pub, failing))
	ctx := context.Background()

	if b.Latest() != nil {
		t.Fatal("latest set before refresh")
	}

	// GET-style evaluation must not record: the strong BUY passes both times.
	for i := 0; i < 2; i++ {
		batch, err := b.SignalsForAll(ctx, "")
		if err != nil {
			t.Fatal(err)
		}
		if batch.Signals[0].Filtered || batch.Signals[0].Signal != models.SignalBuy {
			t.Fatalf("peek %d = %+v", i, batch.Signals[0])
		}
	}

	batch, err := b.Refresh(ctx)
	if err == nil {
		t.Fatal("publisher error not reported")
	}
	if batch == nil || batch.Signals[0].Signal != models.SignalBuy || batch.Signals[0].Filtered {
		t.Fatalf("first refresh = %+v", batch)
	}
	if b.Latest() != batch {
		t.Fatal("latest not stored")
	}
	if len(pub.batches) != 1 || len(failing.batches) != 1 {
		t.Fatalf("publishers called %d/%d times", len(pub.batches), len(failing.batches))
	}

	clock.Advance(30 * time.Minute)
	batch, _ = b.Refresh(ctx)
	if !batch.Signals[0].Filtered || batch.Signals[0].Signal != models.SignalHold {
		t.Fatalf("repeat BUY should be suppressed: %+v", batch.Signals[0])
	}
}
