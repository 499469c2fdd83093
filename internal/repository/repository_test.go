package repository

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
	"SignalDesk/pkg/cache"
	xhttp "SignalDesk/pkg/http"
	pkgkafka "SignalDesk/pkg/kafka"
	applogger "SignalDesk/pkg/logger"
)

type nopMetrics struct{ errors []string }

func (m *nopMetrics) RecordMessageSent(string, string) {}
func (m *nopMetrics) RecordError(kind string)          { m.errors = append(m.errors, kind) }
func (m *nopMetrics) RecordLastPrice(string, float64)  {}
func (m *nopMetrics) RecordLatency(string, float64)    {}

type countingSource struct {
	calls  int
	series *models.PriceSeries
	err    error
}

func (s *countingSource) FetchSeries(_ context.Context, symbol string, _ domrepo.Period) (*models.PriceSeries, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.series, nil
}

func day(d int) time.Time { return time.Date(2024, 6, d, 0, 0, 0, 0, time.UTC) }

const chartPayload = `{"chart":{"result":[{"meta":{"symbol":"QQQ","gmtoffset":-14400},
"timestamp":[1717421400,1717507800,1717594200,1717594260],
"indicators":{"quote":[{"open":[440,441,null,445],"high":[446,447,null,449],"low":[439,440,null,444],
"close":[443,null,447,448],"volume":[1000,1100,null,1300]}]}}],"error":null}}`

func TestChartPriceSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/QQQ"):
			if r.URL.Query().Get("range") != "1y" || r.URL.Query().Get("interval") != "1d" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			_, _ = w.Write([]byte(chartPayload))
		case strings.HasSuffix(r.URL.Path, "/ERR"):
			_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	metrics := &nopMetrics{}
	src := NewChartPriceSource(xhttp.NewClient(), srv.URL+"/", applogger.Nop(), metrics, WithChartRate(100, 10))

	series, err := src.FetchSeries(context.Background(), "QQQ", domrepo.Period1y)
	if err != nil {
		t.Fatalf("FetchSeries: %v", err)
	}
	// Null close is skipped and the second bar on June 5 replaces the first.
	if series.Len() != 2 {
		t.Fatalf("expected 2 bars, got %d: %+v", series.Len(), series.Bars)
	}
	if !series.Bars[0].Date.Equal(day(3)) || series.Bars[0].Close != 443 {
		t.Errorf("unexpected first bar %+v", series.Bars[0])
	}
	if last := series.Bars[1]; !last.Date.Equal(day(5)) || last.Close != 448 || last.Open != 445 {
		t.Errorf("unexpected last bar %+v", last)
	}
	if err := series.Validate(); err != nil {
		t.Errorf("series should be ordered: %v", err)
	}

	_, err = src.FetchSeries(context.Background(), "NOPE", domrepo.Period1y)
	var unknown *models.UnknownSymbolError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownSymbolError for 404, got %v", err)
	}

	if _, err := src.FetchSeries(context.Background(), "ERR", domrepo.Period1y); err == nil || !strings.Contains(err.Error(), "No data found") {
		t.Fatalf("expected chart error, got %v", err)
	}
}

func TestCachedPriceSource(t *testing.T) {
	mem := cache.NewMemoryCache()
	defer mem.Close()

	next := &countingSource{series: models.NewPriceSeries("VOO", []models.Candle{
		{Date: day(3), Symbol: "VOO", Close: 500},
		{Date: day(4), Symbol: "VOO", Close: 505},
	})}
	src := NewCachedPriceSource(next, mem, time.Minute, applogger.Nop())

	for i := 0; i < 3; i++ {
		s, err := src.FetchSeries(context.Background(), "VOO", domrepo.Period1y)
		if err != nil {
			t.Fatalf("FetchSeries: %v", err)
		}
		if c, _ := s.LastClose(); c != 505 {
			t.Fatalf("unexpected last close %v", c)
		}
	}
	if next.calls != 1 {
		t.Fatalf("expected one upstream call, got %d", next.calls)
	}

	if _, err := src.FetchSeries(context.Background(), "VOO", domrepo.Period1mo); err != nil {
		t.Fatalf("FetchSeries: %v", err)
	}
	if next.calls != 2 {
		t.Fatalf("periods must be cached separately, got %d calls", next.calls)
	}
}

func TestCachedPriceSourceDoesNotCacheErrors(t *testing.T) {
	mem := cache.NewMemoryCache()
	defer mem.Close()

	next := &countingSource{err: errors.New("timeout")}
	src := NewCachedPriceSource(next, mem, time.Minute, applogger.Nop())
	for i := 0; i < 2; i++ {
		if _, err := src.FetchSeries(context.Background(), "VOO", domrepo.Period1y); err == nil {
			t.Fatal("expected error")
		}
	}
	if next.calls != 2 {
		t.Fatalf("errors must not be cached, got %d calls", next.calls)
	}
}

func TestVIXContextProvider(t *testing.T) {
	src := &countingSource{series: models.NewPriceSeries("^VIX", []models.Candle{{Date: day(3), Close: 27.5}})}
	p := NewVIXContextProvider(src, "", time.Minute, applogger.Nop())
	now := time.Date(2024, 6, 3, 20, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	mc := p.Context(context.Background())
	if mc.VIXLevel == nil || *mc.VIXLevel != 27.5 {
		t.Fatalf("unexpected vix %v", mc.VIXLevel)
	}
	if mc.Sentiment == nil || *mc.Sentiment != models.SentimentExtremeFear {
		t.Fatalf("unexpected sentiment %v", mc.Sentiment)
	}
	p.Context(context.Background())
	if src.calls != 1 {
		t.Fatalf("expected cached context, got %d calls", src.calls)
	}

	now = now.Add(2 * time.Minute)
	src.err = errors.New("down")
	if mc := p.Context(context.Background()); mc.VIXLevel != nil || mc.Sentiment != nil {
		t.Fatalf("failed fetch should give an empty context, got %+v", mc)
	}
	p.Context(context.Background())
	if src.calls != 2 {
		t.Fatalf("failure should be remembered for maxAge, got %d calls", src.calls)
	}

	now = now.Add(2 * time.Minute)
	src.err = nil
	if mc := p.Context(context.Background()); mc.VIXLevel == nil || src.calls != 3 {
		t.Fatalf("expected refetch after maxAge, got %+v after %d calls", mc, src.calls)
	}
}

type gatedSource struct {
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (s *gatedSource) FetchSeries(_ context.Context, symbol string, _ domrepo.Period) (*models.PriceSeries, error) {
	s.calls.Add(1)
	s.entered <- struct{}{}
	<-s.release
	return models.NewPriceSeries(symbol, []models.Candle{{Date: day(3), Close: 14}}), nil
}

func TestVIXContextProviderDoesNotBlockDuringFetch(t *testing.T) {
	src := &gatedSource{entered: make(chan struct{}, 1), release: make(chan struct{})}
	p := NewVIXContextProvider(src, "", time.Minute, applogger.Nop())

	done := make(chan models.MarketContext)
	go func() { done <- p.Context(context.Background()) }()
	<-src.entered

	if mc := p.Context(context.Background()); mc.VIXLevel != nil {
		t.Fatalf("concurrent caller should get the previous empty context, got %+v", mc)
	}
	close(src.release)
	if mc := <-done; mc.VIXLevel == nil || *mc.VIXLevel != 14 {
		t.Fatalf("unexpected fetched context %+v", mc)
	}
	if n := src.calls.Load(); n != 1 {
		t.Fatalf("expected a single fetch, got %d", n)
	}
}

type capturingProducer struct {
	topic string
	msgs  []pkgkafka.Message
}

func (p *capturingProducer) PublishBatch(_ context.Context, topic string, msgs []pkgkafka.Message) error {
	p.topic = topic
	p.msgs = append(p.msgs, msgs...)
	return nil
}

func (p *capturingProducer) Close() error { return nil }

func TestKafkaSignalPublisher(t *testing.T) {
	prod := &capturingProducer{}
	pub := NewKafkaSignalPublisher(prod, "signals")
	n := 0
	pub.newID = func() string {
		n++
		return "evt-" + string(rune('0'+n))
	}

	err := pub.PublishSignals(context.Background(), []models.Signal{
		{Symbol: "QQQ", StrategyID: "momentum", Signal: models.SignalBuy, Confidence: 0.8},
		{Symbol: "0050.TW", StrategyID: "momentum", Signal: models.SignalHold, Confidence: 0.5},
	})
	if err != nil {
		t.Fatalf("PublishSignals: %v", err)
	}
	if prod.topic != "signals" || len(prod.msgs) != 2 {
		t.Fatalf("unexpected publish %s %d", prod.topic, len(prod.msgs))
	}
	m := prod.msgs[1]
	if string(m.Key) != "0050.TW" || m.Headers["event_id"] != "evt-2" {
		t.Errorf("unexpected message key/header %s %v", m.Key, m.Headers)
	}
	ev, ok := m.Value.(SignalEvent)
	if !ok || ev.EventID != "evt-2" || ev.Signal.Signal != models.SignalHold {
		t.Errorf("unexpected envelope %+v", m.Value)
	}

	if err := pub.PublishSignals(context.Background(), nil); err != nil || len(prod.msgs) != 2 {
		t.Fatalf("empty publish should be a no-op")
	}
}

func TestCacheStores(t *testing.T) {
	mem := cache.NewMemoryCache()
	defer mem.Close()
	ctx := context.Background()

	hs := NewCacheHoldingStore(mem)
	if _, ok, err := hs.LoadHoldings(ctx); ok || err != nil {
		t.Fatalf("expected empty store, got ok=%v err=%v", ok, err)
	}
	want := []models.Holding{{Symbol: "VOO", Quantity: 94, CostBasis: 555.38, Region: models.RegionUS}}
	if err := hs.SaveHoldings(ctx, want); err != nil {
		t.Fatalf("SaveHoldings: %v", err)
	}
	got, ok, err := hs.LoadHoldings(ctx)
	if err != nil || !ok || len(got) != 1 || got[0] != want[0] {
		t.Fatalf("unexpected holdings %+v ok=%v err=%v", got, ok, err)
	}

	ws := NewCacheWatchlistStore(mem)
	if _, ok, _ := ws.LoadWatchlist(ctx); ok {
		t.Fatal("expected empty watchlist")
	}
	stocks := models.MonitoredStocks{models.RegionUS: {"QQQ"}, models.RegionTW: {"0050.TW"}}
	if err := ws.SaveWatchlist(ctx, stocks); err != nil {
		t.Fatalf("SaveWatchlist: %v", err)
	}
	loaded, ok, err := ws.LoadWatchlist(ctx)
	if err != nil || !ok || loaded[models.RegionTW][0] != "0050.TW" {
		t.Fatalf("unexpected watchlist %+v ok=%v err=%v", loaded, ok, err)
	}
}
