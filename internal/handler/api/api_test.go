package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"SignalDesk/internal/domain/models"
	"SignalDesk/internal/domain/repository"
	"SignalDesk/internal/service/ratelimit"
	"SignalDesk/internal/services/risk"
	"SignalDesk/internal/services/strategies"
	"SignalDesk/internal/usecase"
	"SignalDesk/pkg/logger"
)

var testNow = time.Date(2024, 6, 3, 20, 0, 0, 0, time.UTC)

type stubSource map[string][]float64

func (s stubSource) FetchSeries(_ context.Context, symbol string, _ repository.Period) (*models.PriceSeries, error) {
	closes, ok := s[symbol]
	if !ok {
		return nil, fmt.Errorf("no data for %s", symbol)
	}
	start := testNow.AddDate(0, 0, -len(closes))
	bars := make([]models.Candle, len(closes))
	for i, c := range closes {
		bars[i] = models.Candle{
			Date:   start.AddDate(0, 0, i+1),
			Symbol: symbol,
			Open:   c,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: 1_000_000,
		}
	}
	return models.NewPriceSeries(symbol, bars), nil
}

type stubMarket struct{}

func (stubMarket) Context(context.Context) models.MarketContext { return models.NewMarketContext(18) }

func rising(n int, from float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = from + float64(i)*0.5
	}
	return out
}

type fixture struct {
	e        *echo.Echo
	registry *usecase.StrategyRegistry
	board    *usecase.SignalBoard
}

func newFixture(t *testing.T, limiter *ratelimit.Limiter) *fixture {
	t.Helper()
	src := stubSource{
		"QQQ":      rising(260, 400),
		"NVDA":     rising(260, 100),
		"VOO":      rising(260, 450),
		"0050.TW":  rising(260, 40),
		"00878.TW": rising(260, 20),
	}
	reg, err := usecase.NewStrategyRegistry(strategies.Defaults(strategies.DefaultParams())...)
	if err != nil {
		t.Fatal(err)
	}
	log := logger.Nop()
	clock := func() time.Time { return testNow }
	signals := usecase.NewSignalService(src, reg, usecase.WithMarketContext(stubMarket{}), usecase.WithSignalClock(clock))
	board := usecase.NewSignalBoard(signals, reg, nil, usecase.WithBoardClock(clock))
	pm := usecase.NewPortfolioManager(signals, reg,
		[]models.Holding{
			{Symbol: "VOO", Quantity: 10, CostBasis: 400},
			{Symbol: "QQQ", Quantity: 5, CostBasis: 350},
		},
		models.TargetWeights{models.RegionUS: {"VOO": 0.5, "QQQ": 0.5}},
		usecase.WithPortfolioClock(clock),
	)
	rs := usecase.NewRiskService(signals, reg, risk.NewManager())

	e := echo.New()
	for _, h := range []interface{ RegisterRoutes(*echo.Echo) }{
		NewStrategyHandler(log, reg, pm, limiter),
		NewSignalHandler(log, signals, board, limiter),
		NewPortfolioHandler(log, pm),
		NewStockHandler(log, board),
		NewRiskHandler(log, rs, board, limiter),
		NewHealthHandler(log, map[string]HealthCheck{"cache": func(context.Context) error { return nil }}),
	} {
		h.RegisterRoutes(e)
	}
	return &fixture{e: e, registry: reg, board: board}
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (f *fixture) do(t *testing.T, method, target, body string) (int, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: decode %q: %v", method, target, rec.Body.String(), err)
	}
	return rec.Code, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return out
}

func TestStrategyRoutes(t *testing.T) {
	f := newFixture(t, nil)

	code, env := f.do(t, http.MethodGet, "/api/strategies", "")
	if code != http.StatusOK {
		t.Fatalf("list status = %d", code)
	}
	list := decode[models.StrategiesResponse](t, env.Data)
	if len(list.Strategies) != 4 || list.Active != strategies.IDMomentum {
		t.Fatalf("list = %+v", list)
	}

	code, env = f.do(t, http.MethodPost, "/api/strategy/switch", `{"strategy":"buy_hold"}`)
	if code != http.StatusOK {
		t.Fatalf("switch status = %d", code)
	}
	sw := decode[models.SwitchStrategyResponse](t, env.Data)
	if sw.Previous != strategies.IDMomentum || sw.Active.ID != strategies.IDBuyHold || !sw.Active.IsActive {
		t.Fatalf("switch = %+v", sw)
	}
	if a, _ := f.registry.Active(); a.ID() != strategies.IDBuyHold {
		t.Fatalf("active = %s", a.ID())
	}

	if code, _ = f.do(t, http.MethodPost, "/api/strategy/switch", `{"strategy":"nope"}`); code != http.StatusNotFound {
		t.Fatalf("unknown strategy status = %d", code)
	}
	if code, _ = f.do(t, http.MethodPost, "/api/strategy/switch", `{}`); code != http.StatusBadRequest {
		t.Fatalf("missing strategy status = %d", code)
	}

	code, env = f.do(t, http.MethodGet, "/api/strategy/compare?time_horizon=3", "")
	if code != http.StatusOK {
		t.Fatalf("compare status = %d", code)
	}
	cmp := decode[models.StrategyComparison](t, env.Data)
	if cmp.TimeHorizon != 3 || len(cmp.Ranking) != 4 || cmp.BestStrategy != cmp.Ranking[0].StrategyID {
		t.Fatalf("compare = %+v", cmp)
	}
	if code, _ = f.do(t, http.MethodGet, "/api/strategy/compare?time_horizon=99", ""); code != http.StatusBadRequest {
		t.Fatalf("out of range horizon status = %d", code)
	}
}

func TestSignalRoutes(t *testing.T) {
	f := newFixture(t, nil)

	code, env := f.do(t, http.MethodGet, "/api/signals/voo?strategy=buy_hold", "")
	if code != http.StatusOK {
		t.Fatalf("symbol status = %d", code)
	}
	sig := decode[models.Signal](t, env.Data)
	if sig.Symbol != "VOO" || sig.StrategyID != strategies.IDBuyHold || sig.Signal == models.SignalError {
		t.Fatalf("signal = %+v", sig)
	}

	code, env = f.do(t, http.MethodGet, "/api/signals/MISSING", "")
	if code != http.StatusOK {
		t.Fatalf("fetch failure status = %d", code)
	}
	if sig = decode[models.Signal](t, env.Data); sig.Signal != models.SignalError {
		t.Fatalf("fetch failure signal = %+v", sig)
	}

	code, env = f.do(t, http.MethodGet, "/api/signals", "")
	if code != http.StatusOK {
		t.Fatalf("all status = %d", code)
	}
	batch := decode[models.SignalBatch](t, env.Data)
	if batch.TotalSignals != 5 || batch.StrategyID != strategies.IDMomentum {
		t.Fatalf("batch = %+v", batch)
	}

	code, env = f.do(t, http.MethodGet, "/api/signals/multi/NVDA", "")
	if code != http.StatusOK {
		t.Fatalf("consensus status = %d", code)
	}
	cons := decode[models.Consensus](t, env.Data)
	if cons.TotalStrategies != 4 || cons.BuyVotes+cons.SellVotes+cons.HoldVotes+cons.ErrorCount != 4 {
		t.Fatalf("consensus = %+v", cons)
	}

	if code, _ = f.do(t, http.MethodGet, "/api/signals/bad$symbol", ""); code != http.StatusBadRequest {
		t.Fatalf("malformed symbol status = %d", code)
	}
	if code, _ = f.do(t, http.MethodGet, "/api/signals?strategy=nope", ""); code != http.StatusNotFound {
		t.Fatalf("unknown strategy status = %d", code)
	}
}

func TestChartAndMarketRoutes(t *testing.T) {
	f := newFixture(t, nil)

	code, env := f.do(t, http.MethodGet, "/api/chart-data/QQQ", "")
	if code != http.StatusOK {
		t.Fatalf("chart status = %d", code)
	}
	chart := decode[models.ChartData](t, env.Data)
	if chart.Period != "6mo" || len(chart.Dates) == 0 || len(chart.Dates) != len(chart.SMA20) || len(chart.RSI14) != len(chart.Closes) {
		t.Fatalf("chart = period %s dates %d sma %d", chart.Period, len(chart.Dates), len(chart.SMA20))
	}
	if chart.SMA20[0] != nil {
		t.Errorf("first sma_20 = %v, want null", *chart.SMA20[0])
	}

	if code, _ = f.do(t, http.MethodGet, "/api/chart-data/QQQ?period=10y", ""); code != http.StatusBadRequest {
		t.Fatalf("bad period status = %d", code)
	}
	if code, _ = f.do(t, http.MethodGet, "/api/chart-data/MISSING", ""); code != http.StatusBadGateway {
		t.Fatalf("fetch failure status = %d", code)
	}

	code, env = f.do(t, http.MethodGet, "/api/market/context", "")
	if code != http.StatusOK {
		t.Fatalf("market status = %d", code)
	}
	mc := decode[models.MarketContext](t, env.Data)
	if mc.VIXLevel == nil || *mc.VIXLevel != 18 || mc.Sentiment == nil || *mc.Sentiment != models.SentimentNeutral {
		t.Fatalf("market context = %+v", mc)
	}
}

func TestPortfolioRoutes(t *testing.T) {
	f := newFixture(t, nil)

	code, env := f.do(t, http.MethodGet, "/api/portfolio?strategy=sma_rsi", "")
	if code != http.StatusOK {
		t.Fatalf("portfolio status = %d", code)
	}
	pr := decode[models.PortfolioResponse](t, env.Data)
	if len(pr.Analysis.Holdings) != 2 || pr.ExpectedReturns == nil || pr.ExpectedReturns.StrategyID != strategies.IDSMARSI {
		t.Fatalf("portfolio = %+v", pr)
	}
	if pr.Analysis.TotalValue.Total <= 0 {
		t.Fatalf("total = %v", pr.Analysis.TotalValue.Total)
	}

	code, env = f.do(t, http.MethodPost, "/api/portfolio/holdings", `{"symbol":"voo","quantity":10,"cost_basis":500}`)
	if code != http.StatusCreated {
		t.Fatalf("add status = %d", code)
	}
	h := decode[models.Holding](t, env.Data)
	if h.Symbol != "VOO" || h.Quantity != 20 || h.CostBasis != 450 {
		t.Fatalf("merged holding = %+v", h)
	}
	if code, _ = f.do(t, http.MethodPost, "/api/portfolio/holdings", `{"symbol":"VOO","quantity":-1,"cost_basis":500}`); code != http.StatusBadRequest {
		t.Fatalf("negative quantity status = %d", code)
	}

	if code, _ = f.do(t, http.MethodDelete, "/api/portfolio/holdings/QQQ", ""); code != http.StatusOK {
		t.Fatalf("remove status = %d", code)
	}
	if code, _ = f.do(t, http.MethodDelete, "/api/portfolio/holdings/QQQ", ""); code != http.StatusNotFound {
		t.Fatalf("second remove status = %d", code)
	}

	code, env = f.do(t, http.MethodGet, "/api/rebalance", "")
	if code != http.StatusOK {
		t.Fatalf("rebalance status = %d", code)
	}
	rb := decode[models.RebalanceResponse](t, env.Data)
	if rb.Suggestions == nil {
		t.Fatal("suggestions must encode as a list")
	}
}

func TestStockRoutes(t *testing.T) {
	f := newFixture(t, nil)

	code, env := f.do(t, http.MethodPost, "/api/stocks/add", `{"symbol":"2330.tw"}`)
	if code != http.StatusCreated {
		t.Fatalf("add status = %d", code)
	}
	res := decode[models.StockChangeResponse](t, env.Data)
	if res.Symbol != "2330.TW" || res.Region != models.RegionTW || !res.Changed || len(res.Monitored[models.RegionTW]) != 3 {
		t.Fatalf("add = %+v", res)
	}

	code, env = f.do(t, http.MethodPost, "/api/stocks/add", `{"symbol":"2330.TW"}`)
	if code != http.StatusOK || decode[models.StockChangeResponse](t, env.Data).Changed {
		t.Fatalf("duplicate add status = %d", code)
	}

	if code, _ = f.do(t, http.MethodDelete, "/api/stocks/remove?symbol=NVDA", ""); code != http.StatusOK {
		t.Fatalf("remove status = %d", code)
	}
	if code, _ = f.do(t, http.MethodDelete, "/api/stocks/remove?symbol=NVDA", ""); code != http.StatusNotFound {
		t.Fatalf("second remove status = %d", code)
	}

	code, env = f.do(t, http.MethodGet, "/api/stocks/monitored", "")
	if code != http.StatusOK {
		t.Fatalf("monitored status = %d", code)
	}
	stocks := decode[models.MonitoredStocks](t, env.Data)
	if len(stocks[models.RegionUS]) != 2 || len(stocks[models.RegionTW]) != 3 {
		t.Fatalf("monitored = %v", stocks)
	}
}

func TestRiskRoutes(t *testing.T) {
	f := newFixture(t, nil)

	code, env := f.do(t, http.MethodGet, "/api/risk-management/NVDA?risk_level=high", "")
	if code != http.StatusOK {
		t.Fatalf("risk status = %d", code)
	}
	ra := decode[models.RiskAssessment](t, env.Data)
	if ra.Symbol != "NVDA" || ra.RiskLevel != models.RiskHigh || len(ra.Plans) != 4 {
		t.Fatalf("assessment = %+v", ra)
	}
	if _, ok := ra.Plans[ra.Recommendation.RecommendedPlan]; !ok {
		t.Fatalf("recommended plan %q missing", ra.Recommendation.RecommendedPlan)
	}

	if code, _ = f.do(t, http.MethodGet, "/api/risk-management/NVDA?risk_level=extreme", ""); code != http.StatusBadRequest {
		t.Fatalf("bad level status = %d", code)
	}

	f.board.AddStock(context.Background(), "MISSING", models.RegionUS)
	code, env = f.do(t, http.MethodGet, "/api/risk-management/batch", "")
	if code != http.StatusOK {
		t.Fatalf("batch status = %d", code)
	}
	batch := decode[models.RiskBatch](t, env.Data)
	if !batch[models.RegionUS]["QQQ"].Success || batch[models.RegionUS]["MISSING"].Success {
		t.Fatalf("batch isolation broken: %+v", batch[models.RegionUS])
	}
	if len(batch[models.RegionTW]) != 2 {
		t.Fatalf("tw batch = %+v", batch[models.RegionTW])
	}
}

func TestRateLimitedRoutes(t *testing.T) {
	f := newFixture(t, ratelimit.New(0.001, 1))

	if code, _ := f.do(t, http.MethodGet, "/api/signals/multi/QQQ", ""); code != http.StatusOK {
		t.Fatalf("first status = %d", code)
	}
	code, env := f.do(t, http.MethodGet, "/api/signals/multi/QQQ", "")
	if code != http.StatusTooManyRequests || env.Status != http.StatusTooManyRequests {
		t.Fatalf("second status = %d", code)
	}
	if code, _ := f.do(t, http.MethodGet, "/api/strategies", ""); code != http.StatusOK {
		t.Fatalf("unlimited route status = %d", code)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	code, env := f.do(t, http.MethodGet, "/healthz", "")
	if code != http.StatusOK || decode[models.HealthResponse](t, env.Data).Status != "ok" {
		t.Fatalf("health = %d %s", code, env.Data)
	}

	h := NewHealthHandler(logger.Nop(), map[string]HealthCheck{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})
	e := echo.New()
	h.RegisterRoutes(e)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "connection refused") {
		t.Fatalf("degraded health = %d %s", rec.Code, rec.Body.String())
	}
}

func TestToAppError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&models.UnknownStrategyError{ID: "x"}, http.StatusNotFound},
		{fmt.Errorf("wrap: %w", &models.UnknownSymbolError{Symbol: "X"}), http.StatusNotFound},
		{&models.DataFetchError{Symbol: "X", Err: errors.New("timeout")}, http.StatusBadGateway},
		{&models.MissingPriceError{Symbol: "X"}, http.StatusBadGateway},
		{&models.InsufficientDataError{Indicator: "sma_20", Need: 20, Have: 3}, http.StatusBadRequest},
		{models.ErrNoActiveStrategy, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := toAppError(tt.err).Status; got != tt.want {
			t.Errorf("toAppError(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
