package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
	xhttp "SignalDesk/pkg/http"
	applogger "SignalDesk/pkg/logger"
	"SignalDesk/pkg/util"
)

// chartResponse is the subset of the v8 chart payload we read.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol    string `json:"symbol"`
				GMTOffset int64  `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// ChartPriceSource reads daily history from a chart HTTP API
// ({base}/v8/finance/chart/{symbol}?range=1y&interval=1d). Requests are
// throttled by a shared token bucket.
type ChartPriceSource struct {
	client  *xhttp.Client
	baseURL string
	limiter *rate.Limiter
	log     *applogger.Logger
	metrics domrepo.Metrics
}

// ChartOption configures ChartPriceSource.
type ChartOption func(*ChartPriceSource)

// WithChartRate limits outgoing requests to perSec with the given burst.
func WithChartRate(perSec float64, burst int) ChartOption {
	return func(s *ChartPriceSource) {
		if perSec > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(perSec), max(burst, 1))
		}
	}
}

func NewChartPriceSource(client *xhttp.Client, baseURL string, log *applogger.Logger, metrics domrepo.Metrics, opts ...ChartOption) *ChartPriceSource {
	s := &ChartPriceSource{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		limiter: rate.NewLimiter(rate.Inf, 1),
		log:     log.With(applogger.String("component", "chart_source")),
		metrics: metrics,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ChartPriceSource) FetchSeries(ctx context.Context, symbol string, period domrepo.Period) (*models.PriceSeries, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	start := time.Now()
	var resp chartResponse
	err := s.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: http.MethodGet,
		URL:    s.baseURL + "/v8/finance/chart/" + url.PathEscape(symbol),
		QueryParams: map[string][]string{
			"range":    {string(period)},
			"interval": {"1d"},
		},
	}, &resp)
	s.metrics.RecordLatency("chart_fetch_seconds", time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordError("chart_fetch")
		var se *xhttp.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return nil, &models.UnknownSymbolError{Symbol: symbol}
		}
		return nil, fmt.Errorf("chart %s: %w", symbol, err)
	}

	series, err := parseChart(symbol, &resp)
	if err != nil {
		s.metrics.RecordError("chart_parse")
		return nil, err
	}
	s.log.Debug("chart series fetched",
		applogger.String("symbol", symbol),
		applogger.String("period", string(period)),
		applogger.Int("bars", series.Len()),
	)
	return series, nil
}

// parseChart converts the payload to a series. Bars with a null close are
// skipped, a second bar on the same exchange day replaces the first and
// out-of-order bars are dropped.
func parseChart(symbol string, resp *chartResponse) (*models.PriceSeries, error) {
	if e := resp.Chart.Error; e != nil {
		return nil, fmt.Errorf("chart %s: %s: %s", symbol, e.Code, e.Description)
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("chart %s: empty result", symbol)
	}
	r := resp.Chart.Result[0]
	q := r.Indicators.Quote[0]

	bars := make([]models.Candle, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		c := at(q.Close, i)
		if c == nil || *c <= 0 {
			continue
		}
		bar := models.Candle{
			Date:   util.DayFromUnix(ts + r.Meta.GMTOffset),
			Symbol: symbol,
			Close:  *c,
			Open:   orDefault(at(q.Open, i), *c),
			High:   orDefault(at(q.High, i), *c),
			Low:    orDefault(at(q.Low, i), *c),
			Volume: orDefault(at(q.Volume, i), 0),
		}
		if n := len(bars); n > 0 && !bar.Date.After(bars[n-1].Date) {
			if bar.Date.Equal(bars[n-1].Date) {
				bars[n-1] = bar
			}
			continue
		}
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("chart %s: no priced bars", symbol)
	}
	return models.NewPriceSeries(symbol, bars), nil
}

func at(vs []*float64, i int) *float64 {
	if i < len(vs) {
		return vs[i]
	}
	return nil
}

func orDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

var _ domrepo.PriceSource = (*ChartPriceSource)(nil)
