package config

import (
	"testing"
	"time"
)

func TestParseKeepsDefaults(t *testing.T) {
	c, err := Parse([]byte(`
environment: test
server:
  port: 9090
engine:
  default_strategy: sma_rsi
  refresh_interval: 5m
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", c.Server.Port)
	}
	if c.Engine.DefaultStrategy != "sma_rsi" || c.Engine.RefreshInterval != 5*time.Minute {
		t.Errorf("unexpected engine section %+v", c.Engine)
	}
	if c.Engine.Overbought != 70 || c.Filter.Cooldown != 4*time.Hour {
		t.Errorf("defaults should survive a partial file")
	}
	if len(c.Portfolio.Holdings) != 5 {
		t.Errorf("expected default holdings, got %d", len(c.Portfolio.Holdings))
	}
}

func TestDefaultTags(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if c.Environment != "development" || !c.Server.CORS || c.Server.ReadTimeout != 10*time.Second {
		t.Errorf("unexpected server defaults %+v", c.Server)
	}
	if c.Kafka.RequiredAcks != -1 || c.Kafka.Producer.Linger != 50*time.Millisecond || c.Kafka.Consumer.MaxBytes != 10<<20 {
		t.Errorf("unexpected kafka defaults %+v", c.Kafka)
	}
	if c.Filter.Cooldown != 4*time.Hour || c.Filter.HistorySize != 100 || !c.Filter.Enabled {
		t.Errorf("unexpected filter defaults %+v", c.Filter)
	}
	if c.Engine.Rebalance.Tolerance != 0.05 || c.Engine.RefreshInterval != 15*time.Minute {
		t.Errorf("unexpected engine defaults %+v", c.Engine)
	}
	if len(c.Monitored.US) != 3 || c.Monitored.TW[1] != "00878.TW" {
		t.Errorf("unexpected watchlist %v %v", c.Monitored.US, c.Monitored.TW)
	}
	if len(c.Portfolio.Holdings) != 5 {
		t.Fatalf("expected 5 default holdings, got %d", len(c.Portfolio.Holdings))
	}
	if h := c.Portfolio.Holdings[3]; h.Symbol != "00878.TW" || h.Quantity != 36300 || h.CostBasis != 20.83 || h.Region != "TW" {
		t.Errorf("unexpected holding %+v", h)
	}
	if c.Portfolio.Targets["US"]["VOO"] != 0.55 || c.Portfolio.Targets["TW"]["0050.TW"] != 0.25 {
		t.Errorf("unexpected targets %v", c.Portfolio.Targets)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestParseOverridesTrueDefaults(t *testing.T) {
	c, err := Parse([]byte("server:\n  cors: false\nfilter:\n  enabled: false\nmetrics:\n  enabled: false\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Server.CORS || c.Filter.Enabled || c.Metrics.Enabled {
		t.Errorf("explicit false should win over tag defaults")
	}
	if c.Metrics.Path != "/metrics" {
		t.Errorf("untouched fields keep defaults, got %q", c.Metrics.Path)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad price source", "environment: x\nprice_source:\n  type: ftp\n"},
		{"clickhouse source without clickhouse", "environment: x\nprice_source:\n  type: clickhouse\n"},
		{"kafka without brokers", "environment: x\nkafka:\n  enabled: true\n"},
		{"bad cache", "environment: x\ncache:\n  type: disk\n"},
		{"targets above one", "environment: x\nportfolio:\n  targets:\n    US: {VOO: 0.8, QQQ: 0.4}\n"},
		{"inverted rsi bands", "environment: x\nengine:\n  oversold: 80\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"REDIS_ADDR":      "redis.internal:6380",
		"KAFKA_BROKERS":   "k1:9092, k2:9092",
		"ACTIVE_STRATEGY": "buy_hold",
		"US_SYMBOLS":      "SPY,AAPL",
		"HTTP_PORT":       "9999",
	}
	c, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	c.ApplyEnv(func(k string) string { return env[k] })

	if c.Redis.Host != "redis.internal" || c.Redis.Port != 6380 {
		t.Errorf("unexpected redis %s:%d", c.Redis.Host, c.Redis.Port)
	}
	if c.Cache.Type != "layered" {
		t.Errorf("redis addr should upgrade memory cache to layered, got %s", c.Cache.Type)
	}
	if !c.Kafka.Enabled || len(c.Kafka.Brokers) != 2 || c.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("unexpected kafka %+v", c.Kafka.Brokers)
	}
	if c.Engine.DefaultStrategy != "buy_hold" {
		t.Errorf("unexpected strategy %s", c.Engine.DefaultStrategy)
	}
	if len(c.Monitored.US) != 2 || c.Monitored.US[0] != "SPY" {
		t.Errorf("unexpected US symbols %v", c.Monitored.US)
	}
	if c.Server.Port != 9999 {
		t.Errorf("unexpected port %d", c.Server.Port)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("overridden config should validate: %v", err)
	}
}

func TestLoadShippedConfig(t *testing.T) {
	c, err := Load("../../config/config.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.PriceSource.Type != "http" || c.PriceSource.VIXSymbol != "^VIX" {
		t.Errorf("unexpected price source %+v", c.PriceSource)
	}
	if c.Kafka.Enabled || c.ClickHouse.Enabled {
		t.Errorf("kafka and clickhouse should be off by default")
	}
	if got := c.Portfolio.Targets["TW"]["00878.TW"]; got != 0.75 {
		t.Errorf("expected TW target 0.75 for 00878.TW, got %v", got)
	}
	if len(c.Monitored.TW) != 2 || c.Monitored.TW[0] != "0050.TW" {
		t.Errorf("unexpected TW watchlist %v", c.Monitored.TW)
	}
}
