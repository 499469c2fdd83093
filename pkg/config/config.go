package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"SignalDesk/pkg/util"
)

// Holding is one configured starting position.
type Holding struct {
	Symbol    string  `yaml:"symbol" json:"symbol"`
	Quantity  float64 `yaml:"quantity" json:"quantity"`
	CostBasis float64 `yaml:"cost_basis" json:"cost_basis"`
	Region    string  `yaml:"region" json:"region"`
}


type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowRequest     time.Duration `yaml:"slow_request" default:"2s"`
		CORS            bool          `yaml:"cors" default:"true"`
		RateLimit       struct {
			PerSecond float64 `yaml:"per_second" default:"2"`
			Burst     int     `yaml:"burst" default:"10"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Engine struct {
		DefaultStrategy   string        `yaml:"default_strategy" default:"momentum"`
		Period            string        `yaml:"period" default:"1y"`
		Oversold          float64       `yaml:"oversold" default:"30"`
		Overbought        float64       `yaml:"overbought" default:"70"`
		ExtremeOversold   float64       `yaml:"extreme_oversold" default:"20"`
		ExtremeOverbought float64       `yaml:"extreme_overbought" default:"80"`
		MomentumLookback  int           `yaml:"momentum_lookback" default:"20"`
		SupportWindow     int           `yaml:"support_window" default:"10"`
		Workers           int           `yaml:"workers" default:"8"`
		BatchTimeout      time.Duration `yaml:"batch_timeout" default:"10s"`
		RefreshInterval   time.Duration `yaml:"refresh_interval" default:"15m"`
		Rebalance         struct {
			Tolerance float64 `yaml:"tolerance" default:"0.05"`
			Action    float64 `yaml:"action" default:"0.08"`
			MinAmount float64 `yaml:"min_amount" default:"100"`
		} `yaml:"rebalance"`
	} `yaml:"engine"`
	Monitored struct {
		US []string `yaml:"us" default:"[\"QQQ\",\"NVDA\",\"VOO\"]"`
		TW []string `yaml:"tw" default:"[\"0050.TW\",\"00878.TW\"]"`
	} `yaml:"monitored"`
	Portfolio struct {
		Holdings []Holding                     `yaml:"holdings" default:"[{\"symbol\":\"VOO\",\"quantity\":94,\"cost_basis\":555.38,\"region\":\"US\"},{\"symbol\":\"NVDA\",\"quantity\":167,\"cost_basis\":163.98,\"region\":\"US\"},{\"symbol\":\"QQQ\",\"quantity\":25,\"cost_basis\":532.57,\"region\":\"US\"},{\"symbol\":\"00878.TW\",\"quantity\":36300,\"cost_basis\":20.83,\"region\":\"TW\"},{\"symbol\":\"0050.TW\",\"quantity\":4900,\"cost_basis\":47.92,\"region\":\"TW\"}]"`
		Targets  map[string]map[string]float64 `yaml:"targets" default:"{\"US\":{\"VOO\":0.55,\"NVDA\":0.30,\"QQQ\":0.15},\"TW\":{\"00878.TW\":0.75,\"0050.TW\":0.25}}"`
	} `yaml:"portfolio"`
	PriceSource struct {
		Type          string        `yaml:"type" default:"http"` // http or clickhouse
		BaseURL       string        `yaml:"base_url" default:"https://query1.finance.yahoo.com"`
		UserAgent     string        `yaml:"user_agent" default:"Mozilla/5.0 (compatible; signaldesk/1.0)"`
		Timeout       time.Duration `yaml:"timeout" default:"10s"`
		RatePerSecond float64       `yaml:"rate_per_second" default:"2"`
		Burst         int           `yaml:"burst" default:"4"`
		CacheTTL      time.Duration `yaml:"cache_ttl" default:"5m"`
		VIXSymbol     string        `yaml:"vix_symbol" default:"^VIX"`
	} `yaml:"price_source"`
	Cache struct {
		Type      string        `yaml:"type" default:"memory"` // memory, redis or layered
		MaxSize   int           `yaml:"max_size" default:"10000"`
		MemoryTTL time.Duration `yaml:"memory_ttl" default:"1m"`
	} `yaml:"cache"`
	Redis struct {
		Host     string `yaml:"host" default:"localhost"`
		Port     int    `yaml:"port" default:"6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size" default:"10"`
		Prefix   string `yaml:"prefix" default:"signaldesk"`
	} `yaml:"redis"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"signaldesk"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		SignalsTopic string   `yaml:"signals_topic" default:"signals"`
		BarsTopic    string   `yaml:"bars_topic" default:"bars"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"signaldesk-bars"`
			Workers    int           `yaml:"workers" default:"2"`
			BufferSize int           `yaml:"buffer_size" default:"100"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Filter struct {
		Enabled            bool          `yaml:"enabled" default:"true"`
		MinConfidence      float64       `yaml:"min_confidence" default:"0.6"`
		Cooldown           time.Duration `yaml:"cooldown" default:"4h"`
		ConfirmationWindow time.Duration `yaml:"confirmation_window" default:"2h"`
		StrongConfidence   float64       `yaml:"strong_confidence" default:"0.8"`
		DuplicateWindow    time.Duration `yaml:"duplicate_window" default:"1h"`
		DuplicateDelta     float64       `yaml:"duplicate_delta" default:"0.1"`
		ReversalWindow     time.Duration `yaml:"reversal_window" default:"12h"`
		MaxReversals       int           `yaml:"max_reversals" default:"3"`
		HoldWindow         time.Duration `yaml:"hold_window" default:"24h"`
		HistorySize        int           `yaml:"history_size" default:"100"`
		HistoryTTL         time.Duration `yaml:"history_ttl" default:"48h"`
	} `yaml:"filter"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Default returns the configuration described by the `default` tags: HTTP
// price source, in-memory cache, no Kafka and no ClickHouse.
func Default() (*Config, error) {
	c := &Config{}
	if err := defaults.Set(c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	return c, nil
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.ApplyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides fields from environment variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("HTTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		host, port := splitHostPort(v, c.Redis.Port)
		c.Redis.Host, c.Redis.Port = host, port
		if c.Cache.Type == "memory" {
			c.Cache.Type = "layered"
		}
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitList(v)
		c.Kafka.Enabled = true
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	if v := getenv("PRICE_SOURCE"); v != "" {
		c.PriceSource.Type = v
	}
	if v := getenv("ACTIVE_STRATEGY"); v != "" {
		c.Engine.DefaultStrategy = v
	}
	if v := getenv("US_SYMBOLS"); v != "" {
		c.Monitored.US = util.SplitList(v)
	}
	if v := getenv("TW_SYMBOLS"); v != "" {
		c.Monitored.TW = util.SplitList(v)
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	switch c.PriceSource.Type {
	case "http":
		if c.PriceSource.BaseURL == "" {
			return fmt.Errorf("price_source.base_url is required for type http")
		}
	case "clickhouse":
		if !c.ClickHouse.Enabled {
			return fmt.Errorf("price_source.type clickhouse requires clickhouse.enabled")
		}
	default:
		return fmt.Errorf("price_source.type must be 'http' or 'clickhouse', got '%s'", c.PriceSource.Type)
	}
	switch c.Cache.Type {
	case "memory", "redis", "layered":
	default:
		return fmt.Errorf("cache.type must be memory, redis or layered, got '%s'", c.Cache.Type)
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
		}
		if c.Kafka.SignalsTopic == "" {
			return fmt.Errorf("kafka.signals_topic is required when kafka is enabled")
		}
	}
	if len(c.Monitored.US)+len(c.Monitored.TW) == 0 {
		return fmt.Errorf("monitored symbols cannot be empty")
	}
	if c.Engine.Oversold >= c.Engine.Overbought {
		return fmt.Errorf("engine.oversold must be below engine.overbought")
	}
	for region, weights := range c.Portfolio.Targets {
		sum := 0.0
		for _, w := range weights {
			sum += w
		}
		if sum > 1.0001 {
			return fmt.Errorf("portfolio.targets.%s sums to %.4f, above 1", region, sum)
		}
	}
	return nil
}

func splitHostPort(addr string, defPort int) (string, int) {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			if p, err := strconv.Atoi(addr[i+1:]); err == nil {
				return addr[:i], p
			}
			break
		}
	}
	return addr, defPort
}
