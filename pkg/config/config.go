package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"QuantPulse/internal/domain/models"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Feeds struct {
		GatewayURL   string        `yaml:"gateway_url"`
		Exchanges    []string      `yaml:"exchanges"`
		Symbols      []string      `yaml:"symbols"`
		FetchTimeout time.Duration `yaml:"fetch_timeout"`
		StaleBelow   int           `yaml:"stale_below"` // messages per cycle under which a feed is stale
		RateLimit    struct {
			Capacity     float64 `yaml:"capacity"`
			RefillPerSec float64 `yaml:"refill_per_sec"`
		} `yaml:"rate_limit"`
		Stream struct {
			Enabled        bool          `yaml:"enabled"`
			URL            string        `yaml:"url"`
			APIKey         string        `yaml:"api_key"`
			ReconnectDelay time.Duration `yaml:"reconnect_delay"`
			PingInterval   time.Duration `yaml:"ping_interval"`
		} `yaml:"stream"`
	} `yaml:"feeds"`
	Scheduler struct {
		Interval time.Duration `yaml:"interval"`
	} `yaml:"scheduler"`
	Inference struct {
		ModelVersion     string        `yaml:"model_version"`
		ConfidenceCap    float64       `yaml:"confidence_cap"`
		StreamCap        float64       `yaml:"stream_confidence_cap"`
		LatencyAvgTarget time.Duration `yaml:"latency_avg_target"`
		LatencyP95Target time.Duration `yaml:"latency_p95_target"`
		BufferSize       int           `yaml:"buffer_size"`
		ModelMaxAge      time.Duration `yaml:"model_max_age"`
	} `yaml:"inference"`
	Drift struct {
		MinSample           int           `yaml:"min_sample"`
		Lookback            int           `yaml:"lookback"`
		ConfidenceThreshold float64       `yaml:"confidence_threshold"`
		LatencyThresholdMs  float64       `yaml:"latency_threshold_ms"`
		CheckInterval       time.Duration `yaml:"check_interval"`
	} `yaml:"drift"`
	Risk struct {
		StartingCapital float64           `yaml:"starting_capital"`
		Limits          models.RiskLimits `yaml:"limits"`
	} `yaml:"risk"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		LogsTopic    string   `yaml:"logs_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled    bool          `yaml:"enabled"`
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Cache struct {
		StatusTTL time.Duration `yaml:"status_ttl"`
		PnLTTL    time.Duration `yaml:"pnl_ttl"`
	} `yaml:"cache"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("FEED_GATEWAY_URL"); v != "" {
		c.Feeds.GatewayURL = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Feeds.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("EXCHANGES"); v != "" {
		c.Feeds.Exchanges = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("STREAM_API_KEY"); v != "" {
		c.Feeds.Stream.APIKey = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Feeds.GatewayURL == "" {
		return fmt.Errorf("feeds.gateway_url is required")
	}
	if len(c.Feeds.Exchanges) == 0 {
		return fmt.Errorf("feeds.exchanges cannot be empty")
	}
	if len(c.Feeds.Symbols) == 0 {
		return fmt.Errorf("feeds.symbols cannot be empty")
	}
	if err := c.Risk.Limits.Validate(); err != nil {
		return fmt.Errorf("risk limits: %w", err)
	}
	if c.Risk.StartingCapital <= 0 {
		return fmt.Errorf("risk.starting_capital must be positive")
	}
	return nil
}

// Defaults fills zero-valued tunables with safe values. Called by DI after load
// so tests can build a Config literal without a file.
func (c *Config) Defaults() {
	if c.Feeds.FetchTimeout <= 0 {
		c.Feeds.FetchTimeout = 5 * time.Second
	}
	if c.Feeds.StaleBelow <= 0 {
		c.Feeds.StaleBelow = 1
	}
	if c.Scheduler.Interval <= 0 {
		c.Scheduler.Interval = 5 * time.Second
	}
	if c.Inference.ConfidenceCap <= 0 {
		c.Inference.ConfidenceCap = 0.95
	}
	if c.Inference.StreamCap <= 0 {
		c.Inference.StreamCap = 0.90
	}
	if c.Inference.LatencyAvgTarget <= 0 {
		c.Inference.LatencyAvgTarget = 2 * time.Millisecond
	}
	if c.Inference.LatencyP95Target <= 0 {
		c.Inference.LatencyP95Target = 5 * time.Millisecond
	}
	if c.Inference.BufferSize <= 0 {
		c.Inference.BufferSize = 1000
	}
	if c.Inference.ModelMaxAge <= 0 {
		c.Inference.ModelMaxAge = 7 * 24 * time.Hour
	}
	if c.Drift.MinSample <= 0 {
		c.Drift.MinSample = 50
	}
	if c.Drift.Lookback <= 0 {
		c.Drift.Lookback = 100
	}
	if c.Drift.ConfidenceThreshold <= 0 {
		c.Drift.ConfidenceThreshold = 0.2
	}
	if c.Drift.LatencyThresholdMs <= 0 {
		c.Drift.LatencyThresholdMs = 0.5
	}
	if c.Cache.StatusTTL <= 0 {
		c.Cache.StatusTTL = 5 * time.Second
	}
	if c.Cache.PnLTTL <= 0 {
		c.Cache.PnLTTL = 2 * time.Second
	}
}
