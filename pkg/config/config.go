package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
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
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
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
	} `yaml:"kafka"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	AuthFeed struct {
		Enabled        bool          `yaml:"enabled"`
		URL            string        `yaml:"url"`
		APIKey         string        `yaml:"api_key"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
		MaxRPS         int           `yaml:"max_rps"`
		BufferSize     int           `yaml:"buffer_size"`
	} `yaml:"auth_feed"`
	Explainer struct {
		Enabled bool          `yaml:"enabled"`
		URL     string        `yaml:"url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"explainer"`
	ExternalAnomaly struct {
		Enabled bool          `yaml:"enabled"`
		URL     string        `yaml:"url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"external_anomaly"`
	Scoring ScoringConfig `yaml:"scoring"`
}

// ScoringConfig is the hot-reloadable part of the configuration: the scorer
// holds it behind an atomic snapshot and accepts replacements at runtime.
type ScoringConfig struct {
	SignalTimeout time.Duration `yaml:"signal_timeout"`
	History       struct {
		MaxEntries int           `yaml:"max_entries"`
		TTL        time.Duration `yaml:"ttl"`
	} `yaml:"history"`
	Ensemble struct {
		RuleWeight     float64 `yaml:"rule_weight"`
		ModelWeight    float64 `yaml:"model_weight"`
		ExternalWeight float64 `yaml:"external_weight"`
	} `yaml:"ensemble"`
	Thresholds struct {
		Medium float64 `yaml:"medium"`
		High   float64 `yaml:"high"`
	} `yaml:"thresholds"`
	Rules RulesConfig `yaml:"rules"`
}

// RulesConfig carries the per-rule parameters and weights. Typed on purpose:
// a malformed weight fails at load time, never at request time.
type RulesConfig struct {
	Velocity struct {
		Window          time.Duration `yaml:"window"`
		MaxTransactions int           `yaml:"max_transactions"`
		Weight          float64       `yaml:"weight"`
	} `yaml:"velocity"`
	HighAmount struct {
		Multiplier float64 `yaml:"multiplier"`
		Weight     float64 `yaml:"weight"`
	} `yaml:"high_amount"`
	Geolocation struct {
		Window time.Duration `yaml:"window"`
		MaxKm  float64       `yaml:"max_km"`
		Weight float64       `yaml:"weight"`
	} `yaml:"geolocation"`
	UnusualHour struct {
		Hours  []int   `yaml:"hours"`
		Weight float64 `yaml:"weight"`
	} `yaml:"unusual_hour"`
	NewDevice struct {
		MinAmount float64 `yaml:"min_amount"`
		Weight    float64 `yaml:"weight"`
	} `yaml:"new_device"`
	Denylist struct {
		Countries []string `yaml:"countries"`
		Weight    float64  `yaml:"weight"`
	} `yaml:"denylist"`
}

// DefaultScoring returns the stock scoring configuration. The ensemble
// weights and the denylist force-block weight are explicit configuration,
// not constants buried in the engine.
func DefaultScoring() ScoringConfig {
	var s ScoringConfig
	s.SignalTimeout = 50 * time.Millisecond
	s.History.MaxEntries = 100
	s.History.TTL = 5 * time.Minute
	s.Ensemble.RuleWeight = 0.85
	s.Ensemble.ModelWeight = 0.10
	s.Ensemble.ExternalWeight = 0.05
	s.Thresholds.Medium = 30
	s.Thresholds.High = 70
	s.Rules.Velocity.Window = 10 * time.Minute
	s.Rules.Velocity.MaxTransactions = 5
	s.Rules.Velocity.Weight = 30
	s.Rules.HighAmount.Multiplier = 3.0
	s.Rules.HighAmount.Weight = 25
	s.Rules.Geolocation.Window = 60 * time.Minute
	s.Rules.Geolocation.MaxKm = 500
	s.Rules.Geolocation.Weight = 35
	s.Rules.UnusualHour.Hours = []int{0, 1, 2, 3, 4, 5}
	s.Rules.UnusualHour.Weight = 10
	s.Rules.NewDevice.MinAmount = 500
	s.Rules.NewDevice.Weight = 20
	// High enough that weight x rule ensemble share clears the block
	// threshold on its own. Policy invariant, kept configurable.
	s.Rules.Denylist.Weight = 100
	return s
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c := Config{Scoring: DefaultScoring()}
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

	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("AUTH_FEED_API_KEY"); v != "" {
		c.AuthFeed.APIKey = v
	}
	if v := os.Getenv("DENYLIST_COUNTRIES"); v != "" {
		c.Scoring.Rules.Denylist.Countries = strings.Split(v, ",")
	}

	return c, nil
}

// Validate checks if the configuration is valid. Configuration errors are
// fatal at startup or reload, never surfaced at request time.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers required when kafka is enabled")
	}
	if c.AuthFeed.Enabled && c.AuthFeed.URL == "" {
		return fmt.Errorf("auth_feed.url required when auth_feed is enabled")
	}
	return c.Scoring.Validate()
}

// Validate checks the scoring snapshot. Called on load and on every hot
// reload before the snapshot is swapped in.
func (s *ScoringConfig) Validate() error {
	if s.SignalTimeout <= 0 {
		return fmt.Errorf("scoring.signal_timeout must be positive")
	}
	if s.History.MaxEntries <= 0 {
		return fmt.Errorf("scoring.history.max_entries must be positive")
	}
	if s.History.TTL <= 0 {
		return fmt.Errorf("scoring.history.ttl must be positive")
	}
	e := s.Ensemble
	if e.RuleWeight < 0 || e.ModelWeight < 0 || e.ExternalWeight < 0 {
		return fmt.Errorf("scoring.ensemble weights must be non-negative")
	}
	if e.RuleWeight+e.ModelWeight+e.ExternalWeight <= 0 {
		return fmt.Errorf("scoring.ensemble weights must not all be zero")
	}
	if s.Thresholds.Medium < 0 || s.Thresholds.High > 100 || s.Thresholds.Medium >= s.Thresholds.High {
		return fmt.Errorf("scoring.thresholds must satisfy 0 <= medium < high <= 100")
	}
	for _, h := range s.Rules.UnusualHour.Hours {
		if h < 0 || h > 23 {
			return fmt.Errorf("scoring.rules.unusual_hour.hours entries must be 0..23, got %d", h)
		}
	}
	for name, w := range map[string]float64{
		"velocity":     s.Rules.Velocity.Weight,
		"high_amount":  s.Rules.HighAmount.Weight,
		"geolocation":  s.Rules.Geolocation.Weight,
		"unusual_hour": s.Rules.UnusualHour.Weight,
		"new_device":   s.Rules.NewDevice.Weight,
		"denylist":     s.Rules.Denylist.Weight,
	} {
		if w < 0 {
			return fmt.Errorf("scoring.rules.%s.weight must be non-negative", name)
		}
	}
	return nil
}
