// Package config loads the application configuration from a YAML or JSON
// file, with environment variables layered on top. A .env file in the working
// directory is folded into the environment before anything is read.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete application configuration.
type Config struct {
	Account    AccountConfig    `json:"account" yaml:"account"`
	Journal    JournalConfig    `json:"journal" yaml:"journal"`
	Strategies StrategiesConfig `json:"strategies" yaml:"strategies"`
	Broker     BrokerConfig     `json:"broker" yaml:"broker"`
	Metrics    MetricsConfig    `json:"metrics" yaml:"metrics"`
}

// AccountConfig identifies the tracked account. Zero loss limits are
// auto-detected from the name, type and balance.
type AccountConfig struct {
	ID              string  `json:"id" yaml:"id"`
	Name            string  `json:"name" yaml:"name"`
	Type            string  `json:"type" yaml:"type"`
	StartingBalance float64 `json:"starting_balance" yaml:"starting_balance"`

	DailyLossLimit   float64 `json:"daily_loss_limit,omitempty" yaml:"daily_loss_limit,omitempty"`
	MaximumLossLimit float64 `json:"maximum_loss_limit,omitempty" yaml:"maximum_loss_limit,omitempty"`
}

// JournalConfig selects where account snapshots persist.
type JournalConfig struct {
	Type   string `json:"type" yaml:"type"` // "sqlite", "postgres" or "none"
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	DSN    string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
}

// StrategiesConfig names the strategies to run and the orchestrator cadence.
type StrategiesConfig struct {
	Enabled      []string `json:"enabled" yaml:"enabled"`
	PollInterval string   `json:"poll_interval" yaml:"poll_interval"` // e.g. "1m", "30s"
}

// PollDuration parses the poll interval, defaulting to one minute.
func (s StrategiesConfig) PollDuration() (time.Duration, error) {
	if s.PollInterval == "" {
		return time.Minute, nil
	}
	return time.ParseDuration(s.PollInterval)
}

// BrokerConfig bounds the request rate against broker endpoints.
type BrokerConfig struct {
	RateLimitPerSecond float64 `json:"rate_limit_per_second" yaml:"rate_limit_per_second"`
	RateLimitBurst     int     `json:"rate_limit_burst" yaml:"rate_limit_burst"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

// Load reads configuration from path (YAML or JSON), then applies environment
// overrides. An empty path yields defaults plus environment.
func Load(path string) (*Config, error) {
	// Missing .env is fine; values from an existing one never override
	// variables already exported.
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		loaded, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a file, trying YAML first and
// falling back to JSON.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}
	return cfg, nil
}

// SaveToFile writes the configuration, YAML for .yaml/.yml and JSON
// otherwise.
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// applyEnv layers environment variables over the file values.
func (c *Config) applyEnv() {
	setString(&c.Account.ID, "ACCOUNT_ID")
	setString(&c.Account.Name, "ACCOUNT_NAME")
	setString(&c.Account.Type, "ACCOUNT_TYPE")
	setFloat(&c.Account.StartingBalance, "ACCOUNT_STARTING_BALANCE")
	setFloat(&c.Account.DailyLossLimit, "ACCOUNT_DAILY_LOSS_LIMIT")
	setFloat(&c.Account.MaximumLossLimit, "ACCOUNT_MAXIMUM_LOSS_LIMIT")

	setString(&c.Journal.Type, "JOURNAL_TYPE")
	setString(&c.Journal.DBPath, "JOURNAL_DB_PATH")
	setString(&c.Journal.DSN, "DATABASE_URL")

	if v := os.Getenv("STRATEGIES_ENABLED"); v != "" {
		c.Strategies.Enabled = splitList(v)
	}
	setString(&c.Strategies.PollInterval, "STRATEGIES_POLL_INTERVAL")

	setFloat(&c.Broker.RateLimitPerSecond, "BROKER_RATE_LIMIT")
	setInt(&c.Broker.RateLimitBurst, "BROKER_RATE_BURST")

	if v := os.Getenv("METRICS_ENABLED"); v != "" {
		c.Metrics.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	setString(&c.Metrics.Addr, "METRICS_ADDR")
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if c.Account.ID == "" {
		return fmt.Errorf("account.id is required")
	}
	if c.Account.StartingBalance <= 0 {
		return fmt.Errorf("account.starting_balance must be positive")
	}
	if c.Account.DailyLossLimit < 0 || c.Account.MaximumLossLimit < 0 {
		return fmt.Errorf("loss limits cannot be negative")
	}

	switch c.Journal.Type {
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal.db_path required for sqlite")
		}
	case "postgres":
		if c.Journal.DSN == "" {
			return fmt.Errorf("journal.dsn required for postgres")
		}
	case "none":
	default:
		return fmt.Errorf("journal.type must be 'sqlite', 'postgres' or 'none'")
	}

	if _, err := c.Strategies.PollDuration(); err != nil {
		return fmt.Errorf("strategies.poll_interval: %w", err)
	}
	if c.Broker.RateLimitPerSecond <= 0 {
		return fmt.Errorf("broker.rate_limit_per_second must be positive")
	}
	if c.Broker.RateLimitBurst <= 0 {
		return fmt.Errorf("broker.rate_limit_burst must be positive")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr required when metrics are enabled")
	}
	return nil
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			ID:              "SIM-001",
			Name:            "150K Evaluation",
			Type:            "evaluation",
			StartingBalance: 150000,
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./nightrange.db",
		},
		Strategies: StrategiesConfig{
			Enabled:      []string{"overnight_range"},
			PollInterval: "1m",
		},
		Broker: BrokerConfig{
			RateLimitPerSecond: 5,
			RateLimitBurst:     10,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9100",
		},
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
