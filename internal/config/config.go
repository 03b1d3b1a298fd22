package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Workflow Workflow `yaml:"workflow"`
	Poll     Poll     `yaml:"poll"`
	LogLevel string   `yaml:"log_level"`
}

// Workflow represents the Dify workflow endpoint configuration
type Workflow struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
	User     string `yaml:"user"`
	Channel  string `yaml:"channel"`
	OldestTS string `yaml:"oldest_ts"`
	LatestTS string `yaml:"latest_ts"`
}

// Poll represents loop-specific configuration
type Poll struct {
	OldestDate       string  `yaml:"oldest_date"`
	IntervalMin      float64 `yaml:"interval_min"`
	Limit            int     `yaml:"limit"`
	MaxRetries       int     `yaml:"max_retries"`
	RetryIntervalSec int     `yaml:"retry_interval_sec"`
	StateFile        string  `yaml:"state_file"`
	Journal          string  `yaml:"journal"`
	MetricsAddr      string  `yaml:"metrics_addr"`
	Once             bool    `yaml:"once"`
}

// Load loads configuration from file, environment and command line flags.
// Precedence: defaults < config file < environment < flags.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	cfg := &Config{
		LogLevel: "info",
		Workflow: Workflow{
			User: "slack-history-import",
		},
		Poll: Poll{
			IntervalMin:      1,
			Limit:            5,
			MaxRetries:       3,
			RetryIntervalSec: 5,
			StateFile:        "./cursor.state.json",
		},
	}

	if configFile != "" {
		if err := loadFromFile(cfg, configFile); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	loadFromEnv(cfg)

	if err := loadFromFlags(cfg, flags); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func loadFromEnv(cfg *Config) {
	set := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	set(&cfg.Workflow.Endpoint, "DIFY_ENDPOINT")
	set(&cfg.Workflow.APIKey, "DIFY_API_KEY")
	set(&cfg.Workflow.User, "DIFY_USER_ID")
	set(&cfg.Workflow.Channel, "CHANNEL_ID")
	set(&cfg.Workflow.OldestTS, "OLDEST_TS")
	set(&cfg.Workflow.LatestTS, "LATEST_TS")
	set(&cfg.Poll.OldestDate, "OLDEST_DATE")
	set(&cfg.Poll.StateFile, "STATE_FILE")
}

func loadFromFlags(cfg *Config, flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}

	if flags.Changed("endpoint") {
		cfg.Workflow.Endpoint, _ = flags.GetString("endpoint")
	}
	if flags.Changed("api-key") {
		cfg.Workflow.APIKey, _ = flags.GetString("api-key")
	}
	if flags.Changed("user") {
		cfg.Workflow.User, _ = flags.GetString("user")
	}
	if flags.Changed("channel") {
		cfg.Workflow.Channel, _ = flags.GetString("channel")
	}
	if flags.Changed("oldest-ts") {
		cfg.Workflow.OldestTS, _ = flags.GetString("oldest-ts")
	}
	if flags.Changed("latest-ts") {
		cfg.Workflow.LatestTS, _ = flags.GetString("latest-ts")
	}

	if flags.Changed("oldest-date") {
		cfg.Poll.OldestDate, _ = flags.GetString("oldest-date")
	}
	if flags.Changed("interval-min") {
		cfg.Poll.IntervalMin, _ = flags.GetFloat64("interval-min")
	}
	if flags.Changed("limit") {
		cfg.Poll.Limit, _ = flags.GetInt("limit")
	}
	if flags.Changed("retries") {
		cfg.Poll.MaxRetries, _ = flags.GetInt("retries")
	}
	if flags.Changed("retry-interval-sec") {
		cfg.Poll.RetryIntervalSec, _ = flags.GetInt("retry-interval-sec")
	}
	if flags.Changed("state") {
		cfg.Poll.StateFile, _ = flags.GetString("state")
	}
	if flags.Changed("journal") {
		cfg.Poll.Journal, _ = flags.GetString("journal")
	}
	if flags.Changed("metrics-addr") {
		cfg.Poll.MetricsAddr, _ = flags.GetString("metrics-addr")
	}
	if flags.Changed("once") {
		cfg.Poll.Once, _ = flags.GetBool("once")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}

	return nil
}

func (c *Config) validate() error {
	if c.Workflow.Endpoint == "" {
		return fmt.Errorf("workflow endpoint is required")
	}
	if c.Workflow.APIKey == "" {
		return fmt.Errorf("workflow api key is required")
	}
	if c.Workflow.Channel == "" {
		return fmt.Errorf("channel is required")
	}

	if c.Poll.Limit <= 0 {
		return fmt.Errorf("limit must be positive")
	}
	if c.Poll.MaxRetries < 0 {
		return fmt.Errorf("retries must not be negative")
	}
	if c.Poll.IntervalMin <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	if c.Poll.RetryIntervalSec < 0 {
		return fmt.Errorf("retry interval must not be negative")
	}

	return nil
}

// Interval returns the sleep between batches, floored at one second.
func (c *Config) Interval() time.Duration {
	d := time.Duration(c.Poll.IntervalMin * float64(time.Minute))
	if d < time.Second {
		return time.Second
	}
	return d
}

// RetryInterval returns the wait between retry attempts within a batch.
func (c *Config) RetryInterval() time.Duration {
	return time.Duration(c.Poll.RetryIntervalSec) * time.Second
}
