package orchestrator

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the orchestrator tunables. The source material leaves the
// retry count, backoff constants and pool size open, so they are
// configuration with documented defaults rather than fixed values.
type Config struct {
	// MaxRetries is the number of additional attempts after the first
	// failure of an external call that failed transiently.
	MaxRetries int `yaml:"max_retries"`

	// BackoffBase is the delay before the first retry; it doubles each
	// attempt up to BackoffCap.
	BackoffBase time.Duration `yaml:"backoff_base"`
	BackoffCap  time.Duration `yaml:"backoff_cap"`

	// WorkerPoolSize bounds the number of dispatches in flight
	// system-wide. Dispatches beyond the bound wait for a free slot.
	WorkerPoolSize int `yaml:"worker_pool_size"`

	// CallTimeout wraps every external call: agent operations, repository
	// writes and audit appends. A timeout counts as a transient failure.
	CallTimeout time.Duration `yaml:"call_timeout"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     3,
		BackoffBase:    500 * time.Millisecond,
		BackoffCap:     30 * time.Second,
		WorkerPoolSize: 8,
		CallTimeout:    30 * time.Second,
	}
}

// withDefaults fills zero fields with the defaults.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxRetries <= 0 {
		c.MaxRetries = def.MaxRetries
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = def.BackoffBase
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = def.BackoffCap
	}
	if c.WorkerPoolSize <= 0 {
		c.WorkerPoolSize = def.WorkerPoolSize
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = def.CallTimeout
	}
	return c
}

// LoadConfig reads a YAML config file, applying defaults for absent fields.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg.withDefaults(), nil
}
