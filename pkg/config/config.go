// Package config handles engine configuration via environment variables
// and an optional TOML file.
//
// Configuration is loaded from environment variables using LoadFromEnv()
// or from a TOML file using LoadFile(), and can be validated with
// Validate() before use. File values are the base; environment variables
// override them, so a deployment can ship one hyperdb.toml and tweak a
// single knob per instance.
//
// Environment Variables:
//
//   - HYPERDB_DATA_DIR="./data"
//   - HYPERDB_JOURNAL_BACKEND="file" or "badger"
//   - HYPERDB_JOURNAL_SYNC="commit", "batch" or "none"
//   - HYPERDB_JOURNAL_BATCH_INTERVAL="1s"
//   - HYPERDB_RULE_MAX_DEPTH=100
//   - HYPERDB_RULE_MAX_ACTIONS=10000
//   - HYPERDB_AUDIT_ENABLED=true
//   - HYPERDB_AUDIT_DIR="./audit"
//   - HYPERDB_METRICS_ENABLED=true
//
// The list above is complete; applyEnv maps each variable to its Config
// field.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all engine configuration.
//
// Configuration is organized into logical sections:
//   - Journal: WAL backend, directory, and sync behavior
//   - Rules: rule-engine chain bounds
//   - Audit: transaction-boundary audit trail
//   - Metrics: Prometheus metrics exposure
type Config struct {
	// Journal settings
	Journal JournalConfig `toml:"journal"`

	// Rule engine bounds
	Rules RulesConfig `toml:"rules"`

	// Audit trail settings
	Audit AuditConfig `toml:"audit"`

	// Metrics settings
	Metrics MetricsConfig `toml:"metrics"`
}

// JournalConfig selects and tunes the write-ahead journal.
type JournalConfig struct {
	// Backend is "file" (length-prefixed records in a single segment
	// file) or "badger" (records in a BadgerDB directory).
	Backend string `toml:"backend"`

	// Dir is where the journal lives.
	Dir string `toml:"dir"`

	// SyncMode names a durability mode: "commit" (the default), "batch"
	// or "none"; Validate accepts only these three. Neither journal
	// backend nor the transaction manager reads it: the manager fsyncs
	// the journal at every commit whatever the mode.
	SyncMode string `toml:"sync_mode"`

	// BatchSyncInterval is paired with "batch" mode; like SyncMode it is
	// not read outside this package.
	BatchSyncInterval time.Duration `toml:"batch_sync_interval"`
}

// RulesConfig holds rule-engine chain bounds; Validate requires both to
// be positive. The rule engine does not read these fields: it applies
// its own constants rule.MaxDepth and rule.MaxActions.
type RulesConfig struct {
	// MaxDepth bounds rule-chain nesting within one mutation.
	MaxDepth int `toml:"max_depth"`

	// MaxActions bounds total productions within one transaction.
	MaxActions int `toml:"max_actions"`
}

// AuditConfig controls the JSON-lines audit trail.
type AuditConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`

	// MaxFileSize triggers rotation when exceeded, in bytes.
	MaxFileSize int64 `toml:"max_file_size"`
}

// MetricsConfig controls Prometheus metric registration.
type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Journal: JournalConfig{
			Backend:           "file",
			Dir:               "./data/journal",
			SyncMode:          "commit",
			BatchSyncInterval: time.Second,
		},
		Rules: RulesConfig{
			MaxDepth:   100,
			MaxActions: 10_000,
		},
		Audit: AuditConfig{
			Enabled:     false,
			Dir:         "./data/audit",
			MaxFileSize: 64 << 20,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// LoadFromEnv builds a Config from defaults overridden by environment
// variables.
func LoadFromEnv() *Config {
	c := Default()
	c.applyEnv()
	return c
}

// LoadFile parses a TOML config file, then applies environment-variable
// overrides on top.
func LoadFile(path string) (*Config, error) {
	c := Default()
	if _, err := toml.DecodeFile(path, c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	c.applyEnv()
	return c, nil
}

func (c *Config) applyEnv() {
	c.Journal.Dir = getEnv("HYPERDB_DATA_DIR", c.Journal.Dir)
	c.Journal.Backend = getEnv("HYPERDB_JOURNAL_BACKEND", c.Journal.Backend)
	c.Journal.SyncMode = getEnv("HYPERDB_JOURNAL_SYNC", c.Journal.SyncMode)
	c.Journal.BatchSyncInterval = getEnvDuration("HYPERDB_JOURNAL_BATCH_INTERVAL", c.Journal.BatchSyncInterval)
	c.Rules.MaxDepth = getEnvInt("HYPERDB_RULE_MAX_DEPTH", c.Rules.MaxDepth)
	c.Rules.MaxActions = getEnvInt("HYPERDB_RULE_MAX_ACTIONS", c.Rules.MaxActions)
	c.Audit.Enabled = getEnvBool("HYPERDB_AUDIT_ENABLED", c.Audit.Enabled)
	c.Audit.Dir = getEnv("HYPERDB_AUDIT_DIR", c.Audit.Dir)
	c.Metrics.Enabled = getEnvBool("HYPERDB_METRICS_ENABLED", c.Metrics.Enabled)
}

// Validate checks the configuration for values the engine cannot run
// with.
func (c *Config) Validate() error {
	switch c.Journal.Backend {
	case "file", "badger":
	default:
		return fmt.Errorf("config: unknown journal backend %q", c.Journal.Backend)
	}
	switch c.Journal.SyncMode {
	case "commit", "batch", "none":
	default:
		return fmt.Errorf("config: unknown journal sync mode %q", c.Journal.SyncMode)
	}
	if c.Journal.Dir == "" {
		return fmt.Errorf("config: journal dir must not be empty")
	}
	if c.Rules.MaxDepth <= 0 {
		return fmt.Errorf("config: rule max depth must be positive")
	}
	if c.Rules.MaxActions <= 0 {
		return fmt.Errorf("config: rule max actions must be positive")
	}
	if c.Audit.Enabled && c.Audit.Dir == "" {
		return fmt.Errorf("config: audit dir must not be empty when audit is enabled")
	}
	return nil
}

// String summarizes the config for logs without dumping every field.
func (c *Config) String() string {
	return fmt.Sprintf("journal=%s(%s,%s) rules=depth:%d/actions:%d audit=%t metrics=%t",
		c.Journal.Backend, c.Journal.Dir, c.Journal.SyncMode,
		c.Rules.MaxDepth, c.Rules.MaxActions, c.Audit.Enabled, c.Metrics.Enabled)
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
