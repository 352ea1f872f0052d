package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("HYPERDB_DATA_DIR", "/tmp/hyperdb-test")
	t.Setenv("HYPERDB_JOURNAL_BACKEND", "badger")
	t.Setenv("HYPERDB_RULE_MAX_DEPTH", "42")
	t.Setenv("HYPERDB_AUDIT_ENABLED", "true")

	c := LoadFromEnv()
	assert.Equal(t, "/tmp/hyperdb-test", c.Journal.Dir)
	assert.Equal(t, "badger", c.Journal.Backend)
	assert.Equal(t, 42, c.Rules.MaxDepth)
	assert.True(t, c.Audit.Enabled)
	require.NoError(t, c.Validate())
}

func TestLoadFileThenEnvWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hyperdb.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[journal]
backend = "file"
dir = "/from/file"
sync_mode = "batch"

[rules]
max_depth = 10
max_actions = 100

[audit]
enabled = true
dir = "/from/file/audit"
`), 0o644))
	t.Setenv("HYPERDB_DATA_DIR", "/from/env")

	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/from/env", c.Journal.Dir) // env overrides file
	assert.Equal(t, "batch", c.Journal.SyncMode)
	assert.Equal(t, 10, c.Rules.MaxDepth)
	assert.Equal(t, 100, c.Rules.MaxActions)
	assert.True(t, c.Audit.Enabled)
	require.NoError(t, c.Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad backend", func(c *Config) { c.Journal.Backend = "postgres" }},
		{"bad sync mode", func(c *Config) { c.Journal.SyncMode = "sometimes" }},
		{"empty journal dir", func(c *Config) { c.Journal.Dir = "" }},
		{"zero max depth", func(c *Config) { c.Rules.MaxDepth = 0 }},
		{"negative max actions", func(c *Config) { c.Rules.MaxActions = -1 }},
		{"audit without dir", func(c *Config) { c.Audit.Enabled = true; c.Audit.Dir = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestBatchIntervalFromEnv(t *testing.T) {
	t.Setenv("HYPERDB_JOURNAL_BATCH_INTERVAL", "250ms")
	c := LoadFromEnv()
	assert.Equal(t, 250*time.Millisecond, c.Journal.BatchSyncInterval)
}
