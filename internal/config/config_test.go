package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "indexsim.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[simulation]
tick_rate = "100ms"
ticks = 20

[index]
dirty_shards = 32

[logging]
format = "json"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 100*time.Millisecond, cfg.Simulation.TickRate)
	assert.Equal(t, 20, cfg.Simulation.Ticks)
	assert.Equal(t, 4, cfg.Simulation.Workers, "untouched keys keep defaults")
	assert.Equal(t, 32, cfg.Index.DirtyShards)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Database.Enabled)
}

func TestLoadRejectsBadValues(t *testing.T) {
	_, err := Load(writeConfig(t, "[index]\ndirty_shards = 0\n"))
	assert.ErrorContains(t, err, "dirty_shards")

	_, err = Load(writeConfig(t, "[database]\nenabled = true\nchangelog_interval = 0\n"))
	assert.ErrorContains(t, err, "changelog_interval")

	_, err = Load(writeConfig(t, "[simulation\n"))
	assert.ErrorContains(t, err, "parse config")

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorContains(t, err, "read config")
}
