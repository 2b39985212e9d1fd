package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, 2048, cfg.Bus.HistorySize)
	assert.Equal(t, 5*time.Second, cfg.Bus.DefaultWaitTimeout)
	assert.Equal(t, 24*time.Hour, cfg.Notifications.DefaultTimeToLive)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wirehome.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /var/lib/wirehome
api_addr: ":8080"
log:
  level: debug
bus:
  history_size: 100
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/wirehome", cfg.DataDir)
	assert.Equal(t, ":8080", cfg.APIAddr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 100, cfg.Bus.HistorySize)

	// Fields the file does not name keep their defaults.
	assert.Equal(t, 256, cfg.Bus.QueueCapacity)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
