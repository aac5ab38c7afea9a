package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	saved := os.Args
	os.Args = append([]string{"nutrisync"}, args...)
	t.Cleanup(func() { os.Args = saved })
}

func TestLoadConfig_Defaults(t *testing.T) {
	withArgs(t)

	cfg := LoadConfig()
	assert.Equal(t, "nutrimed.db", cfg.DatabasePath)
	assert.Equal(t, "nutrimed-cache.db", cfg.CacheDatabasePath)
	assert.Equal(t, "https://api.base44.com", cfg.APIBaseURL)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 3*time.Second, cfg.ProbeInterval)
	assert.Equal(t, 5, cfg.QuarantineThreshold)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "v2", cfg.CacheVersion)
	assert.Equal(t, 5*time.Minute, cfg.APICacheTTL)
}

func TestLoadConfig_JsonFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"database_path": "/data/app.db",
		"api_base_url": "https://api.example.com",
		"probe_interval": "10s",
		"api_cache_ttl": "2m",
		"quarantine_threshold": 8
	}`), 0o600))
	withArgs(t, "-c", path)

	cfg := LoadConfig()
	assert.Equal(t, "/data/app.db", cfg.DatabasePath)
	assert.Equal(t, "https://api.example.com", cfg.APIBaseURL)
	assert.Equal(t, 10*time.Second, cfg.ProbeInterval)
	assert.Equal(t, 2*time.Minute, cfg.APICacheTTL)
	assert.Equal(t, 8, cfg.QuarantineThreshold)

	// Fields absent from the file keep their defaults.
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "nutrimed-cache.db", cfg.CacheDatabasePath)
}

func TestLoadConfig_FlagsOverrideJson(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"database_path": "/data/from-json.db", "listen_addr": ":9000"}`), 0o600))
	withArgs(t, "-c", path, "-d", "/data/from-flag.db", "-q", "3", "-i", "7")

	cfg := LoadConfig()
	assert.Equal(t, "/data/from-flag.db", cfg.DatabasePath)
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, 3, cfg.QuarantineThreshold)
	assert.Equal(t, 7*time.Second, cfg.ProbeInterval)
}

func TestLoadConfig_MissingJsonFilePanics(t *testing.T) {
	withArgs(t, "-c", filepath.Join(t.TempDir(), "absent.json"))
	assert.Panics(t, func() { LoadConfig() })
}
