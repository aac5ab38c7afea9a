// Package config holds runtime settings for the NutriSync agent: local
// database locations, the remote API endpoint, connectivity probing, and the
// response-cache gateway. Values come from defaults, then an optional JSON
// file, then command-line flags, later sources winning.
package config

import "time"

type Config struct {
	// DatabasePath is the sqlite file holding entity collections and the
	// pending-sync queue.
	DatabasePath string
	// CacheDatabasePath is the sqlite file holding the HTTP response cache.
	// The worker context owns it; it never shares tables with DatabasePath.
	CacheDatabasePath string

	// APIBaseURL is the remote API the sync coordinator replays against.
	APIBaseURL string
	// RequestTimeout bounds every remote API call.
	RequestTimeout time.Duration

	// ProbeURL and ProbeInterval drive the connectivity monitor.
	ProbeURL      string
	ProbeInterval time.Duration

	// QuarantineThreshold is the retry count at which a failing queue item is
	// reported (never dropped).
	QuarantineThreshold int

	// ListenAddr is where the cache gateway serves.
	ListenAddr string
	// UpstreamBase is the origin the gateway fronts.
	UpstreamBase string
	// CacheVersion namespaces cache generations.
	CacheVersion string
	// APICacheTTL is the freshness window for cached API responses.
	APICacheTTL time.Duration
}

// LoadDefaults populates c with the production defaults.
func (c *Config) LoadDefaults() {
	c.DatabasePath = "nutrimed.db"
	c.CacheDatabasePath = "nutrimed-cache.db"
	c.APIBaseURL = "https://api.base44.com"
	c.RequestTimeout = 30 * time.Second
	c.ProbeURL = "https://api.base44.com/health"
	c.ProbeInterval = 3 * time.Second
	c.QuarantineThreshold = 5
	c.ListenAddr = ":8080"
	c.UpstreamBase = "http://localhost:3000"
	c.CacheVersion = "v2"
	c.APICacheTTL = 5 * time.Minute
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
