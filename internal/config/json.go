package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/nutrimed/nutrisync/internal/flagx"
	"github.com/nutrimed/nutrisync/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations can
// be given as strings like "5m" or as integer nanoseconds (timex.Duration).
type JsonConfig struct {
	DatabasePath        string         `json:"database_path"`
	CacheDatabasePath   string         `json:"cache_database_path"`
	APIBaseURL          string         `json:"api_base_url"`
	RequestTimeout      timex.Duration `json:"request_timeout"`
	ProbeURL            string         `json:"probe_url"`
	ProbeInterval       timex.Duration `json:"probe_interval"`
	QuarantineThreshold int            `json:"quarantine_threshold"`
	ListenAddr          string         `json:"listen_addr"`
	UpstreamBase        string         `json:"upstream_base"`
	CacheVersion        string         `json:"cache_version"`
	APICacheTTL         timex.Duration `json:"api_cache_ttl"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// the -c/-config flag. Absent file path means no JSON is loaded; read or
// unmarshal errors panic (caller may recover). Only fields present in the
// file override defaults.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.CacheDatabasePath != "" {
		cfg.CacheDatabasePath = jc.CacheDatabasePath
	}
	if jc.APIBaseURL != "" {
		cfg.APIBaseURL = jc.APIBaseURL
	}
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = time.Duration(jc.RequestTimeout.Duration)
	}
	if jc.ProbeURL != "" {
		cfg.ProbeURL = jc.ProbeURL
	}
	if jc.ProbeInterval.Duration > 0 {
		cfg.ProbeInterval = time.Duration(jc.ProbeInterval.Duration)
	}
	if jc.QuarantineThreshold > 0 {
		cfg.QuarantineThreshold = jc.QuarantineThreshold
	}
	if jc.ListenAddr != "" {
		cfg.ListenAddr = jc.ListenAddr
	}
	if jc.UpstreamBase != "" {
		cfg.UpstreamBase = jc.UpstreamBase
	}
	if jc.CacheVersion != "" {
		cfg.CacheVersion = jc.CacheVersion
	}
	if jc.APICacheTTL.Duration > 0 {
		cfg.APICacheTTL = time.Duration(jc.APICacheTTL.Duration)
	}
}
