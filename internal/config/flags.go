package config

import (
	"flag"
	"os"
	"time"

	"github.com/nutrimed/nutrisync/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-d string   local database path
//	-a string   remote API base URL
//	-l string   gateway listen address
//	-u string   gateway upstream origin
//	-p string   connectivity probe URL
//	-i int      connectivity probe interval (seconds)
//	-t int      API cache freshness window (seconds)
//	-q int      sync quarantine threshold (retries)
//	-v string   cache version
//
// The args are filtered via flagx.FilterArgs so flags owned by other
// components do not interfere.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-a", "-l", "-u", "-p", "-i", "-t", "-q", "-v"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local database path")
	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "remote API base URL")
	fs.StringVar(&cfg.ListenAddr, "l", cfg.ListenAddr, "gateway listen address")
	fs.StringVar(&cfg.UpstreamBase, "u", cfg.UpstreamBase, "gateway upstream origin")
	fs.StringVar(&cfg.ProbeURL, "p", cfg.ProbeURL, "connectivity probe URL")
	probeInterval := fs.Int("i", int(cfg.ProbeInterval.Seconds()), "probe interval (in seconds)")
	cacheTTL := fs.Int("t", int(cfg.APICacheTTL.Seconds()), "API cache freshness window (in seconds)")
	fs.IntVar(&cfg.QuarantineThreshold, "q", cfg.QuarantineThreshold, "sync quarantine threshold")
	fs.StringVar(&cfg.CacheVersion, "v", cfg.CacheVersion, "cache version")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.ProbeInterval = time.Duration(*probeInterval) * time.Second
	cfg.APICacheTTL = time.Duration(*cacheTTL) * time.Second
}
