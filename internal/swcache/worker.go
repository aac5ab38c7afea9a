package swcache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nutrimed/nutrisync/internal/logging"
)

// TimestampHeader carries the capture time (epoch milliseconds) of an
// API-classified cache entry.
const TimestampHeader = "sw-cache-timestamp"

// DefaultAPICacheTTL is the freshness window for cached API responses.
const DefaultAPICacheTTL = 5 * time.Minute

// Config tunes the worker. Zero values select the defaults matching the
// application's production setup.
type Config struct {
	// Namespace prefixes every cache name; version rollover deletes all
	// caches carrying the prefix but not the current version.
	Namespace string
	Version   string

	// UpstreamBase is the origin requests are forwarded to, e.g.
	// "https://app.nutrimed.example".
	UpstreamBase string

	// APIPatterns classify a URL as an API call (network-first).
	APIPatterns []*regexp.Regexp

	// CacheablePatterns classify a path as a static asset (cache-first).
	CacheablePatterns []*regexp.Regexp

	// AppShell is precached at install time; AppShellDocument is the
	// navigation fallback.
	AppShell         []string
	AppShellDocument string

	APICacheTTL  time.Duration
	FetchTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.Namespace == "" {
		c.Namespace = "nutrimed"
	}
	if c.Version == "" {
		c.Version = "v2"
	}
	if len(c.APIPatterns) == 0 {
		c.APIPatterns = []*regexp.Regexp{
			regexp.MustCompile(`api\.base44\.com`),
			regexp.MustCompile(`/api/`),
		}
	}
	if len(c.CacheablePatterns) == 0 {
		c.CacheablePatterns = []*regexp.Regexp{
			regexp.MustCompile(`\.js$`),
			regexp.MustCompile(`\.css$`),
			regexp.MustCompile(`\.woff2?$`),
			regexp.MustCompile(`\.ttf$`),
			regexp.MustCompile(`\.png$`),
			regexp.MustCompile(`\.jpe?g$`),
			regexp.MustCompile(`\.svg$`),
			regexp.MustCompile(`\.ico$`),
			regexp.MustCompile(`\.webp$`),
		}
	}
	if len(c.AppShell) == 0 {
		c.AppShell = []string{"/", "/index.html", "/manifest.json"}
	}
	if c.AppShellDocument == "" {
		c.AppShellDocument = "/index.html"
	}
	if c.APICacheTTL <= 0 {
		c.APICacheTTL = DefaultAPICacheTTL
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 30 * time.Second
	}
}

// Worker intercepts GET requests at the transport boundary and answers them
// per URL classification. It shares nothing with the application's entity
// storage; its caches live in their own database.
type Worker struct {
	cfg     Config
	storage *Storage
	static  *Cache
	dynamic *Cache
	api     *Cache
	client  *http.Client
	group   singleflight.Group
	now     func() time.Time
	log     logging.Logger
}

func NewWorker(storage *Storage, cfg Config, log logging.Logger) *Worker {
	cfg.applyDefaults()
	w := &Worker{
		cfg:     cfg,
		storage: storage,
		client:  &http.Client{Timeout: cfg.FetchTimeout},
		now:     time.Now,
		log:     log,
	}
	w.static = storage.Open(w.cacheName("static"))
	w.dynamic = storage.Open(w.cacheName("dynamic"))
	w.api = storage.Open(w.cacheName("api"))
	return w
}

func (w *Worker) cacheName(kind string) string {
	return fmt.Sprintf("%s-%s-%s", w.cfg.Namespace, kind, w.cfg.Version)
}

func (w *Worker) namespacePrefix() string {
	return w.cfg.Namespace + "-"
}

// Install precaches the application shell.
func (w *Worker) Install(ctx context.Context) error {
	for _, path := range w.cfg.AppShell {
		url := w.cfg.UpstreamBase + path
		res, err := w.fetchURL(ctx, url)
		if err != nil {
			return fmt.Errorf("failed to precache %s: %w", path, err)
		}
		if !res.ok() {
			return fmt.Errorf("failed to precache %s: status %d", path, res.Status)
		}
		if err := w.static.Put(ctx, url, res.entry()); err != nil {
			return err
		}
	}
	w.log.Info(ctx, "app shell precached", "assets", len(w.cfg.AppShell))
	return nil
}

// Activate deletes every cache from a previous generation: names carrying
// the namespace prefix but not the current version.
func (w *Worker) Activate(ctx context.Context) error {
	names, err := w.storage.Keys(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		if strings.HasPrefix(name, w.namespacePrefix()) && !strings.Contains(name, w.cfg.Version) {
			w.log.Info(ctx, "deleting old cache generation", "cache", name)
			if err := w.storage.Delete(ctx, name); err != nil {
				return err
			}
		}
	}
	return nil
}

// ServeHTTP classifies the request and dispatches the matching strategy.
// Precedence: non-GET and non-http(s) pass through untouched, then API,
// navigation, static asset, and finally stale-while-revalidate for the rest.
func (w *Worker) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.passThrough(rw, r)
		return
	}
	if s := r.URL.Scheme; s != "" && s != "http" && s != "https" {
		w.passThrough(rw, r)
		return
	}

	target := w.upstreamURL(r)
	switch {
	case w.isAPIRequest(target):
		w.networkFirstWithCache(rw, r, target)
	case isNavigation(r):
		w.navigate(rw, r, target)
	case w.shouldCache(r.URL.Path):
		w.cacheFirst(rw, r, target)
	default:
		w.staleWhileRevalidate(rw, r, target)
	}
}

func (w *Worker) upstreamURL(r *http.Request) string {
	return w.cfg.UpstreamBase + r.URL.RequestURI()
}

func (w *Worker) isAPIRequest(url string) bool {
	for _, p := range w.cfg.APIPatterns {
		if p.MatchString(url) {
			return true
		}
	}
	return false
}

func (w *Worker) shouldCache(path string) bool {
	for _, p := range w.cfg.CacheablePatterns {
		if p.MatchString(path) {
			return true
		}
	}
	return false
}

// isNavigation reports whether the request is a full document load. Browsers
// mark those with Sec-Fetch-Mode: navigate; an Accept header preferring HTML
// is the fallback signal.
func isNavigation(r *http.Request) bool {
	if r.Header.Get("Sec-Fetch-Mode") == "navigate" {
		return true
	}
	accept := r.Header.Get("Accept")
	return strings.HasPrefix(accept, "text/html")
}

// passThrough forwards the request untouched and streams the response back.
func (w *Worker) passThrough(rw http.ResponseWriter, r *http.Request) {
	target := w.upstreamURL(r)
	req, err := http.NewRequestWithContext(r.Context(), r.Method, target, r.Body)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusBadGateway)
		return
	}
	copyHeader(req.Header, r.Header)

	resp, err := w.client.Do(req)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	copyHeader(rw.Header(), resp.Header)
	rw.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(rw, resp.Body)
}

func copyHeader(dst, src http.Header) {
	for k, vv := range src {
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}
