package swcache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// fetchResult is a fully buffered upstream response, so it can be both
// cached and served.
type fetchResult struct {
	Status int
	Header http.Header
	Body   []byte
}

func (f *fetchResult) ok() bool {
	return f.Status >= 200 && f.Status < 300
}

func (f *fetchResult) entry() Entry {
	return Entry{Status: f.Status, Header: f.Header, Body: f.Body}
}

func (w *Worker) fetchURL(ctx context.Context, url string) (*fetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &fetchResult{Status: resp.StatusCode, Header: resp.Header.Clone(), Body: body}, nil
}

// cacheFirst serves static assets: cached entry if present, otherwise the
// network response (cached on success). With neither, a synthetic 503.
func (w *Worker) cacheFirst(rw http.ResponseWriter, r *http.Request, target string) {
	ctx := r.Context()

	if entry, err := w.dynamic.Match(ctx, target); err == nil && entry != nil {
		serveEntry(rw, entry)
		return
	} else if err != nil {
		w.log.Error(ctx, "cache lookup failed", "url", target, "error", err)
	}

	res, err := w.fetchURL(ctx, target)
	if err != nil {
		w.log.Warn(ctx, "asset unavailable offline", "url", target)
		http.Error(rw, "resource unavailable offline", http.StatusServiceUnavailable)
		return
	}
	if res.ok() {
		if err := w.dynamic.Put(ctx, target, res.entry()); err != nil {
			w.log.Error(ctx, "failed to cache asset", "url", target, "error", err)
		}
	}
	serveResult(rw, res)
}

// networkFirstWithCache serves API calls: live response when the network
// works (captured with a timestamp header for later freshness checks);
// otherwise the cached entry — fresh or stale, stale beats nothing — and
// finally a synthetic 503 with a machine-readable offline body.
func (w *Worker) networkFirstWithCache(rw http.ResponseWriter, r *http.Request, target string) {
	ctx := r.Context()

	res, err := w.fetchURL(ctx, target)
	if err == nil {
		if res.ok() {
			entry := res.entry()
			entry.Header = entry.Header.Clone()
			entry.Header.Set(TimestampHeader, strconv.FormatInt(w.now().UnixMilli(), 10))
			if putErr := w.api.Put(ctx, target, entry); putErr != nil {
				w.log.Error(ctx, "failed to cache api response", "url", target, "error", putErr)
			}
		}
		serveResult(rw, res)
		return
	}

	w.log.Info(ctx, "network unavailable, trying cache", "url", target)

	entry, cacheErr := w.api.Match(ctx, target)
	if cacheErr != nil {
		w.log.Error(ctx, "cache lookup failed", "url", target, "error", cacheErr)
	}
	if entry != nil {
		if ts := entry.Header.Get(TimestampHeader); ts != "" {
			if millis, parseErr := strconv.ParseInt(ts, 10, 64); parseErr == nil {
				age := w.now().Sub(time.UnixMilli(millis))
				if age >= w.cfg.APICacheTTL {
					w.log.Warn(ctx, "serving stale api cache entry", "url", target, "age", age)
				}
			}
		}
		// Expired entries are still served: degraded beats unavailable.
		serveEntry(rw, entry)
		return
	}

	w.serveOffline503(rw)
}

// staleWhileRevalidate serves the cached entry immediately while refreshing
// it in the background; on a miss it falls through to the network.
func (w *Worker) staleWhileRevalidate(rw http.ResponseWriter, r *http.Request, target string) {
	ctx := r.Context()

	entry, err := w.dynamic.Match(ctx, target)
	if err != nil {
		w.log.Error(ctx, "cache lookup failed", "url", target, "error", err)
	}
	if entry != nil {
		go w.revalidate(target)
		serveEntry(rw, entry)
		return
	}

	res, fetchErr := w.fetchURL(ctx, target)
	if fetchErr != nil {
		http.Error(rw, "resource unavailable offline", http.StatusServiceUnavailable)
		return
	}
	if res.ok() {
		if putErr := w.dynamic.Put(ctx, target, res.entry()); putErr != nil {
			w.log.Error(ctx, "failed to cache response", "url", target, "error", putErr)
		}
	}
	serveResult(rw, res)
}

// revalidate refreshes a dynamic cache entry. Concurrent refreshes of the
// same URL collapse into one fetch; the last successful fetch wins the cache
// slot.
func (w *Worker) revalidate(target string) {
	_, _, _ = w.group.Do(target, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.Background(), w.cfg.FetchTimeout)
		defer cancel()

		res, err := w.fetchURL(ctx, target)
		if err != nil {
			return nil, err
		}
		if res.ok() {
			if err := w.dynamic.Put(ctx, target, res.entry()); err != nil {
				w.log.Error(ctx, "failed to refresh cache entry", "url", target, "error", err)
			}
		}
		return nil, nil
	})
}

// navigate serves document loads from the network, falling back to the
// precached application shell when offline.
func (w *Worker) navigate(rw http.ResponseWriter, r *http.Request, target string) {
	ctx := r.Context()

	res, err := w.fetchURL(ctx, target)
	if err == nil {
		serveResult(rw, res)
		return
	}

	shell := w.cfg.UpstreamBase + w.cfg.AppShellDocument
	entry, cacheErr := w.static.Match(ctx, shell)
	if cacheErr != nil {
		w.log.Error(ctx, "cache lookup failed", "url", shell, "error", cacheErr)
	}
	if entry != nil {
		serveEntry(rw, entry)
		return
	}
	w.serveOffline503(rw)
}

func (w *Worker) serveOffline503(rw http.ResponseWriter) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(http.StatusServiceUnavailable)
	fmt.Fprint(rw, `{"error":"offline","offline":true,"message":"No cached data available. Please reconnect to the internet."}`)
}

func serveEntry(rw http.ResponseWriter, e *Entry) {
	copyHeader(rw.Header(), e.Header)
	rw.WriteHeader(e.Status)
	_, _ = rw.Write(e.Body)
}

func serveResult(rw http.ResponseWriter, res *fetchResult) {
	copyHeader(rw.Header(), res.Header)
	rw.WriteHeader(res.Status)
	_, _ = rw.Write(res.Body)
}
