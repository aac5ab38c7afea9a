// Package swcache is the transport-boundary HTTP response cache: a gateway
// that intercepts GET requests ahead of application code and answers them
// with one of three strategies depending on URL classification, backed by
// versioned, namespaced caches in a local sqlite database.
package swcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/nutrimed/nutrisync/internal/common"
)

// Storage is a caches-style keyed response store: named caches holding
// URL-keyed captured responses. It runs in its own context with its own
// database handle, disjoint from the application entity collections.
type Storage struct {
	db *sql.DB
}

const storageSchema = `
CREATE TABLE IF NOT EXISTS http_cache (
    cache_name TEXT NOT NULL,
    url TEXT NOT NULL,
    status INTEGER NOT NULL,
    headers TEXT NOT NULL,
    body BLOB,
    PRIMARY KEY (cache_name, url)
);
CREATE INDEX IF NOT EXISTS idx_http_cache_by_name ON http_cache (cache_name);
`

// OpenStorage opens (or creates) the response cache database at dsn.
func OpenStorage(ctx context.Context, dsn string) (*Storage, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %q: %v", common.ErrStorageUnavailable, dsn, err)
	}
	if _, err := db.ExecContext(ctx, storageSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: init cache schema: %v", common.ErrStorageUnavailable, err)
	}
	return &Storage{db: db}, nil
}

func (s *Storage) Close() error { return s.db.Close() }

// Open returns a handle to the named cache, creating nothing until the first
// Put.
func (s *Storage) Open(name string) *Cache {
	return &Cache{st: s, name: name}
}

// Keys lists the names of caches currently holding at least one entry.
func (s *Storage) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT cache_name FROM http_cache ORDER BY cache_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list caches: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Delete removes the named cache and every entry in it.
func (s *Storage) Delete(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM http_cache WHERE cache_name = ?`, name); err != nil {
		return fmt.Errorf("failed to delete cache %q: %w", name, err)
	}
	return nil
}

// Entry is one captured HTTP response.
type Entry struct {
	Status int
	Header http.Header
	Body   []byte
}

// Cache is a single named cache within Storage.
type Cache struct {
	st   *Storage
	name string
}

func (c *Cache) Name() string { return c.name }

// Put stores or overwrites the entry for url.
func (c *Cache) Put(ctx context.Context, url string, e Entry) error {
	headers, err := json.Marshal(e.Header)
	if err != nil {
		return fmt.Errorf("failed to marshal cached headers: %w", err)
	}
	query := `INSERT INTO http_cache (cache_name, url, status, headers, body) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (cache_name, url) DO UPDATE SET status = excluded.status, headers = excluded.headers, body = excluded.body`
	if _, err := c.st.db.ExecContext(ctx, query, c.name, url, e.Status, string(headers), e.Body); err != nil {
		return fmt.Errorf("failed to cache %q: %w", url, err)
	}
	return nil
}

// Match returns the cached entry for url, or nil on a miss.
func (c *Cache) Match(ctx context.Context, url string) (*Entry, error) {
	var (
		e       Entry
		headers []byte
	)
	query := `SELECT status, headers, body FROM http_cache WHERE cache_name = ? AND url = ?`
	err := c.st.db.QueryRowContext(ctx, query, c.name, url).Scan(&e.Status, &headers, &e.Body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry %q: %w", url, err)
	}
	if err := json.Unmarshal(headers, &e.Header); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached headers: %w", err)
	}
	return &e, nil
}
