// Package storage implements the durable local store backing offline use of
// the application: one sqlite table per entity collection, primary-key
// upserts, secondary-index lookups and atomic multi-record saves. The schema
// is owned by embedded goose migrations; opening a database runs any pending
// upgrades.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/nutrimed/nutrisync/internal/common"
	"github.com/nutrimed/nutrisync/internal/logging"
	"github.com/nutrimed/nutrisync/internal/models"
	"github.com/nutrimed/nutrisync/internal/storage/migrations"
)

// dbtx is the subset of database/sql used here. Both *sql.DB and *sql.Tx
// satisfy it.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the local persistent store. It is safe for concurrent use; all
// mutations go through database/sql which serializes access to the sqlite
// handle.
type Store struct {
	db  *sql.DB
	log logging.Logger
	now func() time.Time
}

// Open opens (or creates) the sqlite database at dsn and applies pending
// schema migrations. Failure to open or migrate is reported as
// common.ErrStorageUnavailable; callers should degrade to remote-only mode.
func Open(ctx context.Context, dsn string, log logging.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %q: %v", common.ErrStorageUnavailable, dsn, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping: %v", common.ErrStorageUnavailable, err)
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: migrate: %v", common.ErrStorageUnavailable, err)
	}
	return &Store{db: db, log: log, now: time.Now}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

// DB exposes the underlying handle so that the sync queue can share the same
// database file and transaction machinery.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Save upserts item into the named collection by primary key, stamping the
// _lastUpdated field. Saving over an existing key overwrites it; last write
// wins.
func (s *Store) Save(ctx context.Context, storeName string, item models.Record) (models.Record, error) {
	c, err := lookupCollection(storeName)
	if err != nil {
		return nil, err
	}
	return s.upsertOne(ctx, s.db, c, item, s.now())
}

// SaveMany upserts all items inside a single transaction: either every record
// becomes visible or none does. All records share one _lastUpdated timestamp.
func (s *Store) SaveMany(ctx context.Context, storeName string, items []models.Record) ([]models.Record, error) {
	c, err := lookupCollection(storeName)
	if err != nil {
		return nil, err
	}
	ts := s.now()

	saved := make([]models.Record, 0, len(items))
	err = s.withTx(ctx, func(ctx context.Context, tx dbtx) error {
		for _, item := range items {
			rec, err := s.upsertOne(ctx, tx, c, item, ts)
			if err != nil {
				return err
			}
			saved = append(saved, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// Get returns the record with the given primary key, or nil when absent.
func (s *Store) Get(ctx context.Context, storeName, id string) (models.Record, error) {
	c, err := lookupCollection(storeName)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT data FROM %s WHERE id = ?`, c.Name)

	var data []byte
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get from %s: %w", c.Name, err)
	}
	return models.UnmarshalRecord(data)
}

// GetAll returns every record in the collection. Order is unspecified.
func (s *Store) GetAll(ctx context.Context, storeName string) ([]models.Record, error) {
	c, err := lookupCollection(storeName)
	if err != nil {
		return nil, err
	}
	return s.selectRecords(ctx, fmt.Sprintf(`SELECT data FROM %s`, c.Name))
}

// GetByIndex returns the records whose indexed field equals value.
func (s *Store) GetByIndex(ctx context.Context, storeName, indexName, value string) ([]models.Record, error) {
	c, err := lookupCollection(storeName)
	if err != nil {
		return nil, err
	}
	idx, err := c.index(indexName)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT data FROM %s WHERE %s = ?`, c.Name, idx.Field)
	return s.selectRecords(ctx, query, value)
}

// Delete removes the record with the given primary key. Deleting an absent
// key is not an error.
func (s *Store) Delete(ctx context.Context, storeName, id string) error {
	c, err := lookupCollection(storeName)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, c.Name)
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", c.Name, err)
	}
	return nil
}

// Clear removes every record in the collection.
func (s *Store) Clear(ctx context.Context, storeName string) error {
	c, err := lookupCollection(storeName)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, c.Name)); err != nil {
		return fmt.Errorf("failed to clear %s: %w", c.Name, err)
	}
	return nil
}

// Count returns the number of records in the collection.
func (s *Store) Count(ctx context.Context, storeName string) (int64, error) {
	c, err := lookupCollection(storeName)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, c.Name)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", c.Name, err)
	}
	return n, nil
}

func (s *Store) selectRecords(ctx context.Context, query string, args ...any) ([]models.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	defer rows.Close()

	var result []models.Record
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		rec, err := models.UnmarshalRecord(data)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// upsertOne writes a single record via ex, which is either the database
// handle or an open transaction. Collection and index identifiers come from
// the closed registry, never from callers, so interpolating them is safe.
func (s *Store) upsertOne(ctx context.Context, ex dbtx, c Collection, item models.Record, ts time.Time) (models.Record, error) {
	key := item.StringField(c.KeyField)
	if key == "" {
		return nil, fmt.Errorf("record for %s is missing key field %q", c.Name, c.KeyField)
	}

	rec := item.Clone()
	stamp := ts.UTC().Format(time.RFC3339)
	rec[models.LastUpdatedField] = stamp

	data, err := models.MarshalRecord(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}

	cols := []string{"id", "data", "last_updated"}
	args := []any{key, string(data), stamp}
	updates := []string{"data = excluded.data", "last_updated = excluded.last_updated"}
	for _, idx := range c.Indexes {
		cols = append(cols, idx.Field)
		args = append(args, nullableString(rec.StringField(idx.Field)))
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", idx.Field, idx.Field))
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s`,
		c.Name,
		strings.Join(cols, ", "),
		strings.Repeat("?, ", len(cols)-1)+"?",
		strings.Join(updates, ", "),
	)
	if _, err := ex.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to upsert into %s: %w", c.Name, err)
	}
	return rec, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// withTx begins a transaction, runs fn, and commits on success or rolls back
// on error/panic. A failed commit means the durable write is not guaranteed,
// so it is surfaced as ErrStorageUnavailable.
func (s *Store) withTx(ctx context.Context, fn func(ctx context.Context, tx dbtx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", common.ErrStorageUnavailable, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("%w: commit: %v", common.ErrStorageUnavailable, cerr)
		}
	}()

	err = fn(ctx, tx)
	return err
}
