// Package syncqueue implements the durable FIFO buffer of write operations
// made while offline (or whose online attempt failed). Items live in the
// pending_sync table of the local store's database and are replayed in
// ascending id order by the sync coordinator.
package syncqueue

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nutrimed/nutrisync/internal/models"
)

type Queue struct {
	db     *sql.DB
	now    func() time.Time
	newKey func() string
}

// New returns a queue over the given database handle, which must carry the
// pending_sync schema (applied by the storage migrations).
func New(db *sql.DB) *Queue {
	return &Queue{db: db, now: time.Now, newKey: uuid.NewString}
}

// Add appends a new pending operation with a zero retry count and a fresh
// idempotency key. The autoincrement id assigned by sqlite fixes the item's
// position in the global replay order.
func (q *Queue) Add(ctx context.Context, entityType models.EntityType, action models.Action, data models.Record) error {
	payload, err := models.MarshalRecord(data)
	if err != nil {
		return fmt.Errorf("failed to marshal queue payload: %w", err)
	}

	query := `INSERT INTO pending_sync (entity_type, action, data, timestamp, retry_count, idempotency_key)
		VALUES (?, ?, ?, ?, 0, ?)`
	_, err = q.db.ExecContext(ctx, query,
		string(entityType), string(action), string(payload),
		q.now().UTC().Format(time.RFC3339), q.newKey())
	if err != nil {
		return fmt.Errorf("failed to enqueue operation: %w", err)
	}
	return nil
}

// GetAll returns every pending item in ascending id order.
func (q *Queue) GetAll(ctx context.Context) ([]models.QueueItem, error) {
	return q.selectItems(ctx, `SELECT id, entity_type, action, data, timestamp, retry_count, last_retry, idempotency_key
		FROM pending_sync ORDER BY id ASC`)
}

// GetByEntity returns pending items for one entity type, in ascending id order.
func (q *Queue) GetByEntity(ctx context.Context, entityType models.EntityType) ([]models.QueueItem, error) {
	return q.selectItems(ctx, `SELECT id, entity_type, action, data, timestamp, retry_count, last_retry, idempotency_key
		FROM pending_sync WHERE entity_type = ? ORDER BY id ASC`, string(entityType))
}

// Remove deletes an item. It must only be called after the item's replay
// against the remote API was confirmed successful.
func (q *Queue) Remove(ctx context.Context, id int64) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM pending_sync WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to remove queue item %d: %w", id, err)
	}
	return nil
}

// IncrementRetry bumps the item's retry counter and stamps the retry time.
// Concurrent increments resolve last-write-wins, which is acceptable: no
// cross-process writers exist in this design.
func (q *Queue) IncrementRetry(ctx context.Context, id int64) error {
	query := `UPDATE pending_sync SET retry_count = retry_count + 1, last_retry = ? WHERE id = ?`
	if _, err := q.db.ExecContext(ctx, query, q.now().UTC().Format(time.RFC3339), id); err != nil {
		return fmt.Errorf("failed to increment retry for item %d: %w", id, err)
	}
	return nil
}

// Count returns the number of pending items.
func (q *Queue) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_sync`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count queue: %w", err)
	}
	return n, nil
}

// Clear discards every pending operation. This is an administrative escape
// hatch; the dropped writes are gone for good.
func (q *Queue) Clear(ctx context.Context) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM pending_sync`); err != nil {
		return fmt.Errorf("failed to clear queue: %w", err)
	}
	return nil
}

func (q *Queue) selectItems(ctx context.Context, query string, args ...any) ([]models.QueueItem, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select queue items: %w", err)
	}
	defer rows.Close()

	var result []models.QueueItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanItem(rows *sql.Rows) (models.QueueItem, error) {
	var (
		item       models.QueueItem
		entityType string
		action     string
		data       []byte
		ts         string
		lastRetry  sql.NullString
	)
	if err := rows.Scan(&item.ID, &entityType, &action, &data, &ts, &item.RetryCount, &lastRetry, &item.IdempotencyKey); err != nil {
		return models.QueueItem{}, err
	}

	// Malformed entity/action strings are preserved as-is; the coordinator
	// classifies them as fatal for the item without aborting the drain.
	item.EntityType = models.EntityType(entityType)
	item.Action = models.Action(action)

	rec, err := models.UnmarshalRecord(data)
	if err != nil {
		return models.QueueItem{}, fmt.Errorf("failed to unmarshal queue payload: %w", err)
	}
	item.Data = rec

	when, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return models.QueueItem{}, fmt.Errorf("failed to parse queue timestamp: %w", err)
	}
	item.Timestamp = when

	if lastRetry.Valid {
		t, err := time.Parse(time.RFC3339, lastRetry.String)
		if err != nil {
			return models.QueueItem{}, fmt.Errorf("failed to parse retry timestamp: %w", err)
		}
		item.LastRetry = &t
	}
	return item, nil
}
