package remote

import (
	"context"
	"fmt"

	"github.com/nutrimed/nutrisync/internal/models"
	"github.com/nutrimed/nutrisync/internal/syncer"
	"github.com/nutrimed/nutrisync/internal/syncqueue"
)

// Source reports where a write landed.
type Source string

const (
	SourceOnline  Source = "online"
	SourceOffline Source = "offline"
)

// WriteResult is the outcome of an offline-aware write.
type WriteResult struct {
	Data   models.Record
	Source Source
}

// LocalStore is the slice of a typed entity store the helper mirrors into.
type LocalStore interface {
	Save(ctx context.Context, rec models.Record) (models.Record, error)
}

// WriteOptions describes the operation so it can be queued when it cannot run
// remotely.
type WriteOptions struct {
	EntityType models.EntityType
	Action     models.Action
	Data       models.Record
	Local      LocalStore
}

// ExecuteWithOfflineSupport runs a remote write online-first.
//
// Online: op executes against the remote API; on success its result is
// mirrored into the local store. If op fails, the intent is queued for the
// next drain and the error is returned so the caller can surface it.
//
// Offline: the write is applied locally and queued; no network is touched.
func ExecuteWithOfflineSupport(
	ctx context.Context,
	conn syncer.Connectivity,
	queue *syncqueue.Queue,
	op func(ctx context.Context) (models.Record, error),
	opts WriteOptions,
) (WriteResult, error) {
	if conn.IsOnline() {
		result, err := op(ctx)
		if err == nil {
			if opts.Local != nil && result != nil {
				if _, saveErr := opts.Local.Save(ctx, result); saveErr != nil {
					return WriteResult{}, fmt.Errorf("remote write succeeded but local mirror failed: %w", saveErr)
				}
			}
			return WriteResult{Data: result, Source: SourceOnline}, nil
		}

		if qErr := queue.Add(ctx, opts.EntityType, opts.Action, opts.Data); qErr != nil {
			return WriteResult{}, fmt.Errorf("online write failed (%v) and enqueue failed: %w", err, qErr)
		}
		return WriteResult{}, err
	}

	if opts.Local != nil && opts.Data != nil {
		if _, err := opts.Local.Save(ctx, opts.Data); err != nil {
			return WriteResult{}, err
		}
	}
	if err := queue.Add(ctx, opts.EntityType, opts.Action, opts.Data); err != nil {
		return WriteResult{}, err
	}
	return WriteResult{Data: opts.Data, Source: SourceOffline}, nil
}
