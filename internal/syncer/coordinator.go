// Package syncer drains the pending-operation queue against the remote API
// when connectivity is available. Items replay oldest-first across all entity
// types, failures are isolated per item, and repeatedly failing items are
// quarantined in place — reported, never dropped.
package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/nutrimed/nutrisync/internal/common"
	"github.com/nutrimed/nutrisync/internal/logging"
	"github.com/nutrimed/nutrisync/internal/models"
	"github.com/nutrimed/nutrisync/internal/syncqueue"
)

// DefaultQuarantineThreshold is the retry count at which a failing item is
// included in the drain error report.
const DefaultQuarantineThreshold = 5

// Connectivity is the slice of the network monitor the coordinator needs.
type Connectivity interface {
	IsOnline() bool
}

// EntityClient is the remote CRUD surface for a single entity type.
type EntityClient interface {
	Create(ctx context.Context, data models.Record, idempotencyKey string) (models.Record, error)
	Update(ctx context.Context, id string, data models.Record) (models.Record, error)
	Delete(ctx context.Context, id string) error
}

// API exposes one EntityClient per syncable entity type. Keeping the set as
// methods (rather than a string-keyed map) makes adding or removing an entity
// type a compile-time-checked change.
type API interface {
	Patients() EntityClient
	DietPlans() EntityClient
	WeightRecords() EntityClient
	Recipes() EntityClient
	Medications() EntityClient
}

// ItemError describes one queue item that failed past the quarantine
// threshold, or that is malformed beyond replay.
type ItemError struct {
	ID         int64
	EntityType models.EntityType
	Action     models.Action
	RetryCount int
	Err        string
}

// Report summarizes one drain attempt.
type Report struct {
	Success bool
	Reason  string
	Synced  int
	Failed  int
	Errors  []ItemError
}

type Coordinator struct {
	queue     *syncqueue.Queue
	api       API
	conn      Connectivity
	threshold int
	log       logging.Logger
}

// New builds a coordinator. threshold <= 0 selects
// DefaultQuarantineThreshold.
func New(queue *syncqueue.Queue, api API, conn Connectivity, threshold int, log logging.Logger) *Coordinator {
	if threshold <= 0 {
		threshold = DefaultQuarantineThreshold
	}
	return &Coordinator{queue: queue, api: api, conn: conn, threshold: threshold, log: log}
}

// SyncPendingChanges replays every queued operation in ascending id order.
//
// While offline it abstains entirely. If connectivity drops mid-drain the
// remaining items stay queued in their original order for the next attempt.
// An item is removed from the queue only after its replay succeeded; a failed
// item has its retry counter incremented and, once the counter reaches the
// quarantine threshold, is included in the report's Errors.
//
// The returned error covers queue infrastructure failures only; per-item
// replay outcomes are in the Report.
func (c *Coordinator) SyncPendingChanges(ctx context.Context) (Report, error) {
	if !c.conn.IsOnline() {
		c.log.Debug(ctx, "skipping sync while offline")
		return Report{Success: false, Reason: "offline"}, nil
	}

	items, err := c.queue.GetAll(ctx)
	if err != nil {
		return Report{Success: false, Reason: "queue unavailable"}, err
	}
	if len(items) == 0 {
		return Report{Success: true}, nil
	}

	c.log.Info(ctx, "syncing pending changes", "pending", len(items))

	report := Report{}
	for _, item := range items {
		// Connectivity can drop mid-drain; stop and leave the rest queued.
		if !c.conn.IsOnline() {
			c.log.Warn(ctx, "connection lost mid-drain", "synced", report.Synced)
			break
		}

		err := c.replay(ctx, item)
		if err == nil {
			if rmErr := c.queue.Remove(ctx, item.ID); rmErr != nil {
				// The remote write landed but the dequeue did not; the item
				// will replay with the same idempotency key next drain.
				c.log.Error(ctx, "failed to dequeue synced item", "id", item.ID, "error", rmErr)
				report.Failed++
				continue
			}
			report.Synced++
			continue
		}

		report.Failed++

		if errors.Is(err, common.ErrUnknownEntityType) || errors.Is(err, common.ErrUnknownAction) {
			// Malformed item: a local programming error. Not retried, but
			// reported and kept so nothing is silently lost.
			c.log.Error(ctx, "malformed queue item", "id", item.ID, "error", err)
			report.Errors = append(report.Errors, ItemError{
				ID:         item.ID,
				EntityType: item.EntityType,
				Action:     item.Action,
				RetryCount: item.RetryCount,
				Err:        err.Error(),
			})
			continue
		}

		c.log.Warn(ctx, "failed to sync item", "id", item.ID, "retries", item.RetryCount, "error", err)
		if incErr := c.queue.IncrementRetry(ctx, item.ID); incErr != nil {
			c.log.Error(ctx, "failed to record retry", "id", item.ID, "error", incErr)
		}
		if item.RetryCount+1 >= c.threshold {
			report.Errors = append(report.Errors, ItemError{
				ID:         item.ID,
				EntityType: item.EntityType,
				Action:     item.Action,
				RetryCount: item.RetryCount + 1,
				Err:        err.Error(),
			})
		}
	}

	report.Success = report.Failed == 0
	c.log.Info(ctx, "sync finished", "synced", report.Synced, "failed", report.Failed)
	return report, nil
}

// replay applies one queued operation against the remote API.
func (c *Coordinator) replay(ctx context.Context, item models.QueueItem) error {
	client, err := c.clientFor(item.EntityType)
	if err != nil {
		return err
	}

	switch item.Action {
	case models.ActionCreate:
		_, err = client.Create(ctx, item.Data, item.IdempotencyKey)
	case models.ActionUpdate:
		_, err = client.Update(ctx, item.RecordID(), item.Data)
	case models.ActionDelete:
		err = client.Delete(ctx, item.RecordID())
	default:
		return fmt.Errorf("%w: %q", common.ErrUnknownAction, item.Action)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrRemoteOperation, err)
	}
	return nil
}

func (c *Coordinator) clientFor(t models.EntityType) (EntityClient, error) {
	switch t {
	case models.EntityPatient:
		return c.api.Patients(), nil
	case models.EntityDietPlan:
		return c.api.DietPlans(), nil
	case models.EntityWeightRecord:
		return c.api.WeightRecords(), nil
	case models.EntityRecipe:
		return c.api.Recipes(), nil
	case models.EntityMedication:
		return c.api.Medications(), nil
	}
	return nil, fmt.Errorf("%w: %q", common.ErrUnknownEntityType, t)
}
