package models

import "time"

// QueueItem is one buffered write operation awaiting replay against the
// remote API.
//
// Invariants: ID is assigned by the queue and strictly increasing; items are
// replayed in ascending ID order; RetryCount only grows; an item leaves the
// queue only after its replay succeeded.
type QueueItem struct {
	ID             int64
	EntityType     EntityType
	Action         Action
	Data           Record
	Timestamp      time.Time
	RetryCount     int
	LastRetry      *time.Time
	IdempotencyKey string
}

// RecordID returns the identifier of the payload record, used by update and
// delete replays.
func (i QueueItem) RecordID() string {
	return i.Data.StringField("id")
}
