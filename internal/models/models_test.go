package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutrimed/nutrisync/internal/common"
)

func TestParseEntityType(t *testing.T) {
	for _, et := range EntityTypes {
		got, err := ParseEntityType(string(et))
		require.NoError(t, err)
		assert.Equal(t, et, got)
	}

	_, err := ParseEntityType("appointment")
	assert.ErrorIs(t, err, common.ErrUnknownEntityType)
}

func TestParseAction(t *testing.T) {
	for _, a := range []Action{ActionCreate, ActionUpdate, ActionDelete} {
		got, err := ParseAction(string(a))
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}

	_, err := ParseAction("patch")
	assert.ErrorIs(t, err, common.ErrUnknownAction)
}

func TestRecord_StringField(t *testing.T) {
	r := Record{"id": "p1", "weight": 80.0}
	assert.Equal(t, "p1", r.StringField("id"))
	assert.Empty(t, r.StringField("weight"))
	assert.Empty(t, r.StringField("missing"))
}

func TestRecord_Clone(t *testing.T) {
	r := Record{"id": "p1"}
	c := r.Clone()
	c[LastUpdatedField] = "2026-01-01T00:00:00Z"

	_, ok := r[LastUpdatedField]
	assert.False(t, ok)
	assert.Equal(t, "p1", c.StringField("id"))
}

func TestQueueItem_RecordID(t *testing.T) {
	item := QueueItem{Data: Record{"id": "w1"}}
	assert.Equal(t, "w1", item.RecordID())
	assert.Empty(t, QueueItem{Data: Record{}}.RecordID())
}
