package remote

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"github.com/nutrimed/nutrisync/internal/logging"
	"github.com/nutrimed/nutrisync/internal/models"
	"github.com/nutrimed/nutrisync/internal/storage"
	"github.com/nutrimed/nutrisync/internal/syncqueue"
)

type stubConn struct{ online bool }

func (s stubConn) IsOnline() bool { return s.online }

type recordingStore struct {
	saved []models.Record
	err   error
}

func (r *recordingStore) Save(ctx context.Context, rec models.Record) (models.Record, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.saved = append(r.saved, rec)
	return rec, nil
}

func setupOfflineQueue(t *testing.T) *syncqueue.Queue {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db")
	s, err := storage.Open(context.Background(), dsn, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return syncqueue.New(s.DB())
}

func TestExecute_OnlineSuccessMirrorsLocally(t *testing.T) {
	queue := setupOfflineQueue(t)
	local := &recordingStore{}
	ctx := context.Background()

	remoteResult := models.Record{"id": "p1", "name": "Ada", "version": 2.0}
	got, err := ExecuteWithOfflineSupport(ctx, stubConn{online: true}, queue,
		func(ctx context.Context) (models.Record, error) { return remoteResult, nil },
		WriteOptions{
			EntityType: models.EntityPatient,
			Action:     models.ActionUpdate,
			Data:       models.Record{"id": "p1", "name": "Ada"},
			Local:      local,
		})
	require.NoError(t, err)

	assert.Equal(t, SourceOnline, got.Source)
	assert.Equal(t, remoteResult, got.Data)

	// The authoritative remote response, not the request data, is mirrored.
	require.Len(t, local.saved, 1)
	assert.Equal(t, remoteResult, local.saved[0])

	n, err := queue.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestExecute_OnlineFailureQueuesIntent(t *testing.T) {
	queue := setupOfflineQueue(t)
	local := &recordingStore{}
	ctx := context.Background()

	opErr := errors.New("backend down")
	_, err := ExecuteWithOfflineSupport(ctx, stubConn{online: true}, queue,
		func(ctx context.Context) (models.Record, error) { return nil, opErr },
		WriteOptions{
			EntityType: models.EntityMedication,
			Action:     models.ActionCreate,
			Data:       models.Record{"id": "m1"},
			Local:      local,
		})
	require.ErrorIs(t, err, opErr)

	assert.Empty(t, local.saved)

	items, err := queue.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.EntityMedication, items[0].EntityType)
	assert.Equal(t, models.ActionCreate, items[0].Action)
	assert.Equal(t, "m1", items[0].RecordID())
}

func TestExecute_OfflineSavesLocallyAndQueues(t *testing.T) {
	queue := setupOfflineQueue(t)
	local := &recordingStore{}
	ctx := context.Background()

	data := models.Record{"id": "w1", "weight": 79.5}
	got, err := ExecuteWithOfflineSupport(ctx, stubConn{online: false}, queue,
		func(ctx context.Context) (models.Record, error) {
			t.Fatal("remote op must not run while offline")
			return nil, nil
		},
		WriteOptions{
			EntityType: models.EntityWeightRecord,
			Action:     models.ActionCreate,
			Data:       data,
			Local:      local,
		})
	require.NoError(t, err)

	assert.Equal(t, SourceOffline, got.Source)
	assert.Equal(t, data, got.Data)
	require.Len(t, local.saved, 1)

	items, err := queue.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "w1", items[0].RecordID())
}

func TestExecute_OfflineLocalSaveFailureDoesNotQueue(t *testing.T) {
	queue := setupOfflineQueue(t)
	local := &recordingStore{err: errors.New("disk full")}
	ctx := context.Background()

	_, err := ExecuteWithOfflineSupport(ctx, stubConn{online: false}, queue,
		func(ctx context.Context) (models.Record, error) { return nil, nil },
		WriteOptions{
			EntityType: models.EntityPatient,
			Action:     models.ActionUpdate,
			Data:       models.Record{"id": "p1"},
			Local:      local,
		})
	require.Error(t, err)

	n, err := queue.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
