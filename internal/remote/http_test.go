package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutrimed/nutrisync/internal/logging"
	"github.com/nutrimed/nutrisync/internal/models"
)

func TestCreate_SendsIdempotencyKey(t *testing.T) {
	var gotKey, gotPath, gotMethod string
	var gotBody models.Record

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Idempotency-Key")
		gotPath = r.URL.Path
		gotMethod = r.Method
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "w1", "weight": 80.0})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, 5*time.Second, logging.NewNopLogger())
	got, err := c.WeightRecords().Create(context.Background(), models.Record{"id": "w1", "weight": 80.0}, "key-123")
	require.NoError(t, err)

	assert.Equal(t, "key-123", gotKey)
	assert.Equal(t, "/weight-records", gotPath)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "w1", gotBody.StringField("id"))
	assert.Equal(t, "w1", got.StringField("id"))
}

func TestUpdate_RoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/patients/p1", r.URL.Path)
		var body models.Record
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_ = json.NewEncoder(w).Encode(body)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, 5*time.Second, logging.NewNopLogger())
	got, err := c.Patients().Update(context.Background(), "p1", models.Record{"id": "p1", "name": "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.StringField("name"))
}

func TestDo_RetriesTransientFailure(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "r1"})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, 5*time.Second, logging.NewNopLogger())
	got, err := c.Recipes().Update(context.Background(), "r1", models.Record{"id": "r1"})
	require.NoError(t, err)
	assert.Equal(t, "r1", got.StringField("id"))
	assert.EqualValues(t, 2, attempts.Load())
}

func TestDo_ClientErrorIsPermanent(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, 5*time.Second, logging.NewNopLogger())
	_, err := c.Patients().Update(context.Background(), "p1", models.Record{"id": "p1"})
	require.Error(t, err)
	assert.EqualValues(t, 1, attempts.Load(), "4xx must not be retried")
}

func TestDelete_NotFoundCountsAsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, 5*time.Second, logging.NewNopLogger())
	err := c.Medications().Delete(context.Background(), "m1")
	assert.NoError(t, err)
}
