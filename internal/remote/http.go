// Package remote implements the HTTP JSON client for the backend API the
// application syncs against, plus the offline-aware write helper used by the
// UI layer.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/nutrimed/nutrisync/internal/logging"
	"github.com/nutrimed/nutrisync/internal/models"
	"github.com/nutrimed/nutrisync/internal/syncer"
)

// HTTPClient talks to the remote API over HTTP with JSON bodies. Transient
// failures (transport errors, 429, 5xx) are retried a bounded number of times
// with fibonacci backoff inside a single call; anything still failing after
// that is the caller's problem (the sync coordinator keeps the item queued).
type HTTPClient struct {
	base       string
	http       *http.Client
	maxRetries uint64
	log        logging.Logger
}

var _ syncer.API = (*HTTPClient)(nil)

func NewHTTPClient(baseURL string, timeout time.Duration, log logging.Logger) *HTTPClient {
	return &HTTPClient{
		base:       strings.TrimRight(baseURL, "/"),
		http:       &http.Client{Timeout: timeout},
		maxRetries: 3,
		log:        log,
	}
}

func (c *HTTPClient) Patients() syncer.EntityClient      { return &entityClient{c: c, path: "patients"} }
func (c *HTTPClient) DietPlans() syncer.EntityClient     { return &entityClient{c: c, path: "diet-plans"} }
func (c *HTTPClient) WeightRecords() syncer.EntityClient { return &entityClient{c: c, path: "weight-records"} }
func (c *HTTPClient) Recipes() syncer.EntityClient       { return &entityClient{c: c, path: "recipes"} }
func (c *HTTPClient) Medications() syncer.EntityClient   { return &entityClient{c: c, path: "medications"} }

type entityClient struct {
	c    *HTTPClient
	path string
}

// Create posts a new record. The idempotency key travels as a header so a
// replay of an already-applied create can be deduplicated by the backend.
func (e *entityClient) Create(ctx context.Context, data models.Record, idempotencyKey string) (models.Record, error) {
	headers := map[string]string{}
	if idempotencyKey != "" {
		headers["Idempotency-Key"] = idempotencyKey
	}
	return e.c.do(ctx, http.MethodPost, e.path, data, headers)
}

func (e *entityClient) Update(ctx context.Context, id string, data models.Record) (models.Record, error) {
	return e.c.do(ctx, http.MethodPut, e.path+"/"+id, data, nil)
}

// Delete removes a record. A 404 counts as success: the record is gone either
// way, and delete replays must be idempotent.
func (e *entityClient) Delete(ctx context.Context, id string) error {
	_, err := e.c.do(ctx, http.MethodDelete, e.path+"/"+id, nil, nil)
	return err
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body models.Record, headers map[string]string) (models.Record, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	url := c.base + "/" + path
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewFibonacci(200*time.Millisecond))

	var result models.Record
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return retry.RetryableError(fmt.Errorf("%s %s: %s", method, url, resp.Status))
		case resp.StatusCode == http.StatusNotFound && method == http.MethodDelete:
			return nil
		case resp.StatusCode >= 400:
			return fmt.Errorf("%s %s: %s", method, url, resp.Status)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}
		if len(data) == 0 {
			result = nil
			return nil
		}
		rec, err := models.UnmarshalRecord(data)
		if err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		result = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
