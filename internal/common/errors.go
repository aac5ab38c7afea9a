// Package common defines shared sentinel errors used across the storage,
// queue and sync layers of NutriSync. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Storage-level errors.
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrUnknownCollection  = errors.New("unknown collection")
	ErrNotFound           = errors.New("not found")

	// Sync-level errors.
	ErrOffline           = errors.New("offline")
	ErrUnknownEntityType = errors.New("unknown entity type")
	ErrUnknownAction     = errors.New("unknown action")

	// Remote API errors.
	ErrRemoteOperation = errors.New("remote operation failed")
)
