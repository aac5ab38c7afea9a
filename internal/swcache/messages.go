package swcache

import (
	"context"
	"fmt"
	"strings"
)

// MessageType enumerates the control messages the application can send the
// worker.
type MessageType string

const (
	// MessageSkipWaiting forces immediate activation of the current version.
	MessageSkipWaiting MessageType = "SKIP_WAITING"
	// MessageClearCache deletes every namespaced cache regardless of version.
	MessageClearCache MessageType = "CLEAR_CACHE"
	// MessageGetCacheStatus reports open namespaced caches and the active
	// version.
	MessageGetCacheStatus MessageType = "GET_CACHE_STATUS"
)

type Message struct {
	Type MessageType `json:"type"`
}

// CacheStatus is the reply to MessageGetCacheStatus.
type CacheStatus struct {
	Caches  []string `json:"caches"`
	Version string   `json:"version"`
}

// HandleMessage processes one control message. Only MessageGetCacheStatus
// produces a non-nil reply.
func (w *Worker) HandleMessage(ctx context.Context, msg Message) (*CacheStatus, error) {
	switch msg.Type {
	case MessageSkipWaiting:
		return nil, w.Activate(ctx)

	case MessageClearCache:
		names, err := w.storage.Keys(ctx)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			if strings.HasPrefix(name, w.namespacePrefix()) {
				if err := w.storage.Delete(ctx, name); err != nil {
					return nil, err
				}
			}
		}
		w.log.Info(ctx, "caches cleared")
		return nil, nil

	case MessageGetCacheStatus:
		names, err := w.storage.Keys(ctx)
		if err != nil {
			return nil, err
		}
		status := &CacheStatus{Version: w.cfg.Version, Caches: []string{}}
		for _, name := range names {
			if strings.HasPrefix(name, w.namespacePrefix()) {
				status.Caches = append(status.Caches, name)
			}
		}
		return status, nil
	}
	return nil, fmt.Errorf("unknown message type %q", msg.Type)
}
