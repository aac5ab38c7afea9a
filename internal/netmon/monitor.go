// Package netmon tracks online/offline state. A Monitor owns the state
// explicitly (constructed once, injected where needed) instead of living in
// package-level variables, so tests can run several simulated instances.
//
// The platform's network status arrives through a StatusProvider; the default
// implementation probes a configured endpoint on a ticker, the same way the
// application pings its backend to decide between online and offline modes.
package netmon

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/nutrimed/nutrisync/internal/logging"
)

type ConnectionType string

const (
	TypeWifi     ConnectionType = "wifi"
	TypeCellular ConnectionType = "cellular"
	TypeNone     ConnectionType = "none"
	TypeUnknown  ConnectionType = "unknown"
)

// Status is the current connection state.
type Status struct {
	Connected bool
	Type      ConnectionType
}

// Change is delivered to listeners on every observed transition.
type Change struct {
	Connected    bool
	Type         ConnectionType
	WasConnected bool
}

// StatusProvider supplies the platform's view of connectivity.
type StatusProvider interface {
	Status(ctx context.Context) (Status, error)
}

// Monitor caches the last observed Status and notifies subscribers exactly
// once per transition.
type Monitor struct {
	provider StatusProvider
	interval time.Duration
	log      logging.Logger

	mu        sync.Mutex
	status    Status
	listeners map[int]func(Change)
	nextID    int
	cancel    context.CancelFunc
	done      chan struct{}
}

// New constructs a Monitor polling provider every interval. Call Init exactly
// once to start it.
func New(provider StatusProvider, interval time.Duration, log logging.Logger) *Monitor {
	return &Monitor{
		provider:  provider,
		interval:  interval,
		log:       log,
		status:    Status{Connected: false, Type: TypeUnknown},
		listeners: make(map[int]func(Change)),
	}
}

// Init queries the current status, starts the watch loop, and returns the
// initial state. It must be called exactly once per Monitor.
func (m *Monitor) Init(ctx context.Context) Status {
	initial, err := m.provider.Status(ctx)
	if err != nil {
		m.log.Warn(ctx, "initial connectivity probe failed, assuming offline", "error", err)
		initial = Status{Connected: false, Type: TypeUnknown}
	}

	m.mu.Lock()
	m.status = initial
	m.mu.Unlock()

	loopCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.watch(loopCtx)

	m.log.Info(ctx, "network monitor started", "connected", initial.Connected, "type", initial.Type)
	return initial
}

// Close stops the watch loop.
func (m *Monitor) Close() {
	if m.cancel != nil {
		m.cancel()
		<-m.done
	}
}

// ConnectionStatus returns the cached state. It never performs I/O.
func (m *Monitor) ConnectionStatus() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// IsOnline reports whether the last observed state was connected.
func (m *Monitor) IsOnline() bool {
	return m.ConnectionStatus().Connected
}

// OnConnectionChange registers cb for transition notifications and returns a
// function that removes exactly this registration.
func (m *Monitor) OnConnectionChange(cb func(Change)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = cb
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

func (m *Monitor) watch(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.observe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) observe(ctx context.Context) {
	next, err := m.provider.Status(ctx)
	if err != nil {
		next = Status{Connected: false, Type: TypeUnknown}
	}

	m.mu.Lock()
	prev := m.status
	if next == prev {
		m.mu.Unlock()
		return
	}
	m.status = next
	cbs := make([]func(Change), 0, len(m.listeners))
	for _, cb := range m.listeners {
		cbs = append(cbs, cb)
	}
	m.mu.Unlock()

	m.log.Info(ctx, "connection state changed",
		"connected", next.Connected, "type", next.Type, "wasConnected", prev.Connected)

	change := Change{Connected: next.Connected, Type: next.Type, WasConnected: prev.Connected}
	for _, cb := range cbs {
		cb(change)
	}
}

// ProbeProvider decides connectivity by issuing a short HEAD request to a
// well-known endpoint. It cannot distinguish wifi from cellular, so a
// reachable endpoint reports TypeUnknown.
type ProbeProvider struct {
	client *http.Client
	url    string
}

func NewProbeProvider(url string, timeout time.Duration) *ProbeProvider {
	return &ProbeProvider{client: &http.Client{Timeout: timeout}, url: url}
}

func (p *ProbeProvider) Status(ctx context.Context) (Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return Status{Connected: false, Type: TypeUnknown}, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return Status{Connected: false, Type: TypeNone}, nil
	}
	_ = resp.Body.Close()
	return Status{Connected: true, Type: TypeUnknown}, nil
}
