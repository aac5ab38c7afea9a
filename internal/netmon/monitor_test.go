package netmon

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutrimed/nutrisync/internal/logging"
)

type fakeProvider struct {
	mu     sync.Mutex
	status Status
	err    error
}

func (f *fakeProvider) Status(ctx context.Context) (Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status, f.err
}

func (f *fakeProvider) set(s Status) {
	f.mu.Lock()
	f.status = s
	f.mu.Unlock()
}

func newTestMonitor(t *testing.T, initial Status) (*Monitor, *fakeProvider) {
	t.Helper()
	p := &fakeProvider{status: initial}
	m := New(p, 5*time.Millisecond, logging.NewNopLogger())
	t.Cleanup(m.Close)
	return m, p
}

func TestInit_ReturnsInitialStatus(t *testing.T) {
	m, _ := newTestMonitor(t, Status{Connected: true, Type: TypeWifi})

	got := m.Init(context.Background())
	assert.True(t, got.Connected)
	assert.Equal(t, TypeWifi, got.Type)
	assert.True(t, m.IsOnline())
	assert.Equal(t, got, m.ConnectionStatus())
}

func TestInit_ProbeErrorMeansOffline(t *testing.T) {
	p := &fakeProvider{err: errors.New("probe broken")}
	m := New(p, 5*time.Millisecond, logging.NewNopLogger())
	t.Cleanup(m.Close)

	got := m.Init(context.Background())
	assert.False(t, got.Connected)
	assert.Equal(t, TypeUnknown, got.Type)
}

func TestTransitionNotifiesOnce(t *testing.T) {
	m, p := newTestMonitor(t, Status{Connected: true, Type: TypeWifi})
	m.Init(context.Background())

	var mu sync.Mutex
	var changes []Change
	m.OnConnectionChange(func(c Change) {
		mu.Lock()
		changes = append(changes, c)
		mu.Unlock()
	})

	p.set(Status{Connected: false, Type: TypeNone})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(changes) == 1
	}, time.Second, 5*time.Millisecond)

	// The state is unchanged on subsequent polls, so no further
	// notifications arrive.
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	require.Len(t, changes, 1)
	change := changes[0]
	mu.Unlock()

	assert.False(t, change.Connected)
	assert.Equal(t, TypeNone, change.Type)
	assert.True(t, change.WasConnected)
	assert.False(t, m.IsOnline())
}

func TestReconnectCarriesWasConnected(t *testing.T) {
	m, p := newTestMonitor(t, Status{Connected: false, Type: TypeNone})
	m.Init(context.Background())

	var mu sync.Mutex
	var changes []Change
	m.OnConnectionChange(func(c Change) {
		mu.Lock()
		changes = append(changes, c)
		mu.Unlock()
	})

	p.set(Status{Connected: true, Type: TypeCellular})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(changes) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	change := changes[0]
	mu.Unlock()
	assert.True(t, change.Connected)
	assert.False(t, change.WasConnected)
	assert.Equal(t, TypeCellular, change.Type)
}

func TestUnsubscribe(t *testing.T) {
	m, p := newTestMonitor(t, Status{Connected: true, Type: TypeWifi})
	m.Init(context.Background())

	var mu sync.Mutex
	var kept, removed int

	m.OnConnectionChange(func(Change) {
		mu.Lock()
		kept++
		mu.Unlock()
	})
	unsubscribe := m.OnConnectionChange(func(Change) {
		mu.Lock()
		removed++
		mu.Unlock()
	})
	unsubscribe()

	p.set(Status{Connected: false, Type: TypeNone})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return kept == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, removed)
}
