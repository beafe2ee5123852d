// Package network provides unit tests for the connectivity observer.
package network

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/functiontracker/backend/internal/logging"
)

// manualSource is a Source driven explicitly by tests.
type manualSource struct {
	mu           sync.Mutex
	fetchState   State
	fetchErr     error
	fn           func(State)
	unsubscribed bool
}

func (m *manualSource) Fetch(ctx context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetchState, m.fetchErr
}

func (m *manualSource) Subscribe(fn func(State)) func() {
	m.mu.Lock()
	m.fn = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.unsubscribed = true
		m.fn = nil
	}
}

func (m *manualSource) emit(state State) {
	m.mu.Lock()
	fn := m.fn
	m.mu.Unlock()
	if fn != nil {
		fn(state)
	}
}

// blockingSyncer counts Sync invocations and can hold them open.
type blockingSyncer struct {
	calls   atomic.Int32
	release chan struct{}
}

func (b *blockingSyncer) Sync(ctx context.Context) error {
	b.calls.Add(1)
	if b.release != nil {
		<-b.release
	}
	return nil
}

// fixedPending reports a fixed queue size.
type fixedPending struct {
	n int
}

func (f *fixedPending) Size(ctx context.Context) (int, error) { return f.n, nil }

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// TestObserverInitialProbe verifies the one-shot probe sets initial state.
func TestObserverInitialProbe(t *testing.T) {
	source := &manualSource{fetchState: State{IsConnected: false}}
	o := NewObserver(source, &blockingSyncer{}, &fixedPending{}, logging.NewNop())

	o.Start(context.Background())
	defer o.Stop()

	if o.IsOnline() {
		t.Error("Expected offline after probe reported disconnected")
	}
}

// TestObserverProbeFailureDefaultsOnline verifies a failed probe assumes
// online so startup never blocks UI actions.
func TestObserverProbeFailureDefaultsOnline(t *testing.T) {
	source := &manualSource{fetchErr: context.DeadlineExceeded}
	o := NewObserver(source, &blockingSyncer{}, &fixedPending{}, logging.NewNop())

	o.Start(context.Background())
	defer o.Stop()

	if !o.IsOnline() {
		t.Error("Expected online default when the probe fails")
	}
}

// TestObserverTriggersSyncOnReconnect verifies the offline-to-online
// transition with queued work triggers exactly one sync.
func TestObserverTriggersSyncOnReconnect(t *testing.T) {
	source := &manualSource{fetchState: State{IsConnected: true}}
	syncer := &blockingSyncer{}
	o := NewObserver(source, syncer, &fixedPending{n: 2}, logging.NewNop())

	o.Start(context.Background())

	source.emit(State{IsConnected: false})
	source.emit(State{IsConnected: true})

	o.Stop()

	if got := syncer.calls.Load(); got != 1 {
		t.Errorf("Expected exactly 1 sync, got %d", got)
	}
	if !o.IsOnline() {
		t.Error("Expected online after reconnect")
	}
}

// TestObserverSkipsSyncWithEmptyQueue verifies reconnecting with nothing
// queued does not invoke the syncer.
func TestObserverSkipsSyncWithEmptyQueue(t *testing.T) {
	source := &manualSource{fetchState: State{IsConnected: true}}
	syncer := &blockingSyncer{}
	o := NewObserver(source, syncer, &fixedPending{n: 0}, logging.NewNop())

	o.Start(context.Background())

	source.emit(State{IsConnected: false})
	source.emit(State{IsConnected: true})

	o.Stop()

	if got := syncer.calls.Load(); got != 0 {
		t.Errorf("Expected no sync with empty queue, got %d", got)
	}
}

// TestObserverNoSyncWhileStayingOnline verifies repeated online events are
// not transitions.
func TestObserverNoSyncWhileStayingOnline(t *testing.T) {
	source := &manualSource{fetchState: State{IsConnected: true}}
	syncer := &blockingSyncer{}
	o := NewObserver(source, syncer, &fixedPending{n: 2}, logging.NewNop())

	o.Start(context.Background())

	source.emit(State{IsConnected: true})
	source.emit(State{IsConnected: true})

	o.Stop()

	if got := syncer.calls.Load(); got != 0 {
		t.Errorf("Expected no sync without an offline-to-online transition, got %d", got)
	}
}

// TestObserverInFlightGuard verifies a second transition while a sync is
// running does not start a second pass.
func TestObserverInFlightGuard(t *testing.T) {
	source := &manualSource{fetchState: State{IsConnected: true}}
	syncer := &blockingSyncer{release: make(chan struct{})}
	o := NewObserver(source, syncer, &fixedPending{n: 2}, logging.NewNop())

	o.Start(context.Background())

	// First transition starts a sync that blocks on release.
	source.emit(State{IsConnected: false})
	source.emit(State{IsConnected: true})

	// Wait until the first pass is running.
	deadline := time.After(2 * time.Second)
	for syncer.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("Timed out waiting for first sync to start")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	// Second rapid transition while the first pass is in flight.
	source.emit(State{IsConnected: false})
	source.emit(State{IsConnected: true})

	close(syncer.release)
	o.Stop()

	if got := syncer.calls.Load(); got != 1 {
		t.Errorf("Expected exactly 1 sync pass, got %d", got)
	}
}

// TestObserverStopUnsubscribes verifies teardown releases the subscription.
func TestObserverStopUnsubscribes(t *testing.T) {
	source := &manualSource{fetchState: State{IsConnected: true}}
	o := NewObserver(source, &blockingSyncer{}, &fixedPending{}, logging.NewNop())

	o.Start(context.Background())
	o.Stop()

	source.mu.Lock()
	unsubscribed := source.unsubscribed
	source.mu.Unlock()

	if !unsubscribed {
		t.Error("Expected Stop to unsubscribe from the source")
	}
}
