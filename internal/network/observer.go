// Package network tracks connectivity and triggers queue sync on
// offline-to-online transitions.
package network

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// State is one connectivity observation.
type State struct {
	IsConnected bool
}

// Source is the platform connectivity signal: a one-shot probe plus a
// continuous subscription that invokes the callback on every change.
type Source interface {
	Fetch(ctx context.Context) (State, error)
	Subscribe(fn func(State)) (unsubscribe func())
}

// Syncer drains the offline queue. Implemented by sync.Engine.
type Syncer interface {
	Sync(ctx context.Context) error
}

// PendingCounter reports how many mutations are queued.
type PendingCounter interface {
	Size(ctx context.Context) (int, error)
}

// Observer is the single source of truth for connectivity. On each
// offline-to-online transition with a non-empty queue it invokes the Syncer
// exactly once; a CAS guard suppresses concurrent passes.
type Observer struct {
	source  Source
	syncer  Syncer
	pending PendingCounter
	log     *zap.SugaredLogger

	online  atomic.Bool
	syncing atomic.Bool

	ctx         context.Context
	unsubscribe func()
	wg          sync.WaitGroup
}

// NewObserver creates an Observer. Call Start before use.
func NewObserver(source Source, syncer Syncer, pending PendingCounter, log *zap.SugaredLogger) *Observer {
	return &Observer{
		source:  source,
		syncer:  syncer,
		pending: pending,
		log:     log,
	}
}

// Start probes once for the initial state and subscribes to the source.
// A failed probe defaults to online so startup never blocks UI actions.
func (o *Observer) Start(ctx context.Context) {
	o.ctx = ctx

	online := true
	if state, err := o.source.Fetch(ctx); err != nil {
		o.log.Warnw("initial connectivity probe failed, assuming online", "error", err)
	} else {
		online = state.IsConnected
	}
	o.online.Store(online)

	o.unsubscribe = o.source.Subscribe(o.onChange)
}

// Stop unsubscribes from the source and waits for any in-flight sync pass.
func (o *Observer) Stop() {
	if o.unsubscribe != nil {
		o.unsubscribe()
		o.unsubscribe = nil
	}
	o.wg.Wait()
}

// IsOnline returns the last observed connectivity state.
func (o *Observer) IsOnline() bool {
	return o.online.Load()
}

// onChange records the new state and, on an offline-to-online transition
// with queued work, kicks off a sync pass in its own goroutine so the
// source's callback never blocks on network I/O.
func (o *Observer) onChange(state State) {
	wasOnline := o.online.Swap(state.IsConnected)

	if !state.IsConnected {
		if wasOnline {
			o.log.Infow("network connection lost")
		}
		return
	}
	if wasOnline {
		return
	}

	o.log.Infow("network connection restored")

	n, err := o.pending.Size(o.ctx)
	if err != nil {
		o.log.Errorw("failed to check offline queue size", "error", err)
		return
	}
	if n == 0 {
		return
	}

	if !o.syncing.CompareAndSwap(false, true) {
		o.log.Debugw("sync already in progress, skipping trigger")
		return
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.syncing.Store(false)

		if err := o.syncer.Sync(o.ctx); err != nil {
			o.log.Errorw("offline queue sync failed", "error", err)
		}
	}()
}
