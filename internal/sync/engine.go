package sync

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	apperrors "github.com/functiontracker/backend/internal/errors"
	"github.com/functiontracker/backend/internal/offline"
)

// Handlers is the registered {create, update, delete} triple replaying
// queued mutations for one resource.
type Handlers struct {
	Create func(ctx context.Context, payload map[string]any) error
	Update func(ctx context.Context, payload map[string]any) error
	Delete func(ctx context.Context, payload map[string]any) error
}

// Engine replays the offline queue against the remote backend in insertion
// order when connectivity is restored.
type Engine struct {
	queue    *offline.Queue
	status   *StatusStore
	handlers map[string]Handlers
	log      *zap.SugaredLogger
}

// NewEngine creates an Engine. Resources are registered at startup; an item
// for an unregistered resource fails the sync pass loudly.
func NewEngine(queue *offline.Queue, status *StatusStore, log *zap.SugaredLogger) *Engine {
	return &Engine{
		queue:    queue,
		status:   status,
		handlers: make(map[string]Handlers),
		log:      log,
	}
}

// Register installs the replay handlers for a resource.
func (e *Engine) Register(resource string, h Handlers) {
	e.handlers[resource] = h
}

// Sync drains the queue snapshot sequentially in FIFO order.
//
// An empty queue is a no-op with no status change. Each successfully
// replayed item is removed before the next is attempted; the first failure
// aborts the pass, flips the status to error, and leaves that item and
// everything after it queued for the next offline-to-online transition.
// Delivery is therefore at-least-once: a crash between a successful remote
// call and the removal re-submits the item on the next pass.
func (e *Engine) Sync(ctx context.Context) error {
	items, err := e.queue.List(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	e.status.Set(StatusSyncing)

	for _, item := range items {
		e.log.Infow("replaying queued action",
			"id", item.ID, "action", item.Action, "resource", item.Resource)

		if err := e.replay(ctx, item); err != nil {
			e.status.Set(StatusError)
			return apperrors.Wrap(apperrors.ErrSyncFailed,
				fmt.Sprintf("replay of %s %s:%s failed", item.ID, item.Action, item.Resource), err)
		}

		if err := e.queue.RemoveByID(ctx, item.ID); err != nil {
			e.status.Set(StatusError)
			return err
		}
	}

	e.status.Set(StatusSuccess)
	return nil
}

// replay dispatches one item to its registered handler.
func (e *Engine) replay(ctx context.Context, item offline.QueueItem) error {
	h, ok := e.handlers[item.Resource]
	if !ok {
		return apperrors.New(apperrors.ErrUnregisteredResource,
			fmt.Sprintf("no sync handlers registered for resource %q", item.Resource))
	}

	var fn func(ctx context.Context, payload map[string]any) error
	switch item.Action {
	case offline.ActionCreate:
		fn = h.Create
	case offline.ActionUpdate:
		fn = h.Update
	case offline.ActionDelete:
		fn = h.Delete
	}
	if fn == nil {
		return apperrors.New(apperrors.ErrUnregisteredResource,
			fmt.Sprintf("no %s handler registered for resource %q", item.Action, item.Resource))
	}

	return fn(ctx, item.Payload)
}
