// Package offline provides the durable queue and executor that let mutating
// operations keep working while the device is disconnected.
package offline

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	apperrors "github.com/functiontracker/backend/internal/errors"
	"github.com/functiontracker/backend/internal/storage"
)

// QueueKey is the local storage key holding the pending mutation list.
const QueueKey = "offline_queue"

// Action is the kind of mutation a queue item replays.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// QueueItem is a single pending mutation awaiting replay.
type QueueItem struct {
	// ID is a client-generated id, not the eventual server-assigned one.
	ID       string         `json:"id"`
	Action   Action         `json:"action"`
	Resource string         `json:"resource"`
	Payload  map[string]any `json:"payload"`
	// Timestamp is the client clock at enqueue, milliseconds since epoch.
	// Diagnostics only; queue order determines replay order.
	Timestamp int64 `json:"timestamp"`
}

// Queue is the durable, strictly ordered list of pending mutations.
// All mutations go through one mutex so two concurrent appends cannot race
// on the load-modify-save cycle and silently lose an item.
type Queue struct {
	kv  storage.KV
	log *zap.SugaredLogger
	mu  sync.Mutex
}

// NewQueue creates a Queue persisting under QueueKey in kv.
func NewQueue(kv storage.KV, log *zap.SugaredLogger) *Queue {
	return &Queue{kv: kv, log: log}
}

// load reads and parses the persisted list. Missing or malformed content is
// treated as an empty queue. Callers must hold q.mu.
func (q *Queue) load(ctx context.Context) ([]QueueItem, error) {
	raw, err := q.kv.Get(ctx, QueueKey)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to load offline queue", err)
	}
	if raw == nil {
		return nil, nil
	}

	var items []QueueItem
	if err := json.Unmarshal(raw, &items); err != nil {
		q.log.Warnw("offline queue content is malformed, treating as empty", "error", err)
		return nil, nil
	}
	return items, nil
}

// save persists the list. Callers must hold q.mu.
func (q *Queue) save(ctx context.Context, items []QueueItem) error {
	if items == nil {
		items = []QueueItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to encode offline queue", err)
	}
	if err := q.kv.Set(ctx, QueueKey, data); err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to save offline queue", err)
	}
	return nil
}

// Append adds item to the end of the queue.
func (q *Queue) Append(ctx context.Context, item QueueItem) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.load(ctx)
	if err != nil {
		return err
	}
	items = append(items, item)
	if err := q.save(ctx, items); err != nil {
		return err
	}

	q.log.Infow("queued offline action",
		"id", item.ID, "action", item.Action, "resource", item.Resource)
	return nil
}

// List returns a snapshot of the queue in insertion order.
func (q *Queue) List(ctx context.Context) ([]QueueItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.load(ctx)
}

// RemoveByID removes the item with the given id, if present.
func (q *Queue) RemoveByID(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.load(ctx)
	if err != nil {
		return err
	}

	filtered := items[:0]
	for _, item := range items {
		if item.ID != id {
			filtered = append(filtered, item)
		}
	}
	return q.save(ctx, filtered)
}

// Clear removes all queued items. Used on logout so one user's pending
// mutations are never replayed under another session.
func (q *Queue) Clear(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.save(ctx, nil)
}

// Size returns the number of queued items.
func (q *Queue) Size(ctx context.Context) (int, error) {
	items, err := q.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}
