package offline

import (
	"context"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/functiontracker/backend/internal/errors"
	"github.com/functiontracker/backend/internal/uuid"
)

// RemoteCall performs the real remote mutation when the device is online.
type RemoteCall func(ctx context.Context, payload map[string]any, userID string) (any, error)

// Request describes one mutating operation routed through the executor.
type Request struct {
	Action   Action
	Resource string
	Payload  map[string]any
	Call     RemoteCall
	// OptimisticID stamps the client-generated placeholder id into queued
	// create payloads, making it the row id on replay. Only resources whose
	// id column accepts client-supplied values set this.
	OptimisticID bool
}

// OnlineChecker reports current connectivity.
type OnlineChecker interface {
	IsOnline() bool
}

// SessionSource supplies the current user id, or "" when signed out.
type SessionSource interface {
	UserID(ctx context.Context) (string, error)
}

// Executor is the single call-path for mutating operations. It hides the
// online/offline branch from callers: online requests go straight to the
// remote backend, offline requests are queued and answered with an
// optimistic placeholder.
type Executor struct {
	queue   *Queue
	net     OnlineChecker
	session SessionSource
	log     *zap.SugaredLogger
}

// NewExecutor creates an Executor.
func NewExecutor(queue *Queue, net OnlineChecker, session SessionSource, log *zap.SugaredLogger) *Executor {
	return &Executor{queue: queue, net: net, session: session, log: log}
}

// Execute runs req immediately when online, or queues it when offline.
//
// Online, the remote call's result and error propagate unchanged and the
// queue is never touched. Offline, the returned value is the QueueItem
// itself; callers display it as a locally pending row.
func (e *Executor) Execute(ctx context.Context, req Request) (any, error) {
	userID, err := e.session.UserID(ctx)
	if err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, apperrors.New(apperrors.ErrNotAuthenticated, "user not authenticated")
	}

	if e.net.IsOnline() {
		return req.Call(ctx, req.Payload, userID)
	}

	id := uuid.TempID()
	item := QueueItem{
		ID:        id,
		Action:    req.Action,
		Resource:  req.Resource,
		Payload:   queuePayload(req, userID, id),
		Timestamp: time.Now().UnixMilli(),
	}

	// A dropped enqueue is acceptable degradation; the UI action already
	// reported success, so log and return the placeholder regardless.
	if err := e.queue.Append(ctx, item); err != nil {
		e.log.Errorw("failed to queue offline action",
			"error", err, "action", req.Action, "resource", req.Resource)
	}

	return item, nil
}

// queuePayload copies the request payload and stamps in what replay needs:
// the owner id on every item, and for opted-in creates the client-generated
// id as the optimistic key when the payload doesn't carry one yet.
func queuePayload(req Request, userID, id string) map[string]any {
	payload := make(map[string]any, len(req.Payload)+2)
	for k, v := range req.Payload {
		payload[k] = v
	}
	payload["user_id"] = userID
	if req.Action == ActionCreate && req.OptimisticID {
		if _, ok := payload["id"]; !ok {
			payload["id"] = id
		}
	}
	return payload
}
