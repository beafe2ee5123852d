// Package contributions provides operations for the money and gold entries
// recorded against a function.
package contributions

import (
	"context"

	"go.uber.org/zap"

	apperrors "github.com/functiontracker/backend/internal/errors"
	"github.com/functiontracker/backend/internal/models"
	"github.com/functiontracker/backend/internal/offline"
	"github.com/functiontracker/backend/internal/remote"
	syncpkg "github.com/functiontracker/backend/internal/sync"
	"github.com/functiontracker/backend/internal/uuid"
)

// Resource is the remote collection name.
const Resource = "contributions"

// DefaultPageSize matches the list screens' page length.
const DefaultPageSize = 10

// Service routes contribution mutations through the offline executor so
// entries keep getting recorded at functions without connectivity.
type Service struct {
	client *remote.Client
	exec   *offline.Executor
	log    *zap.SugaredLogger
}

// NewService creates a contributions Service.
func NewService(client *remote.Client, exec *offline.Executor, log *zap.SugaredLogger) *Service {
	return &Service{client: client, exec: exec, log: log}
}

// List returns one page of contributions for a function, newest first.
func (s *Service) List(ctx context.Context, functionID string, page, limit int) (*models.Page, error) {
	if functionID == "" {
		return nil, apperrors.New(apperrors.ErrValidation, "missing function ID")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}

	from := (page - 1) * limit
	to := from + limit - 1

	rows, total, err := s.client.Select(ctx, Resource, remote.SelectOptions{
		Order:     "created_at",
		Ascending: false,
		Filters:   map[string]string{"function_id": "eq." + functionID},
		From:      from,
		To:        to,
	})
	if err != nil {
		return nil, err
	}

	return &models.Page{
		Data: rows,
		Meta: models.PageMeta{Page: page, Total: total, HasMore: total > to+1},
	}, nil
}

// Create records a contribution, queueing it when offline.
func (s *Service) Create(ctx context.Context, data models.Record) (any, error) {
	return s.exec.Execute(ctx, offline.Request{
		Action:   offline.ActionCreate,
		Resource: Resource,
		Payload:  data,
		Call: func(ctx context.Context, payload map[string]any, userID string) (any, error) {
			return s.client.Insert(ctx, Resource, payload, userID)
		},
	})
}

// Update applies updates to a contribution, queueing them when offline.
func (s *Service) Update(ctx context.Context, id string, updates models.Record) (any, error) {
	return s.exec.Execute(ctx, offline.Request{
		Action:   offline.ActionUpdate,
		Resource: Resource,
		Payload:  models.Record{"id": id, "updates": updates},
		Call: func(ctx context.Context, payload map[string]any, userID string) (any, error) {
			return s.client.Update(ctx, Resource, id, updates, userID)
		},
	})
}

// Delete removes a contribution, queueing the delete when offline.
func (s *Service) Delete(ctx context.Context, id string) (any, error) {
	return s.exec.Execute(ctx, offline.Request{
		Action:   offline.ActionDelete,
		Resource: Resource,
		Payload:  models.Record{"id": id},
		Call: func(ctx context.Context, payload map[string]any, userID string) (any, error) {
			if err := s.client.Delete(ctx, Resource, id); err != nil {
				return nil, err
			}
			return true, nil
		},
	})
}

// SyncHandlers returns the replay handlers registered with the sync engine.
func (s *Service) SyncHandlers() syncpkg.Handlers {
	return syncpkg.Handlers{
		Create: func(ctx context.Context, payload map[string]any) error {
			userID, _ := payload["user_id"].(string)
			_, err := s.client.Insert(ctx, Resource, payload, userID)
			return err
		},
		Update: func(ctx context.Context, payload map[string]any) error {
			id, err := replayID(payload)
			if err != nil {
				return err
			}
			updates, _ := payload["updates"].(map[string]any)
			userID, _ := payload["user_id"].(string)
			_, err = s.client.Update(ctx, Resource, id, updates, userID)
			return err
		},
		Delete: func(ctx context.Context, payload map[string]any) error {
			id, err := replayID(payload)
			if err != nil {
				return err
			}
			return s.client.Delete(ctx, Resource, id)
		},
	}
}

// replayID extracts and validates the target row id of a queued update or
// delete. Server-assigned ids must be well-formed UUIDs; client placeholder
// ids pass through so edits to not-yet-synced rows still replay.
func replayID(payload map[string]any) (string, error) {
	id, ok := payload["id"].(string)
	if !ok || id == "" {
		return "", apperrors.New(apperrors.ErrInvalid, "queued item has no id")
	}
	if !uuid.IsTempID(id) {
		if err := uuid.Validate(id); err != nil {
			return "", apperrors.Wrap(apperrors.ErrInvalid, "queued item has a malformed id", err)
		}
	}
	return id, nil
}
