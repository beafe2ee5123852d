// Package functions provides list, mutate, and replay operations for
// function (event) records.
package functions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/functiontracker/backend/internal/cache"
	apperrors "github.com/functiontracker/backend/internal/errors"
	"github.com/functiontracker/backend/internal/models"
	"github.com/functiontracker/backend/internal/offline"
	"github.com/functiontracker/backend/internal/remote"
	syncpkg "github.com/functiontracker/backend/internal/sync"
	"github.com/functiontracker/backend/internal/uuid"
)

// Resource is the remote collection name.
const Resource = "functions"

// DefaultPageSize matches the list screens' page length.
const DefaultPageSize = 10

// ListOptions filter and paginate the function list.
type ListOptions struct {
	Page         int
	Limit        int
	Status       []string
	CategoryID   string
	LocationID   string
	FunctionType string
	FromDate     string
	ToDate       string
}

// Service coordinates the remote store, the snapshot cache, and the offline
// executor for the functions resource.
type Service struct {
	client *remote.Client
	cache  *cache.Store
	exec   *offline.Executor
	net    offline.OnlineChecker
	log    *zap.SugaredLogger
}

// NewService creates a functions Service.
func NewService(client *remote.Client, cache *cache.Store, exec *offline.Executor, net offline.OnlineChecker, log *zap.SugaredLogger) *Service {
	return &Service{client: client, cache: cache, exec: exec, net: net, log: log}
}

// List returns one page of functions ordered by date. Every successful
// remote fetch refreshes the snapshot cache, including empty results.
// Offline, the cache is served instead; with no cache the call fails.
func (s *Service) List(ctx context.Context, opts ListOptions) (*models.Page, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 {
		opts.Limit = DefaultPageSize
	}

	if !s.net.IsOnline() {
		cached, err := s.cache.Load(ctx, Resource)
		if err != nil {
			return nil, err
		}
		if cached == nil {
			return nil, apperrors.New(apperrors.ErrOffline, "offline and no cached functions")
		}
		return &models.Page{
			Data: cached,
			Meta: models.PageMeta{Page: 1, Total: len(cached), HasMore: false},
		}, nil
	}

	from := (opts.Page - 1) * opts.Limit
	to := from + opts.Limit - 1

	rows, total, err := s.client.Select(ctx, Resource, remote.SelectOptions{
		Order:     "function_date",
		Ascending: true,
		Filters:   listFilters(opts),
		From:      from,
		To:        to,
	})
	if err != nil {
		return nil, err
	}

	if err := s.cache.Save(ctx, Resource, rows); err != nil {
		s.log.Warnw("failed to refresh functions cache", "error", err)
	}

	return &models.Page{
		Data: rows,
		Meta: models.PageMeta{Page: opts.Page, Total: total, HasMore: to+1 < total},
	}, nil
}

func listFilters(opts ListOptions) map[string]string {
	filters := make(map[string]string)
	if opts.CategoryID != "" {
		filters["category_id"] = "eq." + opts.CategoryID
	}
	if opts.LocationID != "" {
		filters["location_id"] = "eq." + opts.LocationID
	}
	if len(opts.Status) == 1 {
		filters["status"] = "eq." + opts.Status[0]
	} else if len(opts.Status) > 1 {
		filters["status"] = "in.(" + strings.Join(opts.Status, ",") + ")"
	}
	if opts.FunctionType != "" {
		filters["function_type"] = "eq." + opts.FunctionType
	}
	if opts.FromDate != "" {
		filters["function_date"] = "gte." + opts.FromDate
	}
	if opts.ToDate != "" {
		// A from+to range needs an and-expression; a bare to-date filters directly.
		if opts.FromDate != "" {
			delete(filters, "function_date")
			filters["and"] = fmt.Sprintf("(function_date.gte.%s,function_date.lte.%s)",
				opts.FromDate, opts.ToDate)
		} else {
			filters["function_date"] = "lte." + opts.ToDate
		}
	}
	return filters
}

// Counts summarizes the function list for the home screen.
type Counts struct {
	Total     int `json:"total"`
	Upcoming  int `json:"upcoming"`
	Completed int `json:"completed"`
	Today     int `json:"today"`
}

// GetCounts returns the home screen's function totals. Counting requires a
// connection; a failed count reads as all zeros rather than failing the
// screen.
func (s *Service) GetCounts(ctx context.Context) (Counts, error) {
	if !s.net.IsOnline() {
		return Counts{}, apperrors.New(apperrors.ErrOffline, "function counts require a connection")
	}

	today := time.Now().UTC().Format("2006-01-02")

	var counts Counts
	queries := []struct {
		dst     *int
		filters map[string]string
	}{
		{&counts.Total, nil},
		{&counts.Upcoming, map[string]string{"status": "eq.upcoming"}},
		{&counts.Completed, map[string]string{"status": "eq.completed"}},
		{&counts.Today, map[string]string{"function_date": "eq." + today}},
	}

	for _, q := range queries {
		n, err := s.client.Count(ctx, Resource, q.filters)
		if err != nil {
			s.log.Warnw("failed to fetch function counts", "error", err)
			return Counts{}, nil
		}
		*q.dst = n
	}
	return counts, nil
}

// Get returns a single function by id.
func (s *Service) Get(ctx context.Context, id string) (models.Record, error) {
	rows, _, err := s.client.Select(ctx, Resource, remote.SelectOptions{
		Filters: map[string]string{"id": "eq." + id},
		From:    0,
		To:      0,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.New(apperrors.ErrNotFound, fmt.Sprintf("function %s not found", id))
	}
	return rows[0], nil
}

// Create inserts a function, queueing it when offline.
func (s *Service) Create(ctx context.Context, data models.Record) (any, error) {
	return s.exec.Execute(ctx, offline.Request{
		Action:       offline.ActionCreate,
		Resource:     Resource,
		Payload:      data,
		OptimisticID: true,
		Call: func(ctx context.Context, payload map[string]any, userID string) (any, error) {
			return s.client.Insert(ctx, Resource, payload, userID)
		},
	})
}

// Update applies updates to a function, queueing them when offline.
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

// Delete removes a function, queueing the delete when offline.
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
