// Package categories provides operations for function categories.
// Category edits are online-only: they refuse to run while offline instead
// of queueing, so the shared category list never diverges per device.
package categories

import (
	"context"

	"go.uber.org/zap"

	"github.com/functiontracker/backend/internal/cache"
	apperrors "github.com/functiontracker/backend/internal/errors"
	"github.com/functiontracker/backend/internal/models"
	"github.com/functiontracker/backend/internal/offline"
	"github.com/functiontracker/backend/internal/remote"
)

// Resource is the remote collection name.
const Resource = "categories"

// DefaultPageSize matches the list screens' page length.
const DefaultPageSize = 10

// Service reads and edits categories.
type Service struct {
	client *remote.Client
	cache  *cache.Store
	net    offline.OnlineChecker
	log    *zap.SugaredLogger
}

// NewService creates a categories Service.
func NewService(client *remote.Client, cache *cache.Store, net offline.OnlineChecker, log *zap.SugaredLogger) *Service {
	return &Service{client: client, cache: cache, net: net, log: log}
}

// List returns one page of categories by name. Successful fetches refresh
// the snapshot cache; offline, the cache is served when present.
func (s *Service) List(ctx context.Context, page, limit int) (*models.Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}

	if !s.net.IsOnline() {
		cached, err := s.cache.Load(ctx, Resource)
		if err != nil {
			return nil, err
		}
		if cached == nil {
			return nil, apperrors.New(apperrors.ErrOffline, "offline and no cached categories")
		}
		return &models.Page{
			Data: cached,
			Meta: models.PageMeta{Page: 1, Total: len(cached), HasMore: false},
		}, nil
	}

	from := (page - 1) * limit
	to := from + limit - 1

	rows, total, err := s.client.Select(ctx, Resource, remote.SelectOptions{
		Order:     "name",
		Ascending: true,
		From:      from,
		To:        to,
	})
	if err != nil {
		return nil, err
	}

	if err := s.cache.Save(ctx, Resource, rows); err != nil {
		s.log.Warnw("failed to refresh categories cache", "error", err)
	}

	return &models.Page{
		Data: rows,
		Meta: models.PageMeta{Page: page, Total: total, HasMore: to+1 < total},
	}, nil
}

func (s *Service) ensureOnline() error {
	if !s.net.IsOnline() {
		return apperrors.New(apperrors.ErrOffline, "category edits require a connection")
	}
	return nil
}

// Add creates a category.
func (s *Service) Add(ctx context.Context, data models.Record) error {
	if err := s.ensureOnline(); err != nil {
		return err
	}
	_, err := s.client.Insert(ctx, Resource, data, "")
	return err
}

// Update edits a category.
func (s *Service) Update(ctx context.Context, id string, updates models.Record) error {
	if err := s.ensureOnline(); err != nil {
		return err
	}
	_, err := s.client.Update(ctx, Resource, id, updates, "")
	return err
}

// Delete removes a category.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.ensureOnline(); err != nil {
		return err
	}
	return s.client.Delete(ctx, Resource, id)
}
