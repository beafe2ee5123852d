// Package locations provides operations for contributor places.
// Like categories, location edits are online-only.
package locations

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/functiontracker/backend/internal/cache"
	apperrors "github.com/functiontracker/backend/internal/errors"
	"github.com/functiontracker/backend/internal/models"
	"github.com/functiontracker/backend/internal/offline"
	"github.com/functiontracker/backend/internal/remote"
)

// Resource is the remote collection name.
const Resource = "locations"

// DefaultPageSize matches the list screens' page length.
const DefaultPageSize = 10

// Service reads and edits locations.
type Service struct {
	client *remote.Client
	cache  *cache.Store
	net    offline.OnlineChecker
	log    *zap.SugaredLogger
}

// NewService creates a locations Service.
func NewService(client *remote.Client, cache *cache.Store, net offline.OnlineChecker, log *zap.SugaredLogger) *Service {
	return &Service{client: client, cache: cache, net: net, log: log}
}

// List returns one page of locations by name, optionally filtered by a
// case-insensitive search over name and tamil_name.
func (s *Service) List(ctx context.Context, page, limit int, search string) (*models.Page, error) {
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
			return nil, apperrors.New(apperrors.ErrOffline, "offline and no cached locations")
		}
		return &models.Page{
			Data: cached,
			Meta: models.PageMeta{Page: 1, Total: len(cached), HasMore: false},
		}, nil
	}

	filters := make(map[string]string)
	if q := strings.TrimSpace(search); q != "" {
		filters["or"] = fmt.Sprintf("(name.ilike.*%s*,tamil_name.ilike.*%s*)", q, q)
	}

	from := (page - 1) * limit
	to := from + limit - 1

	rows, total, err := s.client.Select(ctx, Resource, remote.SelectOptions{
		Order:     "name",
		Ascending: true,
		Filters:   filters,
		From:      from,
		To:        to,
	})
	if err != nil {
		return nil, err
	}

	if err := s.cache.Save(ctx, Resource, rows); err != nil {
		s.log.Warnw("failed to refresh locations cache", "error", err)
	}

	return &models.Page{
		Data: rows,
		Meta: models.PageMeta{Page: page, Total: total, HasMore: total > to+1},
	}, nil
}

func (s *Service) ensureOnline() error {
	if !s.net.IsOnline() {
		return apperrors.New(apperrors.ErrOffline, "location edits require a connection")
	}
	return nil
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperrors.New(apperrors.ErrValidation, "location name is required")
	}
	return name, nil
}

// Add creates a location.
func (s *Service) Add(ctx context.Context, name, tamilName string) (models.Record, error) {
	if err := s.ensureOnline(); err != nil {
		return nil, err
	}
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}

	record := models.Record{"name": name}
	if t := strings.TrimSpace(tamilName); t != "" {
		record["tamil_name"] = t
	}
	return s.client.Insert(ctx, Resource, record, "")
}

// Update edits a location.
func (s *Service) Update(ctx context.Context, id, name, tamilName string) (models.Record, error) {
	if err := s.ensureOnline(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, apperrors.New(apperrors.ErrValidation, "location ID is required")
	}
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}

	updates := models.Record{"name": name}
	if t := strings.TrimSpace(tamilName); t != "" {
		updates["tamil_name"] = t
	} else {
		updates["tamil_name"] = nil
	}
	return s.client.Update(ctx, Resource, id, updates, "")
}

// Delete removes a location.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.ensureOnline(); err != nil {
		return err
	}
	return s.client.Delete(ctx, Resource, id)
}
