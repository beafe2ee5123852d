// Package cache provides per-resource snapshot caches for offline reads.
package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/functiontracker/backend/internal/errors"
	"github.com/functiontracker/backend/internal/models"
	"github.com/functiontracker/backend/internal/storage"
)

// envelope is the persisted cache layout: the snapshot plus when it was taken.
type envelope struct {
	Data     []models.Record `json:"data"`
	CachedAt string          `json:"cachedAt"`
}

// Store writes and reads resource snapshots in local storage. Every save is
// a full replacement of the previous snapshot, never a merge.
type Store struct {
	kv  storage.KV
	log *zap.SugaredLogger
}

// NewStore creates a cache Store over kv.
func NewStore(kv storage.KV, log *zap.SugaredLogger) *Store {
	return &Store{kv: kv, log: log}
}

// Key returns the storage key for a resource cache, e.g. FUNCTIONS_CACHE.
func Key(resource string) string {
	return strings.ToUpper(resource) + "_CACHE"
}

// Save overwrites the cached snapshot for resource.
func (s *Store) Save(ctx context.Context, resource string, records []models.Record) error {
	if records == nil {
		records = []models.Record{}
	}

	data, err := json.Marshal(envelope{
		Data:     records,
		CachedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to encode cache", err)
	}

	if err := s.kv.Set(ctx, Key(resource), data); err != nil {
		s.log.Errorw("failed to save resource cache", "resource", resource, "error", err)
		return apperrors.Wrap(apperrors.ErrStorage, "failed to save cache", err)
	}
	return nil
}

// Load returns the cached snapshot, or nil when no valid cache exists.
// Malformed content is a cache miss, not an error.
func (s *Store) Load(ctx context.Context, resource string) ([]models.Record, error) {
	raw, err := s.kv.Get(ctx, Key(resource))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to read cache", err)
	}
	if raw == nil {
		return nil, nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.log.Warnw("resource cache is malformed, treating as miss",
			"resource", resource, "error", err)
		return nil, nil
	}
	if env.Data == nil {
		return nil, nil
	}
	return env.Data, nil
}

// Clear removes the cached snapshot for resource. Used on logout.
func (s *Store) Clear(ctx context.Context, resource string) error {
	if err := s.kv.Remove(ctx, Key(resource)); err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to clear cache", err)
	}
	return nil
}
