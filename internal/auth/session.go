// Package auth persists the signed-in user and scrubs offline state on logout.
package auth

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	apperrors "github.com/functiontracker/backend/internal/errors"
	"github.com/functiontracker/backend/internal/models"
	"github.com/functiontracker/backend/internal/storage"
)

// UserKey is the local storage key holding the current user.
const UserKey = "AUTH_USER"

// QueueClearer empties the offline queue. Implemented by offline.Queue.
type QueueClearer interface {
	Clear(ctx context.Context) error
}

// CacheClearer drops one resource cache. Implemented by cache.Store.
type CacheClearer interface {
	Clear(ctx context.Context, resource string) error
}

// Store manages the persisted session.
type Store struct {
	kv        storage.KV
	queue     QueueClearer
	caches    CacheClearer
	resources []string
	log       *zap.SugaredLogger
}

// NewStore creates a session Store. resources names the caches to drop on
// sign-out.
func NewStore(kv storage.KV, queue QueueClearer, caches CacheClearer, resources []string, log *zap.SugaredLogger) *Store {
	return &Store{
		kv:        kv,
		queue:     queue,
		caches:    caches,
		resources: resources,
		log:       log,
	}
}

// SaveUser persists the signed-in user.
func (s *Store) SaveUser(ctx context.Context, user models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternal, "failed to encode user", err)
	}
	if err := s.kv.Set(ctx, UserKey, data); err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to save user", err)
	}
	return nil
}

// Current returns the signed-in user, or nil when signed out.
func (s *Store) Current(ctx context.Context) (*models.User, error) {
	raw, err := s.kv.Get(ctx, UserKey)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to read user", err)
	}
	if raw == nil {
		return nil, nil
	}

	var user models.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "stored user is malformed", err)
	}
	return &user, nil
}

// UserID returns the current user's id, or "" when signed out.
func (s *Store) UserID(ctx context.Context) (string, error) {
	user, err := s.Current(ctx)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", nil
	}
	return user.ID, nil
}

// SignOut removes the session and clears the offline queue and all resource
// caches, so nothing recorded under this user leaks into the next session.
func (s *Store) SignOut(ctx context.Context) error {
	if err := s.kv.Remove(ctx, UserKey); err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to remove user", err)
	}

	if err := s.queue.Clear(ctx); err != nil {
		s.log.Errorw("failed to clear offline queue on sign-out", "error", err)
	}
	for _, resource := range s.resources {
		if err := s.caches.Clear(ctx, resource); err != nil {
			s.log.Errorw("failed to clear resource cache on sign-out",
				"resource", resource, "error", err)
		}
	}

	s.log.Infow("offline state cleared on sign-out")
	return nil
}
