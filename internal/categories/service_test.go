// Package categories provides unit tests for the categories service.
package categories

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/functiontracker/backend/internal/cache"
	apperrors "github.com/functiontracker/backend/internal/errors"
	"github.com/functiontracker/backend/internal/logging"
	"github.com/functiontracker/backend/internal/models"
	"github.com/functiontracker/backend/internal/remote"
	"github.com/functiontracker/backend/internal/storage"
)

type fakeNetwork struct {
	online bool
}

func (f *fakeNetwork) IsOnline() bool { return f.online }

func newTestService(t *testing.T, respond func(w http.ResponseWriter, r *http.Request)) (*Service, *fakeNetwork, *cache.Store) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(respond))
	t.Cleanup(server.Close)

	net := &fakeNetwork{online: true}
	caches := cache.NewStore(storage.NewMemoryKV(), logging.NewNop())
	client := remote.NewClient(server.URL, "test-key", logging.NewNop())
	return NewService(client, caches, net, logging.NewNop()), net, caches
}

// TestListRefreshesCache verifies an online list caches the fetched rows.
func TestListRefreshesCache(t *testing.T) {
	service, _, caches := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Range", "0-9/3")
		w.Write([]byte(`[{"id":"cat-1","name":"Wedding"}]`))
	})
	ctx := context.Background()

	page, err := service.List(ctx, 1, 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(page.Data) != 1 || page.Meta.Total != 3 {
		t.Errorf("Unexpected page: %+v", page)
	}

	cached, _ := caches.Load(ctx, Resource)
	if len(cached) != 1 || cached[0]["name"] != "Wedding" {
		t.Errorf("Expected cache refreshed, got %v", cached)
	}
}

// TestListOfflineServesCache verifies offline reads fall back to the cache.
func TestListOfflineServesCache(t *testing.T) {
	service, net, caches := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("Unexpected remote call while offline")
	})
	ctx := context.Background()

	if err := caches.Save(ctx, Resource, []models.Record{{"id": "cat-1"}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	net.online = false

	page, err := service.List(ctx, 1, 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(page.Data) != 1 {
		t.Errorf("Expected cached rows, got %v", page.Data)
	}
}

// TestEditsRequireConnection verifies category edits refuse to run offline
// instead of queueing.
func TestEditsRequireConnection(t *testing.T) {
	service, net, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("Unexpected remote call while offline")
	})
	net.online = false
	ctx := context.Background()

	if err := service.Add(ctx, models.Record{"name": "Wedding"}); !apperrors.Is(err, apperrors.ErrOffline) {
		t.Errorf("Expected OFFLINE from Add, got %v", err)
	}
	if err := service.Update(ctx, "cat-1", models.Record{"name": "Birthday"}); !apperrors.Is(err, apperrors.ErrOffline) {
		t.Errorf("Expected OFFLINE from Update, got %v", err)
	}
	if err := service.Delete(ctx, "cat-1"); !apperrors.Is(err, apperrors.ErrOffline) {
		t.Errorf("Expected OFFLINE from Delete, got %v", err)
	}
}

// TestAddOnline verifies online edits reach the backend.
func TestAddOnline(t *testing.T) {
	var method string
	service, _, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		w.Write([]byte(`[{"id":"cat-1","name":"Wedding"}]`))
	})

	if err := service.Add(context.Background(), models.Record{"name": "Wedding"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if method != http.MethodPost {
		t.Errorf("Expected POST, got %s", method)
	}
}
