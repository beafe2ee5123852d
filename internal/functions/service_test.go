// Package functions provides unit tests for the functions service.
package functions

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/functiontracker/backend/internal/cache"
	apperrors "github.com/functiontracker/backend/internal/errors"
	"github.com/functiontracker/backend/internal/logging"
	"github.com/functiontracker/backend/internal/models"
	"github.com/functiontracker/backend/internal/offline"
	"github.com/functiontracker/backend/internal/remote"
	"github.com/functiontracker/backend/internal/storage"
	"github.com/functiontracker/backend/internal/uuid"
)

// fakeNetwork is a switchable connectivity flag.
type fakeNetwork struct {
	online bool
}

func (f *fakeNetwork) IsOnline() bool { return f.online }

// fakeSession reports a fixed signed-in user.
type fakeSession struct {
	userID string
}

func (f *fakeSession) UserID(ctx context.Context) (string, error) { return f.userID, nil }

type harness struct {
	service *Service
	queue   *offline.Queue
	caches  *cache.Store
	net     *fakeNetwork
	queries []url.Values
}

func newHarness(t *testing.T, respond func(w http.ResponseWriter, r *http.Request)) *harness {
	t.Helper()

	h := &harness{net: &fakeNetwork{online: true}}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.queries = append(h.queries, r.URL.Query())
		respond(w, r)
	}))
	t.Cleanup(server.Close)

	kv := storage.NewMemoryKV()
	h.queue = offline.NewQueue(kv, logging.NewNop())
	h.caches = cache.NewStore(kv, logging.NewNop())
	client := remote.NewClient(server.URL, "test-key", logging.NewNop())
	exec := offline.NewExecutor(h.queue, h.net, &fakeSession{userID: "user-1"}, logging.NewNop())
	h.service = NewService(client, h.caches, exec, h.net, logging.NewNop())
	return h
}

// TestListRefreshesCache verifies an online list returns the page and writes
// the rows into the snapshot cache.
func TestListRefreshesCache(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Range", "0-9/25")
		w.Write([]byte(`[{"id":"fn-1","title":"Birthday"}]`))
	})
	ctx := context.Background()

	page, err := h.service.List(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	if page.Meta.Page != 1 || page.Meta.Total != 25 || !page.Meta.HasMore {
		t.Errorf("Unexpected page meta: %+v", page.Meta)
	}
	if len(page.Data) != 1 || page.Data[0]["title"] != "Birthday" {
		t.Errorf("Unexpected page data: %v", page.Data)
	}

	cached, err := h.caches.Load(ctx, Resource)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cached) != 1 || cached[0]["title"] != "Birthday" {
		t.Errorf("Expected cache refreshed with the fetched rows, got %v", cached)
	}
}

// TestListOfflineServesCache verifies the cached snapshot answers offline
// lists.
func TestListOfflineServesCache(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("Unexpected remote call while offline")
	})
	ctx := context.Background()

	if err := h.caches.Save(ctx, Resource, []models.Record{{"id": "fn-1"}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	h.net.online = false

	page, err := h.service.List(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(page.Data) != 1 || page.Data[0]["id"] != "fn-1" {
		t.Errorf("Expected cached rows, got %v", page.Data)
	}
	if page.Meta.HasMore {
		t.Error("Expected no further pages from a cached snapshot")
	}
}

// TestListOfflineWithoutCache verifies a cold offline list fails with the
// offline code instead of an empty page.
func TestListOfflineWithoutCache(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("Unexpected remote call while offline")
	})
	h.net.online = false

	_, err := h.service.List(context.Background(), ListOptions{})
	if !apperrors.Is(err, apperrors.ErrOffline) {
		t.Errorf("Expected OFFLINE error, got %v", err)
	}
}

// TestListFilters verifies the filter expressions the backend receives.
func TestListFilters(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	_, err := h.service.List(context.Background(), ListOptions{
		Status:       []string{"upcoming", "ongoing"},
		CategoryID:   "cat-1",
		FunctionType: "wedding",
		FromDate:     "2026-01-01",
		ToDate:       "2026-12-31",
	})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	if len(h.queries) != 1 {
		t.Fatalf("Expected 1 remote call, got %d", len(h.queries))
	}
	q := h.queries[0]
	if q.Get("status") != "in.(upcoming,ongoing)" {
		t.Errorf("Unexpected status filter: %s", q.Get("status"))
	}
	if q.Get("category_id") != "eq.cat-1" {
		t.Errorf("Unexpected category filter: %s", q.Get("category_id"))
	}
	if q.Get("function_type") != "eq.wedding" {
		t.Errorf("Unexpected type filter: %s", q.Get("function_type"))
	}
	if q.Get("and") != "(function_date.gte.2026-01-01,function_date.lte.2026-12-31)" {
		t.Errorf("Unexpected date range filter: %s", q.Get("and"))
	}
	if q.Get("order") != "function_date.asc" {
		t.Errorf("Unexpected order: %s", q.Get("order"))
	}
}

// TestGet verifies single-record lookup and the not-found mapping.
func TestGet(t *testing.T) {
	empty := false
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		if empty {
			w.Write([]byte(`[]`))
			return
		}
		w.Write([]byte(`[{"id":"fn-1","title":"Birthday"}]`))
	})
	ctx := context.Background()

	record, err := h.service.Get(ctx, "fn-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if record["title"] != "Birthday" {
		t.Errorf("Unexpected record: %v", record)
	}

	empty = true
	_, err = h.service.Get(ctx, "ghost")
	if !apperrors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Expected NOT_FOUND, got %v", err)
	}
}

// TestCreateOnline verifies online creates go straight to the backend and
// nothing is queued.
func TestCreateOnline(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"fn-1","title":"Birthday","user_id":"user-1"}]`))
	})
	ctx := context.Background()

	result, err := h.service.Create(ctx, models.Record{"title": "Birthday"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	row, ok := result.(models.Record)
	if !ok {
		t.Fatalf("Expected a record, got %T", result)
	}
	if row["id"] != "fn-1" {
		t.Errorf("Expected inserted row back, got %v", row)
	}

	items, _ := h.queue.List(ctx)
	if len(items) != 0 {
		t.Errorf("Expected nothing queued online, got %d items", len(items))
	}
}

// TestCreateOffline verifies offline creates return a queued placeholder
// carrying a temp id and the owner's user_id.
func TestCreateOffline(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("Unexpected remote call while offline")
	})
	h.net.online = false
	ctx := context.Background()

	result, err := h.service.Create(ctx, models.Record{"title": "Birthday"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	item, ok := result.(offline.QueueItem)
	if !ok {
		t.Fatalf("Expected a queue item placeholder, got %T", result)
	}
	if !uuid.IsTempID(item.ID) {
		t.Errorf("Expected a temp id, got %s", item.ID)
	}
	if item.Payload["user_id"] != "user-1" {
		t.Errorf("Expected user_id stamped, got %v", item.Payload)
	}
	if item.Payload["id"] != item.ID {
		t.Errorf("Expected create payload to carry the temp id, got %v", item.Payload)
	}

	items, _ := h.queue.List(ctx)
	if len(items) != 1 {
		t.Fatalf("Expected 1 queued item, got %d", len(items))
	}
}

// TestGetCounts verifies the home screen totals query four head counts.
func TestGetCounts(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		total := "*/40"
		switch {
		case q.Get("status") == "eq.upcoming":
			total = "*/15"
		case q.Get("status") == "eq.completed":
			total = "*/20"
		case q.Has("function_date"):
			total = "*/2"
		}
		w.Header().Set("Content-Range", total)
	})

	counts, err := h.service.GetCounts(context.Background())
	if err != nil {
		t.Fatalf("GetCounts failed: %v", err)
	}
	want := Counts{Total: 40, Upcoming: 15, Completed: 20, Today: 2}
	if counts != want {
		t.Errorf("Expected %+v, got %+v", want, counts)
	}
	if len(h.queries) != 4 {
		t.Errorf("Expected 4 count queries, got %d", len(h.queries))
	}
}

// TestGetCountsOffline verifies counting refuses to run offline.
func TestGetCountsOffline(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("Unexpected remote call while offline")
	})
	h.net.online = false

	_, err := h.service.GetCounts(context.Background())
	if !apperrors.Is(err, apperrors.ErrOffline) {
		t.Errorf("Expected OFFLINE error, got %v", err)
	}
}

// TestGetCountsBackendError verifies a failed count reads as zeros instead
// of failing the screen.
func TestGetCountsBackendError(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	counts, err := h.service.GetCounts(context.Background())
	if err != nil {
		t.Fatalf("GetCounts failed: %v", err)
	}
	if counts != (Counts{}) {
		t.Errorf("Expected zero counts on backend error, got %+v", counts)
	}
}

// TestSyncHandlersValidateReplayID verifies queued updates and deletes only
// replay against well-formed row ids; temp placeholders still pass.
func TestSyncHandlersValidateReplayID(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"123e4567-e89b-42d3-a456-426614174000"}]`))
	})
	handlers := h.service.SyncHandlers()
	ctx := context.Background()

	for _, id := range []any{nil, "", "not-a-uuid", 42} {
		payload := map[string]any{"updates": map[string]any{"title": "x"}, "user_id": "user-1"}
		if id != nil {
			payload["id"] = id
		}
		if err := handlers.Update(ctx, payload); !apperrors.Is(err, apperrors.ErrInvalid) {
			t.Errorf("Update with id %v: expected INVALID_INPUT, got %v", id, err)
		}
		if err := handlers.Delete(ctx, payload); !apperrors.Is(err, apperrors.ErrInvalid) {
			t.Errorf("Delete with id %v: expected INVALID_INPUT, got %v", id, err)
		}
	}
	if len(h.queries) != 0 {
		t.Fatalf("Expected no remote calls for malformed ids, got %d", len(h.queries))
	}

	err := handlers.Update(ctx, map[string]any{
		"id":      "123e4567-e89b-42d3-a456-426614174000",
		"updates": map[string]any{"title": "x"},
		"user_id": "user-1",
	})
	if err != nil {
		t.Errorf("Expected valid UUID to replay, got %v", err)
	}
	err = handlers.Delete(ctx, map[string]any{"id": uuid.TempID(), "user_id": "user-1"})
	if err != nil {
		t.Errorf("Expected temp placeholder id to replay, got %v", err)
	}
}

// TestDeleteOffline verifies offline deletes queue the target id.
func TestDeleteOffline(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("Unexpected remote call while offline")
	})
	h.net.online = false
	ctx := context.Background()

	if _, err := h.service.Delete(ctx, "fn-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	items, _ := h.queue.List(ctx)
	if len(items) != 1 {
		t.Fatalf("Expected 1 queued item, got %d", len(items))
	}
	if items[0].Action != offline.ActionDelete || items[0].Payload["id"] != "fn-1" {
		t.Errorf("Unexpected queued delete: %+v", items[0])
	}
}
