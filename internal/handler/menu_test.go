package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/eightam/preorder-api/internal/database"
	"github.com/eightam/preorder-api/internal/handler"
	"github.com/eightam/preorder-api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type mockMenuStore struct {
	items    []database.Item
	itemsErr error
	backlog  int64
}

func (m *mockMenuStore) ListMenuItems(ctx context.Context) ([]database.Item, error) {
	return m.items, m.itemsErr
}

func (m *mockMenuStore) SumActivePrepTime(ctx context.Context) (int64, error) {
	return m.backlog, nil
}

func setupMenuRouter(store *mockMenuStore) *chi.Mux {
	h := handler.NewMenuHandler(store, service.NewWaitEstimator(2))
	r := chi.NewRouter()
	r.Route("/items", h.RegisterRoutes)
	return r
}

func TestMenuList_WithBacklog(t *testing.T) {
	store := &mockMenuStore{
		items: []database.Item{
			{ID: uuid.New(), Name: "Akara (5 pcs)", PriceKobo: 30000, PrepTimeSec: 240, DailyQuantity: 50, RemainingToday: 12, IsAvailable: true},
			{ID: uuid.New(), Name: "Pap (cup)", PriceKobo: 15000, PrepTimeSec: 60, DailyQuantity: 60, RemainingToday: 60, IsAvailable: true},
		},
		backlog: 600,
	}
	router := setupMenuRouter(store)

	rr := doRequest(t, router, "GET", "/items", nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}

	resp := decodeResponse(t, rr)
	if resp["queue_delay_sec"].(float64) != 300 {
		t.Errorf("queue_delay_sec: got %v, want 300", resp["queue_delay_sec"])
	}
	if resp["queue_delay"] != "~5 min" {
		t.Errorf("queue_delay: got %v, want ~5 min", resp["queue_delay"])
	}

	items := resp["items"].([]interface{})
	if len(items) != 2 {
		t.Fatalf("items: got %d, want 2", len(items))
	}
	akara := items[0].(map[string]interface{})
	if akara["price"] != "300.00" {
		t.Errorf("price: got %v, want 300.00", akara["price"])
	}
	if akara["estimated_wait_sec"].(float64) != 540 {
		t.Errorf("estimated_wait_sec: got %v, want 540", akara["estimated_wait_sec"])
	}
	if akara["estimated_wait"] != "~10 min" {
		t.Errorf("estimated_wait: got %v, want ~10 min", akara["estimated_wait"])
	}
	if akara["remaining_today"].(float64) != 12 {
		t.Errorf("remaining_today: got %v, want 12", akara["remaining_today"])
	}
}

func TestMenuList_EmptyKitchen(t *testing.T) {
	store := &mockMenuStore{items: []database.Item{}}
	router := setupMenuRouter(store)

	rr := doRequest(t, router, "GET", "/items", nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	resp := decodeResponse(t, rr)
	if resp["queue_delay_sec"].(float64) != 0 {
		t.Errorf("queue_delay_sec: got %v, want 0", resp["queue_delay_sec"])
	}
	if items := resp["items"].([]interface{}); len(items) != 0 {
		t.Errorf("items: got %v, want empty", items)
	}
}

func TestMenuList_StoreError(t *testing.T) {
	router := setupMenuRouter(&mockMenuStore{itemsErr: errors.New("db down")})

	rr := doRequest(t, router, "GET", "/items", nil, "")
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusInternalServerError)
	}
}
