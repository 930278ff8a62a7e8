package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/eightam/preorder-api/internal/database"
	"github.com/eightam/preorder-api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// MenuStore defines the database methods needed by the menu endpoint.
// Satisfied by *database.Queries; narrow interface for testability.
type MenuStore interface {
	service.PrepTimeStore
	ListMenuItems(ctx context.Context) ([]database.Item, error)
}

// MenuHandler serves today's orderable items.
type MenuHandler struct {
	store     MenuStore
	estimator *service.WaitEstimator
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(store MenuStore, estimator *service.WaitEstimator) *MenuHandler {
	return &MenuHandler{store: store, estimator: estimator}
}

// RegisterRoutes registers menu endpoints on the given Chi router.
// Expected to be mounted at /items
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
}

type menuItemResponse struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	PriceKobo        int64     `json:"price_kobo"`
	Price            string    `json:"price"`
	PrepTimeSec      int32     `json:"prep_time_sec"`
	RemainingToday   int32     `json:"remaining_today"`
	EstimatedWaitSec int64     `json:"estimated_wait_sec"`
	EstimatedWait    string    `json:"estimated_wait"`
}

type menuResponse struct {
	Items         []menuItemResponse `json:"items"`
	QueueDelaySec int64              `json:"queue_delay_sec"`
	QueueDelay    string             `json:"queue_delay"`
}

// List handles GET /items.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListMenuItems(r.Context())
	if err != nil {
		log.Printf("ERROR: list menu items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	delay, err := h.estimator.QueueDelay(r.Context(), h.store)
	if err != nil {
		log.Printf("ERROR: queue delay: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := menuResponse{
		Items:         make([]menuItemResponse, len(items)),
		QueueDelaySec: delay,
		QueueDelay:    service.FormatDuration(delay),
	}
	for i, it := range items {
		wait := delay + int64(it.PrepTimeSec)
		resp.Items[i] = menuItemResponse{
			ID:               it.ID,
			Name:             it.Name,
			PriceKobo:        it.PriceKobo,
			Price:            formatNaira(it.PriceKobo),
			PrepTimeSec:      it.PrepTimeSec,
			RemainingToday:   it.RemainingToday,
			EstimatedWaitSec: wait,
			EstimatedWait:    service.FormatDuration(wait),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
