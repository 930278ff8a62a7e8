package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/eightam/preorder-api/internal/database"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ItemStore defines the database methods needed by item management handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ItemStore interface {
	ListItems(ctx context.Context) ([]database.Item, error)
	GetItem(ctx context.Context, id uuid.UUID) (database.Item, error)
	UpdateItem(ctx context.Context, arg database.UpdateItemParams) (database.Item, error)
}

// ItemHandler lets the kitchen reprice items, change the daily quantity and
// mark items sold out.
type ItemHandler struct {
	store ItemStore
}

// NewItemHandler creates a new ItemHandler.
func NewItemHandler(store ItemStore) *ItemHandler {
	return &ItemHandler{store: store}
}

// RegisterRoutes registers item management endpoints on the given Chi router.
// Expected to be mounted at /kitchen/items
func (h *ItemHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
}

// --- Request / Response types ---

type updateItemRequest struct {
	Price         string `json:"price"`
	PrepTimeSec   int32  `json:"prep_time_sec"`
	DailyQuantity *int32 `json:"daily_quantity"`
	IsAvailable   *bool  `json:"is_available"`
}

type itemResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	PriceKobo      int64     `json:"price_kobo"`
	Price          string    `json:"price"`
	PrepTimeSec    int32     `json:"prep_time_sec"`
	DailyQuantity  int32     `json:"daily_quantity"`
	RemainingToday int32     `json:"remaining_today"`
	IsAvailable    bool      `json:"is_available"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toItemResponse(it database.Item) itemResponse {
	return itemResponse{
		ID:             it.ID,
		Name:           it.Name,
		PriceKobo:      it.PriceKobo,
		Price:          formatNaira(it.PriceKobo),
		PrepTimeSec:    it.PrepTimeSec,
		DailyQuantity:  it.DailyQuantity,
		RemainingToday: it.RemainingToday,
		IsAvailable:    it.IsAvailable,
		UpdatedAt:      it.UpdatedAt,
	}
}

var (
	errNegativePrice  = errors.New("negative price")
	errFractionalKobo = errors.New("price has more than 2 decimal places")
)

// parsePrice converts a naira amount such as "300" or "250.50" to kobo.
func parsePrice(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	if d.IsNegative() {
		return 0, errNegativePrice
	}
	kobo := d.Shift(2)
	if !kobo.IsInteger() {
		return 0, errFractionalKobo
	}
	return kobo.IntPart(), nil
}

// --- Handlers ---

// List returns every item, including sold out and hidden ones.
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListItems(r.Context())
	if err != nil {
		log.Printf("ERROR: list items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]itemResponse, len(items))
	for i, it := range items {
		resp[i] = toItemResponse(it)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single item by ID.
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return
	}

	item, err := h.store.GetItem(r.Context(), itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
			return
		}
		log.Printf("ERROR: get item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toItemResponse(item))
}

// Update replaces an item's price, prep time, daily quantity and availability.
// Units already sold today stay sold when the daily quantity changes.
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return
	}

	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	// Validate required fields
	if req.Price == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price is required"})
		return
	}

	priceKobo, err := parsePrice(req.Price)
	if err != nil {
		switch {
		case errors.Is(err, errNegativePrice):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price must be >= 0"})
		case errors.Is(err, errFractionalKobo):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price must have at most 2 decimal places"})
		default:
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid price"})
		}
		return
	}

	if req.PrepTimeSec <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "prep_time_sec must be > 0"})
		return
	}

	if req.DailyQuantity == nil || *req.DailyQuantity < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "daily_quantity must be >= 0"})
		return
	}

	if req.IsAvailable == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "is_available is required"})
		return
	}

	item, err := h.store.UpdateItem(r.Context(), database.UpdateItemParams{
		ID:            itemID,
		PriceKobo:     priceKobo,
		PrepTimeSec:   req.PrepTimeSec,
		DailyQuantity: *req.DailyQuantity,
		IsAvailable:   *req.IsAvailable,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
			return
		}
		log.Printf("ERROR: update item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toItemResponse(item))
}
