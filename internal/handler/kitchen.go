package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/eightam/preorder-api/internal/database"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// KitchenStore defines the database methods needed by the kitchen board.
// Satisfied by *database.Queries; narrow interface for testability.
type KitchenStore interface {
	ListActiveOrders(ctx context.Context, now pgtype.Timestamptz) ([]database.Order, error)
	ListLinesForOrders(ctx context.Context, orderIDs []uuid.UUID) ([]database.ListOrderLinesRow, error)
}

// KitchenHandler serves the kitchen board.
type KitchenHandler struct {
	store KitchenStore
	now   func() time.Time
}

// NewKitchenHandler creates a new KitchenHandler.
func NewKitchenHandler(store KitchenStore) *KitchenHandler {
	return &KitchenHandler{store: store, now: time.Now}
}

// RegisterRoutes registers kitchen endpoints on the given Chi router.
// Expected to be mounted at /kitchen
func (h *KitchenHandler) RegisterRoutes(r chi.Router) {
	r.Get("/orders", h.Board)
}

type kitchenBoardResponse struct {
	Pending     []orderResponse `json:"pending"`
	Paid        []orderResponse `json:"paid"`
	Preparing   []orderResponse `json:"preparing"`
	Ready       []orderResponse `json:"ready"`
	TotalActive int             `json:"total_active"`
}

// Board handles GET /kitchen/orders. Orders come oldest first; pay-on-pickup
// orders whose hold has lapsed are left off.
func (h *KitchenHandler) Board(w http.ResponseWriter, r *http.Request) {
	now := h.now()

	orders, err := h.store.ListActiveOrders(r.Context(), pgtype.Timestamptz{Time: now, Valid: true})
	if err != nil {
		log.Printf("ERROR: list active orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	ids := make([]uuid.UUID, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}

	linesByOrder := make(map[uuid.UUID][]database.ListOrderLinesRow, len(orders))
	if len(ids) > 0 {
		lines, err := h.store.ListLinesForOrders(r.Context(), ids)
		if err != nil {
			log.Printf("ERROR: list lines for orders: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		for _, l := range lines {
			linesByOrder[l.OrderID] = append(linesByOrder[l.OrderID], l)
		}
	}

	resp := kitchenBoardResponse{
		Pending:   []orderResponse{},
		Paid:      []orderResponse{},
		Preparing: []orderResponse{},
		Ready:     []orderResponse{},
	}
	for _, o := range orders {
		or := toOrderResponse(o, linesByOrder[o.ID], now)
		switch database.OrderStatus(or.Status) {
		case database.OrderStatusPENDING:
			resp.Pending = append(resp.Pending, or)
		case database.OrderStatusPAID:
			resp.Paid = append(resp.Paid, or)
		case database.OrderStatusPREPARING:
			resp.Preparing = append(resp.Preparing, or)
		case database.OrderStatusREADY:
			resp.Ready = append(resp.Ready, or)
		default:
			// Expired between the query and now.
			continue
		}
		resp.TotalActive++
	}

	writeJSON(w, http.StatusOK, resp)
}
