package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/eightam/preorder-api/internal/auth"
	"github.com/eightam/preorder-api/internal/database"
	"github.com/eightam/preorder-api/internal/middleware"
	"github.com/eightam/preorder-api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.OrderResult, error)
	AdvanceStatus(ctx context.Context, code, target string) (*service.OrderResult, error)
	CancelOrder(ctx context.Context, orderID uuid.UUID) (*service.OrderResult, error)
}

// OrderReader defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderReader interface {
	GetOrderByCode(ctx context.Context, shortCode string) (database.Order, error)
	ListOrderLines(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderLinesRow, error)
	ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.Payment, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc           OrderServicer
	store         OrderReader
	receiptSecret string
	now           func() time.Time
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderReader, receiptSecret string) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, receiptSecret: receiptSecret, now: time.Now}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted at /orders
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/{code}", h.Get)
	r.Patch("/{code}/status", h.UpdateStatus)
	r.With(
		middleware.RequireReceipt(h.receiptSecret),
		middleware.RequireOrderCode,
	).Post("/{code}/cancel", h.Cancel)
}

// --- Request / Response types ---

type createOrderRequest struct {
	PaymentMethod string                   `json:"payment_method"`
	Phone         string                   `json:"phone"`
	Items         []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	ItemID   string `json:"item_id"`
	Quantity int32  `json:"quantity"`
}

type orderResponse struct {
	ID            uuid.UUID           `json:"id"`
	ShortCode     string              `json:"short_code"`
	Status        string              `json:"status"`
	PaymentMethod string              `json:"payment_method"`
	TotalKobo     int64               `json:"total_kobo"`
	Total         string              `json:"total"`
	CreatedAt     time.Time           `json:"created_at"`
	PaidAt        *time.Time          `json:"paid_at"`
	ReadyAt       *time.Time          `json:"ready_at"`
	PickedUpAt    *time.Time          `json:"picked_up_at"`
	EstReadyAt    *time.Time          `json:"est_ready_at"`
	ExpiresAt     *time.Time          `json:"expires_at"`
	EstimatedWait *string             `json:"estimated_wait"`
	Items         []orderItemResponse `json:"items"`
}

type orderItemResponse struct {
	ID            uuid.UUID `json:"id"`
	ItemID        uuid.UUID `json:"item_id"`
	Name          string    `json:"name"`
	Quantity      int32     `json:"quantity"`
	UnitPriceKobo int64     `json:"unit_price_kobo"`
	UnitPrice     string    `json:"unit_price"`
	LineTotal     string    `json:"line_total"`
}

type paymentResponse struct {
	ID          uuid.UUID  `json:"id"`
	Method      string     `json:"method"`
	Status      string     `json:"status"`
	AmountKobo  int64      `json:"amount_kobo"`
	Amount      string     `json:"amount"`
	ConfirmedAt *time.Time `json:"confirmed_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// createOrderResponse carries the receipt the customer needs to cancel.
type createOrderResponse struct {
	orderResponse
	ReceiptToken string `json:"receipt_token"`
}

// orderDetailResponse extends orderResponse with payments for the GET detail endpoint.
type orderDetailResponse struct {
	orderResponse
	Payments []paymentResponse `json:"payments"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// --- Handlers ---

// Create handles POST /orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.PaymentMethod == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "payment_method is required"})
		return
	}

	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}

	lines := make([]service.CreateOrderLine, len(req.Items))
	for i, item := range req.Items {
		if item.ItemID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": formatItemError(i, "item_id is required"),
			})
			return
		}
		lines[i] = service.CreateOrderLine{ItemID: item.ItemID, Quantity: item.Quantity}
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		PaymentMethod: req.PaymentMethod,
		Phone:         req.Phone,
		Lines:         lines,
	})
	if err != nil {
		writeServiceError(w, "create order", err)
		return
	}

	token, err := auth.GenerateReceipt(h.receiptSecret, result.Order.ID, result.Order.ShortCode)
	if err != nil {
		log.Printf("ERROR: sign receipt for %s: %v", result.Order.ShortCode, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, createOrderResponse{
		orderResponse: toOrderResponse(result.Order, result.Lines, h.now()),
		ReceiptToken:  token,
	})
}

// Get handles GET /orders/{code}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	order, err := h.store.GetOrderByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	lines, err := h.store.ListOrderLines(r.Context(), order.ID)
	if err != nil {
		log.Printf("ERROR: list order lines: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	payments, err := h.store.ListPaymentsByOrder(r.Context(), order.ID)
	if err != nil {
		log.Printf("ERROR: list payments: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	paymentResps := make([]paymentResponse, len(payments))
	for i, p := range payments {
		paymentResps[i] = dbPaymentToResponse(p)
	}

	writeJSON(w, http.StatusOK, orderDetailResponse{
		orderResponse: toOrderResponse(order, lines, h.now()),
		Payments:      paymentResps,
	})
}

// UpdateStatus handles PATCH /orders/{code}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	result, err := h.svc.AdvanceStatus(r.Context(), code, req.Status)
	if err != nil {
		writeServiceError(w, "update order status", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(result.Order, result.Lines, h.now()))
}

// Cancel handles POST /orders/{code}/cancel.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ReceiptFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	result, err := h.svc.CancelOrder(r.Context(), claims.OrderID)
	if err != nil {
		writeServiceError(w, "cancel order", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(result.Order, result.Lines, h.now()))
}

// --- Helpers ---

func formatItemError(idx int, msg string) string {
	return "items[" + strconv.Itoa(idx) + "]: " + msg
}

func toOrderResponse(o database.Order, lines []database.ListOrderLinesRow, now time.Time) orderResponse {
	status := service.EffectiveStatus(o, now)

	resp := orderResponse{
		ID:            o.ID,
		ShortCode:     o.ShortCode,
		Status:        string(status),
		PaymentMethod: string(o.PaymentMethod),
		TotalKobo:     o.TotalKobo,
		Total:         formatNaira(o.TotalKobo),
		CreatedAt:     o.CreatedAt,
		PaidAt:        timestamptzPtr(o.PaidAt),
		ReadyAt:       timestamptzPtr(o.ReadyAt),
		PickedUpAt:    timestamptzPtr(o.PickedUpAt),
		EstReadyAt:    timestamptzPtr(o.EstReadyAt),
		ExpiresAt:     timestamptzPtr(o.ExpiresAt),
		Items:         make([]orderItemResponse, len(lines)),
	}

	// Only orders still in the kitchen have a countdown.
	if o.EstReadyAt.Valid && (status == database.OrderStatusPAID || status == database.OrderStatusPREPARING) {
		remaining := int64(o.EstReadyAt.Time.Sub(now) / time.Second)
		label := service.FormatDuration(remaining)
		resp.EstimatedWait = &label
	}

	for i, l := range lines {
		resp.Items[i] = orderItemResponse{
			ID:            l.ID,
			ItemID:        l.ItemID,
			Name:          l.ItemName,
			Quantity:      l.Quantity,
			UnitPriceKobo: l.UnitPriceKobo,
			UnitPrice:     formatNaira(l.UnitPriceKobo),
			LineTotal:     formatNaira(l.UnitPriceKobo * int64(l.Quantity)),
		}
	}
	return resp
}

func dbPaymentToResponse(p database.Payment) paymentResponse {
	return paymentResponse{
		ID:          p.ID,
		Method:      string(p.Method),
		Status:      string(p.Status),
		AmountKobo:  p.AmountKobo,
		Amount:      formatNaira(p.AmountKobo),
		ConfirmedAt: timestamptzPtr(p.ConfirmedAt),
		CreatedAt:   p.CreatedAt,
	}
}
