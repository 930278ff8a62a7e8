package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/eightam/preorder-api/internal/service"
	"github.com/go-chi/chi/v5"
)

// PaymentServicer defines the service methods needed by payment handlers.
// Satisfied by *service.OrderService.
type PaymentServicer interface {
	ConfirmPayment(ctx context.Context, req service.ConfirmPaymentRequest) (*service.PaymentResult, error)
}

// PaymentHandler handles payment endpoints.
type PaymentHandler struct {
	svc PaymentServicer
	now func() time.Time
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(svc PaymentServicer) *PaymentHandler {
	return &PaymentHandler{svc: svc, now: time.Now}
}

// RegisterRoutes registers payment endpoints on the given Chi router.
// Expected to be mounted at /payments
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/confirm", h.Confirm)
}

// --- Request / Response types ---

type confirmPaymentRequest struct {
	OrderID     string `json:"order_id"`
	Success     *bool  `json:"success"`
	ProviderRef string `json:"provider_ref"`
}

type confirmPaymentResponse struct {
	Order   orderResponse   `json:"order"`
	Payment paymentResponse `json:"payment"`
}

// --- Handlers ---

// Confirm handles POST /payments/confirm. It stands in for a payment
// provider's callback.
func (h *PaymentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req confirmPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.OrderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "order_id is required"})
		return
	}
	if req.Success == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "success is required"})
		return
	}

	result, err := h.svc.ConfirmPayment(r.Context(), service.ConfirmPaymentRequest{
		OrderID:     req.OrderID,
		Success:     *req.Success,
		ProviderRef: req.ProviderRef,
	})
	if err != nil {
		writeServiceError(w, "confirm payment", err)
		return
	}

	writeJSON(w, http.StatusOK, confirmPaymentResponse{
		Order:   toOrderResponse(result.Order, result.Lines, h.now()),
		Payment: dbPaymentToResponse(result.Payment),
	})
}
