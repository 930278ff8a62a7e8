package handler

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/eightam/preorder-api/internal/database"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// ReportsStore defines the database methods needed by report handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ReportsStore interface {
	GetDailySales(ctx context.Context, arg database.GetDailySalesParams) ([]database.GetDailySalesRow, error)
	GetItemSales(ctx context.Context, arg database.GetItemSalesParams) ([]database.GetItemSalesRow, error)
	GetPaymentSummary(ctx context.Context, arg database.GetPaymentSummaryParams) ([]database.GetPaymentSummaryRow, error)
}

// ReportsHandler handles report endpoints.
type ReportsHandler struct {
	store ReportsStore
	now   func() time.Time
}

// NewReportsHandler creates a new ReportsHandler.
func NewReportsHandler(store ReportsStore) *ReportsHandler {
	return &ReportsHandler{store: store, now: time.Now}
}

// RegisterRoutes registers report endpoints on the given Chi router.
// Expected to be mounted at /reports
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/daily-sales", h.DailySales)
	r.Get("/item-sales", h.ItemSales)
	r.Get("/payment-summary", h.PaymentSummary)
}

// --- Response types ---

type dailySalesResponse struct {
	Date        string `json:"date"`
	OrderCount  int64  `json:"order_count"`
	RevenueKobo int64  `json:"revenue_kobo"`
	Revenue     string `json:"revenue"`
}

type itemSalesResponse struct {
	ItemID       uuid.UUID `json:"item_id"`
	ItemName     string    `json:"item_name"`
	QuantitySold int64     `json:"quantity_sold"`
	RevenueKobo  int64     `json:"revenue_kobo"`
	Revenue      string    `json:"revenue"`
}

type paymentSummaryResponse struct {
	Method           string `json:"method"`
	Status           string `json:"status"`
	TransactionCount int64  `json:"transaction_count"`
	AmountKobo       int64  `json:"amount_kobo"`
	Amount           string `json:"amount"`
}

// --- Handlers ---

// DailySales returns paid orders and revenue per business day.
func (h *ReportsHandler) DailySales(w http.ResponseWriter, r *http.Request) {
	startDate, endDate, err := parseDateRange(r, h.now())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	rows, err := h.store.GetDailySales(r.Context(), database.GetDailySalesParams{
		BusinessDate:   pgtype.Date{Time: startDate, Valid: true},
		BusinessDate_2: pgtype.Date{Time: endDate, Valid: true},
	})
	if err != nil {
		log.Printf("ERROR: get daily sales: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]dailySalesResponse, len(rows))
	for i, row := range rows {
		date := "N/A"
		if row.SaleDate.Valid {
			date = row.SaleDate.Time.Format("2006-01-02")
		}
		resp[i] = dailySalesResponse{
			Date:        date,
			OrderCount:  row.OrderCount,
			RevenueKobo: row.RevenueKobo,
			Revenue:     formatNaira(row.RevenueKobo),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// ItemSales returns best sellers by quantity.
func (h *ReportsHandler) ItemSales(w http.ResponseWriter, r *http.Request) {
	startDate, endDate, err := parseDateRange(r, h.now())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	// Parse limit parameter
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}

	rows, err := h.store.GetItemSales(r.Context(), database.GetItemSalesParams{
		BusinessDate:   pgtype.Date{Time: startDate, Valid: true},
		BusinessDate_2: pgtype.Date{Time: endDate, Valid: true},
		Limit:          int32(limit),
	})
	if err != nil {
		log.Printf("ERROR: get item sales: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]itemSalesResponse, len(rows))
	for i, row := range rows {
		resp[i] = itemSalesResponse{
			ItemID:       row.ItemID,
			ItemName:     row.ItemName,
			QuantitySold: row.QuantitySold,
			RevenueKobo:  row.RevenueKobo,
			Revenue:      formatNaira(row.RevenueKobo),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// PaymentSummary breaks payments down by method and outcome.
func (h *ReportsHandler) PaymentSummary(w http.ResponseWriter, r *http.Request) {
	startDate, endDate, err := parseDateRange(r, h.now())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	rows, err := h.store.GetPaymentSummary(r.Context(), database.GetPaymentSummaryParams{
		CreatedAt:   startDate,
		CreatedAt_2: endDate,
	})
	if err != nil {
		log.Printf("ERROR: get payment summary: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]paymentSummaryResponse, len(rows))
	for i, row := range rows {
		resp[i] = paymentSummaryResponse{
			Method:           string(row.Method),
			Status:           string(row.Status),
			TransactionCount: row.TransactionCount,
			AmountKobo:       row.AmountKobo,
			Amount:           formatNaira(row.AmountKobo),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

// parseDateRange parses start_date and end_date query params in Africa/Lagos time.
// Defaults to the last 7 days including today.
// Returns (startDate, endDate, error) where endDate is exclusive (next day midnight).
func parseDateRange(r *http.Request, now time.Time) (time.Time, time.Time, error) {
	const layout = "2006-01-02"

	loc, err := time.LoadLocation("Africa/Lagos")
	if err != nil {
		// Fallback to FixedZone if tzdata is missing
		loc = time.FixedZone("WAT", 1*3600)
	}

	now = now.In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	startDate := today.AddDate(0, 0, -6)
	endDate := today.AddDate(0, 0, 1)

	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.ParseInLocation(layout, s, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date format: %w", err)
		}
		startDate = t
	}

	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.ParseInLocation(layout, s, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date format: %w", err)
		}
		// Make end_date exclusive by adding 1 day
		endDate = t.AddDate(0, 0, 1)
	}

	if !startDate.Before(endDate) {
		return time.Time{}, time.Time{}, fmt.Errorf("start_date must be before end_date")
	}

	return startDate, endDate, nil
}
