package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/eightam/preorder-api/internal/service"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

// writeServiceError maps service errors to status codes. Unknown errors are
// logged and hidden behind a 500.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorBody(err))
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(err))
	case errors.Is(err, service.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody(err))
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

// errorBody adds the offending item, when there is one, so clients can point
// at the right line.
func errorBody(err error) map[string]string {
	body := map[string]string{"error": err.Error()}
	var itemErr *service.ItemError
	if errors.As(err, &itemErr) {
		body["item_id"] = itemErr.ItemID.String()
		if itemErr.Name != "" {
			body["item_name"] = itemErr.Name
		}
	}
	return body
}

// formatNaira renders kobo as a fixed two-decimal naira amount, e.g. 30000 → "300.00".
func formatNaira(kobo int64) string {
	return decimal.New(kobo, -2).StringFixed(2)
}

func timestamptzPtr(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}
