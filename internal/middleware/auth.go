package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/eightam/preorder-api/internal/auth"
)

type contextKey string

const receiptKey contextKey = "receipt"

// RequireReceipt rejects requests without a valid receipt token in the
// Authorization header.
func RequireReceipt(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing authorization header"})
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid authorization format"})
				return
			}

			claims, err := auth.ValidateReceipt(secret, parts[1])
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid receipt"})
				return
			}

			ctx := context.WithValue(r.Context(), receiptKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireOrderCode checks that the receipt was issued for the order named by
// the {code} path parameter.
func RequireOrderCode(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ReceiptFromContext(r.Context())
		if claims == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
			return
		}

		code := r.PathValue("code")
		if code == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing order code"})
			return
		}

		if !strings.EqualFold(claims.ShortCode, code) {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "receipt is for a different order"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func ReceiptFromContext(ctx context.Context) *auth.ReceiptClaims {
	claims, _ := ctx.Value(receiptKey).(*auth.ReceiptClaims)
	return claims
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
