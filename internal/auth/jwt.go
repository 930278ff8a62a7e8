package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ReceiptTTL is how long a customer can act on an order after placing it.
const ReceiptTTL = 24 * time.Hour

// ReceiptClaims is handed to the customer who placed an order. Holding it is
// what lets them cancel the order; everything else about an order is public
// by short code.
type ReceiptClaims struct {
	OrderID   uuid.UUID `json:"order_id"`
	ShortCode string    `json:"short_code"`
	jwt.RegisteredClaims
}

func GenerateReceipt(secret string, orderID uuid.UUID, shortCode string) (string, error) {
	now := time.Now()
	claims := ReceiptClaims{
		OrderID:   orderID,
		ShortCode: shortCode,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   orderID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ReceiptTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ValidateReceipt(secret, tokenStr string) (*ReceiptClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &ReceiptClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*ReceiptClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.OrderID == uuid.Nil || claims.ShortCode == "" {
		return nil, fmt.Errorf("receipt is missing the order")
	}
	return claims, nil
}
