package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const paymentColumns = `id, order_id, method, status, provider_ref, amount_kobo, confirmed_at, created_at`

func scanPayment(row interface{ Scan(...interface{}) error }) (Payment, error) {
	var p Payment
	err := row.Scan(
		&p.ID,
		&p.OrderID,
		&p.Method,
		&p.Status,
		&p.ProviderRef,
		&p.AmountKobo,
		&p.ConfirmedAt,
		&p.CreatedAt,
	)
	return p, err
}

const createPayment = `-- name: CreatePayment :one
INSERT INTO payments (order_id, method, status, provider_ref, amount_kobo, confirmed_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + paymentColumns + `
`

type CreatePaymentParams struct {
	OrderID     uuid.UUID          `json:"order_id"`
	Method      PaymentMethod      `json:"method"`
	Status      PaymentStatus      `json:"status"`
	ProviderRef pgtype.Text        `json:"provider_ref"`
	AmountKobo  int64              `json:"amount_kobo"`
	ConfirmedAt pgtype.Timestamptz `json:"confirmed_at"`
}

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	row := q.db.QueryRow(ctx, createPayment,
		arg.OrderID,
		arg.Method,
		arg.Status,
		arg.ProviderRef,
		arg.AmountKobo,
		arg.ConfirmedAt,
	)
	return scanPayment(row)
}

const listPaymentsByOrder = `-- name: ListPaymentsByOrder :many
SELECT ` + paymentColumns + ` FROM payments
WHERE order_id = $1
ORDER BY created_at ASC
`

func (q *Queries) ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]Payment, error) {
	rows, err := q.db.Query(ctx, listPaymentsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
