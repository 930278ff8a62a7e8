package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const getDailySales = `-- name: GetDailySales :many
SELECT business_date AS sale_date,
       COUNT(*) AS order_count,
       COALESCE(SUM(total_kobo), 0)::bigint AS revenue_kobo
FROM orders
WHERE paid_at IS NOT NULL
  AND business_date >= $1 AND business_date < $2
GROUP BY business_date
ORDER BY business_date ASC
`

type GetDailySalesParams struct {
	BusinessDate   pgtype.Date `json:"business_date"`
	BusinessDate_2 pgtype.Date `json:"business_date_2"`
}

type GetDailySalesRow struct {
	SaleDate    pgtype.Date `json:"sale_date"`
	OrderCount  int64       `json:"order_count"`
	RevenueKobo int64       `json:"revenue_kobo"`
}

func (q *Queries) GetDailySales(ctx context.Context, arg GetDailySalesParams) ([]GetDailySalesRow, error) {
	rows, err := q.db.Query(ctx, getDailySales, arg.BusinessDate, arg.BusinessDate_2)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []GetDailySalesRow{}
	for rows.Next() {
		var i GetDailySalesRow
		if err := rows.Scan(&i.SaleDate, &i.OrderCount, &i.RevenueKobo); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getItemSales = `-- name: GetItemSales :many
SELECT oi.item_id,
       i.name AS item_name,
       COALESCE(SUM(oi.quantity), 0)::bigint AS quantity_sold,
       COALESCE(SUM(oi.quantity * oi.unit_price_kobo), 0)::bigint AS revenue_kobo
FROM order_items oi
JOIN orders o ON o.id = oi.order_id
JOIN items i ON i.id = oi.item_id
WHERE o.paid_at IS NOT NULL
  AND o.business_date >= $1 AND o.business_date < $2
GROUP BY oi.item_id, i.name
ORDER BY quantity_sold DESC, i.name ASC
LIMIT $3
`

type GetItemSalesParams struct {
	BusinessDate   pgtype.Date `json:"business_date"`
	BusinessDate_2 pgtype.Date `json:"business_date_2"`
	Limit          int32       `json:"limit"`
}

type GetItemSalesRow struct {
	ItemID       uuid.UUID `json:"item_id"`
	ItemName     string    `json:"item_name"`
	QuantitySold int64     `json:"quantity_sold"`
	RevenueKobo  int64     `json:"revenue_kobo"`
}

func (q *Queries) GetItemSales(ctx context.Context, arg GetItemSalesParams) ([]GetItemSalesRow, error) {
	rows, err := q.db.Query(ctx, getItemSales, arg.BusinessDate, arg.BusinessDate_2, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []GetItemSalesRow{}
	for rows.Next() {
		var i GetItemSalesRow
		if err := rows.Scan(&i.ItemID, &i.ItemName, &i.QuantitySold, &i.RevenueKobo); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getPaymentSummary = `-- name: GetPaymentSummary :many
SELECT method,
       status,
       COUNT(*) AS transaction_count,
       COALESCE(SUM(amount_kobo), 0)::bigint AS amount_kobo
FROM payments
WHERE created_at >= $1 AND created_at < $2
GROUP BY method, status
ORDER BY method ASC, status DESC
`

type GetPaymentSummaryParams struct {
	CreatedAt   time.Time `json:"created_at"`
	CreatedAt_2 time.Time `json:"created_at_2"`
}

type GetPaymentSummaryRow struct {
	Method           PaymentMethod `json:"method"`
	Status           PaymentStatus `json:"status"`
	TransactionCount int64         `json:"transaction_count"`
	AmountKobo       int64         `json:"amount_kobo"`
}

func (q *Queries) GetPaymentSummary(ctx context.Context, arg GetPaymentSummaryParams) ([]GetPaymentSummaryRow, error) {
	rows, err := q.db.Query(ctx, getPaymentSummary, arg.CreatedAt, arg.CreatedAt_2)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []GetPaymentSummaryRow{}
	for rows.Next() {
		var i GetPaymentSummaryRow
		if err := rows.Scan(&i.Method, &i.Status, &i.TransactionCount, &i.AmountKobo); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
