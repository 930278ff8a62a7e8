package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, short_code, status, payment_method, phone, total_kobo, created_at, paid_at, ready_at, picked_up_at, est_ready_at, expires_at, updated_at`

func scanOrder(row interface{ Scan(...interface{}) error }) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID,
		&o.ShortCode,
		&o.Status,
		&o.PaymentMethod,
		&o.Phone,
		&o.TotalKobo,
		&o.CreatedAt,
		&o.PaidAt,
		&o.ReadyAt,
		&o.PickedUpAt,
		&o.EstReadyAt,
		&o.ExpiresAt,
		&o.UpdatedAt,
	)
	return o, err
}

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (short_code, status, payment_method, phone, total_kobo, expires_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + orderColumns + `
`

type CreateOrderParams struct {
	ShortCode     string             `json:"short_code"`
	Status        OrderStatus        `json:"status"`
	PaymentMethod PaymentMethod      `json:"payment_method"`
	Phone         pgtype.Text        `json:"phone"`
	TotalKobo     int64              `json:"total_kobo"`
	ExpiresAt     pgtype.Timestamptz `json:"expires_at"`
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.ShortCode,
		arg.Status,
		arg.PaymentMethod,
		arg.Phone,
		arg.TotalKobo,
		arg.ExpiresAt,
	)
	return scanOrder(row)
}

const createOrderItem = `-- name: CreateOrderItem :one
INSERT INTO order_items (order_id, item_id, quantity, unit_price_kobo)
VALUES ($1, $2, $3, $4)
RETURNING id, order_id, item_id, quantity, unit_price_kobo
`

type CreateOrderItemParams struct {
	OrderID       uuid.UUID `json:"order_id"`
	ItemID        uuid.UUID `json:"item_id"`
	Quantity      int32     `json:"quantity"`
	UnitPriceKobo int64     `json:"unit_price_kobo"`
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID,
		arg.ItemID,
		arg.Quantity,
		arg.UnitPriceKobo,
	)
	var i OrderItem
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.ItemID,
		&i.Quantity,
		&i.UnitPriceKobo,
	)
	return i, err
}

const getOrder = `-- name: GetOrder :one
SELECT ` + orderColumns + ` FROM orders
WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, getOrder, id)
	return scanOrder(row)
}

const getOrderForUpdate = `-- name: GetOrderForUpdate :one
SELECT ` + orderColumns + ` FROM orders
WHERE id = $1
FOR UPDATE
`

func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, getOrderForUpdate, id)
	return scanOrder(row)
}

// Codes repeat across days, so lookups resolve to the most recent order.
const getOrderByCode = `-- name: GetOrderByCode :one
SELECT ` + orderColumns + ` FROM orders
WHERE short_code = $1
ORDER BY created_at DESC
LIMIT 1
`

func (q *Queries) GetOrderByCode(ctx context.Context, shortCode string) (Order, error) {
	row := q.db.QueryRow(ctx, getOrderByCode, shortCode)
	return scanOrder(row)
}

const getOrderByCodeForUpdate = `-- name: GetOrderByCodeForUpdate :one
SELECT ` + orderColumns + ` FROM orders
WHERE short_code = $1
ORDER BY created_at DESC
LIMIT 1
FOR UPDATE
`

func (q *Queries) GetOrderByCodeForUpdate(ctx context.Context, shortCode string) (Order, error) {
	row := q.db.QueryRow(ctx, getOrderByCodeForUpdate, shortCode)
	return scanOrder(row)
}

const listOrderLines = `-- name: ListOrderLines :many
SELECT oi.id, oi.order_id, oi.item_id, oi.quantity, oi.unit_price_kobo, i.name, i.prep_time_sec
FROM order_items oi
JOIN items i ON i.id = oi.item_id
WHERE oi.order_id = $1
ORDER BY i.name ASC
`

type ListOrderLinesRow struct {
	ID            uuid.UUID `json:"id"`
	OrderID       uuid.UUID `json:"order_id"`
	ItemID        uuid.UUID `json:"item_id"`
	Quantity      int32     `json:"quantity"`
	UnitPriceKobo int64     `json:"unit_price_kobo"`
	ItemName      string    `json:"item_name"`
	PrepTimeSec   int32     `json:"prep_time_sec"`
}

func scanOrderLine(row interface{ Scan(...interface{}) error }) (ListOrderLinesRow, error) {
	var i ListOrderLinesRow
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.ItemID,
		&i.Quantity,
		&i.UnitPriceKobo,
		&i.ItemName,
		&i.PrepTimeSec,
	)
	return i, err
}

func (q *Queries) ListOrderLines(ctx context.Context, orderID uuid.UUID) ([]ListOrderLinesRow, error) {
	rows, err := q.db.Query(ctx, listOrderLines, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListOrderLinesRow{}
	for rows.Next() {
		i, err := scanOrderLine(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listLinesForOrders = `-- name: ListLinesForOrders :many
SELECT oi.id, oi.order_id, oi.item_id, oi.quantity, oi.unit_price_kobo, i.name, i.prep_time_sec
FROM order_items oi
JOIN items i ON i.id = oi.item_id
WHERE oi.order_id = ANY($1::uuid[])
ORDER BY oi.order_id, i.name ASC
`

func (q *Queries) ListLinesForOrders(ctx context.Context, orderIDs []uuid.UUID) ([]ListOrderLinesRow, error) {
	rows, err := q.db.Query(ctx, listLinesForOrders, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListOrderLinesRow{}
	for rows.Next() {
		i, err := scanOrderLine(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Expired pay-on-pickup orders are still stored as PENDING; they are
// filtered out here by comparing expires_at with $1.
const listActiveOrders = `-- name: ListActiveOrders :many
SELECT ` + orderColumns + ` FROM orders
WHERE status IN ('PENDING', 'PAID', 'PREPARING', 'READY')
  AND (expires_at IS NULL OR expires_at > $1 OR status <> 'PENDING')
ORDER BY created_at ASC
`

func (q *Queries) ListActiveOrders(ctx context.Context, now pgtype.Timestamptz) ([]Order, error) {
	rows, err := q.db.Query(ctx, listActiveOrders, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const sumActivePrepTime = `-- name: SumActivePrepTime :one
SELECT COALESCE(SUM(i.prep_time_sec::bigint * oi.quantity), 0)::bigint
FROM orders o
JOIN order_items oi ON oi.order_id = o.id
JOIN items i ON i.id = oi.item_id
WHERE o.status IN ('PAID', 'PREPARING')
`

// SumActivePrepTime totals prep seconds × quantity over every PAID or
// PREPARING order.
func (q *Queries) SumActivePrepTime(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, sumActivePrepTime)
	var total int64
	err := row.Scan(&total)
	return total, err
}

const updateOrderStatus = `-- name: UpdateOrderStatus :one
UPDATE orders
SET status = $2,
    paid_at = $4,
    ready_at = $5,
    picked_up_at = $6,
    est_ready_at = $7,
    expires_at = $8,
    updated_at = now()
WHERE id = $1 AND status = $3
RETURNING ` + orderColumns + `
`

type UpdateOrderStatusParams struct {
	ID         uuid.UUID          `json:"id"`
	Status     OrderStatus        `json:"status"`
	FromStatus OrderStatus        `json:"from_status"`
	PaidAt     pgtype.Timestamptz `json:"paid_at"`
	ReadyAt    pgtype.Timestamptz `json:"ready_at"`
	PickedUpAt pgtype.Timestamptz `json:"picked_up_at"`
	EstReadyAt pgtype.Timestamptz `json:"est_ready_at"`
	ExpiresAt  pgtype.Timestamptz `json:"expires_at"`
}

// UpdateOrderStatus only matches while the row is still in FromStatus and
// returns pgx.ErrNoRows otherwise.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderStatus,
		arg.ID,
		arg.Status,
		arg.FromStatus,
		arg.PaidAt,
		arg.ReadyAt,
		arg.PickedUpAt,
		arg.EstReadyAt,
		arg.ExpiresAt,
	)
	return scanOrder(row)
}
