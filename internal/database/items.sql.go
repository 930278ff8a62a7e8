package database

import (
	"context"

	"github.com/google/uuid"
)

const itemColumns = `id, name, price_kobo, prep_time_sec, daily_quantity, remaining_today, is_available, created_at, updated_at`

func scanItem(row interface{ Scan(...interface{}) error }) (Item, error) {
	var i Item
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.PriceKobo,
		&i.PrepTimeSec,
		&i.DailyQuantity,
		&i.RemainingToday,
		&i.IsAvailable,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listMenuItems = `-- name: ListMenuItems :many
SELECT ` + itemColumns + ` FROM items
WHERE is_available = TRUE AND remaining_today > 0
ORDER BY name ASC
`

func (q *Queries) ListMenuItems(ctx context.Context) ([]Item, error) {
	rows, err := q.db.Query(ctx, listMenuItems)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Item{}
	for rows.Next() {
		i, err := scanItem(rows)
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

const getItem = `-- name: GetItem :one
SELECT ` + itemColumns + ` FROM items
WHERE id = $1
`

func (q *Queries) GetItem(ctx context.Context, id uuid.UUID) (Item, error) {
	row := q.db.QueryRow(ctx, getItem, id)
	return scanItem(row)
}

const getItemsByIDs = `-- name: GetItemsByIDs :many
SELECT ` + itemColumns + ` FROM items
WHERE id = ANY($1::uuid[])
`

func (q *Queries) GetItemsByIDs(ctx context.Context, ids []uuid.UUID) ([]Item, error) {
	rows, err := q.db.Query(ctx, getItemsByIDs, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Item{}
	for rows.Next() {
		i, err := scanItem(rows)
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

const reserveItemStock = `-- name: ReserveItemStock :one
UPDATE items
SET remaining_today = remaining_today - $2, updated_at = now()
WHERE id = $1 AND remaining_today >= $2
RETURNING ` + itemColumns + `
`

type ReserveItemStockParams struct {
	ID       uuid.UUID `json:"id"`
	Quantity int32     `json:"quantity"`
}

// ReserveItemStock returns pgx.ErrNoRows when the item is missing or holds
// fewer than Quantity units.
func (q *Queries) ReserveItemStock(ctx context.Context, arg ReserveItemStockParams) (Item, error) {
	row := q.db.QueryRow(ctx, reserveItemStock, arg.ID, arg.Quantity)
	return scanItem(row)
}

const upsertItem = `-- name: UpsertItem :one
INSERT INTO items (name, price_kobo, prep_time_sec, daily_quantity, remaining_today, is_available)
VALUES ($1, $2, $3, $4, $4, $5)
ON CONFLICT (name) DO UPDATE
SET price_kobo = EXCLUDED.price_kobo,
    prep_time_sec = EXCLUDED.prep_time_sec,
    daily_quantity = EXCLUDED.daily_quantity,
    remaining_today = EXCLUDED.remaining_today,
    is_available = EXCLUDED.is_available,
    updated_at = now()
RETURNING ` + itemColumns + `
`

type UpsertItemParams struct {
	Name          string `json:"name"`
	PriceKobo     int64  `json:"price_kobo"`
	PrepTimeSec   int32  `json:"prep_time_sec"`
	DailyQuantity int32  `json:"daily_quantity"`
	IsAvailable   bool   `json:"is_available"`
}

func (q *Queries) UpsertItem(ctx context.Context, arg UpsertItemParams) (Item, error) {
	row := q.db.QueryRow(ctx, upsertItem,
		arg.Name,
		arg.PriceKobo,
		arg.PrepTimeSec,
		arg.DailyQuantity,
		arg.IsAvailable,
	)
	return scanItem(row)
}

const resetDailyStock = `-- name: ResetDailyStock :execrows
UPDATE items
SET remaining_today = daily_quantity, updated_at = now()
WHERE remaining_today <> daily_quantity
`

func (q *Queries) ResetDailyStock(ctx context.Context) (int64, error) {
	result, err := q.db.Exec(ctx, resetDailyStock)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const listItems = `-- name: ListItems :many
SELECT ` + itemColumns + ` FROM items
ORDER BY name ASC
`

func (q *Queries) ListItems(ctx context.Context) ([]Item, error) {
	rows, err := q.db.Query(ctx, listItems)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Item{}
	for rows.Next() {
		i, err := scanItem(rows)
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

const updateItem = `-- name: UpdateItem :one
UPDATE items
SET price_kobo = $2,
    prep_time_sec = $3,
    remaining_today = GREATEST(0, LEAST($4, remaining_today + $4 - daily_quantity)),
    daily_quantity = $4,
    is_available = $5,
    updated_at = now()
WHERE id = $1
RETURNING ` + itemColumns + `
`

type UpdateItemParams struct {
	ID            uuid.UUID `json:"id"`
	PriceKobo     int64     `json:"price_kobo"`
	PrepTimeSec   int32     `json:"prep_time_sec"`
	DailyQuantity int32     `json:"daily_quantity"`
	IsAvailable   bool      `json:"is_available"`
}

// UpdateItem shifts remaining_today by the change in daily_quantity, clamped
// to [0, daily_quantity], so units already sold stay sold.
func (q *Queries) UpdateItem(ctx context.Context, arg UpdateItemParams) (Item, error) {
	row := q.db.QueryRow(ctx, updateItem,
		arg.ID,
		arg.PriceKobo,
		arg.PrepTimeSec,
		arg.DailyQuantity,
		arg.IsAvailable,
	)
	return scanItem(row)
}
