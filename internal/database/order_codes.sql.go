package database

import "context"

const nextOrderCode = `-- name: NextOrderCode :one
UPDATE order_code_counter
SET value = (value + 1) % $1
WHERE id = TRUE
RETURNING value
`

// NextOrderCode advances the persisted counter modulo the given range.
// Run it on the pool, not inside the order transaction: a rolled-back insert
// must not hand the same value out again.
func (q *Queries) NextOrderCode(ctx context.Context, modulo int32) (int32, error) {
	row := q.db.QueryRow(ctx, nextOrderCode, modulo)
	var value int32
	err := row.Scan(&value)
	return value, err
}

const resetOrderCode = `-- name: ResetOrderCode :exec
UPDATE order_code_counter
SET value = 0
WHERE id = TRUE
`

func (q *Queries) ResetOrderCode(ctx context.Context) error {
	_, err := q.db.Exec(ctx, resetOrderCode)
	return err
}
