package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/eightam/preorder-api/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// StockStore is the slice of the store the ledger needs.
// Satisfied by *database.Queries.
type StockStore interface {
	GetItem(ctx context.Context, id uuid.UUID) (database.Item, error)
	ReserveItemStock(ctx context.Context, arg database.ReserveItemStockParams) (database.Item, error)
}

// StockLine is a quantity of one item to take from today's stock.
type StockLine struct {
	ItemID   uuid.UUID
	Quantity int32
}

// Ledger tracks remaining-today quantities. There is no restock here; the
// daily reset runs outside the request path.
type Ledger struct{}

// CheckAvailability reports whether the item exists, is on the menu and has
// at least qty units left.
func (Ledger) CheckAvailability(ctx context.Context, store StockStore, itemID uuid.UUID, qty int32) (bool, error) {
	item, err := store.GetItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("get item: %w", err)
	}
	return item.IsAvailable && item.RemainingToday >= qty, nil
}

// Reserve decrements stock for every line. Each decrement re-checks the
// remaining quantity in the same statement. store must be bound to a
// transaction: a failed line leaves earlier decrements for the caller's
// rollback to undo.
func (Ledger) Reserve(ctx context.Context, store StockStore, lines []StockLine) error {
	for _, l := range mergeStockLines(lines) {
		_, err := store.ReserveItemStock(ctx, database.ReserveItemStockParams{
			ID:       l.ItemID,
			Quantity: l.Quantity,
		})
		if err == nil {
			continue
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("reserve item %s: %w", l.ItemID, err)
		}

		item, getErr := store.GetItem(ctx, l.ItemID)
		if getErr != nil {
			if errors.Is(getErr, pgx.ErrNoRows) {
				return &ItemError{ItemID: l.ItemID, Err: ErrItemNotFound}
			}
			return fmt.Errorf("get item %s: %w", l.ItemID, getErr)
		}
		return &ItemError{ItemID: item.ID, Name: item.Name, Err: ErrInsufficientStock}
	}
	return nil
}

// mergeStockLines sums quantities per item and orders by item ID so
// concurrent reservations lock item rows in the same order.
func mergeStockLines(lines []StockLine) []StockLine {
	totals := make(map[uuid.UUID]int32, len(lines))
	for _, l := range lines {
		totals[l.ItemID] += l.Quantity
	}

	merged := make([]StockLine, 0, len(totals))
	for id, qty := range totals {
		merged = append(merged, StockLine{ItemID: id, Quantity: qty})
	}
	sort.Slice(merged, func(i, j int) bool {
		return bytes.Compare(merged[i].ItemID[:], merged[j].ItemID[:]) < 0
	})
	return merged
}
