package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/eightam/preorder-api/internal/database"
	"github.com/eightam/preorder-api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AdvanceStatus moves the order with the given short code one step along
// PENDING → PAID → PREPARING → READY → PICKED_UP. target must be exactly the
// next step. Advancing to PAID is a payment taken at the counter and goes
// through the same path as ConfirmPayment.
func (s *OrderService) AdvanceStatus(ctx context.Context, code, target string) (*OrderResult, error) {
	to := database.OrderStatus(strings.ToUpper(strings.TrimSpace(target)))
	if !IsKnownStatus(to) {
		return nil, ErrInvalidStatus
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderByCodeForUpdate(ctx, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	current := EffectiveStatus(order, s.now())
	if next, ok := NextStatus(current); !ok || next != to {
		return nil, fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, current, to)
	}

	lines, err := store.ListOrderLines(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order lines: %w", err)
	}

	var updated database.Order
	eventType := enum.EventOrderUpdated
	if to == database.OrderStatusPAID {
		updated, _, _, err = s.markPaid(ctx, store, order, lines, database.PaymentMethodINPERSON, "")
		if err != nil {
			return nil, err
		}
		eventType = enum.EventOrderPaid
	} else {
		params, err := transition(order, to, s.now())
		if err != nil {
			return nil, err
		}
		updated, err = store.UpdateOrderStatus(ctx, params)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrStatusChanged
			}
			return nil, fmt.Errorf("update order status: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	s.publish(ctx, eventType, updated)
	return &OrderResult{Order: updated, Lines: lines}, nil
}

// CancelOrder cancels a PENDING order. Expired or already-progressed orders
// are rejected with ErrInvalidTransition. Held stock is not returned.
func (s *OrderService) CancelOrder(ctx context.Context, orderID uuid.UUID) (*OrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	params, err := transition(order, database.OrderStatusCANCELLED, s.now())
	if err != nil {
		return nil, err
	}

	updated, err := store.UpdateOrderStatus(ctx, params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStatusChanged
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}

	lines, err := store.ListOrderLines(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order lines: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	s.publish(ctx, enum.EventOrderCancelled, updated)
	return &OrderResult{Order: updated, Lines: lines}, nil
}
