package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eightam/preorder-api/internal/database"
	"github.com/eightam/preorder-api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// ConfirmPaymentRequest is the outcome reported by the payment step.
type ConfirmPaymentRequest struct {
	OrderID     string
	Success     bool
	ProviderRef string
}

// PaymentResult is the order after confirmation plus the recorded payment.
type PaymentResult struct {
	OrderResult
	Payment database.Payment
}

// ConfirmPayment records a payment attempt. A failed attempt leaves the order
// untouched so the customer can retry. A successful one moves a PENDING order
// to PAID, stamps paid_at and est_ready_at, and reserves stock for online
// orders, all in one transaction. Orders that are already PAID or further
// along only gain a payment row.
func (s *OrderService) ConfirmPayment(ctx context.Context, req ConfirmPaymentRequest) (*PaymentResult, error) {
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return nil, ErrInvalidOrderID
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// Lock the order row so concurrent confirmations serialize.
	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	lines, err := store.ListOrderLines(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order lines: %w", err)
	}

	result := &PaymentResult{OrderResult: OrderResult{Order: order, Lines: lines}}
	providerRef := strings.TrimSpace(req.ProviderRef)
	eventType := ""

	if !req.Success {
		payment, err := store.CreatePayment(ctx, database.CreatePaymentParams{
			OrderID:     order.ID,
			Method:      order.PaymentMethod,
			Status:      database.PaymentStatusFAILED,
			ProviderRef: optionalText(providerRef),
			AmountKobo:  order.TotalKobo,
		})
		if err != nil {
			return nil, fmt.Errorf("create payment: %w", err)
		}
		result.Payment = payment
		eventType = enum.EventPaymentFailed
	} else {
		updated, payment, changed, err := s.markPaid(ctx, store, order, lines, order.PaymentMethod, providerRef)
		if err != nil {
			return nil, err
		}
		result.Order = updated
		result.Payment = payment
		if changed {
			eventType = enum.EventOrderPaid
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	if eventType != "" {
		s.publish(ctx, eventType, result.Order)
	}
	return result, nil
}

// markPaid records a successful payment and, for a PENDING order, moves it to
// PAID. changed is false when the order was already paid. store must be bound
// to the caller's transaction and the order row must be locked.
func (s *OrderService) markPaid(
	ctx context.Context,
	store OrderStore,
	order database.Order,
	lines []database.ListOrderLinesRow,
	method database.PaymentMethod,
	providerRef string,
) (database.Order, database.Payment, bool, error) {
	now := s.now()

	switch EffectiveStatus(order, now) {
	case database.OrderStatusPENDING:
		// handled below
	case database.OrderStatusPAID,
		database.OrderStatusPREPARING,
		database.OrderStatusREADY,
		database.OrderStatusPICKEDUP:
		payment, err := s.recordSuccess(ctx, store, order, method, providerRef, now)
		return order, payment, false, err
	default:
		return database.Order{}, database.Payment{}, false,
			fmt.Errorf("%w: order is %s", ErrOrderNotPayable, EffectiveStatus(order, now))
	}

	// The order is still PENDING, so the backlog does not include it yet.
	wait, err := s.estimator.EstimateWait(ctx, store, prepLines(lines))
	if err != nil {
		return database.Order{}, database.Payment{}, false, err
	}

	params, err := transition(order, database.OrderStatusPAID, now)
	if err != nil {
		return database.Order{}, database.Payment{}, false, err
	}
	params.EstReadyAt = pgtype.Timestamptz{Time: now.Add(time.Duration(wait) * time.Second), Valid: true}

	payment, err := s.recordSuccess(ctx, store, order, method, providerRef, now)
	if err != nil {
		return database.Order{}, database.Payment{}, false, err
	}

	updated, err := store.UpdateOrderStatus(ctx, params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, database.Payment{}, false, ErrStatusChanged
		}
		return database.Order{}, database.Payment{}, false, fmt.Errorf("update order status: %w", err)
	}

	// Pay-on-pickup stock was already held at creation.
	if order.PaymentMethod == database.PaymentMethodONLINE {
		if err := s.ledger.Reserve(ctx, store, stockLines(lines)); err != nil {
			return database.Order{}, database.Payment{}, false, err
		}
	}

	return updated, payment, true, nil
}

func (s *OrderService) recordSuccess(
	ctx context.Context,
	store OrderStore,
	order database.Order,
	method database.PaymentMethod,
	providerRef string,
	now time.Time,
) (database.Payment, error) {
	payment, err := store.CreatePayment(ctx, database.CreatePaymentParams{
		OrderID:     order.ID,
		Method:      method,
		Status:      database.PaymentStatusSUCCESS,
		ProviderRef: optionalText(providerRef),
		AmountKobo:  order.TotalKobo,
		ConfirmedAt: pgtype.Timestamptz{Time: now, Valid: true},
	})
	if err != nil {
		return database.Payment{}, fmt.Errorf("create payment: %w", err)
	}
	return payment, nil
}

func optionalText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
