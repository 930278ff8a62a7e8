package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eightam/preorder-api/internal/database"
	"github.com/eightam/preorder-api/internal/enum"
	"github.com/google/uuid"
)

func placeOrder(t *testing.T, env *testEnv, method string, lines ...CreateOrderLine) database.Order {
	t.Helper()
	result, err := env.svc.CreateOrder(context.Background(), CreateOrderRequest{
		PaymentMethod: method,
		Lines:         lines,
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return result.Order
}

func TestConfirmPayment_InvalidOrderID(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.ConfirmPayment(context.Background(), ConfirmPaymentRequest{OrderID: "abc", Success: true})
	if !errors.Is(err, ErrInvalidOrderID) {
		t.Fatalf("expected ErrInvalidOrderID, got %v", err)
	}
}

func TestConfirmPayment_OrderNotFound(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.ConfirmPayment(context.Background(), ConfirmPaymentRequest{OrderID: uuid.NewString(), Success: true})
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestConfirmPayment_OnlineSuccess(t *testing.T) {
	env := newTestEnv()
	akara := env.db.addItem("Akara (5 pcs)", 30000, 240, 50)
	bread := env.db.addItem("Bread & Egg", 40000, 360, 40)
	order := placeOrder(t, env, "ONLINE", line(akara, 1), line(bread, 1))

	result, err := env.svc.ConfirmPayment(context.Background(), ConfirmPaymentRequest{
		OrderID:     order.ID.String(),
		Success:     true,
		ProviderRef: "PSK-123",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	o := result.Order
	if o.Status != database.OrderStatusPAID {
		t.Errorf("status = %s, want PAID", o.Status)
	}
	now := env.clock.Now()
	if !o.PaidAt.Valid || !o.PaidAt.Time.Equal(now) {
		t.Errorf("paid_at = %v, want %v", o.PaidAt, now)
	}
	// Empty kitchen: the wait is just this order's prep time.
	wantReady := now.Add(600 * time.Second)
	if !o.EstReadyAt.Valid || !o.EstReadyAt.Time.Equal(wantReady) {
		t.Errorf("est_ready_at = %v, want %v", o.EstReadyAt, wantReady)
	}

	if result.Payment.Status != database.PaymentStatusSUCCESS || result.Payment.ProviderRef.String != "PSK-123" {
		t.Errorf("payment = %+v", result.Payment)
	}
	if result.Payment.AmountKobo != 70000 {
		t.Errorf("payment amount = %d, want 70000", result.Payment.AmountKobo)
	}

	if got := env.db.item(akara.ID).RemainingToday; got != 49 {
		t.Errorf("akara remaining = %d, want 49", got)
	}
	if got := env.db.item(bread.ID).RemainingToday; got != 39 {
		t.Errorf("bread remaining = %d, want 39", got)
	}

	types := env.events.types()
	if len(types) != 2 || types[1] != enum.EventOrderPaid {
		t.Errorf("events = %v", types)
	}
}

func TestConfirmPayment_WaitIncludesBacklog(t *testing.T) {
	env := newTestEnv()
	akara := env.db.addItem("Akara (5 pcs)", 30000, 240, 50)
	bread := env.db.addItem("Bread & Egg", 40000, 360, 40)

	first := placeOrder(t, env, "ONLINE", line(akara, 1), line(bread, 1))
	if _, err := env.svc.ConfirmPayment(context.Background(), ConfirmPaymentRequest{OrderID: first.ID.String(), Success: true}); err != nil {
		t.Fatalf("confirm first: %v", err)
	}

	second := placeOrder(t, env, "ONLINE", line(akara, 1))
	result, err := env.svc.ConfirmPayment(context.Background(), ConfirmPaymentRequest{OrderID: second.ID.String(), Success: true})
	if err != nil {
		t.Fatalf("confirm second: %v", err)
	}

	// ceil(600 / 2) + 240
	want := env.clock.Now().Add(540 * time.Second)
	if !result.Order.EstReadyAt.Time.Equal(want) {
		t.Errorf("est_ready_at = %v, want %v", result.Order.EstReadyAt.Time, want)
	}
}

func TestConfirmPayment_FailureThenSuccess(t *testing.T) {
	env := newTestEnv()
	pap := env.db.addItem("Pap (cup)", 15000, 60, 60)
	order := placeOrder(t, env, "ONLINE", line(pap, 2))

	failed, err := env.svc.ConfirmPayment(context.Background(), ConfirmPaymentRequest{OrderID: order.ID.String()})
	if err != nil {
		t.Fatalf("failed payment: %v", err)
	}
	if failed.Order.Status != database.OrderStatusPENDING {
		t.Errorf("status after failure = %s, want PENDING", failed.Order.Status)
	}
	if failed.Payment.Status != database.PaymentStatusFAILED {
		t.Errorf("payment status = %s, want FAILED", failed.Payment.Status)
	}
	if got := env.db.item(pap.ID).RemainingToday; got != 60 {
		t.Errorf("remaining after failure = %d, want 60", got)
	}

	paid, err := env.svc.ConfirmPayment(context.Background(), ConfirmPaymentRequest{OrderID: order.ID.String(), Success: true})
	if err != nil {
		t.Fatalf("successful payment: %v", err)
	}
	if paid.Order.Status != database.OrderStatusPAID {
		t.Errorf("status = %s, want PAID", paid.Order.Status)
	}
	if got := len(env.db.paymentsFor(order.ID)); got != 2 {
		t.Errorf("payments = %d, want 2", got)
	}

	types := env.events.types()
	want := []string{enum.EventOrderCreated, enum.EventPaymentFailed, enum.EventOrderPaid}
	if len(types) != len(want) {
		t.Fatalf("events = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("events[%d] = %s, want %s", i, types[i], want[i])
		}
	}
}

func TestConfirmPayment_SecondSuccessKeepsPaidAt(t *testing.T) {
	env := newTestEnv()
	pap := env.db.addItem("Pap (cup)", 15000, 60, 60)
	order := placeOrder(t, env, "ONLINE", line(pap, 1))

	first, err := env.svc.ConfirmPayment(context.Background(), ConfirmPaymentRequest{OrderID: order.ID.String(), Success: true})
	if err != nil {
		t.Fatalf("first confirm: %v", err)
	}

	env.clock.Advance(3 * time.Minute)
	second, err := env.svc.ConfirmPayment(context.Background(), ConfirmPaymentRequest{OrderID: order.ID.String(), Success: true})
	if err != nil {
		t.Fatalf("second confirm: %v", err)
	}

	if !second.Order.PaidAt.Time.Equal(first.Order.PaidAt.Time) {
		t.Errorf("paid_at moved from %v to %v", first.Order.PaidAt.Time, second.Order.PaidAt.Time)
	}
	if !second.Order.EstReadyAt.Time.Equal(first.Order.EstReadyAt.Time) {
		t.Error("est_ready_at should not change")
	}
	// Stock is taken once.
	if got := env.db.item(pap.ID).RemainingToday; got != 59 {
		t.Errorf("remaining = %d, want 59", got)
	}
	if got := len(env.db.paymentsFor(order.ID)); got != 2 {
		t.Errorf("payments = %d, want 2", got)
	}
}

func TestConfirmPayment_InPersonDoesNotReserveTwice(t *testing.T) {
	env := newTestEnv()
	yam := env.db.addItem("Fried Yam (6 pcs)", 35000, 300, 35)
	order := placeOrder(t, env, "IN_PERSON", line(yam, 2))

	result, err := env.svc.ConfirmPayment(context.Background(), ConfirmPaymentRequest{OrderID: order.ID.String(), Success: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := env.db.item(yam.ID).RemainingToday; got != 33 {
		t.Errorf("remaining = %d, want 33", got)
	}
	if result.Order.ExpiresAt.Valid {
		t.Error("hold should be cleared once paid")
	}
}

func TestConfirmPayment_OnlineOutOfStock(t *testing.T) {
	env := newTestEnv()
	moimoi := env.db.addItem("Moi Moi (wrap)", 25000, 120, 1)
	first := placeOrder(t, env, "ONLINE", line(moimoi, 1))
	second := placeOrder(t, env, "ONLINE", line(moimoi, 1))

	if _, err := env.svc.ConfirmPayment(context.Background(), ConfirmPaymentRequest{OrderID: first.ID.String(), Success: true}); err != nil {
		t.Fatalf("confirm first: %v", err)
	}

	_, err := env.svc.ConfirmPayment(context.Background(), ConfirmPaymentRequest{OrderID: second.ID.String(), Success: true})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if got := env.db.order(second.ID).Status; got != database.OrderStatusPENDING {
		t.Errorf("status = %s, want PENDING after rollback", got)
	}
	if got := len(env.db.paymentsFor(second.ID)); got != 0 {
		t.Errorf("payments = %d, want 0 after rollback", got)
	}
}

func TestConfirmPayment_ExpiredOrder(t *testing.T) {
	env := newTestEnv()
	pap := env.db.addItem("Pap (cup)", 15000, 60, 60)
	order := placeOrder(t, env, "IN_PERSON", line(pap, 1))

	env.clock.Advance(DefaultPayOnPickupHold)
	_, err := env.svc.ConfirmPayment(context.Background(), ConfirmPaymentRequest{OrderID: order.ID.String(), Success: true})
	if !errors.Is(err, ErrOrderNotPayable) {
		t.Fatalf("expected ErrOrderNotPayable, got %v", err)
	}
	if got := len(env.db.paymentsFor(order.ID)); got != 0 {
		t.Errorf("payments = %d, want 0", got)
	}
}

func TestConfirmPayment_CancelledOrder(t *testing.T) {
	env := newTestEnv()
	pap := env.db.addItem("Pap (cup)", 15000, 60, 60)
	order := placeOrder(t, env, "ONLINE", line(pap, 1))

	if _, err := env.svc.CancelOrder(context.Background(), order.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	_, err := env.svc.ConfirmPayment(context.Background(), ConfirmPaymentRequest{OrderID: order.ID.String(), Success: true})
	if !errors.Is(err, ErrOrderNotPayable) {
		t.Fatalf("expected ErrOrderNotPayable, got %v", err)
	}
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict category, got %v", err)
	}
}

func TestConfirmPayment_CommitError(t *testing.T) {
	env := newTestEnv()
	pap := env.db.addItem("Pap (cup)", 15000, 60, 60)
	order := placeOrder(t, env, "ONLINE", line(pap, 1))
	env.db.commitErr = errors.New("connection reset")

	_, err := env.svc.ConfirmPayment(context.Background(), ConfirmPaymentRequest{OrderID: order.ID.String(), Success: true})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(env.events.types()) != 1 {
		t.Errorf("events = %v, want only order.created", env.events.types())
	}
}
