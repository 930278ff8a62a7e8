package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/eightam/preorder-api/internal/database"
	"github.com/eightam/preorder-api/internal/enum"
	"github.com/eightam/preorder-api/internal/notify"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

const (
	maxPhoneLength = 32

	// DefaultPayOnPickupHold is how long IN_PERSON orders hold their stock.
	DefaultPayOnPickupHold = 15 * time.Minute
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to create and move orders.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	PrepTimeStore
	StockStore
	GetItemsByIDs(ctx context.Context, ids []uuid.UUID) ([]database.Item, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetOrderByCodeForUpdate(ctx context.Context, shortCode string) (database.Order, error)
	ListOrderLines(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderLinesRow, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// OrderServiceConfig carries the tunables and collaborators of OrderService.
// Zero values fall back to defaults.
type OrderServiceConfig struct {
	Codes           *CodeGenerator
	// Sequence backs Codes outside the order transaction. Defaults to
	// database.New(pool) when the pool can run queries itself.
	Sequence        CodeStore
	Estimator       *WaitEstimator
	Events          notify.Publisher
	PayOnPickupHold time.Duration
	Now             func() time.Time
}

// OrderService handles order business logic. Every mutation runs in a single
// transaction; events are published only after commit.
type OrderService struct {
	pool      TxBeginner
	newStore  NewOrderStore
	codes     *CodeGenerator
	sequence  CodeStore
	estimator *WaitEstimator
	ledger    Ledger
	events    notify.Publisher
	hold      time.Duration
	now       func() time.Time
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore, cfg OrderServiceConfig) *OrderService {
	s := &OrderService{
		pool:      pool,
		newStore:  newStore,
		codes:     cfg.Codes,
		sequence:  cfg.Sequence,
		estimator: cfg.Estimator,
		events:    cfg.Events,
		hold:      cfg.PayOnPickupHold,
		now:       cfg.Now,
	}
	if s.codes == nil {
		s.codes = NewCodeGenerator(DefaultCodePrefix, DefaultCodeRange)
	}
	if s.sequence == nil {
		if db, ok := pool.(database.DBTX); ok {
			s.sequence = database.New(db)
		}
	}
	if s.estimator == nil {
		s.estimator = NewWaitEstimator(DefaultKitchenParallelism)
	}
	if s.events == nil {
		s.events = notify.Discard{}
	}
	if s.hold <= 0 {
		s.hold = DefaultPayOnPickupHold
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// CreateOrderRequest is the input for placing an order.
type CreateOrderRequest struct {
	PaymentMethod string
	Phone         string
	Lines         []CreateOrderLine
}

// CreateOrderLine is a single menu item and quantity.
type CreateOrderLine struct {
	ItemID   string
	Quantity int32
}

// OrderResult is an order with its lines.
type OrderResult struct {
	Order database.Order
	Lines []database.ListOrderLinesRow
}

type parsedLine struct {
	itemID   uuid.UUID
	quantity int32
}

// CreateOrder validates the lines against today's stock, snapshots prices and
// creates a PENDING order. Pay-on-pickup orders reserve their stock in the
// same transaction; online orders reserve only once payment is confirmed.
// A code still held by an active order is skipped; after one full lap of the
// range with no free code the order fails with ErrOrderCodesExhausted.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResult, error) {
	method, err := validatePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}

	phone := strings.TrimSpace(req.Phone)
	if len(phone) > maxPhoneLength {
		return nil, ErrInvalidPhone
	}

	if len(req.Lines) == 0 {
		return nil, ErrEmptyLines
	}

	lines := make([]parsedLine, len(req.Lines))
	for i, l := range req.Lines {
		if l.Quantity <= 0 {
			return nil, fmt.Errorf("lines[%d]: %w", i, ErrInvalidQuantity)
		}
		id, err := uuid.Parse(l.ItemID)
		if err != nil {
			return nil, fmt.Errorf("lines[%d]: %w", i, ErrInvalidItemID)
		}
		lines[i] = parsedLine{itemID: id, quantity: l.Quantity}
	}

	for attempt := 0; attempt < s.codes.Range(); attempt++ {
		code, err := s.codes.Next(ctx, s.sequence)
		if err != nil {
			return nil, err
		}
		result, err := s.createOrderTx(ctx, code, method, phone, lines)
		if err == nil {
			s.publish(ctx, enum.EventOrderCreated, result.Order)
			return result, nil
		}
		if !isOrderCodeConflict(err) {
			return nil, err
		}
	}
	return nil, ErrOrderCodesExhausted
}

// isOrderCodeConflict checks if the error is a unique constraint violation
// on the short code of an active order (pgconn error code 23505).
func isOrderCodeConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_active_short_code_key"
	}
	return false
}

// createOrderTx executes the full order creation in a single transaction.
func (s *OrderService) createOrderTx(ctx context.Context, code string, method database.PaymentMethod, phone string, lines []parsedLine) (*OrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// --- Load items ---
	ids := make([]uuid.UUID, 0, len(lines))
	requested := make(map[uuid.UUID]int32, len(lines))
	for _, l := range lines {
		if _, seen := requested[l.itemID]; !seen {
			ids = append(ids, l.itemID)
		}
		requested[l.itemID] += l.quantity
	}

	items, err := store.GetItemsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	byID := make(map[uuid.UUID]database.Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}

	// --- Validate availability + total the price snapshot ---
	var total int64
	for _, l := range lines {
		item, ok := byID[l.itemID]
		if !ok {
			return nil, &ItemError{ItemID: l.itemID, Err: ErrItemNotFound}
		}
		if !item.IsAvailable {
			return nil, &ItemError{ItemID: item.ID, Name: item.Name, Err: ErrItemUnavailable}
		}
		if item.RemainingToday < requested[item.ID] {
			return nil, &ItemError{ItemID: item.ID, Name: item.Name, Err: ErrInsufficientStock}
		}
		total += item.PriceKobo * int64(l.quantity)
	}

	now := s.now()
	expiresAt := pgtype.Timestamptz{}
	if method == database.PaymentMethodINPERSON {
		expiresAt = pgtype.Timestamptz{Time: now.Add(s.hold), Valid: true}
	}

	phoneText := pgtype.Text{}
	if phone != "" {
		phoneText = pgtype.Text{String: phone, Valid: true}
	}

	// --- Insert order ---
	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		ShortCode:     code,
		Status:        database.OrderStatusPENDING,
		PaymentMethod: method,
		Phone:         phoneText,
		TotalKobo:     total,
		ExpiresAt:     expiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	// --- Insert lines ---
	result := &OrderResult{Order: order}
	for _, l := range lines {
		item := byID[l.itemID]
		oi, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:       order.ID,
			ItemID:        item.ID,
			Quantity:      l.quantity,
			UnitPriceKobo: item.PriceKobo,
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		result.Lines = append(result.Lines, database.ListOrderLinesRow{
			ID:            oi.ID,
			OrderID:       oi.OrderID,
			ItemID:        oi.ItemID,
			Quantity:      oi.Quantity,
			UnitPriceKobo: oi.UnitPriceKobo,
			ItemName:      item.Name,
			PrepTimeSec:   item.PrepTimeSec,
		})
	}

	// --- Hold stock for pay-on-pickup ---
	if method == database.PaymentMethodINPERSON {
		if err := s.ledger.Reserve(ctx, store, stockLines(result.Lines)); err != nil {
			return nil, err
		}
	}

	// --- Commit ---
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return result, nil
}

// --- Helpers ---

func validatePaymentMethod(s string) (database.PaymentMethod, error) {
	switch m := database.PaymentMethod(s); m {
	case database.PaymentMethodONLINE, database.PaymentMethodINPERSON:
		return m, nil
	}
	return "", ErrInvalidPaymentMethod
}

func stockLines(lines []database.ListOrderLinesRow) []StockLine {
	out := make([]StockLine, len(lines))
	for i, l := range lines {
		out[i] = StockLine{ItemID: l.ItemID, Quantity: l.Quantity}
	}
	return out
}

func prepLines(lines []database.ListOrderLinesRow) []PrepLine {
	out := make([]PrepLine, len(lines))
	for i, l := range lines {
		out[i] = PrepLine{PrepTimeSec: l.PrepTimeSec, Quantity: l.Quantity}
	}
	return out
}

func (s *OrderService) publish(ctx context.Context, eventType string, o database.Order) {
	ev := notify.Event{
		Type:       eventType,
		OrderID:    o.ID,
		ShortCode:  o.ShortCode,
		Status:     string(EffectiveStatus(o, s.now())),
		OccurredAt: s.now(),
	}
	if o.EstReadyAt.Valid {
		t := o.EstReadyAt.Time
		ev.EstReadyAt = &t
	}
	if o.Phone.Valid {
		ev.Phone = o.Phone.String
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		log.Printf("ERROR: publish %s for %s: %v", eventType, o.ShortCode, err)
	}
}
