package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/eightam/preorder-api/internal/database"
	"github.com/eightam/preorder-api/internal/notify"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-memory store ---

// memState is everything a transaction can change.
type memState struct {
	items    map[uuid.UUID]database.Item
	orders   map[uuid.UUID]database.Order
	lines    []database.OrderItem
	payments []database.Payment
}

func (s memState) clone() memState {
	c := memState{
		items:    make(map[uuid.UUID]database.Item, len(s.items)),
		orders:   make(map[uuid.UUID]database.Order, len(s.orders)),
		lines:    append([]database.OrderItem(nil), s.lines...),
		payments: append([]database.Payment(nil), s.payments...),
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	return c
}

// memDB serializes transactions with a single lock, which is the strongest
// isolation a relational store can offer. Rollback restores the snapshot
// taken at Begin.
type memDB struct {
	txLock sync.Mutex
	state  memState
	clock  *testClock

	beginErr  error
	commitErr error
	// beforeReserve runs once before the first stock decrement.
	beforeReserve func(s *memState)

	// The code counter lives outside state: like the pool-backed counter
	// row, its advances are not undone by a rollback.
	seqMu sync.Mutex
	seq   int32
}

func newMemDB(clock *testClock) *memDB {
	return &memDB{
		state: memState{
			items:  map[uuid.UUID]database.Item{},
			orders: map[uuid.UUID]database.Order{},
		},
		clock: clock,
	}
}

func (db *memDB) addItem(name string, priceKobo int64, prepSec, qty int32) database.Item {
	item := database.Item{
		ID:             uuid.New(),
		Name:           name,
		PriceKobo:      priceKobo,
		PrepTimeSec:    prepSec,
		DailyQuantity:  qty,
		RemainingToday: qty,
		IsAvailable:    true,
	}
	db.state.items[item.ID] = item
	return item
}

func (db *memDB) item(id uuid.UUID) database.Item {
	db.txLock.Lock()
	defer db.txLock.Unlock()
	return db.state.items[id]
}

func (db *memDB) order(id uuid.UUID) database.Order {
	db.txLock.Lock()
	defer db.txLock.Unlock()
	return db.state.orders[id]
}

func (db *memDB) paymentsFor(orderID uuid.UUID) []database.Payment {
	db.txLock.Lock()
	defer db.txLock.Unlock()
	var out []database.Payment
	for _, p := range db.state.payments {
		if p.OrderID == orderID {
			out = append(out, p)
		}
	}
	return out
}

func (db *memDB) Begin(ctx context.Context) (pgx.Tx, error) {
	if db.beginErr != nil {
		return nil, db.beginErr
	}
	db.txLock.Lock()
	return &memTx{db: db, snapshot: db.state.clone()}, nil
}

// memStore implements OrderStore against memDB.state. It must only be used
// while a memTx holds the lock, or from a single goroutine.
type memStore struct {
	db *memDB
}

// memSequence is the auto-committed code counter of a memDB.
type memSequence struct {
	db *memDB
}

func (q memSequence) NextOrderCode(ctx context.Context, modulo int32) (int32, error) {
	q.db.seqMu.Lock()
	defer q.db.seqMu.Unlock()
	q.db.seq = (q.db.seq + 1) % modulo
	return q.db.seq, nil
}

func (q memSequence) ResetOrderCode(ctx context.Context) error {
	q.db.seqMu.Lock()
	defer q.db.seqMu.Unlock()
	q.db.seq = 0
	return nil
}

func (m *memStore) SumActivePrepTime(ctx context.Context) (int64, error) {
	var total int64
	for _, l := range m.db.state.lines {
		o := m.db.state.orders[l.OrderID]
		if o.Status != database.OrderStatusPAID && o.Status != database.OrderStatusPREPARING {
			continue
		}
		total += int64(m.db.state.items[l.ItemID].PrepTimeSec) * int64(l.Quantity)
	}
	return total, nil
}

func (m *memStore) GetItem(ctx context.Context, id uuid.UUID) (database.Item, error) {
	item, ok := m.db.state.items[id]
	if !ok {
		return database.Item{}, pgx.ErrNoRows
	}
	return item, nil
}

func (m *memStore) ReserveItemStock(ctx context.Context, arg database.ReserveItemStockParams) (database.Item, error) {
	if hook := m.db.beforeReserve; hook != nil {
		m.db.beforeReserve = nil
		hook(&m.db.state)
	}
	item, ok := m.db.state.items[arg.ID]
	if !ok || item.RemainingToday < arg.Quantity {
		return database.Item{}, pgx.ErrNoRows
	}
	item.RemainingToday -= arg.Quantity
	m.db.state.items[arg.ID] = item
	return item, nil
}

func (m *memStore) GetItemsByIDs(ctx context.Context, ids []uuid.UUID) ([]database.Item, error) {
	var out []database.Item
	for _, id := range ids {
		if item, ok := m.db.state.items[id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *memStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	// orders_active_short_code_key
	for _, o := range m.db.state.orders {
		if o.ShortCode == arg.ShortCode && holdsCode(o.Status) {
			return database.Order{}, &pgconn.PgError{Code: "23505", ConstraintName: "orders_active_short_code_key"}
		}
	}
	now := m.db.clock.Now()
	o := database.Order{
		ID:            uuid.New(),
		ShortCode:     arg.ShortCode,
		Status:        arg.Status,
		PaymentMethod: arg.PaymentMethod,
		Phone:         arg.Phone,
		TotalKobo:     arg.TotalKobo,
		CreatedAt:     now,
		ExpiresAt:     arg.ExpiresAt,
		UpdatedAt:     now,
	}
	m.db.state.orders[o.ID] = o
	return o, nil
}

func holdsCode(s database.OrderStatus) bool {
	switch s {
	case database.OrderStatusPENDING, database.OrderStatusPAID,
		database.OrderStatusPREPARING, database.OrderStatusREADY:
		return true
	}
	return false
}

func (m *memStore) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	oi := database.OrderItem{
		ID:            uuid.New(),
		OrderID:       arg.OrderID,
		ItemID:        arg.ItemID,
		Quantity:      arg.Quantity,
		UnitPriceKobo: arg.UnitPriceKobo,
	}
	m.db.state.lines = append(m.db.state.lines, oi)
	return oi, nil
}

func (m *memStore) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error) {
	o, ok := m.db.state.orders[id]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (m *memStore) GetOrderByCodeForUpdate(ctx context.Context, shortCode string) (database.Order, error) {
	var found *database.Order
	for _, o := range m.db.state.orders {
		if o.ShortCode != shortCode {
			continue
		}
		if found == nil || o.CreatedAt.After(found.CreatedAt) {
			o := o
			found = &o
		}
	}
	if found == nil {
		return database.Order{}, pgx.ErrNoRows
	}
	return *found, nil
}

func (m *memStore) ListOrderLines(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderLinesRow, error) {
	out := []database.ListOrderLinesRow{}
	for _, l := range m.db.state.lines {
		if l.OrderID != orderID {
			continue
		}
		item := m.db.state.items[l.ItemID]
		out = append(out, database.ListOrderLinesRow{
			ID:            l.ID,
			OrderID:       l.OrderID,
			ItemID:        l.ItemID,
			Quantity:      l.Quantity,
			UnitPriceKobo: l.UnitPriceKobo,
			ItemName:      item.Name,
			PrepTimeSec:   item.PrepTimeSec,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemName < out[j].ItemName })
	return out, nil
}

func (m *memStore) UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	o, ok := m.db.state.orders[arg.ID]
	if !ok || o.Status != arg.FromStatus {
		return database.Order{}, pgx.ErrNoRows
	}
	o.Status = arg.Status
	o.PaidAt = arg.PaidAt
	o.ReadyAt = arg.ReadyAt
	o.PickedUpAt = arg.PickedUpAt
	o.EstReadyAt = arg.EstReadyAt
	o.ExpiresAt = arg.ExpiresAt
	o.UpdatedAt = m.db.clock.Now()
	m.db.state.orders[o.ID] = o
	return o, nil
}

func (m *memStore) CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error) {
	p := database.Payment{
		ID:          uuid.New(),
		OrderID:     arg.OrderID,
		Method:      arg.Method,
		Status:      arg.Status,
		ProviderRef: arg.ProviderRef,
		AmountKobo:  arg.AmountKobo,
		ConfirmedAt: arg.ConfirmedAt,
		CreatedAt:   m.db.clock.Now(),
	}
	m.db.state.payments = append(m.db.state.payments, p)
	return p, nil
}

// --- Transaction ---

// memTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type memTx struct {
	db       *memDB
	snapshot memState
	done     bool
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	if t.db.commitErr != nil {
		return t.db.commitErr
	}
	t.done = true
	t.db.txLock.Unlock()
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.db.state = t.snapshot
	t.db.txLock.Unlock()
	return nil
}

func (t *memTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (t *memTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (t *memTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (t *memTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (t *memTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (t *memTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (t *memTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (t *memTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (t *memTx) Conn() *pgx.Conn { panic("not implemented") }

// --- Clock + events ---

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 2, 7, 30, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingEvents struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordingEvents) Publish(ctx context.Context, ev notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

// --- Service wiring ---

type testEnv struct {
	db     *memDB
	clock  *testClock
	events *recordingEvents
	svc    *OrderService
}

func newTestEnv() *testEnv {
	clock := newTestClock()
	db := newMemDB(clock)
	events := &recordingEvents{}
	svc := NewOrderService(db, func(database.DBTX) OrderStore {
		return &memStore{db: db}
	}, OrderServiceConfig{
		Sequence: memSequence{db: db},
		Events:   events,
		Now:      clock.Now,
	})
	return &testEnv{db: db, clock: clock, events: events, svc: svc}
}
