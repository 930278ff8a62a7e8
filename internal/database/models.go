package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type OrderStatus string

const (
	OrderStatusPENDING   OrderStatus = "PENDING"
	OrderStatusPAID      OrderStatus = "PAID"
	OrderStatusPREPARING OrderStatus = "PREPARING"
	OrderStatusREADY     OrderStatus = "READY"
	OrderStatusPICKEDUP  OrderStatus = "PICKED_UP"
	OrderStatusCANCELLED OrderStatus = "CANCELLED"
	OrderStatusEXPIRED   OrderStatus = "EXPIRED"
)

type PaymentMethod string

const (
	PaymentMethodONLINE   PaymentMethod = "ONLINE"
	PaymentMethodINPERSON PaymentMethod = "IN_PERSON"
)

type PaymentStatus string

const (
	PaymentStatusSUCCESS PaymentStatus = "SUCCESS"
	PaymentStatusFAILED  PaymentStatus = "FAILED"
)

type Item struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	PriceKobo      int64     `json:"price_kobo"`
	PrepTimeSec    int32     `json:"prep_time_sec"`
	DailyQuantity  int32     `json:"daily_quantity"`
	RemainingToday int32     `json:"remaining_today"`
	IsAvailable    bool      `json:"is_available"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Order struct {
	ID            uuid.UUID          `json:"id"`
	ShortCode     string             `json:"short_code"`
	Status        OrderStatus        `json:"status"`
	PaymentMethod PaymentMethod      `json:"payment_method"`
	Phone         pgtype.Text        `json:"phone"`
	TotalKobo     int64              `json:"total_kobo"`
	CreatedAt     time.Time          `json:"created_at"`
	PaidAt        pgtype.Timestamptz `json:"paid_at"`
	ReadyAt       pgtype.Timestamptz `json:"ready_at"`
	PickedUpAt    pgtype.Timestamptz `json:"picked_up_at"`
	EstReadyAt    pgtype.Timestamptz `json:"est_ready_at"`
	ExpiresAt     pgtype.Timestamptz `json:"expires_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

type OrderItem struct {
	ID            uuid.UUID `json:"id"`
	OrderID       uuid.UUID `json:"order_id"`
	ItemID        uuid.UUID `json:"item_id"`
	Quantity      int32     `json:"quantity"`
	UnitPriceKobo int64     `json:"unit_price_kobo"`
}

type Payment struct {
	ID          uuid.UUID          `json:"id"`
	OrderID     uuid.UUID          `json:"order_id"`
	Method      PaymentMethod      `json:"method"`
	Status      PaymentStatus      `json:"status"`
	ProviderRef pgtype.Text        `json:"provider_ref"`
	AmountKobo  int64              `json:"amount_kobo"`
	ConfirmedAt pgtype.Timestamptz `json:"confirmed_at"`
	CreatedAt   time.Time          `json:"created_at"`
}
