package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Event describes an order change that subscribers may care about.
type Event struct {
	Type       string     `json:"type"`
	OrderID    uuid.UUID  `json:"order_id"`
	ShortCode  string     `json:"short_code"`
	Status     string     `json:"status"`
	EstReadyAt *time.Time `json:"est_ready_at,omitempty"`
	Phone      string     `json:"phone,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// Publisher delivers events. Publishing happens after the owning
// transaction commits, so a failed publish never undoes a state change.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(ctx context.Context, ev Event) error { return nil }

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
