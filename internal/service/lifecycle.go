package service

import (
	"fmt"
	"time"

	"github.com/eightam/preorder-api/internal/database"
	"github.com/jackc/pgx/v5/pgtype"
)

// allowedTransitions defines valid status transitions.
// Key is current status, value is the set of statuses it can transition to.
// Statuses missing from the map are terminal.
var allowedTransitions = map[database.OrderStatus][]database.OrderStatus{
	database.OrderStatusPENDING:   {database.OrderStatusPAID, database.OrderStatusCANCELLED, database.OrderStatusEXPIRED},
	database.OrderStatusPAID:      {database.OrderStatusPREPARING},
	database.OrderStatusPREPARING: {database.OrderStatusREADY},
	database.OrderStatusREADY:     {database.OrderStatusPICKEDUP},
}

// forwardStep is the kitchen pipeline: one step at a time, never backwards.
var forwardStep = map[database.OrderStatus]database.OrderStatus{
	database.OrderStatusPENDING:   database.OrderStatusPAID,
	database.OrderStatusPAID:      database.OrderStatusPREPARING,
	database.OrderStatusPREPARING: database.OrderStatusREADY,
	database.OrderStatusREADY:     database.OrderStatusPICKEDUP,
}

// IsKnownStatus checks if the given status is a valid order status.
func IsKnownStatus(s database.OrderStatus) bool {
	switch s {
	case database.OrderStatusPENDING,
		database.OrderStatusPAID,
		database.OrderStatusPREPARING,
		database.OrderStatusREADY,
		database.OrderStatusPICKEDUP,
		database.OrderStatusCANCELLED,
		database.OrderStatusEXPIRED:
		return true
	}
	return false
}

// CanTransition reports whether the table allows from -> to.
func CanTransition(from, to database.OrderStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s database.OrderStatus) bool {
	return len(allowedTransitions[s]) == 0
}

// NextStatus returns the single status the kitchen may advance s to.
func NextStatus(s database.OrderStatus) (database.OrderStatus, bool) {
	next, ok := forwardStep[s]
	return next, ok
}

// IsExpired reports whether a pay-on-pickup order sat in PENDING past its hold.
func IsExpired(o database.Order, now time.Time) bool {
	return o.Status == database.OrderStatusPENDING &&
		o.ExpiresAt.Valid &&
		!now.Before(o.ExpiresAt.Time)
}

// EffectiveStatus is the status to show and to validate against. Expired
// orders stay PENDING in storage and read as EXPIRED.
func EffectiveStatus(o database.Order, now time.Time) database.OrderStatus {
	if IsExpired(o, now) {
		return database.OrderStatusEXPIRED
	}
	return o.Status
}

// transition validates from the order's effective status and builds the
// update with the timestamps the target status stamps. Estimated-ready time
// for PAID is filled in by the caller.
func transition(o database.Order, to database.OrderStatus, now time.Time) (database.UpdateOrderStatusParams, error) {
	from := EffectiveStatus(o, now)
	if !CanTransition(from, to) {
		return database.UpdateOrderStatusParams{}, fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, from, to)
	}

	stamp := pgtype.Timestamptz{Time: now, Valid: true}
	params := database.UpdateOrderStatusParams{
		ID:         o.ID,
		Status:     to,
		FromStatus: o.Status,
		PaidAt:     o.PaidAt,
		ReadyAt:    o.ReadyAt,
		PickedUpAt: o.PickedUpAt,
		EstReadyAt: o.EstReadyAt,
		ExpiresAt:  o.ExpiresAt,
	}

	switch to {
	case database.OrderStatusPAID:
		if !o.PaidAt.Valid {
			params.PaidAt = stamp
		}
	case database.OrderStatusREADY:
		params.ReadyAt = stamp
	case database.OrderStatusPICKEDUP:
		params.PickedUpAt = stamp
	}

	// The hold only exists while the order waits for payment.
	if to != database.OrderStatusPENDING {
		params.ExpiresAt = pgtype.Timestamptz{}
	}

	return params, nil
}
