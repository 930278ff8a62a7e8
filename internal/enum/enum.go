package enum

// ── Order events (published after commit) ──

const (
	EventOrderCreated   = "order.created"
	EventOrderPaid      = "order.paid"
	EventOrderUpdated   = "order.updated"
	EventOrderCancelled = "order.cancelled"
	EventPaymentFailed  = "payment.failed"
)

// ── Websocket rooms ──

const (
	RoomKitchen     = "kitchen"
	RoomOrderPrefix = "order:"
)

// ── Wait-time display labels ──

const (
	WaitLabelBusy     = "15+ min (busy!)"
	WaitLabelVeryBusy = "25+ min (very busy!)"
)
