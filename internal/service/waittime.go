package service

import (
	"context"
	"fmt"

	"github.com/eightam/preorder-api/internal/enum"
)

// DefaultKitchenParallelism is how many orders the kitchen works on at once.
const DefaultKitchenParallelism = 2

// PrepTimeStore reports the prep-time backlog of PAID and PREPARING orders.
type PrepTimeStore interface {
	SumActivePrepTime(ctx context.Context) (int64, error)
}

// PrepLine is one order line as far as the kitchen clock is concerned.
type PrepLine struct {
	PrepTimeSec int32
	Quantity    int32
}

// WaitEstimator turns the active-order backlog into wall-clock delays.
// Nothing is cached: the backlog changes with every payment and status update.
type WaitEstimator struct {
	parallelism int64
}

func NewWaitEstimator(parallelism int) *WaitEstimator {
	if parallelism < 1 {
		parallelism = DefaultKitchenParallelism
	}
	return &WaitEstimator{parallelism: int64(parallelism)}
}

// QueueDelay returns the seconds until the kitchen clears its current backlog.
func (e *WaitEstimator) QueueDelay(ctx context.Context, store PrepTimeStore) (int64, error) {
	total, err := store.SumActivePrepTime(ctx)
	if err != nil {
		return 0, fmt.Errorf("sum active prep time: %w", err)
	}
	return ceilDiv(total, e.parallelism), nil
}

// EstimateWait returns QueueDelay plus the prep time of the given lines.
func (e *WaitEstimator) EstimateWait(ctx context.Context, store PrepTimeStore, lines []PrepLine) (int64, error) {
	delay, err := e.QueueDelay(ctx, store)
	if err != nil {
		return 0, err
	}
	return delay + PrepSeconds(lines), nil
}

// PrepSeconds sums prep time × quantity.
func PrepSeconds(lines []PrepLine) int64 {
	var total int64
	for _, l := range lines {
		total += int64(l.PrepTimeSec) * int64(l.Quantity)
	}
	return total
}

// FormatDuration renders a wait for customers. Short waits are exact, up to
// a quarter hour they snap to the next even minute, and longer ones collapse
// into the busy labels.
func FormatDuration(seconds int64) string {
	minutes := ceilDiv(seconds, 60)

	switch {
	case minutes <= 5:
		return fmt.Sprintf("~%d min", minutes)
	case minutes <= 15:
		return fmt.Sprintf("~%d min", ceilDiv(minutes, 2)*2)
	case minutes <= 25:
		return enum.WaitLabelBusy
	default:
		return enum.WaitLabelVeryBusy
	}
}

func ceilDiv(n, d int64) int64 {
	if n <= 0 {
		return 0
	}
	return (n + d - 1) / d
}
