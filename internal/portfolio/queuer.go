package portfolio

import (
	"context"

	"github.com/capitolsignal/backend/internal/contracts"
	"github.com/capitolsignal/backend/pkg/logger"
)

// Sell signals queue at a lower bar than buys: exits matter even when
// conviction is softer.
const sellThresholdFactor = 0.85

// QueueWriter is the storage side of the queuer.
type QueueWriter interface {
	Enqueue(ctx context.Context, signal *contracts.Signal) (bool, error)
}

// Queuer feeds qualifying signals into the reference portfolio's execution
// queue. Queueing is advisory: a failure is logged and the generation run
// carries on.
type Queuer struct {
	writer    QueueWriter
	threshold float64
	logger    *logger.Logger
}

// NewQueuer creates a queuer with the configured buy-side confidence floor.
func NewQueuer(writer QueueWriter, threshold float64, log *logger.Logger) *Queuer {
	return &Queuer{writer: writer, threshold: threshold, logger: log}
}

// Qualifies reports whether a signal clears the queueing bar for its side.
func (q *Queuer) Qualifies(sig *contracts.Signal) bool {
	if !sig.SignalType.IsActionable() {
		return false
	}
	if sig.SignalType.IsBuySide() {
		return sig.ConfidenceScore >= q.threshold
	}
	return sig.ConfidenceScore >= q.threshold*sellThresholdFactor
}

// QueueAll enqueues every qualifying signal and returns how many were newly
// queued. Already-queued signals and storage errors are skipped.
func (q *Queuer) QueueAll(ctx context.Context, signals []*contracts.Signal) int {
	queued := 0
	for _, sig := range signals {
		if !q.Qualifies(sig) {
			continue
		}

		inserted, err := q.writer.Enqueue(ctx, sig)
		if err != nil {
			q.logger.WithError(err).WithField("ticker", sig.Ticker).Warn("Reference queue insert failed")
			continue
		}
		if inserted {
			queued++
		}
	}
	return queued
}
