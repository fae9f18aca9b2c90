package lineage

import (
	"context"
	"sync"
	"time"

	"github.com/capitolsignal/backend/internal/contracts"
	"github.com/capitolsignal/backend/pkg/logger"
)

const (
	batchSize    = 10
	flushTimeout = 10 * time.Second
	queueDepth   = 256
)

// Writer is the storage side of the recorder.
type Writer interface {
	InsertAuditBatch(ctx context.Context, entries []contracts.AuditTrailEntry) error
	InsertLifecycleBatch(ctx context.Context, entries []contracts.LifecycleEntry) error
}

// Recorder writes audit and lifecycle entries asynchronously in small
// batches. Recording is best-effort: a full queue or a failed insert is
// logged and dropped, never surfaced to the generation run.
type Recorder struct {
	writer Writer
	logger *logger.Logger

	audits     chan contracts.AuditTrailEntry
	lifecycles chan contracts.LifecycleEntry

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewRecorder starts the background flush workers.
func NewRecorder(writer Writer, log *logger.Logger) *Recorder {
	r := &Recorder{
		writer:     writer,
		logger:     log,
		audits:     make(chan contracts.AuditTrailEntry, queueDepth),
		lifecycles: make(chan contracts.LifecycleEntry, queueDepth),
	}

	r.wg.Add(2)
	go r.auditLoop()
	go r.lifecycleLoop()
	return r
}

// RecordAudit enqueues one audit entry. Drops when the queue is full.
func (r *Recorder) RecordAudit(entry contracts.AuditTrailEntry) {
	select {
	case r.audits <- entry:
	default:
		r.logger.WithField("signal_id", entry.SignalID).Warn("Audit queue full, entry dropped")
	}
}

// RecordLifecycle enqueues one lifecycle entry. Drops when the queue is full.
func (r *Recorder) RecordLifecycle(entry contracts.LifecycleEntry) {
	select {
	case r.lifecycles <- entry:
	default:
		r.logger.WithField("signal_id", entry.SignalID).Warn("Lifecycle queue full, entry dropped")
	}
}

// Close flushes everything queued and stops the workers. Safe to call more
// than once.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		close(r.audits)
		close(r.lifecycles)
	})
	r.wg.Wait()
}

func (r *Recorder) auditLoop() {
	defer r.wg.Done()

	batch := make([]contracts.AuditTrailEntry, 0, batchSize)
	for entry := range r.audits {
		batch = append(batch, entry)
		if len(batch) >= batchSize {
			r.flushAudits(batch)
			batch = batch[:0]
		}
	}
	r.flushAudits(batch)
}

func (r *Recorder) lifecycleLoop() {
	defer r.wg.Done()

	batch := make([]contracts.LifecycleEntry, 0, batchSize)
	for entry := range r.lifecycles {
		batch = append(batch, entry)
		if len(batch) >= batchSize {
			r.flushLifecycles(batch)
			batch = batch[:0]
		}
	}
	r.flushLifecycles(batch)
}

func (r *Recorder) flushAudits(batch []contracts.AuditTrailEntry) {
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	if err := r.writer.InsertAuditBatch(ctx, batch); err != nil {
		r.logger.WithError(err).WithField("count", len(batch)).Warn("Audit batch insert failed")
	}
}

func (r *Recorder) flushLifecycles(batch []contracts.LifecycleEntry) {
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	if err := r.writer.InsertLifecycleBatch(ctx, batch); err != nil {
		r.logger.WithError(err).WithField("count", len(batch)).Warn("Lifecycle batch insert failed")
	}
}
