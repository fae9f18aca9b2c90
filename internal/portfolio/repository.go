package portfolio

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/capitolsignal/backend/internal/contracts"
)

// Repository persists the reference portfolio execution queue.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new reference queue repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Enqueue inserts a pending queue row for the signal. Returns false when
// the signal is already queued; the unique constraint on signal_id makes
// re-runs idempotent.
func (r *Repository) Enqueue(ctx context.Context, signal *contracts.Signal) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO portfolio.reference_queue (
			signal_id, ticker, signal_type, confidence_score, status
		) VALUES ($1, $2, $3, $4, 'pending')
		ON CONFLICT (signal_id) DO NOTHING
	`, signal.ID, signal.Ticker, signal.SignalType, signal.ConfidenceScore)
	if err != nil {
		return false, fmt.Errorf("failed to enqueue signal %s: %w", signal.ID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// PendingCount returns the number of queued entries awaiting execution.
func (r *Repository) PendingCount(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM portfolio.reference_queue WHERE status = 'pending'`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending queue entries: %w", err)
	}
	return count, nil
}
