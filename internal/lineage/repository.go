package lineage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/capitolsignal/backend/internal/contracts"
)

// Repository persists the append-only audit trail and lifecycle log.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new lineage repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertAuditBatch writes audit entries in one transaction.
func (r *Repository) InsertAuditBatch(ctx context.Context, entries []contracts.AuditTrailEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO signals.audit_trail (
			signal_id, event_type, signal_snapshot,
			model_id, model_version, source_system, triggered_by,
			metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	for _, e := range entries {
		snapshot, err := json.Marshal(e.SignalSnapshot)
		if err != nil {
			return fmt.Errorf("failed to marshal snapshot for %s: %w", e.SignalID, err)
		}
		var metadata []byte
		if e.Metadata != nil {
			if metadata, err = json.Marshal(e.Metadata); err != nil {
				return fmt.Errorf("failed to marshal metadata for %s: %w", e.SignalID, err)
			}
		}

		_, err = tx.Exec(ctx, query,
			e.SignalID, e.EventType, snapshot,
			e.ModelID, e.ModelVersion, e.SourceSystem, e.TriggeredBy,
			metadata, e.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("failed to insert audit entry for %s: %w", e.SignalID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit audit batch: %w", err)
	}
	return nil
}

// InsertLifecycleBatch writes lifecycle entries in one transaction.
func (r *Repository) InsertLifecycleBatch(ctx context.Context, entries []contracts.LifecycleEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO signals.lifecycle (
			signal_id, previous_state, current_state,
			transition_reason, transitioned_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	for _, e := range entries {
		_, err = tx.Exec(ctx, query,
			e.SignalID, e.PreviousState, e.CurrentState,
			e.TransitionReason, e.TransitionedBy, e.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("failed to insert lifecycle entry for %s: %w", e.SignalID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit lifecycle batch: %w", err)
	}
	return nil
}
