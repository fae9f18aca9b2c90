package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/capitolsignal/backend/internal/contracts"
)

// ModelRepository reads and maintains the ML model registry.
type ModelRepository struct {
	pool *pgxpool.Pool
}

// NewModelRepository creates a new model repository.
func NewModelRepository(pool *pgxpool.Pool) *ModelRepository {
	return &ModelRepository{pool: pool}
}

// ActiveModel returns the most recently trained active model, or nil when
// the registry holds none.
func (r *ModelRepository) ActiveModel(ctx context.Context) (*contracts.Model, error) {
	query := `
		SELECT id, model_name, model_version, status, training_completed_at
		FROM signals.ml_models
		WHERE status = 'active' AND model_name <> $1
		ORDER BY training_completed_at DESC NULLS LAST
		LIMIT 1
	`

	var m contracts.Model
	err := r.pool.QueryRow(ctx, query, contracts.HeuristicModelName).Scan(
		&m.ID, &m.ModelName, &m.ModelVersion, &m.Status, &m.TrainingCompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query active model: %w", err)
	}
	return &m, nil
}

// EnsureHeuristicModel finds or creates the pseudo-model row that signals
// reference when no trained model participated in scoring.
func (r *ModelRepository) EnsureHeuristicModel(ctx context.Context, version string) (*contracts.Model, error) {
	var m contracts.Model
	err := r.pool.QueryRow(ctx, `
		SELECT id, model_name, model_version, status, training_completed_at
		FROM signals.ml_models
		WHERE model_name = $1 AND model_version = $2
		LIMIT 1
	`, contracts.HeuristicModelName, version).Scan(
		&m.ID, &m.ModelName, &m.ModelVersion, &m.Status, &m.TrainingCompletedAt,
	)
	if err == nil {
		return &m, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to query heuristic model: %w", err)
	}

	err = r.pool.QueryRow(ctx, `
		INSERT INTO signals.ml_models (model_name, model_version, status)
		VALUES ($1, $2, 'active')
		RETURNING id, model_name, model_version, status, training_completed_at
	`, contracts.HeuristicModelName, version).Scan(
		&m.ID, &m.ModelName, &m.ModelVersion, &m.Status, &m.TrainingCompletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create heuristic model: %w", err)
	}
	return &m, nil
}
