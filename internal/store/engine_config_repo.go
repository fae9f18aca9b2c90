package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Well-known engine config keys.
const (
	KeyBlendWeight = "ml_blend_weight"
)

// ErrConfigNotFound is returned when a config key has no stored row.
var ErrConfigNotFound = errors.New("engine config key not found")

// EngineConfigRepository reads operator-tunable engine settings stored as
// key/value rows. Values override the environment defaults at run time
// without a redeploy.
type EngineConfigRepository struct {
	pool *pgxpool.Pool
}

// NewEngineConfigRepository creates a new engine config repository.
func NewEngineConfigRepository(pool *pgxpool.Pool) *EngineConfigRepository {
	return &EngineConfigRepository{pool: pool}
}

// Value returns the raw stored value for a key.
func (r *EngineConfigRepository) Value(ctx context.Context, key string) (string, error) {
	var value string
	err := r.pool.QueryRow(ctx,
		`SELECT value FROM signals.engine_config WHERE key = $1`, key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrConfigNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query engine config %q: %w", key, err)
	}
	return value, nil
}

// BlendWeight returns the stored heuristic/ML blend weight, or fallback when
// no row exists or the stored value does not parse.
func (r *EngineConfigRepository) BlendWeight(ctx context.Context, fallback float64) float64 {
	raw, err := r.Value(ctx, KeyBlendWeight)
	if err != nil {
		return fallback
	}
	w, err := strconv.ParseFloat(raw, 64)
	if err != nil || w < 0 || w > 1 {
		return fallback
	}
	return w
}
