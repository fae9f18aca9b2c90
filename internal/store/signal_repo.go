package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/capitolsignal/backend/internal/contracts"
)

// SignalRepository persists generated trading signals.
type SignalRepository struct {
	pool *pgxpool.Pool
}

// NewSignalRepository creates a new signal repository.
func NewSignalRepository(pool *pgxpool.Pool) *SignalRepository {
	return &SignalRepository{pool: pool}
}

// InsertBatch inserts all signals in one transaction and fills in the
// database-assigned IDs and timestamps. All-or-nothing: a failed insert
// rolls back the whole run's output.
func (r *SignalRepository) InsertBatch(ctx context.Context, signals []*contracts.Signal) error {
	if len(signals) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO signals.trading_signals (
			ticker, asset_name, signal_type, signal_strength, confidence_score,
			politician_activity_count, buy_sell_ratio, total_transaction_volume,
			target_price, stop_loss, take_profit,
			ml_enhanced, model_id, model_version, reproducibility_hash,
			generation_context, features, created_by, status
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11,
			$12, $13, $14, $15,
			$16, $17, $18, 'active'
		)
		RETURNING id, created_at
	`

	for _, sig := range signals {
		genCtx, err := json.Marshal(sig.GenerationContext)
		if err != nil {
			return fmt.Errorf("failed to marshal generation context for %s: %w", sig.Ticker, err)
		}
		features, err := json.Marshal(sig.Features)
		if err != nil {
			return fmt.Errorf("failed to marshal features for %s: %w", sig.Ticker, err)
		}

		err = tx.QueryRow(ctx, query,
			sig.Ticker, sig.AssetName, sig.SignalType, sig.SignalStrength, sig.ConfidenceScore,
			sig.PoliticianActivityCount, sig.BuySellRatio, sig.TotalTransactionVolume,
			sig.TargetPrice, sig.StopLoss, sig.TakeProfit,
			sig.MLEnhanced, sig.ModelID, sig.ModelVersion, sig.ReproducibilityHash,
			genCtx, features, sig.CreatedBy,
		).Scan(&sig.ID, &sig.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert signal for %s: %w", sig.Ticker, err)
		}
		sig.Status = contracts.StateActive
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit signal batch: %w", err)
	}
	return nil
}

// DeleteActive removes all currently active signals. Used by regeneration
// runs that replace the active set wholesale.
func (r *SignalRepository) DeleteActive(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM signals.trading_signals WHERE status = 'active'`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete active signals: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListActive returns active signals ordered by confidence, best first.
func (r *SignalRepository) ListActive(ctx context.Context, limit int) ([]*contracts.Signal, error) {
	query := `
		SELECT
			id, ticker, asset_name, signal_type, signal_strength, confidence_score,
			politician_activity_count, buy_sell_ratio, total_transaction_volume,
			target_price, stop_loss, take_profit,
			ml_enhanced, model_id, model_version, reproducibility_hash,
			generation_context, features, created_by, status, created_at
		FROM signals.trading_signals
		WHERE status = 'active'
		ORDER BY confidence_score DESC, ticker
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query active signals: %w", err)
	}
	defer rows.Close()

	var signals []*contracts.Signal
	for rows.Next() {
		var sig contracts.Signal
		var genCtx, features []byte
		if err := rows.Scan(
			&sig.ID, &sig.Ticker, &sig.AssetName, &sig.SignalType, &sig.SignalStrength, &sig.ConfidenceScore,
			&sig.PoliticianActivityCount, &sig.BuySellRatio, &sig.TotalTransactionVolume,
			&sig.TargetPrice, &sig.StopLoss, &sig.TakeProfit,
			&sig.MLEnhanced, &sig.ModelID, &sig.ModelVersion, &sig.ReproducibilityHash,
			&genCtx, &features, &sig.CreatedBy, &sig.Status, &sig.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}
		if err := json.Unmarshal(genCtx, &sig.GenerationContext); err != nil {
			return nil, fmt.Errorf("failed to unmarshal generation context: %w", err)
		}
		if err := json.Unmarshal(features, &sig.Features); err != nil {
			return nil, fmt.Errorf("failed to unmarshal features: %w", err)
		}
		signals = append(signals, &sig)
	}
	return signals, rows.Err()
}

// UpdateTargets refreshes the price-derived columns of one signal.
func (r *SignalRepository) UpdateTargets(ctx context.Context, signalID string, target, stop, take float64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE signals.trading_signals
		SET target_price = $2, stop_loss = $3, take_profit = $4, updated_at = NOW()
		WHERE id = $1
	`, signalID, target, stop, take)
	if err != nil {
		return fmt.Errorf("failed to update targets for %s: %w", signalID, err)
	}
	return nil
}
