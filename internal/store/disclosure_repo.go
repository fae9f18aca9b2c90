package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/capitolsignal/backend/internal/contracts"
)

// DisclosureRepository reads politician trade disclosures ingested by the
// upstream ETL. The engine never writes these rows.
type DisclosureRepository struct {
	pool *pgxpool.Pool
}

// NewDisclosureRepository creates a new disclosure repository.
func NewDisclosureRepository(pool *pgxpool.Pool) *DisclosureRepository {
	return &DisclosureRepository{pool: pool}
}

// ListSince retrieves all disclosures with a ticker on or after the cutoff.
// Rows without a ticker are excluded here rather than in Go; they can never
// aggregate into a signal.
func (r *DisclosureRepository) ListSince(ctx context.Context, since time.Time) ([]*contracts.Disclosure, error) {
	query := `
		SELECT
			id, ticker, asset_name, transaction_type,
			amount_range_min, amount_range_max,
			transaction_date, politician_id, politician_party
		FROM data.politician_disclosures
		WHERE ticker IS NOT NULL AND ticker <> ''
		  AND transaction_date >= $1
		ORDER BY transaction_date DESC
	`

	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query disclosures: %w", err)
	}
	defer rows.Close()

	var disclosures []*contracts.Disclosure
	for rows.Next() {
		var d contracts.Disclosure
		if err := rows.Scan(
			&d.ID, &d.Ticker, &d.AssetName, &d.TransactionType,
			&d.AmountRangeMin, &d.AmountRangeMax,
			&d.TransactionDate, &d.PoliticianID, &d.PoliticianParty,
		); err != nil {
			return nil, fmt.Errorf("failed to scan disclosure: %w", err)
		}
		disclosures = append(disclosures, &d)
	}
	return disclosures, rows.Err()
}

// CountSince returns the number of disclosure rows the lookback would cover.
// The health endpoint and the test-db command report it as data freshness.
func (r *DisclosureRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM data.politician_disclosures
		WHERE ticker IS NOT NULL AND ticker <> ''
		  AND transaction_date >= $1
	`, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count disclosures: %w", err)
	}
	return count, nil
}
