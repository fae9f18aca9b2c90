package jobs

import (
	"context"
	"fmt"

	"github.com/capitolsignal/backend/internal/contracts"
	"github.com/capitolsignal/backend/internal/scoring"
	"github.com/capitolsignal/backend/pkg/logger"
)

// ActiveSignalStore is the slice of signal storage the refresh needs.
type ActiveSignalStore interface {
	ListActive(ctx context.Context, limit int) ([]*contracts.Signal, error)
	UpdateTargets(ctx context.Context, signalID string, target, stop, take float64) error
}

// PriceSource fetches current prices for a ticker batch.
type PriceSource interface {
	FetchPrices(ctx context.Context, tickers []string) map[string]float64
}

// TargetRefreshJob recomputes price targets for active signals from fresh
// quotes. Signals whose price fetch fails keep their previous targets.
type TargetRefreshJob struct {
	signals ActiveSignalStore
	prices  PriceSource
	logger  *logger.Logger
}

// NewTargetRefreshJob creates a new target refresh job.
func NewTargetRefreshJob(signals ActiveSignalStore, prices PriceSource, log *logger.Logger) *TargetRefreshJob {
	return &TargetRefreshJob{signals: signals, prices: prices, logger: log}
}

// Name returns the job name.
func (j *TargetRefreshJob) Name() string {
	return "target_refresh"
}

// Schedule runs hourly during extended market hours (13:00-23:00 UTC).
func (j *TargetRefreshJob) Schedule() string {
	return "0 30 13-23 * * 1-5"
}

// Run refreshes targets for the current active set.
func (j *TargetRefreshJob) Run(ctx context.Context) error {
	signals, err := j.signals.ListActive(ctx, 500)
	if err != nil {
		return fmt.Errorf("failed to list active signals: %w", err)
	}
	if len(signals) == 0 {
		return nil
	}

	tickers := make([]string, len(signals))
	for i, sig := range signals {
		tickers[i] = sig.Ticker
	}
	prices := j.prices.FetchPrices(ctx, tickers)

	updated := 0
	for _, sig := range signals {
		price, ok := prices[sig.Ticker]
		if !ok || price <= 0 {
			continue
		}

		target, stop, take := scoring.PriceTargets(price, sig.SignalType)
		if err := j.signals.UpdateTargets(ctx, sig.ID, target, stop, take); err != nil {
			j.logger.WithError(err).WithField("ticker", sig.Ticker).Warn("Target update failed")
			continue
		}
		updated++
	}

	j.logger.WithFields(map[string]interface{}{
		"active":  len(signals),
		"updated": updated,
	}).Info("Price target refresh completed")

	return nil
}
