package marketdata

import (
	"context"
	"sync"
	"time"

	"github.com/capitolsignal/backend/pkg/logger"
)

const (
	// momentumLookback covers ~20 trading days of calendar time.
	momentumLookback = 25 * 24 * time.Hour
	momentumBarLimit = 25
	cacheTTL         = time.Hour
)

// Enrichment carries the two market features attached to a feature vector.
type Enrichment struct {
	MarketMomentum    float64
	SectorPerformance float64
}

// Enricher computes 20-trading-day momentum and sector-ETF performance per
// ticker. Every failure is fail-open: a missing feature degrades ML quality
// but never aborts the pipeline.
type Enricher struct {
	quotes QuoteAPI
	cache  *TTLCache
	logger *logger.Logger
	now    func() time.Time
}

// NewEnricher creates an enricher backed by the given quote API and cache.
func NewEnricher(quotes QuoteAPI, cache *TTLCache, log *logger.Logger) *Enricher {
	return &Enricher{
		quotes: quotes,
		cache:  cache,
		logger: log,
		now:    time.Now,
	}
}

// WithClock overrides the enricher's clock. Used in tests.
func (e *Enricher) WithClock(now func() time.Time) *Enricher {
	e.now = now
	return e
}

// Momentum returns the 20-trading-day price momentum for a symbol as a
// percentage. Returns 0 on any fetch error or when fewer than 2 bars exist.
func (e *Enricher) Momentum(ctx context.Context, symbol string) float64 {
	if v, ok := e.cache.Get(symbol); ok {
		return v
	}

	end := e.now()
	start := end.Add(-momentumLookback)

	bars, err := e.quotes.Bars(ctx, symbol, start, end, momentumBarLimit)
	if err != nil {
		e.logger.WithError(err).WithField("symbol", symbol).Warn("Momentum fetch failed, using 0")
		return 0
	}
	if len(bars) < 2 {
		e.logger.WithField("symbol", symbol).Warn("Not enough bars for momentum, using 0")
		return 0
	}

	earliest := bars[0].Close
	latest := bars[len(bars)-1].Close
	if earliest == 0 {
		return 0
	}

	momentum := (latest - earliest) / earliest * 100
	e.cache.Set(symbol, momentum, cacheTTL)
	return momentum
}

// SectorPerformance returns the 20-trading-day momentum of the ticker's
// sector ETF. Cached under the ETF symbol, so tickers sharing a sector
// share the entry.
func (e *Enricher) SectorPerformance(ctx context.Context, ticker string) float64 {
	return e.Momentum(ctx, SectorETF(ticker))
}

// Enrich computes both features for one ticker, concurrently.
func (e *Enricher) Enrich(ctx context.Context, ticker string) Enrichment {
	var enrichment Enrichment
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		enrichment.MarketMomentum = e.Momentum(ctx, ticker)
	}()
	go func() {
		defer wg.Done()
		enrichment.SectorPerformance = e.SectorPerformance(ctx, ticker)
	}()
	wg.Wait()

	return enrichment
}

// EnrichAll fans out enrichment across all tickers. The fan-out is
// unbounded; the per-key cache keeps the ETF calls from multiplying.
func (e *Enricher) EnrichAll(ctx context.Context, tickers []string) map[string]Enrichment {
	results := make(map[string]Enrichment, len(tickers))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, ticker := range tickers {
		wg.Add(1)
		go func(ticker string) {
			defer wg.Done()
			enrichment := e.Enrich(ctx, ticker)
			mu.Lock()
			results[ticker] = enrichment
			mu.Unlock()
		}(ticker)
	}
	wg.Wait()

	return results
}
