package marketdata

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/capitolsignal/backend/pkg/logger"
)

// fakeQuotes serves canned bars per symbol and counts calls.
type fakeQuotes struct {
	mu     sync.Mutex
	bars   map[string][]Bar
	prices map[string]float64
	errs   map[string]error
	calls  map[string]int
}

func newFakeQuotes() *fakeQuotes {
	return &fakeQuotes{
		bars:   make(map[string][]Bar),
		prices: make(map[string]float64),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

func (f *fakeQuotes) Bars(ctx context.Context, symbol string, start, end time.Time, limit int) ([]Bar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[symbol]++
	if err, ok := f.errs[symbol]; ok {
		return nil, err
	}
	return f.bars[symbol], nil
}

func (f *fakeQuotes) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[symbol]++
	if err, ok := f.errs[symbol]; ok {
		return 0, err
	}
	price, ok := f.prices[symbol]
	if !ok {
		return 0, fmt.Errorf("no price for %s", symbol)
	}
	return price, nil
}

func closes(prices ...float64) []Bar {
	bars := make([]Bar, len(prices))
	for i, p := range prices {
		bars[i] = Bar{Close: p}
	}
	return bars
}

func newTestEnricher(quotes QuoteAPI) *Enricher {
	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	cache := NewTTLCache(func() time.Time { return now })
	return NewEnricher(quotes, cache, logger.NewNop()).
		WithClock(func() time.Time { return now })
}

func TestMomentum_Formula(t *testing.T) {
	quotes := newFakeQuotes()
	quotes.bars["AAPL"] = closes(100, 104, 108, 110)

	e := newTestEnricher(quotes)

	// (110 - 100) / 100 * 100 = 10%
	assert.InDelta(t, 10.0, e.Momentum(context.Background(), "AAPL"), 1e-9)
}

func TestMomentum_FailsOpen(t *testing.T) {
	quotes := newFakeQuotes()
	quotes.errs["AAPL"] = fmt.Errorf("boom")
	quotes.bars["MSFT"] = closes(250) // single bar

	e := newTestEnricher(quotes)

	assert.Zero(t, e.Momentum(context.Background(), "AAPL"))
	assert.Zero(t, e.Momentum(context.Background(), "MSFT"))
}

func TestMomentum_CachesPerSymbol(t *testing.T) {
	quotes := newFakeQuotes()
	quotes.bars["AAPL"] = closes(100, 110)

	e := newTestEnricher(quotes)

	e.Momentum(context.Background(), "AAPL")
	e.Momentum(context.Background(), "AAPL")
	e.Momentum(context.Background(), "AAPL")

	assert.Equal(t, 1, quotes.calls["AAPL"])
}

func TestMomentum_FailuresAreNotCached(t *testing.T) {
	quotes := newFakeQuotes()
	quotes.errs["AAPL"] = fmt.Errorf("boom")

	e := newTestEnricher(quotes)

	e.Momentum(context.Background(), "AAPL")
	e.Momentum(context.Background(), "AAPL")

	assert.Equal(t, 2, quotes.calls["AAPL"])
}

func TestSectorPerformance_UsesETF(t *testing.T) {
	quotes := newFakeQuotes()
	quotes.bars["XLK"] = closes(200, 210)

	e := newTestEnricher(quotes)

	// AAPL maps to XLK; (210-200)/200*100 = 5%
	assert.InDelta(t, 5.0, e.SectorPerformance(context.Background(), "AAPL"), 1e-9)
	assert.Equal(t, 1, quotes.calls["XLK"])
	assert.Zero(t, quotes.calls["AAPL"])
}

func TestEnrichAll_SharesSectorCache(t *testing.T) {
	quotes := newFakeQuotes()
	quotes.bars["AAPL"] = closes(100, 110)
	quotes.bars["MSFT"] = closes(300, 315)
	quotes.bars["XLK"] = closes(200, 210)

	e := newTestEnricher(quotes)

	results := e.EnrichAll(context.Background(), []string{"AAPL", "MSFT"})

	assert.Len(t, results, 2)
	assert.InDelta(t, 10.0, results["AAPL"].MarketMomentum, 1e-9)
	assert.InDelta(t, 5.0, results["AAPL"].SectorPerformance, 1e-9)
	assert.InDelta(t, 5.0, results["MSFT"].MarketMomentum, 1e-9)

	// Both tickers share the XLK sector entry; concurrent warm-up may cost
	// an extra call but never one per ticker per lookup.
	assert.LessOrEqual(t, quotes.calls["XLK"], 2)
}

func TestSectorETF_Fallback(t *testing.T) {
	assert.Equal(t, "XLK", SectorETF("AAPL"))
	assert.Equal(t, "XLE", SectorETF("XOM"))
	assert.Equal(t, DefaultSectorETF, SectorETF("ZZZZ"))
}
