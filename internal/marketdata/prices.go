package marketdata

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/capitolsignal/backend/pkg/logger"
)

const (
	priceChunkSize  = 5
	priceChunkPause = 200 * time.Millisecond
)

// PriceFetcher resolves current prices for a batch of tickers while staying
// under the quote API's rate limit: chunks of 5, fetched concurrently within
// a chunk, paced 200ms apart between chunks.
type PriceFetcher struct {
	quotes  QuoteAPI
	limiter *rate.Limiter
	logger  *logger.Logger
}

// NewPriceFetcher creates a paced price fetcher.
func NewPriceFetcher(quotes QuoteAPI, log *logger.Logger) *PriceFetcher {
	return &PriceFetcher{
		quotes:  quotes,
		limiter: rate.NewLimiter(rate.Every(priceChunkPause), 1),
		logger:  log,
	}
}

// FetchPrices returns the latest close per ticker. Tickers whose fetch
// fails are simply absent from the result; price targets are optional.
func (f *PriceFetcher) FetchPrices(ctx context.Context, tickers []string) map[string]float64 {
	prices := make(map[string]float64, len(tickers))
	var mu sync.Mutex

	for start := 0; start < len(tickers); start += priceChunkSize {
		if err := f.limiter.Wait(ctx); err != nil {
			f.logger.WithError(err).Warn("Price fetch canceled")
			return prices
		}

		end := start + priceChunkSize
		if end > len(tickers) {
			end = len(tickers)
		}

		var wg sync.WaitGroup
		for _, ticker := range tickers[start:end] {
			wg.Add(1)
			go func(ticker string) {
				defer wg.Done()
				price, err := f.quotes.LatestPrice(ctx, ticker)
				if err != nil {
					f.logger.WithError(err).WithField("ticker", ticker).Debug("Price lookup failed")
					return
				}
				mu.Lock()
				prices[ticker] = price
				mu.Unlock()
			}(ticker)
		}
		wg.Wait()
	}

	return prices
}
