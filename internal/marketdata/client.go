package marketdata

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/capitolsignal/backend/pkg/config"
	"github.com/capitolsignal/backend/pkg/httputil"
	"github.com/capitolsignal/backend/pkg/logger"
	"github.com/capitolsignal/backend/pkg/redis"
)

// Bar is a single daily price bar from the quote API. Only the close is
// used; the other fields ride along for future consumers.
type Bar struct {
	Timestamp time.Time `json:"t"`
	Open      float64   `json:"o"`
	High      float64   `json:"h"`
	Low       float64   `json:"l"`
	Close     float64   `json:"c"`
	Volume    int64     `json:"v"`
}

// QuoteAPI is the slice of the market-data provider the engine needs.
type QuoteAPI interface {
	// Bars returns daily bars for a symbol, oldest first.
	Bars(ctx context.Context, symbol string, start, end time.Time, limit int) ([]Bar, error)

	// LatestPrice returns the most recent daily close for a symbol.
	LatestPrice(ctx context.Context, symbol string) (float64, error)
}

// Client calls the external quote API over HTTP. Retry is disabled: a
// failed fetch degrades the run instead of stalling it.
type Client struct {
	httpClient *httputil.Client
	baseURL    string
	apiKey     string
	apiSecret  string
	logger     *logger.Logger
}

type barsResponse struct {
	Bars []Bar `json:"bars"`
}

// NewClient creates a quote API client from config.
func NewClient(cfg *config.Config, log *logger.Logger) *Client {
	httpClient := httputil.NewWithTimeout(log, 5*time.Second).
		DisableRetry().
		WithHeaders(map[string]string{
			"APCA-API-KEY-ID":     cfg.MarketData.APIKey,
			"APCA-API-SECRET-KEY": cfg.MarketData.APISecret,
		})

	return &Client{
		httpClient: httpClient,
		baseURL:    cfg.MarketData.BaseURL,
		apiKey:     cfg.MarketData.APIKey,
		apiSecret:  cfg.MarketData.APISecret,
		logger:     log,
	}
}

// WithRateLimiter applies a shared cross-process budget to quote API calls.
// Used when Redis is enabled so multiple instances stay under the provider
// limit together; the in-process chunking still applies either way.
func (c *Client) WithRateLimiter(limiter *redis.RateLimiter) *Client {
	c.httpClient.WithRateLimiter(limiter, redis.QuoteRateLimit)
	return c
}

// Bars fetches daily bars for a symbol.
func (c *Client) Bars(ctx context.Context, symbol string, start, end time.Time, limit int) ([]Bar, error) {
	if c.apiKey == "" || c.apiSecret == "" {
		return nil, fmt.Errorf("market data credentials not configured")
	}

	q := url.Values{}
	q.Set("timeframe", "1Day")
	q.Set("start", start.Format(time.RFC3339))
	q.Set("end", end.Format(time.RFC3339))
	q.Set("limit", fmt.Sprintf("%d", limit))

	fullURL := fmt.Sprintf("%s/stocks/%s/bars?%s", c.baseURL, url.PathEscape(symbol), q.Encode())

	var body barsResponse
	if err := c.httpClient.GetJSON(ctx, fullURL, &body); err != nil {
		return nil, fmt.Errorf("fetch bars for %s: %w", symbol, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"count":  len(body.Bars),
	}).Debug("Fetched bars")

	return body.Bars, nil
}

// LatestPrice returns the close of the most recent daily bar.
func (c *Client) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -7)

	bars, err := c.Bars(ctx, symbol, start, end, 10)
	if err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		return 0, fmt.Errorf("no bars returned for %s", symbol)
	}
	return bars[len(bars)-1].Close, nil
}
