package ml

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/capitolsignal/backend/internal/contracts"
	"github.com/capitolsignal/backend/pkg/config"
	"github.com/capitolsignal/backend/pkg/httputil"
	"github.com/capitolsignal/backend/pkg/logger"
)

// Availability cache windows: fast-retry on failure, slow-recheck on
// success, so a cold model does not stall every run.
const (
	availableTTL   = 60 * time.Second
	unavailableTTL = 5 * time.Second
)

// Prediction is one entry of the batch-predict response.
type Prediction struct {
	Ticker     string  `json:"ticker"`
	Prediction int     `json:"prediction"` // -2..2
	Confidence float64 `json:"confidence"`
	SignalType string  `json:"signal_type"`
}

// Predictor is the slice of the prediction service the engine needs.
type Predictor interface {
	// Available reports whether the prediction service is reachable,
	// using the cached probe result when fresh.
	Available(ctx context.Context) bool

	// PredictBatch sends every candidate's feature vector in one request.
	PredictBatch(ctx context.Context, vectors []contracts.MlFeatureVector) (map[string]Prediction, error)
}

// Client talks to the external prediction service. One batch POST per run,
// fire-once: a timeout degrades the run to heuristic-only.
type Client struct {
	httpClient     *httputil.Client
	baseURL        string
	predictTimeout time.Duration
	healthTimeout  time.Duration
	logger         *logger.Logger
	now            func() time.Time

	mu         sync.Mutex
	available  bool
	recheckAt  time.Time
	probedOnce bool
}

type predictRequest struct {
	Tickers []contracts.MlFeatureVector `json:"tickers"`
}

// NewClient creates a prediction service client from config.
func NewClient(cfg *config.Config, log *logger.Logger) *Client {
	return &Client{
		httpClient:     httputil.New(log).DisableRetry(),
		baseURL:        cfg.ML.BaseURL,
		predictTimeout: cfg.ML.PredictTimeout,
		healthTimeout:  cfg.ML.HealthTimeout,
		logger:         log,
		now:            time.Now,
	}
}

// WithClock overrides the client's clock. Used in tests.
func (c *Client) WithClock(now func() time.Time) *Client {
	c.now = now
	return c
}

// Available probes GET /ml/models/active, caching the outcome.
func (c *Client) Available(ctx context.Context) bool {
	if c.baseURL == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.probedOnce && now.Before(c.recheckAt) {
		return c.available
	}

	probeCtx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	available := c.probe(probeCtx)
	c.probedOnce = true
	c.available = available
	if available {
		c.recheckAt = now.Add(availableTTL)
	} else {
		c.recheckAt = now.Add(unavailableTTL)
	}

	return available
}

func (c *Client) probe(ctx context.Context) bool {
	resp, err := c.httpClient.Get(ctx, c.baseURL+"/ml/models/active")
	if err != nil {
		c.logger.WithError(err).Debug("ML health probe failed")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.WithField("status", resp.StatusCode).Debug("ML health probe unhealthy")
		return false
	}
	return true
}

// PredictBatch posts all feature vectors at once and keys the response by
// ticker. Tickers the service omits simply keep their heuristic results.
func (c *Client) PredictBatch(ctx context.Context, vectors []contracts.MlFeatureVector) (map[string]Prediction, error) {
	if len(vectors) == 0 {
		return map[string]Prediction{}, nil
	}

	batchCtx, cancel := context.WithTimeout(ctx, c.predictTimeout)
	defer cancel()

	resp, err := c.httpClient.PostJSON(batchCtx, c.baseURL+"/ml/predict", predictRequest{Tickers: vectors})
	if err != nil {
		return nil, fmt.Errorf("predict batch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("predict batch status %d", resp.StatusCode)
	}

	var predictions []Prediction
	if err := json.NewDecoder(resp.Body).Decode(&predictions); err != nil {
		return nil, fmt.Errorf("decode predictions: %w", err)
	}

	byTicker := make(map[string]Prediction, len(predictions))
	for _, p := range predictions {
		byTicker[p.Ticker] = p
	}

	c.logger.WithFields(map[string]interface{}{
		"sent":     len(vectors),
		"received": len(byTicker),
	}).Debug("Predict batch completed")

	return byTicker, nil
}
