package lambda

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitolsignal/backend/internal/contracts"
	"github.com/capitolsignal/backend/pkg/config"
	"github.com/capitolsignal/backend/pkg/logger"
)

func newTestExecutor(t *testing.T, handler http.HandlerFunc) *Executor {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{
		Lambda: config.LambdaConfig{
			BaseURL: server.URL,
			Timeout: 2 * time.Second,
		},
	}
	return NewExecutor(cfg, logger.NewNop())
}

func previewSignals() []*contracts.Signal {
	return []*contracts.Signal{
		{Ticker: "AAPL", SignalType: contracts.Buy, ConfidenceScore: 0.72},
		{Ticker: "XOM", SignalType: contracts.Sell, ConfidenceScore: 0.68},
	}
}

func TestExecute_AppliesTransform(t *testing.T) {
	var gotReq executeRequest
	e := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(executeResponse{
			Success: true,
			Signals: []*contracts.Signal{
				{Ticker: "AAPL", SignalType: contracts.Buy, ConfidenceScore: 0.80},
			},
			Trace: []string{"dropped XOM: confidence below user floor"},
		})
	})

	res := e.Execute(context.Background(), previewSignals(), "return signals.filter(...)")

	assert.True(t, res.Applied)
	assert.Empty(t, res.Err)
	require.Len(t, res.Signals, 1)
	assert.Equal(t, 0.80, res.Signals[0].ConfidenceScore)
	assert.Len(t, res.Trace, 1)

	assert.Equal(t, "return signals.filter(...)", gotReq.LambdaCode)
	assert.Len(t, gotReq.Signals, 2)
}

func TestExecute_UserCodeFailureKeepsOriginals(t *testing.T) {
	e := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(executeResponse{
			Success: false,
			Error:   "ReferenceError: undefinedVar is not defined",
			Trace:   []string{"line 3"},
		})
	})

	in := previewSignals()
	res := e.Execute(context.Background(), in, "bad code")

	assert.False(t, res.Applied)
	assert.Equal(t, "ReferenceError: undefinedVar is not defined", res.Err)
	assert.Equal(t, in, res.Signals)
	assert.Len(t, res.Trace, 1)
}

func TestExecute_ServiceErrorKeepsOriginals(t *testing.T) {
	e := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	in := previewSignals()
	res := e.Execute(context.Background(), in, "code")

	assert.False(t, res.Applied)
	assert.NotEmpty(t, res.Err)
	assert.Equal(t, in, res.Signals)
}

func TestExecute_NoCodeIsNoop(t *testing.T) {
	e := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected without user code")
	})

	in := previewSignals()
	res := e.Execute(context.Background(), in, "")

	assert.False(t, res.Applied)
	assert.Empty(t, res.Err)
	assert.Equal(t, in, res.Signals)
}

func TestExecute_Unconfigured(t *testing.T) {
	e := NewExecutor(&config.Config{}, logger.NewNop())

	in := previewSignals()
	res := e.Execute(context.Background(), in, "code")

	assert.False(t, res.Applied)
	assert.Contains(t, res.Err, "not configured")
	assert.Equal(t, in, res.Signals)
}
