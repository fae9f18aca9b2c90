package lambda

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/capitolsignal/backend/internal/contracts"
	"github.com/capitolsignal/backend/pkg/config"
	"github.com/capitolsignal/backend/pkg/httputil"
	"github.com/capitolsignal/backend/pkg/logger"
)

// Result carries the outcome of one user-transform execution. On failure
// Signals holds the untouched input list so previews always return
// something useful.
type Result struct {
	Applied bool
	Signals []*contracts.Signal
	Trace   []string
	Err     string
}

// Executor sends preview signals through the sandboxed user-code service.
// Transformed signals are never persisted; the caller only renders them.
type Executor struct {
	httpClient *httputil.Client
	baseURL    string
	timeout    time.Duration
	logger     *logger.Logger
}

type executeRequest struct {
	Signals    []*contracts.Signal `json:"signals"`
	LambdaCode string              `json:"lambdaCode"`
}

type executeResponse struct {
	Success bool                `json:"success"`
	Signals []*contracts.Signal `json:"signals"`
	Trace   []string            `json:"trace"`
	Error   string              `json:"error"`
}

// NewExecutor creates a user-transform executor from config.
func NewExecutor(cfg *config.Config, log *logger.Logger) *Executor {
	return &Executor{
		httpClient: httputil.New(log).DisableRetry(),
		baseURL:    cfg.Lambda.BaseURL,
		timeout:    cfg.Lambda.Timeout,
		logger:     log,
	}
}

// Execute runs the user code against the signal list. Any failure, from a
// missing service to user-code errors, degrades to the original list with
// the error recorded on the result.
func (e *Executor) Execute(ctx context.Context, signals []*contracts.Signal, code string) Result {
	if code == "" {
		return Result{Applied: false, Signals: signals}
	}
	if e.baseURL == "" {
		return Result{Applied: false, Signals: signals, Err: "lambda service not configured"}
	}

	execCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.httpClient.PostJSON(execCtx, e.baseURL+"/execute", executeRequest{
		Signals:    signals,
		LambdaCode: code,
	})
	if err != nil {
		e.logger.WithError(err).Warn("Lambda execution request failed")
		return Result{Applied: false, Signals: signals, Err: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("lambda service status %d", resp.StatusCode)
		e.logger.Warn(msg)
		return Result{Applied: false, Signals: signals, Err: msg}
	}

	var out executeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		e.logger.WithError(err).Warn("Lambda response decode failed")
		return Result{Applied: false, Signals: signals, Err: "decode lambda response: " + err.Error()}
	}

	if !out.Success {
		errMsg := out.Error
		if errMsg == "" {
			errMsg = "lambda execution failed"
		}
		return Result{Applied: false, Signals: signals, Trace: out.Trace, Err: errMsg}
	}

	e.logger.WithFields(map[string]interface{}{
		"in":  len(signals),
		"out": len(out.Signals),
	}).Info("Lambda transform applied")

	return Result{Applied: true, Signals: out.Signals, Trace: out.Trace}
}
