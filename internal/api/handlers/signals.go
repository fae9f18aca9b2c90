package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/capitolsignal/backend/internal/contracts"
	"github.com/capitolsignal/backend/internal/engine"
	"github.com/capitolsignal/backend/pkg/logger"
)

// Generator runs the signal pipeline. Satisfied by *engine.Engine.
type Generator interface {
	Generate(ctx context.Context, opts engine.Options) (*engine.Result, error)
}

// SignalLister reads persisted signals for the read endpoint.
type SignalLister interface {
	ListActive(ctx context.Context, limit int) ([]*contracts.Signal, error)
}

// SignalsHandler serves the three generation endpoints plus the read view.
type SignalsHandler struct {
	engine   Generator
	signals  SignalLister
	validate *validator.Validate
	logger   *logger.Logger
}

// NewSignalsHandler creates a new signals handler.
func NewSignalsHandler(eng Generator, signals SignalLister, log *logger.Logger) *SignalsHandler {
	return &SignalsHandler{
		engine:   eng,
		signals:  signals,
		validate: validator.New(),
		logger:   log,
	}
}

type generateRequest struct {
	LookbackDays    int     `json:"lookbackDays" validate:"omitempty,min=1,max=365"`
	MinConfidence   float64 `json:"minConfidence" validate:"omitempty,min=0,max=1"`
	FetchMarketData *bool   `json:"fetchMarketData"`
}

type regenerateRequest struct {
	LookbackDays  int     `json:"lookbackDays" validate:"omitempty,min=1,max=365"`
	MinConfidence float64 `json:"minConfidence" validate:"omitempty,min=0,max=1"`
	ClearOld      *bool   `json:"clearOld"`
	UseML         *bool   `json:"useML"`
}

type previewRequest struct {
	LookbackDays int                        `json:"lookbackDays" validate:"omitempty,min=1,max=365"`
	Weights      *contracts.WeightOverrides `json:"weights"`
	UseML        *bool                      `json:"useML"`
	UserLambda   string                     `json:"userLambda"`
}

type generateResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Signals []*contracts.Signal `json:"signals"`
	Stats   engine.Stats        `json:"stats"`
}

type regenerateResponse struct {
	generateResponse
	MLEnabled         bool   `json:"mlEnabled"`
	MLPredictionCount int    `json:"mlPredictionCount"`
	MLEnhancedCount   int    `json:"mlEnhancedCount"`
	ModelID           string `json:"modelId"`
	ModelVersion      string `json:"modelVersion"`
}

type previewResponse struct {
	Success       bool                    `json:"success"`
	Preview       bool                    `json:"preview"`
	Signals       []*contracts.Signal     `json:"signals"`
	Weights       contracts.SignalWeights `json:"weights"`
	LambdaApplied bool                    `json:"lambdaApplied"`
	LambdaError   *string                 `json:"lambdaError"`
	LambdaTrace   []string                `json:"lambdaTrace"`
	Stats         engine.Stats            `json:"stats"`
}

// Generate handles POST /api/generate-signals. Authenticated, strict
// eligibility, persists.
func (h *SignalsHandler) Generate(w http.ResponseWriter, r *http.Request) {
	req := generateRequest{LookbackDays: 30, MinConfidence: 0.65}
	if !h.decode(w, r, &req) {
		return
	}

	fetchMarketData := true
	if req.FetchMarketData != nil {
		fetchMarketData = *req.FetchMarketData
	}

	result, err := h.engine.Generate(r.Context(), engine.Options{
		LookbackDays:    req.LookbackDays,
		MinConfidence:   req.MinConfidence,
		Policy:          contracts.StrictEligibility,
		FetchMarketData: fetchMarketData,
		TriggeredBy:     engine.TriggerUser,
	})
	if err != nil {
		h.fatal(w, err)
		return
	}

	writeJSON(w, http.StatusOK, generateResponse{
		Success: true,
		Message: "signal generation completed",
		Signals: emptyIfNil(result.Signals),
		Stats:   result.Stats,
	})
}

// Regenerate handles POST /api/regenerate-signals. Service-level, relaxed
// eligibility, optional clear of the active set, ML blending attempted.
func (h *SignalsHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	req := regenerateRequest{LookbackDays: 90, MinConfidence: 0.60}
	if !h.decode(w, r, &req) {
		return
	}

	clearOld, useML := true, true
	if req.ClearOld != nil {
		clearOld = *req.ClearOld
	}
	if req.UseML != nil {
		useML = *req.UseML
	}

	result, err := h.engine.Generate(r.Context(), engine.Options{
		LookbackDays:    req.LookbackDays,
		MinConfidence:   req.MinConfidence,
		Policy:          contracts.RelaxedEligibility,
		FetchMarketData: true,
		UseML:           useML,
		ClearOld:        clearOld,
		TriggeredBy:     engine.TriggerScheduler,
	})
	if err != nil {
		h.fatal(w, err)
		return
	}

	writeJSON(w, http.StatusOK, regenerateResponse{
		generateResponse: generateResponse{
			Success: true,
			Message: "signal regeneration completed",
			Signals: emptyIfNil(result.Signals),
			Stats:   result.Stats,
		},
		MLEnabled:         result.MLEnabled,
		MLPredictionCount: result.MLPredictionCount,
		MLEnhancedCount:   result.MLEnhancedCount,
		ModelID:           result.ModelID,
		ModelVersion:      result.ModelVersion,
	})
}

// Preview handles POST /api/preview-signals. Public, relaxed eligibility,
// never writes to storage.
func (h *SignalsHandler) Preview(w http.ResponseWriter, r *http.Request) {
	req := previewRequest{LookbackDays: 30}
	if !h.decode(w, r, &req) {
		return
	}

	useML := true
	if req.UseML != nil {
		useML = *req.UseML
	}

	result, err := h.engine.Generate(r.Context(), engine.Options{
		LookbackDays:    req.LookbackDays,
		Policy:          contracts.RelaxedEligibility,
		WeightOverrides: req.Weights,
		FetchMarketData: true,
		UseML:           useML,
		UserLambda:      req.UserLambda,
		Preview:         true,
		TriggeredBy:     engine.TriggerUser,
	})
	if err != nil {
		h.fatal(w, err)
		return
	}

	resp := previewResponse{
		Success:       true,
		Preview:       true,
		Signals:       emptyIfNil(result.Signals),
		Weights:       result.Weights,
		LambdaApplied: result.LambdaApplied,
		LambdaTrace:   result.LambdaTrace,
		Stats:         result.Stats,
	}
	if result.LambdaError != "" {
		resp.LambdaError = &result.LambdaError
	}
	writeJSON(w, http.StatusOK, resp)
}

// List handles GET /api/signals.
func (h *SignalsHandler) List(w http.ResponseWriter, r *http.Request) {
	signals, err := h.signals.ListActive(r.Context(), 200)
	if err != nil {
		h.fatal(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"signals": emptyIfNil(signals),
		"count":   len(signals),
	})
}

func (h *SignalsHandler) decode(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return false
		}
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return false
	}
	return true
}

func (h *SignalsHandler) fatal(w http.ResponseWriter, err error) {
	h.logger.WithError(err).Error("Signal request failed")
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// emptyIfNil keeps `signals` an array in JSON even when no signal survived.
func emptyIfNil(signals []*contracts.Signal) []*contracts.Signal {
	if signals == nil {
		return []*contracts.Signal{}
	}
	return signals
}
