package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/capitolsignal/backend/internal/aggregate"
	"github.com/capitolsignal/backend/internal/contracts"
	"github.com/capitolsignal/backend/internal/lambda"
	"github.com/capitolsignal/backend/internal/lineage"
	"github.com/capitolsignal/backend/internal/marketdata"
	"github.com/capitolsignal/backend/internal/ml"
	"github.com/capitolsignal/backend/internal/scoring"
	"github.com/capitolsignal/backend/pkg/logger"
	"github.com/capitolsignal/backend/pkg/metrics"
)

// Run trigger sources, stamped onto every signal's provenance.
const (
	TriggerUser      = "user-triggered"
	TriggerScheduler = "scheduler"
)

// DisclosureSource reads the ingested disclosure rows.
type DisclosureSource interface {
	ListSince(ctx context.Context, since time.Time) ([]*contracts.Disclosure, error)
}

// SignalStore persists generated signals.
type SignalStore interface {
	InsertBatch(ctx context.Context, signals []*contracts.Signal) error
	DeleteActive(ctx context.Context) (int64, error)
}

// ModelStore resolves the model a run attributes its signals to.
type ModelStore interface {
	ActiveModel(ctx context.Context) (*contracts.Model, error)
	EnsureHeuristicModel(ctx context.Context, version string) (*contracts.Model, error)
}

// ConfigStore reads runtime-tunable engine parameters.
type ConfigStore interface {
	BlendWeight(ctx context.Context, fallback float64) float64
}

// Enricher computes market momentum and sector performance per ticker.
type Enricher interface {
	EnrichAll(ctx context.Context, tickers []string) map[string]marketdata.Enrichment
}

// PriceSource fetches current prices for a ticker batch.
type PriceSource interface {
	FetchPrices(ctx context.Context, tickers []string) map[string]float64
}

// LambdaRunner applies a user transform to a preview signal batch.
type LambdaRunner interface {
	Execute(ctx context.Context, signals []*contracts.Signal, code string) lambda.Result
}

// Queue feeds qualifying signals to the reference portfolio.
type Queue interface {
	QueueAll(ctx context.Context, signals []*contracts.Signal) int
}

// AuditSink records lineage entries asynchronously.
type AuditSink interface {
	RecordAudit(entry contracts.AuditTrailEntry)
	RecordLifecycle(entry contracts.LifecycleEntry)
}

// Options configures one generation run. Callers pick the eligibility
// policy explicitly; the engine never infers it from the trigger.
type Options struct {
	LookbackDays    int
	MinConfidence   float64
	Policy          contracts.EligibilityPolicy
	WeightOverrides *contracts.WeightOverrides
	FetchMarketData bool
	UseML           bool
	UserLambda      string
	Preview         bool
	ClearOld        bool
	TriggeredBy     string
}

// Stats is the per-run summary exposed in API responses.
type Stats struct {
	TotalDisclosures int `json:"totalDisclosures"`
	UniqueTickers    int `json:"uniqueTickers"`
	SignalsGenerated int `json:"signalsGenerated"`
}

// Result is everything a run produced, persisted or not.
type Result struct {
	RunID             string
	Signals           []*contracts.Signal
	Stats             Stats
	Weights           contracts.SignalWeights
	MLEnabled         bool
	MLPredictionCount int
	MLEnhancedCount   int
	ModelID           string
	ModelVersion      string
	LambdaApplied     bool
	LambdaError       string
	LambdaTrace       []string
	SignalsDeleted    int64
	SignalsQueued     int
	Duration          time.Duration
}

// Engine runs the disclosure-to-signal pipeline end to end. Each run is
// request-scoped; the only shared state lives in the injected caches.
type Engine struct {
	disclosures DisclosureSource
	signals     SignalStore
	models      ModelStore
	config      ConfigStore
	enricher    Enricher
	prices      PriceSource
	predictor   ml.Predictor
	blender     *ml.Blender
	lambdaExec  LambdaRunner
	queue       Queue
	audit       AuditSink
	aggregator  *aggregate.Aggregator
	metrics     *metrics.Recorder
	logger      *logger.Logger

	defaultBlendWeight float64
	now                func() time.Time
}

// New creates the engine.
func New(
	disclosures DisclosureSource,
	signals SignalStore,
	models ModelStore,
	config ConfigStore,
	enricher Enricher,
	prices PriceSource,
	predictor ml.Predictor,
	lambdaExec LambdaRunner,
	queue Queue,
	audit AuditSink,
	recorder *metrics.Recorder,
	defaultBlendWeight float64,
	log *logger.Logger,
) *Engine {
	return &Engine{
		disclosures:        disclosures,
		signals:            signals,
		models:             models,
		config:             config,
		enricher:           enricher,
		prices:             prices,
		predictor:          predictor,
		blender:            ml.NewBlender(log),
		lambdaExec:         lambdaExec,
		queue:              queue,
		audit:              audit,
		aggregator:         aggregate.New(log),
		metrics:            recorder,
		logger:             log,
		defaultBlendWeight: defaultBlendWeight,
		now:                time.Now,
	}
}

// WithClock overrides the engine's clock. Used in tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	e.aggregator.WithClock(now)
	return e
}

// Generate runs one full pipeline pass. Only a disclosure-read or
// signal-insert failure is fatal; everything else degrades in place.
func (e *Engine) Generate(ctx context.Context, opts Options) (*Result, error) {
	startedAt := e.now()
	runID := uuid.NewString()

	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 30
	}
	if opts.TriggeredBy == "" {
		opts.TriggeredBy = TriggerUser
	}

	weights := contracts.DefaultWeights()
	if opts.WeightOverrides != nil {
		weights = opts.WeightOverrides.Apply(weights)
	}
	if err := weights.Validate(); err != nil {
		return nil, fmt.Errorf("invalid weights: %w", err)
	}

	log := e.logger.WithFields(map[string]interface{}{
		"run_id":  runID,
		"trigger": opts.TriggeredBy,
		"policy":  opts.Policy.Name,
	})
	log.Infof("Signal generation started (lookback=%dd, preview=%t)", opts.LookbackDays, opts.Preview)

	result := &Result{RunID: runID, Weights: weights}

	// Fatal tier: without disclosures there is nothing to score.
	since := startedAt.AddDate(0, 0, -opts.LookbackDays)
	disclosures, err := e.disclosures.ListSince(ctx, since)
	if err != nil {
		e.metrics.RecordRun(opts.TriggeredBy, "fatal", e.now().Sub(startedAt))
		return nil, fmt.Errorf("failed to load disclosures: %w", err)
	}
	result.Stats.TotalDisclosures = len(disclosures)

	aggregates := e.aggregator.Aggregate(disclosures)
	result.Stats.UniqueTickers = len(aggregates)

	candidates := e.score(aggregates, opts, weights, log)

	tickers := make([]string, len(candidates))
	for i, c := range candidates {
		tickers[i] = c.Aggregate.Ticker
	}

	var enrichments map[string]marketdata.Enrichment
	var priceBook map[string]float64
	if opts.FetchMarketData && len(tickers) > 0 {
		fetchStarted := e.now()
		enrichments = e.enricher.EnrichAll(ctx, tickers)
		priceBook = e.prices.FetchPrices(ctx, tickers)
		e.metrics.RecordExternalLatency("market_data", e.now().Sub(fetchStarted))
	}

	genCtx := contracts.GenerationContext{
		RunID:         runID,
		TriggeredBy:   opts.TriggeredBy,
		Policy:        opts.Policy.Name,
		LookbackDays:  opts.LookbackDays,
		MinConfidence: opts.MinConfidence,
		UseML:         opts.UseML,
		StartedAt:     startedAt,
	}
	signals := e.buildSignals(candidates, enrichments, priceBook, genCtx, opts.TriggeredBy)

	e.blend(ctx, signals, candidates, enrichments, opts, result, log)

	sort.Slice(signals, func(i, j int) bool {
		if signals[i].ConfidenceScore != signals[j].ConfidenceScore {
			return signals[i].ConfidenceScore > signals[j].ConfidenceScore
		}
		return signals[i].Ticker < signals[j].Ticker
	})

	if err := e.attachModel(ctx, signals, opts, result, startedAt); err != nil {
		e.metrics.RecordRun(opts.TriggeredBy, "fatal", e.now().Sub(startedAt))
		return nil, err
	}

	e.attachTargets(signals, priceBook)

	if opts.Preview && opts.UserLambda != "" {
		lambdaStarted := e.now()
		lr := e.lambdaExec.Execute(ctx, signals, opts.UserLambda)
		e.metrics.RecordExternalLatency("lambda", e.now().Sub(lambdaStarted))
		signals = lr.Signals
		result.LambdaApplied = lr.Applied
		result.LambdaError = lr.Err
		result.LambdaTrace = lr.Trace
		if !lr.Applied && lr.Err != "" {
			e.metrics.RecordDegraded("lambda")
		}
	}

	if !opts.Preview {
		if err := e.persist(ctx, signals, opts, result, startedAt); err != nil {
			e.metrics.RecordRun(opts.TriggeredBy, "fatal", e.now().Sub(startedAt))
			return nil, err
		}
	}

	result.Signals = signals
	result.Stats.SignalsGenerated = len(signals)
	result.Duration = e.now().Sub(startedAt)

	for _, sig := range signals {
		e.metrics.RecordSignal(string(sig.SignalType))
	}
	e.metrics.RecordRun(opts.TriggeredBy, "ok", result.Duration)

	log.WithFields(map[string]interface{}{
		"disclosures": result.Stats.TotalDisclosures,
		"tickers":     result.Stats.UniqueTickers,
		"signals":     result.Stats.SignalsGenerated,
		"ml_enhanced": result.MLEnhancedCount,
		"queued":      result.SignalsQueued,
		"duration_ms": result.Duration.Milliseconds(),
	}).Info("Signal generation completed")

	return result, nil
}

func (e *Engine) score(aggregates []*contracts.TickerAggregate, opts Options, weights contracts.SignalWeights, log *logger.Logger) []scoring.Candidate {
	scorer := scoring.New(weights, e.logger)

	var candidates []scoring.Candidate
	for _, agg := range aggregates {
		if !opts.Policy.Eligible(agg) {
			continue
		}
		cand, ok := scorer.Score(agg)
		if !ok {
			continue
		}
		// The confidence floor applies to the heuristic score. Survivors
		// are final: blending can move them in either direction without
		// a second cut, and discarded tickers never reach the ML batch.
		if opts.MinConfidence > 0 && cand.Confidence < opts.MinConfidence {
			continue
		}
		candidates = append(candidates, cand)
	}

	log.WithFields(map[string]interface{}{
		"aggregates": len(aggregates),
		"candidates": len(candidates),
	}).Debug("Scoring pass complete")
	return candidates
}

func (e *Engine) buildSignals(
	candidates []scoring.Candidate,
	enrichments map[string]marketdata.Enrichment,
	prices map[string]float64,
	genCtx contracts.GenerationContext,
	createdBy string,
) []*contracts.Signal {
	signals := make([]*contracts.Signal, 0, len(candidates))
	for _, cand := range candidates {
		agg := cand.Aggregate
		features := contracts.FeaturesFromAggregate(agg)

		if enr, ok := enrichments[agg.Ticker]; ok {
			momentum, sector := enr.MarketMomentum, enr.SectorPerformance
			features.MarketMomentum = &momentum
			features.SectorPerformance = &sector
		}
		if price, ok := prices[agg.Ticker]; ok {
			p := price
			features.CurrentPrice = &p
		}

		signals = append(signals, &contracts.Signal{
			Ticker:                  agg.Ticker,
			AssetName:               agg.AssetName,
			SignalType:              cand.SignalType,
			SignalStrength:          contracts.StrengthForConfidence(cand.Confidence),
			ConfidenceScore:         cand.Confidence,
			PoliticianActivityCount: agg.PoliticianCount(),
			BuySellRatio:            cand.BuySellRatio,
			TotalTransactionVolume:  agg.TotalVolume(),
			GenerationContext:       genCtx,
			Features:                features,
			CreatedBy:               createdBy,
		})
	}
	return signals
}

// blend attempts the ML pass. Any failure leaves the heuristic output
// standing; partial blending only happens when the response omits tickers.
func (e *Engine) blend(
	ctx context.Context,
	signals []*contracts.Signal,
	candidates []scoring.Candidate,
	enrichments map[string]marketdata.Enrichment,
	opts Options,
	result *Result,
	log *logger.Logger,
) {
	if !opts.UseML || len(signals) == 0 {
		return
	}
	if !e.predictor.Available(ctx) {
		log.Info("ML service unavailable, heuristic-only run")
		e.metrics.RecordDegraded("ml")
		return
	}

	vectors := make([]contracts.MlFeatureVector, len(candidates))
	for i, cand := range candidates {
		vectors[i] = featureVector(cand, enrichments[cand.Aggregate.Ticker])
	}

	batchStarted := e.now()
	predictions, err := e.predictor.PredictBatch(ctx, vectors)
	e.metrics.RecordExternalLatency("ml", e.now().Sub(batchStarted))
	if err != nil {
		log.WithError(err).Warn("ML batch prediction failed, heuristic-only run")
		e.metrics.RecordDegraded("ml")
		return
	}

	result.MLEnabled = true
	result.MLPredictionCount = len(predictions)

	w := e.config.BlendWeight(ctx, e.defaultBlendWeight)
	result.MLEnhancedCount = e.blender.Apply(signals, predictions, w)
	for i := 0; i < result.MLEnhancedCount; i++ {
		e.metrics.RecordMLEnhanced()
	}
}

// attachModel resolves the model row and stamps id, version, and
// reproducibility hash on every signal.
func (e *Engine) attachModel(ctx context.Context, signals []*contracts.Signal, opts Options, result *Result, startedAt time.Time) error {
	version := contracts.VersionManual
	if opts.UseML || opts.TriggeredBy == TriggerScheduler {
		version = contracts.VersionService
		if result.MLEnhancedCount > 0 {
			version = contracts.VersionMLEnhanced
		}
	}
	result.ModelVersion = version

	model, err := e.models.ActiveModel(ctx)
	if err != nil {
		e.logger.WithError(err).Warn("Active model lookup failed, using heuristic pseudo-model")
	}
	if model == nil {
		model, err = e.models.EnsureHeuristicModel(ctx, version)
		if err != nil {
			if opts.Preview {
				// Preview output does not persist, so an unresolvable
				// model only costs provenance fields.
				e.logger.WithError(err).Warn("Heuristic model resolution failed in preview")
				for _, sig := range signals {
					sig.ModelVersion = version
					sig.ReproducibilityHash = lineage.ReproducibilityHash(sig.Features, "", startedAt)
				}
				return nil
			}
			return fmt.Errorf("failed to resolve model: %w", err)
		}
	}
	result.ModelID = model.ID

	for _, sig := range signals {
		sig.ModelID = model.ID
		sig.ModelVersion = version
		sig.ReproducibilityHash = lineage.ReproducibilityHash(sig.Features, model.ID, startedAt)
	}
	return nil
}

func (e *Engine) attachTargets(signals []*contracts.Signal, prices map[string]float64) {
	for _, sig := range signals {
		price, ok := prices[sig.Ticker]
		if !ok || price <= 0 {
			continue
		}
		target, stop, take := scoring.PriceTargets(price, sig.SignalType)
		sig.TargetPrice = &target
		sig.StopLoss = &stop
		sig.TakeProfit = &take
	}
}

// persist commits the batch and kicks off the advisory side effects.
func (e *Engine) persist(ctx context.Context, signals []*contracts.Signal, opts Options, result *Result, startedAt time.Time) error {
	if opts.ClearOld {
		deleted, err := e.signals.DeleteActive(ctx)
		if err != nil {
			return fmt.Errorf("failed to clear active signals: %w", err)
		}
		result.SignalsDeleted = deleted
	}

	if err := e.signals.InsertBatch(ctx, signals); err != nil {
		return fmt.Errorf("failed to insert signals: %w", err)
	}

	for _, sig := range signals {
		e.audit.RecordAudit(contracts.AuditTrailEntry{
			SignalID:       sig.ID,
			EventType:      contracts.AuditCreated,
			SignalSnapshot: *sig,
			ModelID:        sig.ModelID,
			ModelVersion:   sig.ModelVersion,
			SourceSystem:   "signal-engine",
			TriggeredBy:    opts.TriggeredBy,
			Timestamp:      startedAt,
		})
		if entry, err := lineage.TransitionEntry(sig.ID, "", contracts.StateGenerated, "signal generated", opts.TriggeredBy, startedAt); err == nil {
			e.audit.RecordLifecycle(entry)
		}
	}

	queued := e.queue.QueueAll(ctx, signals)
	result.SignalsQueued = queued
	for i := 0; i < queued; i++ {
		e.metrics.RecordQueued()
	}
	return nil
}

func featureVector(cand scoring.Candidate, enr marketdata.Enrichment) contracts.MlFeatureVector {
	agg := cand.Aggregate
	return contracts.MlFeatureVector{
		Ticker:            agg.Ticker,
		BuyCount:          agg.BuyCount,
		SellCount:         agg.SellCount,
		BuySellRatio:      cand.BuySellRatio,
		TotalVolume:       agg.TotalVolume(),
		PoliticianCount:   agg.PoliticianCount(),
		RecentActivity:    agg.RecentActivityCount,
		Bipartisan:        agg.IsBipartisan(),
		MarketMomentum:    enr.MarketMomentum,
		SectorPerformance: enr.SectorPerformance,
		SentimentScore:    0.5,
		NewsVolume:        0,
		CommitteeMatch:    false,
	}
}
