package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitolsignal/backend/internal/contracts"
	"github.com/capitolsignal/backend/internal/lambda"
	"github.com/capitolsignal/backend/internal/marketdata"
	"github.com/capitolsignal/backend/internal/ml"
	"github.com/capitolsignal/backend/pkg/logger"
	"github.com/capitolsignal/backend/pkg/metrics"
)

var testNow = time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

type fakeDisclosures struct {
	rows []*contracts.Disclosure
	err  error
}

func (f *fakeDisclosures) ListSince(ctx context.Context, since time.Time) ([]*contracts.Disclosure, error) {
	return f.rows, f.err
}

type fakeSignalStore struct {
	inserted   []*contracts.Signal
	deleted    int64
	cleared    bool
	insertErr  error
	nextID     int
}

func (f *fakeSignalStore) InsertBatch(ctx context.Context, signals []*contracts.Signal) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	for _, sig := range signals {
		f.nextID++
		sig.ID = fmt.Sprintf("sig-%d", f.nextID)
		sig.Status = contracts.StateActive
	}
	f.inserted = append(f.inserted, signals...)
	return nil
}

func (f *fakeSignalStore) DeleteActive(ctx context.Context) (int64, error) {
	f.cleared = true
	return f.deleted, nil
}

type fakeModelStore struct {
	active       *contracts.Model
	heuristicErr error
}

func (f *fakeModelStore) ActiveModel(ctx context.Context) (*contracts.Model, error) {
	return f.active, nil
}

func (f *fakeModelStore) EnsureHeuristicModel(ctx context.Context, version string) (*contracts.Model, error) {
	if f.heuristicErr != nil {
		return nil, f.heuristicErr
	}
	return &contracts.Model{ID: "heuristic-1", ModelName: contracts.HeuristicModelName, ModelVersion: version, Status: "active"}, nil
}

type fakeConfigStore struct{ weight float64 }

func (f *fakeConfigStore) BlendWeight(ctx context.Context, fallback float64) float64 {
	if f.weight > 0 {
		return f.weight
	}
	return fallback
}

type fakeEnricher struct{ data map[string]marketdata.Enrichment }

func (f *fakeEnricher) EnrichAll(ctx context.Context, tickers []string) map[string]marketdata.Enrichment {
	return f.data
}

type fakePrices struct{ data map[string]float64 }

func (f *fakePrices) FetchPrices(ctx context.Context, tickers []string) map[string]float64 {
	return f.data
}

type fakePredictor struct {
	available   bool
	predictions map[string]ml.Prediction
	err         error
	batches     [][]contracts.MlFeatureVector
}

func (f *fakePredictor) Available(ctx context.Context) bool { return f.available }

func (f *fakePredictor) PredictBatch(ctx context.Context, vectors []contracts.MlFeatureVector) (map[string]ml.Prediction, error) {
	f.batches = append(f.batches, vectors)
	return f.predictions, f.err
}

type fakeLambda struct{ result lambda.Result }

func (f *fakeLambda) Execute(ctx context.Context, signals []*contracts.Signal, code string) lambda.Result {
	if f.result.Signals == nil {
		f.result.Signals = signals
	}
	return f.result
}

type fakeQueue struct{ queued []*contracts.Signal }

func (f *fakeQueue) QueueAll(ctx context.Context, signals []*contracts.Signal) int {
	f.queued = append(f.queued, signals...)
	return len(signals)
}

type fakeAudit struct {
	audits     []contracts.AuditTrailEntry
	lifecycles []contracts.LifecycleEntry
}

func (f *fakeAudit) RecordAudit(e contracts.AuditTrailEntry) { f.audits = append(f.audits, e) }

func (f *fakeAudit) RecordLifecycle(e contracts.LifecycleEntry) {
	f.lifecycles = append(f.lifecycles, e)
}

type fixture struct {
	engine      *Engine
	disclosures *fakeDisclosures
	store       *fakeSignalStore
	models      *fakeModelStore
	predictor   *fakePredictor
	lambdaExec  *fakeLambda
	queue       *fakeQueue
	audit       *fakeAudit
	enricher    *fakeEnricher
	prices      *fakePrices
	registry    *prometheus.Registry
}

func newFixture() *fixture {
	f := &fixture{
		disclosures: &fakeDisclosures{},
		store:       &fakeSignalStore{},
		models:      &fakeModelStore{},
		predictor:   &fakePredictor{},
		lambdaExec:  &fakeLambda{},
		queue:       &fakeQueue{},
		audit:       &fakeAudit{},
		enricher:    &fakeEnricher{},
		prices:      &fakePrices{},
		registry:    prometheus.NewRegistry(),
	}
	f.engine = New(
		f.disclosures, f.store, f.models, &fakeConfigStore{},
		f.enricher, f.prices, f.predictor, f.lambdaExec,
		f.queue, f.audit,
		metrics.NewWith(f.registry),
		0.2, logger.NewNop(),
	).WithClock(func() time.Time { return testNow })
	return f
}

func amount(v float64) *float64 { return &v }

// xyzDisclosures builds 5 disclosures on XYZ: 4 purchases and 1 sale by
// 3 distinct politicians (2 D, 1 R) within 10 days.
func xyzDisclosures() []*contracts.Disclosure {
	mk := func(id, txType, pol, party string, daysAgo int) *contracts.Disclosure {
		return &contracts.Disclosure{
			ID:              id,
			Ticker:          "XYZ",
			AssetName:       "XYZ Corp",
			TransactionType: txType,
			AmountRangeMin:  amount(1000),
			AmountRangeMax:  amount(15000),
			TransactionDate: testNow.AddDate(0, 0, -daysAgo),
			PoliticianID:    pol,
			PoliticianParty: party,
		}
	}
	return []*contracts.Disclosure{
		mk("d1", "Purchase", "pol-1", "D", 2),
		mk("d2", "Purchase", "pol-1", "D", 4),
		mk("d3", "Purchase", "pol-2", "D", 6),
		mk("d4", "Purchase", "pol-3", "R", 8),
		mk("d5", "Sale (Full)", "pol-2", "D", 10),
	}
}

func TestGenerate_EndToEnd(t *testing.T) {
	f := newFixture()
	f.disclosures.rows = xyzDisclosures()

	result, err := f.engine.Generate(context.Background(), Options{
		LookbackDays:  30,
		MinConfidence: 0.65,
		Policy:        contracts.StrictEligibility,
		TriggeredBy:   TriggerUser,
	})
	require.NoError(t, err)

	assert.Equal(t, 5, result.Stats.TotalDisclosures)
	assert.Equal(t, 1, result.Stats.UniqueTickers)
	assert.Equal(t, 1, result.Stats.SignalsGenerated)

	require.Len(t, result.Signals, 1)
	sig := result.Signals[0]
	assert.Equal(t, "XYZ", sig.Ticker)
	assert.Equal(t, contracts.StrongBuy, sig.SignalType)
	assert.InDelta(t, 0.85, sig.ConfidenceScore, 1e-9)
	assert.Equal(t, 4.0, sig.BuySellRatio)
	assert.Equal(t, 3, sig.PoliticianActivityCount)
	assert.False(t, sig.MLEnhanced)

	// Provenance: heuristic pseudo-model, manual version, stable hash.
	assert.Equal(t, "heuristic-1", sig.ModelID)
	assert.Equal(t, contracts.VersionManual, sig.ModelVersion)
	assert.NotEmpty(t, sig.ReproducibilityHash)

	// Persisted, audited, and queued (0.85 clears the 0.70 buy bar).
	require.Len(t, f.store.inserted, 1)
	assert.Len(t, f.audit.audits, 1)
	assert.Len(t, f.audit.lifecycles, 1)
	assert.Equal(t, contracts.StateGenerated, f.audit.lifecycles[0].CurrentState)
	assert.Len(t, f.queue.queued, 1)
	assert.Equal(t, 1, result.SignalsQueued)
}

func TestGenerate_FatalOnDisclosureReadFailure(t *testing.T) {
	f := newFixture()
	f.disclosures.err = fmt.Errorf("connection refused")

	_, err := f.engine.Generate(context.Background(), Options{Policy: contracts.RelaxedEligibility})
	assert.Error(t, err)
}

func TestGenerate_FatalOnInsertFailure(t *testing.T) {
	f := newFixture()
	f.disclosures.rows = xyzDisclosures()
	f.store.insertErr = fmt.Errorf("constraint violation")

	_, err := f.engine.Generate(context.Background(), Options{
		Policy:      contracts.StrictEligibility,
		TriggeredBy: TriggerUser,
	})
	assert.Error(t, err)
}

func TestGenerate_PreviewNeverPersists(t *testing.T) {
	f := newFixture()
	f.disclosures.rows = xyzDisclosures()

	result, err := f.engine.Generate(context.Background(), Options{
		Policy:      contracts.RelaxedEligibility,
		Preview:     true,
		TriggeredBy: TriggerUser,
	})
	require.NoError(t, err)

	assert.Len(t, result.Signals, 1)
	assert.Empty(t, f.store.inserted)
	assert.Empty(t, f.queue.queued)
	assert.Empty(t, f.audit.audits)
}

func TestGenerate_MinConfidenceFilters(t *testing.T) {
	f := newFixture()
	f.disclosures.rows = xyzDisclosures()

	result, err := f.engine.Generate(context.Background(), Options{
		MinConfidence: 0.90,
		Policy:        contracts.StrictEligibility,
		TriggeredBy:   TriggerUser,
	})
	require.NoError(t, err)
	assert.Empty(t, result.Signals)
}

func TestGenerate_MLUnavailableDegrades(t *testing.T) {
	f := newFixture()
	f.disclosures.rows = xyzDisclosures()
	f.predictor.available = false

	result, err := f.engine.Generate(context.Background(), Options{
		Policy:      contracts.RelaxedEligibility,
		UseML:       true,
		TriggeredBy: TriggerScheduler,
	})
	require.NoError(t, err)

	assert.False(t, result.MLEnabled)
	assert.Zero(t, result.MLEnhancedCount)
	assert.False(t, result.Signals[0].MLEnhanced)
	assert.Equal(t, contracts.VersionService, result.ModelVersion)
}

func TestGenerate_MLBlendsAndStampsVersion(t *testing.T) {
	f := newFixture()
	f.disclosures.rows = xyzDisclosures()
	f.predictor.available = true
	f.predictor.predictions = map[string]ml.Prediction{
		"XYZ": {Ticker: "XYZ", Prediction: 2, Confidence: 0.90},
	}

	result, err := f.engine.Generate(context.Background(), Options{
		Policy:      contracts.RelaxedEligibility,
		UseML:       true,
		ClearOld:    true,
		TriggeredBy: TriggerScheduler,
	})
	require.NoError(t, err)

	assert.True(t, result.MLEnabled)
	assert.Equal(t, 1, result.MLPredictionCount)
	assert.Equal(t, 1, result.MLEnhancedCount)
	assert.Equal(t, contracts.VersionMLEnhanced, result.ModelVersion)
	assert.True(t, f.store.cleared)

	sig := result.Signals[0]
	assert.True(t, sig.MLEnhanced)
	// Agreement: min((0.85*0.8 + 0.90*0.2)*1.1, 0.98)
	assert.InDelta(t, 0.946, sig.ConfidenceScore, 1e-9)
}

func TestGenerate_MinConfidenceAppliesBeforeBlend(t *testing.T) {
	f := newFixture()
	f.disclosures.rows = xyzDisclosures()
	f.predictor.available = true
	f.predictor.predictions = map[string]ml.Prediction{
		"XYZ": {Ticker: "XYZ", Prediction: 2, Confidence: 0.90},
	}

	// Heuristic 0.85 falls under the 0.90 floor: the candidate is gone
	// before blending, so the agreement boost cannot resurrect it and the
	// ML service never sees the ticker.
	result, err := f.engine.Generate(context.Background(), Options{
		MinConfidence: 0.90,
		Policy:        contracts.RelaxedEligibility,
		UseML:         true,
		TriggeredBy:   TriggerScheduler,
	})
	require.NoError(t, err)

	assert.Empty(t, result.Signals)
	assert.False(t, result.MLEnabled)
	assert.Empty(t, f.predictor.batches)
	assert.Empty(t, f.store.inserted)
}

func TestGenerate_BlendDiscountBelowFloorStillEmitted(t *testing.T) {
	f := newFixture()
	f.disclosures.rows = xyzDisclosures()
	f.predictor.available = true
	f.predictor.predictions = map[string]ml.Prediction{
		"XYZ": {Ticker: "XYZ", Prediction: -1, Confidence: 0.90},
	}

	// Heuristic 0.85 clears the 0.80 floor; the disagreement discount
	// then lands at (0.85*0.8 + 0.90*0.2)*0.85 = 0.731. The signal is
	// kept anyway: the floor judges the heuristic score only.
	result, err := f.engine.Generate(context.Background(), Options{
		MinConfidence: 0.80,
		Policy:        contracts.RelaxedEligibility,
		UseML:         true,
		TriggeredBy:   TriggerScheduler,
	})
	require.NoError(t, err)

	require.Len(t, result.Signals, 1)
	sig := result.Signals[0]
	assert.InDelta(t, 0.731, sig.ConfidenceScore, 1e-9)
	assert.Equal(t, contracts.StrongBuy, sig.SignalType)
	assert.True(t, sig.MLEnhanced)
	assert.Equal(t, 1, result.MLEnhancedCount)
}

func TestGenerate_MLBatchFailureDegrades(t *testing.T) {
	f := newFixture()
	f.disclosures.rows = xyzDisclosures()
	f.predictor.available = true
	f.predictor.err = fmt.Errorf("timeout")

	result, err := f.engine.Generate(context.Background(), Options{
		Policy:      contracts.RelaxedEligibility,
		UseML:       true,
		TriggeredBy: TriggerScheduler,
	})
	require.NoError(t, err)

	assert.False(t, result.MLEnabled)
	assert.InDelta(t, 0.85, result.Signals[0].ConfidenceScore, 1e-9)
}

func TestGenerate_MarketDataAttachesTargets(t *testing.T) {
	f := newFixture()
	f.disclosures.rows = xyzDisclosures()
	f.enricher.data = map[string]marketdata.Enrichment{
		"XYZ": {MarketMomentum: 12.5, SectorPerformance: 3.0},
	}
	f.prices.data = map[string]float64{"XYZ": 100}

	result, err := f.engine.Generate(context.Background(), Options{
		Policy:          contracts.StrictEligibility,
		FetchMarketData: true,
		TriggeredBy:     TriggerUser,
	})
	require.NoError(t, err)

	sig := result.Signals[0]
	require.NotNil(t, sig.Features.CurrentPrice)
	assert.Equal(t, 100.0, *sig.Features.CurrentPrice)
	assert.Equal(t, 12.5, *sig.Features.MarketMomentum)

	// strong_buy at 100: two notches up for the target, fixed 5% stop.
	require.NotNil(t, sig.TargetPrice)
	assert.InDelta(t, 110, *sig.TargetPrice, 1e-9)
	assert.InDelta(t, 95, *sig.StopLoss, 1e-9)
}

func TestGenerate_RecordsExternalLatency(t *testing.T) {
	f := newFixture()
	f.disclosures.rows = xyzDisclosures()
	f.prices.data = map[string]float64{"XYZ": 100}
	f.predictor.available = true
	f.predictor.predictions = map[string]ml.Prediction{
		"XYZ": {Ticker: "XYZ", Prediction: 2, Confidence: 0.90},
	}

	_, err := f.engine.Generate(context.Background(), Options{
		Policy:          contracts.RelaxedEligibility,
		FetchMarketData: true,
		UseML:           true,
		TriggeredBy:     TriggerScheduler,
	})
	require.NoError(t, err)

	// One series per dependency touched: market_data and ml.
	count, err := testutil.GatherAndCount(f.registry, "signal_engine_external_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestGenerate_LambdaFailureKeepsSignals(t *testing.T) {
	f := newFixture()
	f.disclosures.rows = xyzDisclosures()
	f.lambdaExec.result = lambda.Result{Applied: false, Err: "execution timed out"}

	result, err := f.engine.Generate(context.Background(), Options{
		Policy:      contracts.RelaxedEligibility,
		Preview:     true,
		UserLambda:  "filter stuff",
		TriggeredBy: TriggerUser,
	})
	require.NoError(t, err)

	assert.False(t, result.LambdaApplied)
	assert.Equal(t, "execution timed out", result.LambdaError)
	require.Len(t, result.Signals, 1)
	assert.Equal(t, "XYZ", result.Signals[0].Ticker)
}

func TestGenerate_InvalidWeightOverrides(t *testing.T) {
	f := newFixture()
	bad := -0.5
	_, err := f.engine.Generate(context.Background(), Options{
		Policy:          contracts.RelaxedEligibility,
		WeightOverrides: &contracts.WeightOverrides{BipartisanBonus: &bad},
	})
	assert.Error(t, err)
}

func TestGenerate_StrictPolicyExcludesThinTickers(t *testing.T) {
	f := newFixture()
	// Single politician, two transactions: passes relaxed, fails strict.
	f.disclosures.rows = []*contracts.Disclosure{
		{ID: "d1", Ticker: "ABC", TransactionType: "Purchase", AmountRangeMin: amount(1000), AmountRangeMax: amount(15000), TransactionDate: testNow.AddDate(0, 0, -1), PoliticianID: "pol-1", PoliticianParty: "D"},
		{ID: "d2", Ticker: "ABC", TransactionType: "Purchase", AmountRangeMin: amount(1000), AmountRangeMax: amount(15000), TransactionDate: testNow.AddDate(0, 0, -2), PoliticianID: "pol-1", PoliticianParty: "D"},
	}

	strict, err := f.engine.Generate(context.Background(), Options{Policy: contracts.StrictEligibility, TriggeredBy: TriggerUser})
	require.NoError(t, err)
	assert.Empty(t, strict.Signals)

	relaxed, err := f.engine.Generate(context.Background(), Options{Policy: contracts.RelaxedEligibility, TriggeredBy: TriggerUser})
	require.NoError(t, err)
	assert.Len(t, relaxed.Signals, 1)
}
