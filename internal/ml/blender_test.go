package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/capitolsignal/backend/internal/contracts"
	"github.com/capitolsignal/backend/pkg/logger"
)

func TestBlendConfidence_Agreement(t *testing.T) {
	p := Prediction{Ticker: "AAPL", Prediction: 1, Confidence: 0.78}

	// (0.70*0.8 + 0.78*0.2) * 1.1 = 0.7876
	got := BlendConfidence(contracts.Buy, 0.70, p, 0.2)
	assert.InDelta(t, 0.7876, got, 1e-9)
}

func TestBlendConfidence_Disagreement(t *testing.T) {
	p := Prediction{Ticker: "AAPL", Prediction: -1, Confidence: 0.80}

	// (0.70*0.8 + 0.80*0.2) * 0.85 = 0.612
	got := BlendConfidence(contracts.Buy, 0.70, p, 0.2)
	assert.InDelta(t, 0.612, got, 1e-9)
}

func TestBlendConfidence_AgreementCapped(t *testing.T) {
	p := Prediction{Ticker: "NVDA", Prediction: 2, Confidence: 0.99}

	got := BlendConfidence(contracts.StrongBuy, 0.95, p, 0.2)
	assert.Equal(t, 0.98, got)
}

func TestBlender_Apply(t *testing.T) {
	signals := []*contracts.Signal{
		{Ticker: "AAPL", SignalType: contracts.Buy, ConfidenceScore: 0.70, SignalStrength: contracts.Moderate},
		{Ticker: "MSFT", SignalType: contracts.Buy, ConfidenceScore: 0.72, SignalStrength: contracts.Moderate},
		{Ticker: "XOM", SignalType: contracts.Sell, ConfidenceScore: 0.68, SignalStrength: contracts.Moderate},
	}
	predictions := map[string]Prediction{
		"AAPL": {Ticker: "AAPL", Prediction: 1, Confidence: 0.78},
		"XOM":  {Ticker: "XOM", Prediction: 1, Confidence: 0.80},
	}

	b := NewBlender(logger.NewNop())
	enhanced := b.Apply(signals, predictions, 0.2)

	assert.Equal(t, 2, enhanced)

	// Agreement boosts and the strength band moves with the new confidence.
	assert.InDelta(t, 0.7876, signals[0].ConfidenceScore, 1e-9)
	assert.Equal(t, contracts.Strong, signals[0].SignalStrength)
	assert.True(t, signals[0].MLEnhanced)

	// No prediction for MSFT: untouched.
	assert.Equal(t, 0.72, signals[1].ConfidenceScore)
	assert.False(t, signals[1].MLEnhanced)

	// Disagreement discounts but never flips the heuristic direction.
	assert.Equal(t, contracts.Sell, signals[2].SignalType)
	assert.InDelta(t, (0.68*0.8+0.80*0.2)*0.85, signals[2].ConfidenceScore, 1e-9)
	assert.True(t, signals[2].MLEnhanced)
}
