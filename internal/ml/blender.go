package ml

import (
	"math"

	"github.com/capitolsignal/backend/internal/contracts"
	"github.com/capitolsignal/backend/pkg/logger"
)

// Blend multipliers. Agreement between the heuristic direction and the ML
// prediction boosts confidence; disagreement discounts it. The heuristic
// type always wins on direction; ML only adjusts confidence.
const (
	DefaultBlendWeight = 0.2
	agreementBoost     = 1.1
	disagreementFactor = 0.85
	maxConfidence      = 0.98
)

// Blender merges ML predictions into heuristic signals.
type Blender struct {
	logger *logger.Logger
}

// NewBlender creates a blender.
func NewBlender(log *logger.Logger) *Blender {
	return &Blender{logger: log}
}

// BlendConfidence combines a heuristic confidence with an ML prediction
// using blend weight w. Returns the final confidence.
func BlendConfidence(heuristicType contracts.SignalType, heuristicConfidence float64, p Prediction, w float64) float64 {
	blended := heuristicConfidence*(1-w) + p.Confidence*w

	if heuristicType.Numeric() == p.Prediction {
		return math.Min(blended*agreementBoost, maxConfidence)
	}
	return blended * disagreementFactor
}

// Apply blends predictions into the signal set in place and returns the
// number of signals that were ML-enhanced. Signals without a prediction
// keep their heuristic-only results.
func (b *Blender) Apply(signals []*contracts.Signal, predictions map[string]Prediction, w float64) int {
	enhanced := 0
	for _, sig := range signals {
		p, ok := predictions[sig.Ticker]
		if !ok {
			continue
		}

		before := sig.ConfidenceScore
		sig.ConfidenceScore = BlendConfidence(sig.SignalType, sig.ConfidenceScore, p, w)
		sig.SignalStrength = contracts.StrengthForConfidence(sig.ConfidenceScore)
		sig.MLEnhanced = true
		enhanced++

		b.logger.WithFields(map[string]interface{}{
			"ticker":     sig.Ticker,
			"prediction": p.Prediction,
			"before":     before,
			"after":      sig.ConfidenceScore,
			"agreement":  sig.SignalType.Numeric() == p.Prediction,
		}).Debug("Blended ML prediction")
	}
	return enhanced
}
