package scoring

import (
	"math"

	"github.com/capitolsignal/backend/internal/contracts"
	"github.com/capitolsignal/backend/pkg/logger"
)

// Confidence caps. The overall cap applies everywhere, including after ML
// blending; the per-branch caps bound the signal-type bonuses.
const (
	MaxConfidence     = 0.98
	strongBonusCap    = 0.95
	moderateBonusCap  = 0.90
	volumeTier1MNet   = 1_000_000
	volumeTier100KNet = 100_000
)

// Candidate is a scored aggregate before enrichment and persistence.
type Candidate struct {
	Aggregate    *contracts.TickerAggregate
	SignalType   contracts.SignalType
	Confidence   float64
	BuySellRatio float64
}

// Scorer converts ticker aggregates into signal candidates using a
// configurable weight table.
type Scorer struct {
	weights contracts.SignalWeights
	logger  *logger.Logger
}

// New creates a scorer. The weight table must already be validated.
func New(weights contracts.SignalWeights, log *logger.Logger) *Scorer {
	return &Scorer{weights: weights, logger: log}
}

// Weights returns the scorer's weight table.
func (s *Scorer) Weights() contracts.SignalWeights {
	return s.weights
}

// Score computes the confidence score and signal type for one aggregate.
// Hold candidates are returned with ok=false; the engine only ever emits
// actionable signals.
func (s *Scorer) Score(agg *contracts.TickerAggregate) (Candidate, bool) {
	w := s.weights

	confidence := w.BaseConfidence
	confidence += s.politicianBonus(agg.PoliticianCount())
	confidence += s.recentActivityBonus(agg.RecentActivityCount)

	if agg.IsBipartisan() {
		confidence += w.BipartisanBonus
	}

	confidence += s.volumeBonus(agg.BuyVolume, agg.SellVolume)

	ratio := agg.BuySellRatio()
	signalType := s.signalType(ratio)

	switch signalType {
	case contracts.StrongBuy, contracts.StrongSell:
		confidence = math.Min(confidence+w.StrongSignalBonus, strongBonusCap)
	case contracts.Buy, contracts.Sell:
		confidence = math.Min(confidence+w.ModerateSignalBonus, moderateBonusCap)
	default:
		// Hold is never emitted.
		return Candidate{}, false
	}

	confidence = math.Min(confidence, MaxConfidence)

	s.logger.WithFields(map[string]interface{}{
		"ticker":      agg.Ticker,
		"signal_type": signalType,
		"confidence":  confidence,
		"ratio":       ratio,
	}).Debug("Scored aggregate")

	return Candidate{
		Aggregate:    agg,
		SignalType:   signalType,
		Confidence:   confidence,
		BuySellRatio: ratio,
	}, true
}

// politicianBonus returns the tiered bonus for distinct politician count.
func (s *Scorer) politicianBonus(count int) float64 {
	switch {
	case count >= 5:
		return s.weights.PoliticianCount5Plus
	case count >= 3:
		return s.weights.PoliticianCount3To4
	case count >= 2:
		return s.weights.PoliticianCount2
	default:
		return 0
	}
}

// recentActivityBonus returns the tiered bonus for 30-day activity.
func (s *Scorer) recentActivityBonus(count int) float64 {
	switch {
	case count >= 5:
		return s.weights.RecentActivity5Plus
	case count >= 2:
		return s.weights.RecentActivity2To4
	default:
		return 0
	}
}

// volumeBonus returns the tiered bonus for net directional volume.
func (s *Scorer) volumeBonus(buyVolume, sellVolume float64) float64 {
	net := math.Abs(buyVolume - sellVolume)
	switch {
	case net > volumeTier1MNet:
		return s.weights.Volume1MPlus
	case net > volumeTier100KNet:
		return s.weights.Volume100KPlus
	default:
		return 0
	}
}

// signalType decides direction from the buy/sell ratio. Precedence is
// strong-buy, buy, strong-sell, sell, hold.
func (s *Scorer) signalType(ratio float64) contracts.SignalType {
	w := s.weights
	switch {
	case ratio >= w.StrongBuyThreshold:
		return contracts.StrongBuy
	case ratio >= w.BuyThreshold:
		return contracts.Buy
	case ratio <= w.StrongSellThreshold:
		return contracts.StrongSell
	case ratio <= w.SellThreshold:
		return contracts.Sell
	default:
		return contracts.Hold
	}
}
