package contracts

import "time"

// SignalType is the directional call of a signal.
type SignalType string

const (
	StrongBuy  SignalType = "strong_buy"
	Buy        SignalType = "buy"
	Hold       SignalType = "hold"
	Sell       SignalType = "sell"
	StrongSell SignalType = "strong_sell"
)

// Numeric maps a signal type onto the ML prediction scale (-2..2).
func (t SignalType) Numeric() int {
	switch t {
	case StrongSell:
		return -2
	case Sell:
		return -1
	case Buy:
		return 1
	case StrongBuy:
		return 2
	default:
		return 0
	}
}

// IsActionable reports whether the type is one of the four emitted types.
// Hold candidates are always discarded before persistence.
func (t SignalType) IsActionable() bool {
	return t == StrongBuy || t == Buy || t == Sell || t == StrongSell
}

// IsBuySide reports whether the type opens or adds to a position.
func (t SignalType) IsBuySide() bool {
	return t == StrongBuy || t == Buy
}

// SignalStrength buckets confidence for display.
type SignalStrength string

const (
	VeryStrong SignalStrength = "very_strong"
	Strong     SignalStrength = "strong"
	Moderate   SignalStrength = "moderate"
	Weak       SignalStrength = "weak"
)

// StrengthForConfidence derives the display strength from a confidence score.
func StrengthForConfidence(confidence float64) SignalStrength {
	switch {
	case confidence >= 0.85:
		return VeryStrong
	case confidence >= 0.75:
		return Strong
	case confidence >= 0.65:
		return Moderate
	default:
		return Weak
	}
}

// SignalFeatures is the typed snapshot of the aggregate attached to every
// signal. Explicit optional fields instead of an open map so schema drift
// breaks at compile time; the JSON shape matches the stored column.
type SignalFeatures struct {
	Buys              int      `json:"buys"`
	Sells             int      `json:"sells"`
	BuyVolume         float64  `json:"buyVolume"`
	SellVolume        float64  `json:"sellVolume"`
	PoliticianCount   int      `json:"politicianCount"`
	RecentActivity    int      `json:"recentActivity"`
	Bipartisan        bool     `json:"bipartisan"`
	CurrentPrice      *float64 `json:"currentPrice,omitempty"`
	MarketMomentum    *float64 `json:"marketMomentum,omitempty"`
	SectorPerformance *float64 `json:"sectorPerformance,omitempty"`
}

// FeaturesFromAggregate snapshots an aggregate into the persisted shape.
func FeaturesFromAggregate(a *TickerAggregate) SignalFeatures {
	return SignalFeatures{
		Buys:            a.BuyCount,
		Sells:           a.SellCount,
		BuyVolume:       a.BuyVolume,
		SellVolume:      a.SellVolume,
		PoliticianCount: a.PoliticianCount(),
		RecentActivity:  a.RecentActivityCount,
		Bipartisan:      a.IsBipartisan(),
	}
}

// GenerationContext records how a run was triggered. Serialized onto every
// signal for provenance.
type GenerationContext struct {
	RunID         string    `json:"runId"`
	TriggeredBy   string    `json:"triggeredBy"` // "user-triggered" | "scheduler"
	Policy        string    `json:"policy"`      // eligibility policy name
	LookbackDays  int       `json:"lookbackDays"`
	MinConfidence float64   `json:"minConfidence"`
	UseML         bool      `json:"useML"`
	StartedAt     time.Time `json:"startedAt"`
}

// Signal is a persisted, confidence-scored trading signal.
type Signal struct {
	ID                      string            `json:"id,omitempty"`
	Ticker                  string            `json:"ticker"`
	AssetName               string            `json:"asset_name"`
	SignalType              SignalType        `json:"signal_type"`
	SignalStrength          SignalStrength    `json:"signal_strength"`
	ConfidenceScore         float64           `json:"confidence_score"`
	PoliticianActivityCount int               `json:"politician_activity_count"`
	BuySellRatio            float64           `json:"buy_sell_ratio"`
	TotalTransactionVolume  float64           `json:"total_transaction_volume"`
	TargetPrice             *float64          `json:"target_price,omitempty"`
	StopLoss                *float64          `json:"stop_loss,omitempty"`
	TakeProfit              *float64          `json:"take_profit,omitempty"`
	MLEnhanced              bool              `json:"ml_enhanced"`
	ModelID                 string            `json:"model_id"`
	ModelVersion            string            `json:"model_version"`
	ReproducibilityHash     string            `json:"reproducibility_hash"`
	GenerationContext       GenerationContext `json:"generation_context"`
	Features                SignalFeatures    `json:"features"`
	CreatedBy               string            `json:"created_by"` // "user-triggered" | "scheduler"
	Status                  string            `json:"status,omitempty"`
	CreatedAt               time.Time         `json:"created_at,omitempty"`
}

// MlFeatureVector is the flattened numeric/boolean view of an aggregate plus
// market enrichment sent to the external predictor. One per signal candidate.
type MlFeatureVector struct {
	Ticker            string  `json:"ticker"`
	BuyCount          int     `json:"buy_count"`
	SellCount         int     `json:"sell_count"`
	BuySellRatio      float64 `json:"buy_sell_ratio"`
	TotalVolume       float64 `json:"total_volume"`
	PoliticianCount   int     `json:"politician_count"`
	RecentActivity    int     `json:"recent_activity"`
	Bipartisan        bool    `json:"bipartisan"`
	MarketMomentum    float64 `json:"market_momentum"`
	SectorPerformance float64 `json:"sector_performance"`

	// Placeholder columns the heuristic layer does not populate. The model
	// was trained with them present, so send fixed neutral values.
	SentimentScore float64 `json:"sentiment_score"`
	NewsVolume     int     `json:"news_volume"`
	CommitteeMatch bool    `json:"committee_match"`
}
