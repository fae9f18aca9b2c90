package contracts

import "time"

// Disclosure is a single reported trade by a politician, as ingested by the
// upstream ETL. The engine only ever reads these rows.
type Disclosure struct {
	ID              string     `json:"id"`
	Ticker          string     `json:"ticker"`
	AssetName       string     `json:"asset_name"`
	TransactionType string     `json:"transaction_type"` // free text: "Purchase", "Sale (Full)", ...
	AmountRangeMin  *float64   `json:"amount_range_min"`
	AmountRangeMax  *float64   `json:"amount_range_max"`
	TransactionDate time.Time  `json:"transaction_date"`
	PoliticianID    string     `json:"politician_id"`
	PoliticianParty string     `json:"politician_party"` // "D", "R", ...
}

// TickerAggregate is the per-ticker rollup of disclosures over a lookback
// window. It lives only for the duration of one generation run.
type TickerAggregate struct {
	Ticker              string
	AssetName           string
	BuyCount            int
	SellCount           int
	BuyVolume           float64
	SellVolume          float64
	DistinctPoliticians map[string]struct{}
	DistinctParties     map[string]struct{}
	RecentActivityCount int // disclosures in the last 30 days
	SourceDisclosureIDs []string
}

// NewTickerAggregate creates an empty aggregate for a ticker.
func NewTickerAggregate(ticker, assetName string) *TickerAggregate {
	return &TickerAggregate{
		Ticker:              ticker,
		AssetName:           assetName,
		DistinctPoliticians: make(map[string]struct{}),
		DistinctParties:     make(map[string]struct{}),
	}
}

// PoliticianCount returns the number of distinct politicians in the aggregate.
func (a *TickerAggregate) PoliticianCount() int {
	return len(a.DistinctPoliticians)
}

// TotalTransactions returns the number of classified buy/sell disclosures.
func (a *TickerAggregate) TotalTransactions() int {
	return a.BuyCount + a.SellCount
}

// TotalVolume returns the combined midpoint volume of buys and sells.
func (a *TickerAggregate) TotalVolume() float64 {
	return a.BuyVolume + a.SellVolume
}

// IsBipartisan reports whether both major parties appear in the aggregate.
func (a *TickerAggregate) IsBipartisan() bool {
	_, d := a.DistinctParties["D"]
	_, r := a.DistinctParties["R"]
	return d && r
}

// BuySellRatio returns the buy/sell transaction ratio.
// No sells with buys present maps to 10 (strongly one-sided);
// no activity at all maps to 1 (neutral).
func (a *TickerAggregate) BuySellRatio() float64 {
	if a.SellCount > 0 {
		return float64(a.BuyCount) / float64(a.SellCount)
	}
	if a.BuyCount > 0 {
		return 10
	}
	return 1
}

// EligibilityPolicy is the floor an aggregate must clear before scoring.
// Two fixed presets exist; the caller selects one explicitly.
type EligibilityPolicy struct {
	Name            string
	MinPoliticians  int
	MinTransactions int
}

var (
	// StrictEligibility is used for authenticated manual generation.
	StrictEligibility = EligibilityPolicy{Name: "strict", MinPoliticians: 2, MinTransactions: 3}

	// RelaxedEligibility is used for scheduled regeneration and preview mode.
	RelaxedEligibility = EligibilityPolicy{Name: "relaxed", MinPoliticians: 1, MinTransactions: 2}
)

// Eligible reports whether the aggregate clears the policy floor.
func (p EligibilityPolicy) Eligible(a *TickerAggregate) bool {
	return a.PoliticianCount() >= p.MinPoliticians && a.TotalTransactions() >= p.MinTransactions
}
