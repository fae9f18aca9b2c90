package contracts

import "fmt"

// SignalWeights are the tunable knobs of the heuristic scorer. Defaults are
// fixed constants; preview callers may override any subset.
type SignalWeights struct {
	BaseConfidence float64 `json:"baseConfidence"`

	// Politician-count bonus tiers
	PoliticianCount2     float64 `json:"politicianCount2"`
	PoliticianCount3To4  float64 `json:"politicianCount3_4"`
	PoliticianCount5Plus float64 `json:"politicianCount5Plus"`

	// Recent-activity bonus tiers (last 30 days)
	RecentActivity2To4  float64 `json:"recentActivity2_4"`
	RecentActivity5Plus float64 `json:"recentActivity5Plus"`

	// Bipartisan bonus: both parties traded the ticker
	BipartisanBonus float64 `json:"bipartisanBonus"`

	// Net-volume bonus tiers
	Volume100KPlus float64 `json:"volume100KPlus"`
	Volume1MPlus   float64 `json:"volume1MPlus"`

	// Signal-type bonuses
	StrongSignalBonus   float64 `json:"strongSignalBonus"`
	ModerateSignalBonus float64 `json:"moderateSignalBonus"`

	// Buy/sell ratio thresholds; must satisfy
	// strongBuy > buy > 1 > sell > strongSell > 0.
	StrongBuyThreshold  float64 `json:"strongBuyThreshold"`
	BuyThreshold        float64 `json:"buyThreshold"`
	SellThreshold       float64 `json:"sellThreshold"`
	StrongSellThreshold float64 `json:"strongSellThreshold"`
}

// DefaultWeights returns the fixed default weight table.
func DefaultWeights() SignalWeights {
	return SignalWeights{
		BaseConfidence:       0.50,
		PoliticianCount2:     0.05,
		PoliticianCount3To4:  0.10,
		PoliticianCount5Plus: 0.15,
		RecentActivity2To4:   0.05,
		RecentActivity5Plus:  0.10,
		BipartisanBonus:      0.05,
		Volume100KPlus:       0.05,
		Volume1MPlus:         0.10,
		StrongSignalBonus:    0.15,
		ModerateSignalBonus:  0.05,
		StrongBuyThreshold:   3.0,
		BuyThreshold:         1.5,
		SellThreshold:        0.67,
		StrongSellThreshold:  0.33,
	}
}

// Validate checks the weight invariants: all bonuses non-negative and the
// threshold ordering strongBuy > buy > 1 > sell > strongSell > 0.
func (w SignalWeights) Validate() error {
	bonuses := map[string]float64{
		"baseConfidence":       w.BaseConfidence,
		"politicianCount2":     w.PoliticianCount2,
		"politicianCount3_4":   w.PoliticianCount3To4,
		"politicianCount5Plus": w.PoliticianCount5Plus,
		"recentActivity2_4":    w.RecentActivity2To4,
		"recentActivity5Plus":  w.RecentActivity5Plus,
		"bipartisanBonus":      w.BipartisanBonus,
		"volume100KPlus":       w.Volume100KPlus,
		"volume1MPlus":         w.Volume1MPlus,
		"strongSignalBonus":    w.StrongSignalBonus,
		"moderateSignalBonus":  w.ModerateSignalBonus,
	}
	for name, v := range bonuses {
		if v < 0 {
			return fmt.Errorf("weight %s must be non-negative, got %v", name, v)
		}
	}

	if !(w.StrongBuyThreshold > w.BuyThreshold &&
		w.BuyThreshold > 1 &&
		1 > w.SellThreshold &&
		w.SellThreshold > w.StrongSellThreshold &&
		w.StrongSellThreshold > 0) {
		return fmt.Errorf(
			"thresholds must satisfy strongBuy(%v) > buy(%v) > 1 > sell(%v) > strongSell(%v) > 0",
			w.StrongBuyThreshold, w.BuyThreshold, w.SellThreshold, w.StrongSellThreshold,
		)
	}

	return nil
}

// WeightOverrides is a partial weight table supplied by preview callers.
// Nil fields keep the default.
type WeightOverrides struct {
	BaseConfidence       *float64 `json:"baseConfidence,omitempty"`
	PoliticianCount2     *float64 `json:"politicianCount2,omitempty"`
	PoliticianCount3To4  *float64 `json:"politicianCount3_4,omitempty"`
	PoliticianCount5Plus *float64 `json:"politicianCount5Plus,omitempty"`
	RecentActivity2To4   *float64 `json:"recentActivity2_4,omitempty"`
	RecentActivity5Plus  *float64 `json:"recentActivity5Plus,omitempty"`
	BipartisanBonus      *float64 `json:"bipartisanBonus,omitempty"`
	Volume100KPlus       *float64 `json:"volume100KPlus,omitempty"`
	Volume1MPlus         *float64 `json:"volume1MPlus,omitempty"`
	StrongSignalBonus    *float64 `json:"strongSignalBonus,omitempty"`
	ModerateSignalBonus  *float64 `json:"moderateSignalBonus,omitempty"`
	StrongBuyThreshold   *float64 `json:"strongBuyThreshold,omitempty"`
	BuyThreshold         *float64 `json:"buyThreshold,omitempty"`
	SellThreshold        *float64 `json:"sellThreshold,omitempty"`
	StrongSellThreshold  *float64 `json:"strongSellThreshold,omitempty"`
}

// Apply merges the overrides onto a base weight table.
func (o *WeightOverrides) Apply(base SignalWeights) SignalWeights {
	if o == nil {
		return base
	}
	set := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	set(&base.BaseConfidence, o.BaseConfidence)
	set(&base.PoliticianCount2, o.PoliticianCount2)
	set(&base.PoliticianCount3To4, o.PoliticianCount3To4)
	set(&base.PoliticianCount5Plus, o.PoliticianCount5Plus)
	set(&base.RecentActivity2To4, o.RecentActivity2To4)
	set(&base.RecentActivity5Plus, o.RecentActivity5Plus)
	set(&base.BipartisanBonus, o.BipartisanBonus)
	set(&base.Volume100KPlus, o.Volume100KPlus)
	set(&base.Volume1MPlus, o.Volume1MPlus)
	set(&base.StrongSignalBonus, o.StrongSignalBonus)
	set(&base.ModerateSignalBonus, o.ModerateSignalBonus)
	set(&base.StrongBuyThreshold, o.StrongBuyThreshold)
	set(&base.BuyThreshold, o.BuyThreshold)
	set(&base.SellThreshold, o.SellThreshold)
	set(&base.StrongSellThreshold, o.StrongSellThreshold)
	return base
}
