package contracts

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalType_Numeric(t *testing.T) {
	tests := []struct {
		signalType SignalType
		want       int
	}{
		{StrongSell, -2},
		{Sell, -1},
		{Hold, 0},
		{Buy, 1},
		{StrongBuy, 2},
	}

	for _, tt := range tests {
		if got := tt.signalType.Numeric(); got != tt.want {
			t.Errorf("Numeric(%s) = %d, want %d", tt.signalType, got, tt.want)
		}
	}
}

func TestSignalType_IsActionable(t *testing.T) {
	assert.True(t, StrongBuy.IsActionable())
	assert.True(t, Sell.IsActionable())
	assert.False(t, Hold.IsActionable())
	assert.False(t, SignalType("unknown").IsActionable())
}

func TestStrengthForConfidence(t *testing.T) {
	tests := []struct {
		confidence float64
		want       SignalStrength
	}{
		{0.98, VeryStrong},
		{0.85, VeryStrong},
		{0.80, Strong},
		{0.70, Moderate},
		{0.60, Weak},
		{0.0, Weak},
	}

	for _, tt := range tests {
		if got := StrengthForConfidence(tt.confidence); got != tt.want {
			t.Errorf("StrengthForConfidence(%v) = %s, want %s", tt.confidence, got, tt.want)
		}
	}
}

func TestTickerAggregate_BuySellRatio(t *testing.T) {
	tests := []struct {
		name  string
		buys  int
		sells int
		want  float64
	}{
		{"no activity is neutral", 0, 0, 1},
		{"buys without sells", 3, 0, 10},
		{"sells without buys", 0, 4, 0},
		{"four to one", 4, 1, 4},
		{"balanced", 2, 2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewTickerAggregate("AAPL", "Apple Inc")
			a.BuyCount = tt.buys
			a.SellCount = tt.sells
			assert.Equal(t, tt.want, a.BuySellRatio())
		})
	}
}

func TestTickerAggregate_IsBipartisan(t *testing.T) {
	a := NewTickerAggregate("MSFT", "Microsoft")
	a.DistinctParties["D"] = struct{}{}
	assert.False(t, a.IsBipartisan())

	a.DistinctParties["R"] = struct{}{}
	assert.True(t, a.IsBipartisan())
}

func TestEligibilityPolicy_Presets(t *testing.T) {
	a := NewTickerAggregate("NVDA", "NVIDIA")
	a.BuyCount = 2
	a.DistinctPoliticians["p1"] = struct{}{}

	// 1 politician, 2 transactions
	assert.False(t, StrictEligibility.Eligible(a))
	assert.True(t, RelaxedEligibility.Eligible(a))

	a.SellCount = 1
	a.DistinctPoliticians["p2"] = struct{}{}

	// 2 politicians, 3 transactions
	assert.True(t, StrictEligibility.Eligible(a))
	assert.True(t, RelaxedEligibility.Eligible(a))
}

func TestSignalFeatures_JSONShape(t *testing.T) {
	price := 187.5
	f := SignalFeatures{
		Buys:            4,
		Sells:           1,
		BuyVolume:       130000,
		SellVolume:      8000,
		PoliticianCount: 3,
		RecentActivity:  5,
		Bipartisan:      true,
		CurrentPrice:    &price,
	}

	data, err := json.Marshal(f)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))

	// The stored column contract uses camelCase keys.
	for _, key := range []string{"buys", "sells", "buyVolume", "sellVolume", "recentActivity", "bipartisan", "currentPrice"} {
		assert.Contains(t, raw, key)
	}
	assert.NotContains(t, raw, "marketMomentum")
}
