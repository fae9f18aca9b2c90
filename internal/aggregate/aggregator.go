package aggregate

import (
	"sort"
	"strings"
	"time"

	"github.com/capitolsignal/backend/internal/contracts"
	"github.com/capitolsignal/backend/pkg/logger"
)

// recentWindow bounds the recent-activity counter, independent of the
// lookback window (which may be longer).
const recentWindow = 30 * 24 * time.Hour

// Aggregator rolls raw disclosure rows up into per-ticker feature tallies.
type Aggregator struct {
	logger *logger.Logger
	now    func() time.Time
}

// New creates a new aggregator.
func New(log *logger.Logger) *Aggregator {
	return &Aggregator{logger: log, now: time.Now}
}

// WithClock overrides the aggregator's clock. Used in tests.
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

// Aggregate groups disclosures by ticker. Rows with invalid tickers are
// dropped; rows with unclassifiable transaction types still count toward
// the politician and party sets but not toward buy/sell tallies.
func (a *Aggregator) Aggregate(disclosures []*contracts.Disclosure) []*contracts.TickerAggregate {
	byTicker := make(map[string]*contracts.TickerAggregate)
	now := a.now()

	skipped := 0
	for _, d := range disclosures {
		ticker := strings.TrimSpace(d.Ticker)
		if !ValidTicker(ticker) {
			skipped++
			continue
		}

		agg, ok := byTicker[ticker]
		if !ok {
			agg = contracts.NewTickerAggregate(ticker, d.AssetName)
			byTicker[ticker] = agg
		}
		if agg.AssetName == "" {
			agg.AssetName = d.AssetName
		}

		volume := midpointVolume(d.AmountRangeMin, d.AmountRangeMax)

		switch classify(d.TransactionType) {
		case sideBuy:
			agg.BuyCount++
			agg.BuyVolume += volume
		case sideSell:
			agg.SellCount++
			agg.SellVolume += volume
		}

		if d.PoliticianID != "" {
			agg.DistinctPoliticians[d.PoliticianID] = struct{}{}
		}
		if party := strings.ToUpper(strings.TrimSpace(d.PoliticianParty)); party != "" {
			agg.DistinctParties[party] = struct{}{}
		}

		if now.Sub(d.TransactionDate) <= recentWindow {
			agg.RecentActivityCount++
		}

		agg.SourceDisclosureIDs = append(agg.SourceDisclosureIDs, d.ID)
	}

	out := make([]*contracts.TickerAggregate, 0, len(byTicker))
	for _, agg := range byTicker {
		out = append(out, agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })

	a.logger.WithFields(map[string]interface{}{
		"disclosures": len(disclosures),
		"tickers":     len(out),
		"skipped":     skipped,
	}).Debug("Aggregated disclosures")

	return out
}

// ValidTicker filters out bonds, private placements and real-estate line
// items that masquerade as tickers in the disclosure feed.
func ValidTicker(ticker string) bool {
	if len(ticker) < 1 || len(ticker) > 10 {
		return false
	}
	return !strings.ContainsAny(ticker, " [(")
}

type side int

const (
	sideNone side = iota
	sideBuy
	sideSell
)

// classify maps the free-text transaction type onto a trade side.
func classify(transactionType string) side {
	t := strings.ToLower(transactionType)
	switch {
	case strings.Contains(t, "purchase") || strings.Contains(t, "buy"):
		return sideBuy
	case strings.Contains(t, "sale") || strings.Contains(t, "sell"):
		return sideSell
	default:
		return sideNone
	}
}

// midpointVolume estimates a disclosure's dollar volume from its amount
// range. A missing max collapses to min; a missing min counts as zero.
func midpointVolume(min, max *float64) float64 {
	lo := 0.0
	if min != nil {
		lo = *min
	}
	hi := lo
	if max != nil {
		hi = *max
	}
	return (lo + hi) / 2
}
