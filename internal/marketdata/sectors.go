package marketdata

// DefaultSectorETF is the broad-market proxy for tickers without a mapping.
const DefaultSectorETF = "SPY"

// sectorETFs maps well-known tickers to their sector ETF. The table is
// intentionally coarse; unknown tickers fall back to the broad market.
var sectorETFs = map[string]string{
	// Technology
	"AAPL": "XLK", "MSFT": "XLK", "NVDA": "XLK", "AMD": "XLK", "INTC": "XLK",
	"CRM": "XLK", "ORCL": "XLK", "ADBE": "XLK", "AVGO": "XLK", "QCOM": "XLK",
	// Communication services
	"GOOGL": "XLC", "GOOG": "XLC", "META": "XLC", "NFLX": "XLC", "DIS": "XLC",
	"T": "XLC", "VZ": "XLC",
	// Consumer discretionary
	"AMZN": "XLY", "TSLA": "XLY", "HD": "XLY", "MCD": "XLY", "NKE": "XLY",
	"SBUX": "XLY", "LOW": "XLY",
	// Financials
	"JPM": "XLF", "BAC": "XLF", "WFC": "XLF", "GS": "XLF", "MS": "XLF",
	"C": "XLF", "BLK": "XLF", "SCHW": "XLF", "V": "XLF", "MA": "XLF",
	// Health care
	"JNJ": "XLV", "UNH": "XLV", "PFE": "XLV", "ABBV": "XLV", "MRK": "XLV",
	"LLY": "XLV", "TMO": "XLV", "MRNA": "XLV",
	// Energy
	"XOM": "XLE", "CVX": "XLE", "COP": "XLE", "SLB": "XLE", "OXY": "XLE",
	// Industrials
	"BA": "XLI", "CAT": "XLI", "GE": "XLI", "LMT": "XLI", "RTX": "XLI",
	"UPS": "XLI", "HON": "XLI", "DE": "XLI",
	// Consumer staples
	"PG": "XLP", "KO": "XLP", "PEP": "XLP", "WMT": "XLP", "COST": "XLP",
	// Utilities
	"NEE": "XLU", "DUK": "XLU", "SO": "XLU",
	// Materials
	"LIN": "XLB", "FCX": "XLB", "NEM": "XLB",
	// Real estate
	"AMT": "XLRE", "PLD": "XLRE", "O": "XLRE",
}

// SectorETF returns the sector ETF symbol used as the performance proxy
// for a ticker.
func SectorETF(ticker string) string {
	if etf, ok := sectorETFs[ticker]; ok {
		return etf
	}
	return DefaultSectorETF
}
