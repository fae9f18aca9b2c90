package scoring

import "github.com/capitolsignal/backend/internal/contracts"

// Per-notch moves for price targets. A strong signal is two notches.
const (
	targetMovePerNotch = 0.05
	takeMovePerNotch   = 0.08
	stopLossMove       = 0.05
)

// PriceTargets derives target, stop-loss and take-profit levels from the
// current price and the signal direction. The target-price refresh job uses
// the same formula, so refreshed levels stay consistent with creation.
func PriceTargets(currentPrice float64, signalType contracts.SignalType) (target, stopLoss, takeProfit float64) {
	if currentPrice <= 0 || !signalType.IsActionable() {
		return 0, 0, 0
	}

	notches := float64(signalType.Numeric())
	if notches < 0 {
		notches = -notches
	}

	if signalType.IsBuySide() {
		target = currentPrice * (1 + targetMovePerNotch*notches)
		stopLoss = currentPrice * (1 - stopLossMove)
		takeProfit = currentPrice * (1 + takeMovePerNotch*notches)
		return target, stopLoss, takeProfit
	}

	target = currentPrice * (1 - targetMovePerNotch*notches)
	stopLoss = currentPrice * (1 + stopLossMove)
	takeProfit = currentPrice * (1 - takeMovePerNotch*notches)
	return target, stopLoss, takeProfit
}
