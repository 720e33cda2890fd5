// Package dutching implements the stake distribution and hedge calculation
// engine: proportional and target-profit dutching for BACK and LAY selections,
// mixed-side dutching via a dense linear solve, partial-fill re-adjustment,
// single and multi-order cashout, and cross-market exposure swaps.
//
// Every function is pure and stateless: inputs are plain values, outputs are
// freshly allocated, and no call touches shared mutable state, so the engine
// is safe to invoke from any goroutine.
package dutching

import "github.com/shopspring/decimal"

// roundMoney rounds a monetary amount to 2 decimal places, half away from
// zero, matching exchange stake precision.
func roundMoney(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// commissionMultiplier converts a commission percentage (e.g. 4.5) into the
// retained fraction of a winning bet's profit.
func commissionMultiplier(commission float64) float64 {
	return 1.0 - commission/100.0
}

// applyCommission charges commission on positive profit only; losses are
// never commission-adjusted.
func applyCommission(gross, commission float64) float64 {
	if gross > 0 {
		return gross * commissionMultiplier(commission)
	}
	return gross
}
