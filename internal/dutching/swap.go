package dutching

import (
	"fmt"

	"github.com/yourusername/dutch-trader/internal/models"
)

// CalculateExposureSwap sizes each market leg independently against the same
// nominal target. There is no coupling of correlated outcomes across
// markets: this is a rough sizing helper for moving exposure between
// markets, with a much weaker guarantee than the equal-profit dutching
// calculators.
func CalculateExposureSwap(legs []models.SwapLeg, targetProfit, commission float64) (*models.SwapResult, error) {
	if len(legs) == 0 {
		return nil, models.ErrNoSelections
	}
	if targetProfit <= 0 {
		return nil, models.ErrInvalidTarget
	}

	cm := commissionMultiplier(commission)
	result := &models.SwapResult{
		GrossTarget: roundMoney(targetProfit / cm),
	}

	for _, leg := range legs {
		if leg.Odds <= 1.0 {
			return nil, fmt.Errorf("leg %d has odds %.2f, must be greater than 1.0", leg.SelectionID, leg.Odds)
		}

		var stake, exposure float64
		switch leg.Side {
		case models.BetSideLay:
			stake = roundMoney(targetProfit / (leg.Odds * cm))
			exposure = roundMoney(stake * (leg.Odds - 1.0))
		default:
			stake = roundMoney(targetProfit / ((leg.Odds - 1.0) * cm))
			exposure = stake
		}

		result.Legs = append(result.Legs, models.SwapLegResult{
			SwapLeg:  leg,
			Stake:    stake,
			Exposure: exposure,
		})
		result.TotalExposure += exposure
	}

	result.TotalExposure = roundMoney(result.TotalExposure)
	return result, nil
}
