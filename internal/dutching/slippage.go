package dutching

import (
	"github.com/yourusername/dutch-trader/internal/models"
)

// ReadjustForSlippage continues a partially filled dutch. Profit already
// locked by matched BACK orders is subtracted from the original target and
// the remainder is chased across the legs not yet filled, at their current
// live prices.
//
// Only BACK-side matched orders contribute to the locked profit; matched LAY
// legs of a mixed dutch are deliberately ignored here, mirroring the
// behaviour of the sizing this re-adjustment continues.
func ReadjustForSlippage(matched []models.Order, remaining []models.Selection, targetProfit, commission float64) (*models.DutchingSummary, error) {
	if targetProfit <= 0 {
		return nil, models.ErrInvalidTarget
	}

	matchedProfit := 0.0
	for _, o := range matched {
		if o.Side != models.BetSideBack {
			continue
		}
		matchedProfit += o.Stake * (o.Price - 1.0)
	}
	matchedProfit = roundMoney(matchedProfit * commissionMultiplier(commission))

	remainingProfit := targetProfit - matchedProfit
	if remainingProfit <= 0 {
		// Target already met or exceeded by the fills; nothing left to place.
		return &models.DutchingSummary{
			Results:       []models.DutchingResult{},
			MatchedProfit: matchedProfit,
			UniformProfit: matchedProfit,
		}, nil
	}

	summary, err := CalculateBackDutchingTarget(remaining, remainingProfit, commission)
	if err != nil {
		return nil, err
	}
	summary.MatchedProfit = matchedProfit
	return summary, nil
}
