package dutching

import (
	"fmt"

	"github.com/yourusername/dutch-trader/internal/models"
)

// CalculateMixedDutching sizes a dutch whose legs mix BACK and LAY sides so
// that the net profit equals targetProfit on every outcome. Uniform-side
// inputs fall back to the dedicated calculators; the genuinely mixed case is
// solved as a dense linear system with one equation per outcome.
//
// A negative solved stake means the selection combination cannot satisfy the
// simultaneous equal-profit constraint with positive stakes, and is rejected.
func CalculateMixedDutching(selections []models.Selection, targetProfit, commission float64) (*models.DutchingSummary, error) {
	if len(selections) == 0 {
		return nil, models.ErrNoSelections
	}
	if targetProfit <= 0 {
		return nil, models.ErrInvalidTarget
	}
	if err := validatePrices(selections); err != nil {
		return nil, err
	}

	backs, lays := 0, 0
	for _, s := range selections {
		switch s.EffectiveType {
		case models.BetSideLay:
			lays++
		default:
			backs++
		}
	}

	if lays == 0 {
		return CalculateBackDutchingTarget(selections, targetProfit, commission)
	}
	if backs == 0 {
		return CalculateLayDutching(selections, targetProfit, commission)
	}

	stakes, err := solveMixedStakes(selections, targetProfit, commission)
	if err != nil {
		return nil, err
	}

	for i, stake := range stakes {
		if stake < -1e-9 {
			return nil, fmt.Errorf("selection %d (%s) solved stake %.2f: %w",
				selections[i].SelectionID, selections[i].RunnerName, stake, models.ErrNegativeStake)
		}
		stakes[i] = roundMoney(stake)
	}

	return buildMixedSummary(selections, stakes, commission), nil
}

// solveMixedStakes builds the outcome matrix and solves it. Row k encodes
// the net profit when selection k wins: a BACK leg pays on its own row only;
// a LAY leg pays out its liability on its own row and retains its stake
// (less commission) on every other row. A constant right-hand side is what
// forces equal profit across outcomes.
func solveMixedStakes(selections []models.Selection, targetProfit, commission float64) ([]float64, error) {
	n := len(selections)
	cm := commissionMultiplier(commission)

	a := make([][]float64, n)
	b := make([]float64, n)
	for k := 0; k < n; k++ {
		a[k] = make([]float64, n)
		b[k] = targetProfit
		for i, s := range selections {
			switch {
			case s.EffectiveType == models.BetSideLay && i == k:
				a[k][i] = -(s.Price - 1.0)
			case s.EffectiveType == models.BetSideLay:
				a[k][i] = cm
			case i == k:
				a[k][i] = s.Price * cm
			}
		}
	}

	return solveLeastSquares(a, b)
}

// buildMixedSummary recomputes the realized per-outcome profit from the
// rounded stakes and reports the worst outcome as the uniform profit.
func buildMixedSummary(selections []models.Selection, stakes []float64, commission float64) *models.DutchingSummary {
	n := len(selections)
	cm := commissionMultiplier(commission)

	// Gross tracks the same outcome arithmetic without the commission
	// multiplier, so reporting stays consistent with the single-side modes.
	outcomeProfit := make([]float64, n)
	grossProfit := make([]float64, n)
	for k := 0; k < n; k++ {
		p, g := 0.0, 0.0
		for i, s := range selections {
			switch {
			case s.EffectiveType == models.BetSideLay && i == k:
				p -= stakes[i] * (s.Price - 1.0)
				g -= stakes[i] * (s.Price - 1.0)
			case s.EffectiveType == models.BetSideLay:
				p += stakes[i] * cm
				g += stakes[i]
			case i == k:
				p += stakes[i] * s.Price * cm
				g += stakes[i] * s.Price
			}
		}
		outcomeProfit[k] = p
		grossProfit[k] = g
	}

	uniform := outcomeProfit[0]
	totalStake := 0.0
	impliedBook := 0.0
	results := make([]models.DutchingResult, n)
	for i, s := range selections {
		if outcomeProfit[i] < uniform {
			uniform = outcomeProfit[i]
		}
		totalStake += stakes[i]
		impliedBook += 1.0 / s.Price

		side := models.BetSideBack
		liability := 0.0
		potentialReturn := stakes[i] * s.Price
		if s.EffectiveType == models.BetSideLay {
			side = models.BetSideLay
			liability = roundMoney(stakes[i] * (s.Price - 1.0))
			potentialReturn = stakes[i]
		}
		results[i] = models.DutchingResult{
			SelectionID:        s.SelectionID,
			RunnerName:         s.RunnerName,
			Price:              s.Price,
			Side:               side,
			Stake:              stakes[i],
			Liability:          liability,
			GrossProfit:        roundMoney(grossProfit[i]),
			ProfitIfWins:       roundMoney(outcomeProfit[i]),
			PotentialReturn:    roundMoney(potentialReturn),
			ImpliedProbability: s.ImpliedProbability(),
		}
	}

	return &models.DutchingSummary{
		Results:       results,
		TotalStake:    roundMoney(totalStake),
		UniformProfit: roundMoney(uniform),
		ImpliedBook:   impliedBook,
	}
}
