package dutching

import (
	"fmt"

	"github.com/yourusername/dutch-trader/internal/models"
)

// CalculateBackDutching distributes totalStake across the selections in
// inverse proportion to price so that the net profit is the same whichever
// selection wins. Commission is a percentage (Betfair Italy default 4.5) and
// is charged only when the gross profit is positive.
//
// An implied book of 100% or more is not rejected: stakes are still computed
// and the caller can inspect ImpliedBook to decide whether the dutch is
// worth placing.
func CalculateBackDutching(selections []models.Selection, totalStake, commission float64) (*models.DutchingSummary, error) {
	if len(selections) == 0 {
		return nil, models.ErrNoSelections
	}
	if totalStake <= 0 {
		return nil, models.ErrInvalidTotalStake
	}
	if err := validatePrices(selections); err != nil {
		return nil, err
	}

	return distributeBackStake(selections, totalStake, commission), nil
}

// CalculateBackDutchingTarget computes the total stake required to lock in
// targetProfit net of commission, then distributes it proportionally as
// CalculateBackDutching does. The implied book must be strictly under 100%;
// a break-even or over-round book cannot guarantee the target.
func CalculateBackDutchingTarget(selections []models.Selection, targetProfit, commission float64) (*models.DutchingSummary, error) {
	if len(selections) == 0 {
		return nil, models.ErrNoSelections
	}
	if targetProfit <= 0 {
		return nil, models.ErrInvalidTarget
	}
	if err := validatePrices(selections); err != nil {
		return nil, err
	}

	sumWeights := 0.0
	for _, s := range selections {
		sumWeights += 1.0 / s.Price
	}
	// A break-even book within float tolerance counts as not profitable;
	// the stake needed to hit any target diverges as the book nears 100%.
	if sumWeights >= 1.0-1e-9 {
		return nil, fmt.Errorf("implied book %.2f%%: %w", sumWeights*100, models.ErrBookNotProfitable)
	}

	// Back out the gross target, then the total stake that yields it.
	grossTarget := targetProfit / commissionMultiplier(commission)
	totalStake := grossTarget / (1.0/sumWeights - 1.0)

	// Realized profit is recomputed from the rounded stakes, so the reported
	// uniform profit may differ from the requested target by rounding.
	return distributeBackStake(selections, roundMoney(totalStake), commission), nil
}

// distributeBackStake performs the proportional split, per-selection rounding,
// and the largest-stake rounding correction that keeps the stake sum exact.
func distributeBackStake(selections []models.Selection, totalStake, commission float64) *models.DutchingSummary {
	sumWeights := 0.0
	for _, s := range selections {
		sumWeights += 1.0 / s.Price
	}

	results := make([]models.DutchingResult, len(selections))
	stakeSum := 0.0
	largest := 0
	for i, s := range selections {
		stake := roundMoney(totalStake * (1.0 / s.Price) / sumWeights)
		results[i] = backResult(s, stake, totalStake, commission)
		stakeSum += stake
		if stake > results[largest].Stake {
			largest = i
		}
	}

	// Rounding can leave the stakes a cent or two short of (or over) the
	// requested total; push the difference onto the largest stake.
	if diff := roundMoney(totalStake - stakeSum); diff != 0 {
		corrected := roundMoney(results[largest].Stake + diff)
		results[largest] = backResult(selections[largest], corrected, totalStake, commission)
	}

	uniform := results[0].ProfitIfWins
	for _, r := range results[1:] {
		if r.ProfitIfWins < uniform {
			uniform = r.ProfitIfWins
		}
	}

	return &models.DutchingSummary{
		Results:       results,
		TotalStake:    totalStake,
		UniformProfit: roundMoney(uniform),
		ImpliedBook:   sumWeights,
	}
}

// backResult fills the outcome-contingent fields for one BACK leg. The gross
// profit subtracts the entire dutch total, not just this leg's stake: when
// the leg wins, every other stake in the dutch is lost.
func backResult(s models.Selection, stake, totalStake, commission float64) models.DutchingResult {
	potentialReturn := stake * s.Price
	gross := potentialReturn - totalStake
	return models.DutchingResult{
		SelectionID:        s.SelectionID,
		RunnerName:         s.RunnerName,
		Price:              s.Price,
		Side:               models.BetSideBack,
		Stake:              stake,
		GrossProfit:        roundMoney(gross),
		ProfitIfWins:       roundMoney(applyCommission(gross, commission)),
		PotentialReturn:    roundMoney(potentialReturn),
		ImpliedProbability: s.ImpliedProbability(),
	}
}

// validatePrices rejects selection sets the dutch math cannot price.
func validatePrices(selections []models.Selection) error {
	for _, s := range selections {
		if s.Price <= 1.0 {
			return fmt.Errorf("selection %d (%s) has price %.2f: %w",
				s.SelectionID, s.RunnerName, s.Price, models.ErrInvalidPrice)
		}
	}
	return nil
}
