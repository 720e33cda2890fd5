package dutching

import (
	"fmt"

	"github.com/yourusername/dutch-trader/internal/models"
)

// CalculateLayDutching distributes totalLiability across the selections in
// inverse proportion to (price - 1). Unlike BACK dutching, the profit is not
// equalized across outcomes: the result bounds a best case (no dutched
// selection wins, every lay stake is kept) and a worst case (the costliest
// selection wins).
func CalculateLayDutching(selections []models.Selection, totalLiability, commission float64) (*models.DutchingSummary, error) {
	if len(selections) == 0 {
		return nil, models.ErrNoSelections
	}
	if totalLiability <= 0 {
		return nil, models.ErrInvalidLiability
	}
	if err := validatePrices(selections); err != nil {
		return nil, err
	}

	sumWeights := 0.0
	for _, s := range selections {
		sumWeights += 1.0 / (s.Price - 1.0)
	}

	liabilities := make([]float64, len(selections))
	stakes := make([]float64, len(selections))
	stakeSum := 0.0
	impliedBook := 0.0
	for i, s := range selections {
		w := 1.0 / (s.Price - 1.0)
		liabilities[i] = roundMoney(totalLiability * w / sumWeights)
		stakes[i] = roundMoney(liabilities[i] / (s.Price - 1.0))
		stakeSum += stakes[i]
		impliedBook += 1.0 / s.Price
	}

	// Every lay bet wins when none of the dutched selections happens.
	bestCase := roundMoney(stakeSum * commissionMultiplier(commission))

	// Outcome k: selection k wins, its lay bet pays out the liability while
	// the other lay stakes are retained.
	worstCase := 0.0
	results := make([]models.DutchingResult, len(selections))
	for k, s := range selections {
		gross := (stakeSum - stakes[k]) - liabilities[k]
		net := applyCommission(gross, commission)
		if k == 0 || net < worstCase {
			worstCase = net
		}
		results[k] = models.DutchingResult{
			SelectionID:        s.SelectionID,
			RunnerName:         s.RunnerName,
			Price:              s.Price,
			Side:               models.BetSideLay,
			Stake:              stakes[k],
			Liability:          liabilities[k],
			GrossProfit:        roundMoney(gross),
			ProfitIfWins:       roundMoney(net),
			PotentialReturn:    stakes[k],
			ImpliedProbability: s.ImpliedProbability(),
		}
	}

	worstCase = roundMoney(worstCase)
	for k := range results {
		results[k].BestCase = bestCase
		results[k].WorstCase = worstCase
	}

	return &models.DutchingSummary{
		Results:       results,
		TotalStake:    roundMoney(stakeSum),
		UniformProfit: worstCase,
		ImpliedBook:   impliedBook,
	}, nil
}

// layHedgeStake sizes the BACK bet that covers an open lay liability at the
// current live price.
func layHedgeStake(liability, livePrice float64) (float64, error) {
	if livePrice <= 1.0 {
		return 0, fmt.Errorf("live price %.2f not backable", livePrice)
	}
	return liability / (livePrice - 1.0), nil
}
