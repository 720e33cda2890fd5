package dutching

import (
	"fmt"

	"github.com/yourusername/dutch-trader/internal/models"
)

// Exchange business limits for the Italian wallet. The engine itself never
// enforces these; the placement layer calls ValidateResults before
// submitting.
const (
	DefaultMinStake  = 2.0     // euros, exchange minimum per bet
	DefaultMaxPayout = 10000.0 // euros, regulatory maximum win per bet
)

// ValidateResults checks each computed leg against the exchange minimum
// stake and maximum payout rules and returns human-readable violations.
// An empty slice means every leg is placeable.
func ValidateResults(results []models.DutchingResult, minStake, maxWin float64) []string {
	if minStake <= 0 {
		minStake = DefaultMinStake
	}
	if maxWin <= 0 {
		maxWin = DefaultMaxPayout
	}

	var violations []string
	for _, r := range results {
		if r.Stake < minStake {
			violations = append(violations, fmt.Sprintf(
				"%s: stake %.2f below exchange minimum %.2f", r.RunnerName, r.Stake, minStake))
		}
		if r.ProfitIfWins > maxWin {
			violations = append(violations, fmt.Sprintf(
				"%s: potential win %.2f exceeds maximum payout %.2f", r.RunnerName, r.ProfitIfWins, maxWin))
		}
	}
	return violations
}
