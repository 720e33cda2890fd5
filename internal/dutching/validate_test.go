package dutching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yourusername/dutch-trader/internal/models"
)

func TestValidateResults(t *testing.T) {
	results := []models.DutchingResult{
		{RunnerName: "Home", Stake: 50.0, ProfitIfWins: 45.0},
		{RunnerName: "Draw", Stake: 1.50, ProfitIfWins: 40.0},
		{RunnerName: "Away", Stake: 25.0, ProfitIfWins: 12000.0},
	}

	violations := ValidateResults(results, 2.0, 10000.0)
	assert.Len(t, violations, 2)
	assert.Contains(t, violations[0], "Draw")
	assert.Contains(t, violations[0], "minimum")
	assert.Contains(t, violations[1], "Away")
	assert.Contains(t, violations[1], "maximum payout")
}

func TestValidateResultsDefaults(t *testing.T) {
	results := []models.DutchingResult{
		{RunnerName: "Tiny", Stake: 1.0, ProfitIfWins: 0.5},
	}
	violations := ValidateResults(results, 0, 0)
	assert.Len(t, violations, 1, "zero limits fall back to exchange defaults")
}

func TestValidateResultsAllPlaceable(t *testing.T) {
	results := []models.DutchingResult{
		{RunnerName: "A", Stake: 10.0, ProfitIfWins: 9.0},
		{RunnerName: "B", Stake: 5.0, ProfitIfWins: 9.1},
	}
	assert.Empty(t, ValidateResults(results, 2.0, 10000.0))
}
