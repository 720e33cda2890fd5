package dutching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/dutch-trader/internal/models"
)

func TestCalculateExposureSwap(t *testing.T) {
	legs := []models.SwapLeg{
		{MarketID: "1.234", SelectionID: 1, Odds: 3.0, Side: models.BetSideBack},
		{MarketID: "1.567", SelectionID: 2, Odds: 2.0, Side: models.BetSideLay},
	}

	res, err := CalculateExposureSwap(legs, 10.0, 0)
	require.NoError(t, err)
	require.Len(t, res.Legs, 2)

	// Each leg sized independently against the same target.
	assert.InDelta(t, 10.0/2.0, res.Legs[0].Stake, 0.01) // back: target/(odds-1)
	assert.InDelta(t, 10.0/2.0, res.Legs[1].Stake, 0.01) // lay: target/odds
	assert.InDelta(t, 10.0, res.GrossTarget, 0.01)

	// Back exposure is the stake; lay exposure is the liability.
	assert.Equal(t, res.Legs[0].Stake, res.Legs[0].Exposure)
	assert.InDelta(t, res.Legs[1].Stake*(2.0-1.0), res.Legs[1].Exposure, 0.01)
	assert.InDelta(t, res.Legs[0].Exposure+res.Legs[1].Exposure, res.TotalExposure, 0.01)
}

func TestCalculateExposureSwapGrossesUpTarget(t *testing.T) {
	legs := []models.SwapLeg{
		{SelectionID: 1, Odds: 3.0, Side: models.BetSideBack},
	}

	gross, err := CalculateExposureSwap(legs, 10.0, 0)
	require.NoError(t, err)
	net, err := CalculateExposureSwap(legs, 10.0, 4.5)
	require.NoError(t, err)

	assert.Greater(t, net.Legs[0].Stake, gross.Legs[0].Stake,
		"commission must increase the stake needed for the same net target")
	assert.InDelta(t, 10.0/0.955, net.GrossTarget, 0.01)
}

func TestCalculateExposureSwapValidation(t *testing.T) {
	_, err := CalculateExposureSwap(nil, 10.0, 4.5)
	assert.ErrorIs(t, err, models.ErrNoSelections)

	legs := []models.SwapLeg{{SelectionID: 1, Odds: 3.0, Side: models.BetSideBack}}
	_, err = CalculateExposureSwap(legs, 0, 4.5)
	assert.ErrorIs(t, err, models.ErrInvalidTarget)

	bad := []models.SwapLeg{{SelectionID: 1, Odds: 1.0, Side: models.BetSideBack}}
	_, err = CalculateExposureSwap(bad, 10.0, 4.5)
	assert.Error(t, err)
}
