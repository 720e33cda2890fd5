package dutching

import (
	"fmt"

	"github.com/yourusername/dutch-trader/internal/models"
)

// CalculateCashout computes the LAY stake that greens up an open BACK
// position at the current lay price, locking the same profit whether the
// selection wins or loses.
//
// Invalid inputs are reported in the result's Err field rather than as an
// error return: this runs inside the live-price refresh loop, where a
// transient bad tick must not abort the loop.
func CalculateCashout(backStake, backPrice, layPrice, commission float64) models.HedgeResult {
	if backStake <= 0 {
		return models.HedgeResult{Err: fmt.Sprintf("back stake %.2f must be positive", backStake)}
	}
	if backPrice <= 1.0 {
		return models.HedgeResult{Err: fmt.Sprintf("back price %.2f must be greater than 1.0", backPrice)}
	}
	if layPrice <= 1.0 {
		return models.HedgeResult{Err: fmt.Sprintf("lay price %.2f must be greater than 1.0", layPrice)}
	}

	layStake := roundMoney(backStake * backPrice / layPrice)

	profitIfWin := backStake*(backPrice-1.0) - layStake*(layPrice-1.0)
	profitIfLose := layStake - backStake

	// Rounding the hedge stake can leave the two outcomes a cent apart;
	// report the conservative one as the locked profit.
	gross := profitIfWin
	if profitIfLose < gross {
		gross = profitIfLose
	}

	return models.HedgeResult{
		HedgeStake:    layStake,
		HedgeSide:     models.BetSideLay,
		HedgePrice:    layPrice,
		GrossProfit:   roundMoney(gross),
		NetProfit:     roundMoney(applyCommission(gross, commission)),
		ProfitIfWins:  roundMoney(profitIfWin),
		ProfitIfLoses: roundMoney(profitIfLose),
	}
}

// CalculateMultiCashout greens up every order of a market against the latest
// live prices. Orders whose live price is missing or unpriceable are skipped
// rather than failing the whole calculation: a partial risk picture is
// always preferable to none on a live display.
//
// When the ideal hedge stake exceeds the size visible on the opposite side
// of the book, the stake is clamped to available liquidity and the result is
// flagged partial.
func CalculateMultiCashout(orders []models.Order, live map[uint64]models.PriceSnapshot, commission float64) models.CashoutResult {
	result := models.CashoutResult{}

	for _, o := range orders {
		snap, ok := live[o.SelectionID]
		if !ok {
			result.Skipped++
			continue
		}

		hedge, ok := hedgeOrder(o, snap)
		if !ok {
			result.Skipped++
			continue
		}

		result.Hedges = append(result.Hedges, hedge)
		result.TotalProfit += hedge.GrossProfit
		if hedge.IsPartial {
			result.IsPartial = true
		}
	}

	result.TotalProfit = roundMoney(result.TotalProfit)
	result.NetProfit = roundMoney(applyCommission(result.TotalProfit, commission))
	return result
}

// hedgeOrder computes the opposite-side hedge for one matched order,
// clamping to displayed liquidity.
func hedgeOrder(o models.Order, snap models.PriceSnapshot) (models.HedgeResult, bool) {
	var (
		livePrice float64
		available float64
		stake     float64
	)

	switch o.Side {
	case models.BetSideBack:
		livePrice = snap.BestLayPrice
		available = snap.BestLaySize
		if livePrice <= 1.0 {
			return models.HedgeResult{}, false
		}
		stake = o.Stake * o.Price / livePrice
	case models.BetSideLay:
		livePrice = snap.BestBackPrice
		available = snap.BestBackSize
		backStake, err := layHedgeStake(o.Liability(), livePrice)
		if err != nil {
			return models.HedgeResult{}, false
		}
		stake = backStake
	default:
		return models.HedgeResult{}, false
	}

	partial := false
	if available > 0 && stake > available {
		stake = available
		partial = true
	}
	stake = roundMoney(stake)

	var profitIfWin, profitIfLose float64
	if o.Side == models.BetSideBack {
		profitIfWin = o.Stake*(o.Price-1.0) - stake*(livePrice-1.0)
		profitIfLose = stake - o.Stake
	} else {
		profitIfWin = stake*(livePrice-1.0) - o.Liability()
		profitIfLose = o.Stake - stake
	}

	gross := profitIfWin
	if profitIfLose < gross {
		gross = profitIfLose
	}

	return models.HedgeResult{
		SelectionID:   o.SelectionID,
		HedgeStake:    stake,
		HedgeSide:     o.Side.Opposite(),
		HedgePrice:    livePrice,
		GrossProfit:   roundMoney(gross),
		ProfitIfWins:  roundMoney(profitIfWin),
		ProfitIfLoses: roundMoney(profitIfLose),
		IsPartial:     partial,
	}, true
}
