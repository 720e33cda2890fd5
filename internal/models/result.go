package models

// DutchingResult holds the computed stake and outcome-contingent profit
// figures for a single selection within one dutch calculation.
type DutchingResult struct {
	SelectionID        uint64  `json:"selection_id"`
	RunnerName         string  `json:"runner_name"`
	Price              float64 `json:"price"`
	Side               BetSide `json:"side"`
	Stake              float64 `json:"stake"` // rounded to 2 decimals
	GrossProfit        float64 `json:"gross_profit"`
	ProfitIfWins       float64 `json:"profit_if_wins"` // net, commission-adjusted
	PotentialReturn    float64 `json:"potential_return"`
	Liability          float64 `json:"liability,omitempty"` // LAY only
	ImpliedProbability float64 `json:"implied_probability"`
	// BestCase and WorstCase bound the outcome range for LAY dutching,
	// where profit is not equalized across outcomes.
	BestCase  float64 `json:"best_case,omitempty"`
	WorstCase float64 `json:"worst_case,omitempty"`
}

// DutchingSummary aggregates a dutch calculation across all selections.
type DutchingSummary struct {
	Results       []DutchingResult `json:"results"`
	TotalStake    float64          `json:"total_stake"`
	UniformProfit float64          `json:"uniform_profit"` // guaranteed (minimum) net profit
	ImpliedBook   float64          `json:"implied_book"`   // sum of 1/price, >1 means over-round
	// MatchedProfit reports profit already locked by filled legs when the
	// calculation is a slippage re-adjustment continuation.
	MatchedProfit float64 `json:"matched_profit,omitempty"`
}

// HedgeResult holds the green-up stake for a single open position and the
// per-outcome profit after the hedge is applied. ProfitIfWins equals
// ProfitIfLoses up to rounding when the hedge stake is used unclamped.
type HedgeResult struct {
	SelectionID  uint64  `json:"selection_id"`
	HedgeStake   float64 `json:"hedge_stake"`
	HedgeSide    BetSide `json:"hedge_side"`
	HedgePrice   float64 `json:"hedge_price"`
	GrossProfit  float64 `json:"gross_profit"`
	NetProfit    float64 `json:"net_profit"`
	ProfitIfWins float64 `json:"profit_if_wins"`
	ProfitIfLoses float64 `json:"profit_if_loses"`
	// IsPartial is set when the hedge stake was clamped to the liquidity
	// visible on the opposite side of the book.
	IsPartial bool `json:"is_partial,omitempty"`
	// Err carries a per-tick calculation problem (e.g. lay price <= 1)
	// without aborting a live refresh loop.
	Err string `json:"error,omitempty"`
}

// CashoutResult aggregates hedge results for every order of a market.
type CashoutResult struct {
	Hedges      []HedgeResult `json:"hedges"`
	TotalProfit float64       `json:"total_profit"`
	NetProfit   float64       `json:"net_profit"`
	Skipped     int           `json:"skipped"` // orders without a usable live price
	IsPartial   bool          `json:"is_partial"`
}

// SwapLeg is one market leg of a cross-market exposure swap.
type SwapLeg struct {
	MarketID    string  `json:"market_id,omitempty"`
	SelectionID uint64  `json:"selection_id,omitempty"`
	Odds        float64 `json:"odds"`
	Side        BetSide `json:"side"`
}

// SwapLegResult is the independently sized exposure for one swap leg.
type SwapLegResult struct {
	SwapLeg
	Stake    float64 `json:"stake"`
	Exposure float64 `json:"exposure"`
}

// SwapResult sums the exposure swap across legs. Each leg is sized against
// the same target with no cross-leg coupling; this is a sizing heuristic,
// not an equal-profit guarantee.
type SwapResult struct {
	Legs          []SwapLegResult `json:"legs"`
	TotalExposure float64         `json:"total_exposure"`
	GrossTarget   float64         `json:"gross_target"`
}

// PriceSnapshot is the latest observed book state for one selection,
// as delivered by polling or the streaming feed.
type PriceSnapshot struct {
	SelectionID     uint64  `json:"selection_id"`
	BestBackPrice   float64 `json:"best_back_price"`
	BestBackSize    float64 `json:"best_back_size"`
	BestLayPrice    float64 `json:"best_lay_price"`
	BestLaySize     float64 `json:"best_lay_size"`
	LastTradedPrice float64 `json:"last_traded_price"`
	TotalVolume     float64 `json:"total_volume"`
}
