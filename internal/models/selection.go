package models

// BetSide represents the side of a bet (BACK or LAY)
type BetSide string

const (
	BetSideBack BetSide = "BACK"
	BetSideLay  BetSide = "LAY"
)

// Opposite returns the hedging side for this side
func (s BetSide) Opposite() BetSide {
	if s == BetSideBack {
		return BetSideLay
	}
	return BetSideBack
}

// IsValid checks the side is one of the two exchange sides
func (s BetSide) IsValid() bool {
	return s == BetSideBack || s == BetSideLay
}

// Selection represents one candidate leg of a dutch calculation.
// Selections are supplied by the caller per call; the engine never stores them.
type Selection struct {
	SelectionID uint64  `json:"selection_id" validate:"required"`
	RunnerName  string  `json:"runner_name"`
	Price       float64 `json:"price" validate:"required,gt=1"`
	// EffectiveType is only consulted in mixed BACK+LAY dutching;
	// the single-side calculators ignore it.
	EffectiveType BetSide `json:"effective_type,omitempty"`
}

// ImpliedProbability returns 1/price, the exchange-implied win probability
func (s Selection) ImpliedProbability() float64 {
	if s.Price <= 0 {
		return 0
	}
	return 1.0 / s.Price
}
