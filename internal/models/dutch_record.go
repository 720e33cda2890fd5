package models

import (
	"time"

	"github.com/google/uuid"
)

// DutchMode identifies which calculation produced a dutch record
type DutchMode string

const (
	DutchModeBack       DutchMode = "back"
	DutchModeBackTarget DutchMode = "back_target"
	DutchModeLay        DutchMode = "lay"
	DutchModeMixed      DutchMode = "mixed"
)

// DutchRecord is a persisted dutch calculation, kept for audit and for
// re-adjustment after partial fills.
type DutchRecord struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	MarketID      string          `db:"market_id" json:"market_id"`
	Mode          DutchMode       `db:"mode" json:"mode"`
	TotalStake    float64         `db:"total_stake" json:"total_stake"`
	TargetProfit  float64         `db:"target_profit" json:"target_profit"`
	UniformProfit float64         `db:"uniform_profit" json:"uniform_profit"`
	Commission    float64         `db:"commission" json:"commission"`
	Summary       DutchingSummary `db:"summary" json:"summary"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}
