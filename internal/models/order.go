package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus represents the lifecycle state of a placed order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusMatched   OrderStatus = "matched"
	OrderStatusSettled   OrderStatus = "settled"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order represents an already-placed bet used as input to hedge and
// cashout calculations. The engine treats orders as immutable: it never
// places, cancels, or tracks them.
type Order struct {
	ID          uuid.UUID   `db:"id" json:"id"`
	BetID       string      `db:"bet_id" json:"bet_id"` // Betfair bet identifier
	MarketID    string      `db:"market_id" json:"market_id"`
	SelectionID uint64      `db:"selection_id" json:"selection_id" validate:"required"`
	RunnerName  string      `db:"runner_name" json:"runner_name"`
	Side        BetSide     `db:"side" json:"side" validate:"required,oneof=BACK LAY"`
	Stake       float64     `db:"stake" json:"stake" validate:"required,gt=0"`   // matched stake
	Price       float64     `db:"price" json:"price" validate:"required,gt=1"`   // matched price
	Status      OrderStatus `db:"status" json:"status"`
	PlacedAt    time.Time   `db:"placed_at" json:"placed_at"`
	MatchedAt   *time.Time  `db:"matched_at" json:"matched_at"`
	SettledAt   *time.Time  `db:"settled_at" json:"settled_at"`
	CancelledAt *time.Time  `db:"cancelled_at" json:"cancelled_at"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// Liability returns the amount at risk on the order
func (o *Order) Liability() float64 {
	if o.Side == BetSideLay {
		return o.Stake * (o.Price - 1)
	}
	return o.Stake
}

// IsMatched checks whether the order has been matched on the exchange
func (o *Order) IsMatched() bool {
	return o.Status == OrderStatusMatched && o.MatchedAt != nil
}
