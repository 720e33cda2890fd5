// Package repository provides persistence for orders and dutch calculations.
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/yourusername/dutch-trader/internal/models"
)

// OrderRepository persists placed orders and their lifecycle transitions
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	CreateBatch(ctx context.Context, orders []*models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetByBetID(ctx context.Context, betID string) (*models.Order, error)
	GetByMarket(ctx context.Context, marketID string) ([]*models.Order, error)
	GetOpenByMarket(ctx context.Context, marketID string) ([]*models.Order, error)
	MarkMatched(ctx context.Context, id uuid.UUID, matchedPrice, matchedStake float64) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error
}

// DutchRepository persists dutch calculation records for audit and
// slippage re-adjustment.
type DutchRepository interface {
	Create(ctx context.Context, record *models.DutchRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.DutchRecord, error)
	GetByMarket(ctx context.Context, marketID string) ([]*models.DutchRecord, error)
}
