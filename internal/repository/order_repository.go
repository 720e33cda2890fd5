package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/dutch-trader/internal/database"
	"github.com/yourusername/dutch-trader/internal/models"
)

const orderColumns = `id, bet_id, market_id, selection_id, runner_name, side, stake, price,
       status, placed_at, matched_at, settled_at, cancelled_at, created_at, updated_at`

// PostgresOrderRepository implements OrderRepository for PostgreSQL
type PostgresOrderRepository struct {
	db *database.DB
}

// NewPostgresOrderRepository creates an order repository
func NewPostgresOrderRepository(db *database.DB) OrderRepository {
	return &PostgresOrderRepository{db: db}
}

// Create inserts a new order
func (r *PostgresOrderRepository) Create(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (id, bet_id, market_id, selection_id, runner_name, side, stake, price,
		                    status, placed_at, matched_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
	`

	_, err := r.db.GetPool().Exec(ctx, query,
		order.ID, order.BetID, order.MarketID, order.SelectionID, order.RunnerName,
		order.Side, order.Stake, order.Price, order.Status, order.PlacedAt, order.MatchedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

// CreateBatch inserts all legs of a dutch placement in one transaction so
// a partial write cannot leave the book in an inconsistent state.
func (r *PostgresOrderRepository) CreateBatch(ctx context.Context, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO orders (id, bet_id, market_id, selection_id, runner_name, side, stake, price,
			                    status, placed_at, matched_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		`
		for _, order := range orders {
			if _, err := tx.Exec(ctx, query,
				order.ID, order.BetID, order.MarketID, order.SelectionID, order.RunnerName,
				order.Side, order.Stake, order.Price, order.Status, order.PlacedAt, order.MatchedAt,
			); err != nil {
				return fmt.Errorf("failed to insert order %s: %w", order.ID, err)
			}
		}
		return nil
	})
}

// GetByID retrieves an order by internal ID
func (r *PostgresOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	query := fmt.Sprintf("SELECT %s FROM orders WHERE id = $1", orderColumns)
	return r.scanOne(r.db.GetPool().QueryRow(ctx, query, id))
}

// GetByBetID retrieves an order by its exchange bet ID
func (r *PostgresOrderRepository) GetByBetID(ctx context.Context, betID string) (*models.Order, error) {
	query := fmt.Sprintf("SELECT %s FROM orders WHERE bet_id = $1", orderColumns)
	return r.scanOne(r.db.GetPool().QueryRow(ctx, query, betID))
}

// GetByMarket retrieves all orders for a market
func (r *PostgresOrderRepository) GetByMarket(ctx context.Context, marketID string) ([]*models.Order, error) {
	query := fmt.Sprintf("SELECT %s FROM orders WHERE market_id = $1 ORDER BY placed_at ASC", orderColumns)
	return r.scanMany(ctx, query, marketID)
}

// GetOpenByMarket retrieves pending and matched orders for a market.
// These are the orders the cashout refresher prices against.
func (r *PostgresOrderRepository) GetOpenByMarket(ctx context.Context, marketID string) ([]*models.Order, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM orders WHERE market_id = $1 AND status IN ('pending', 'matched') ORDER BY placed_at ASC",
		orderColumns,
	)
	return r.scanMany(ctx, query, marketID)
}

// MarkMatched records the matched price and stake for an order
func (r *PostgresOrderRepository) MarkMatched(ctx context.Context, id uuid.UUID, matchedPrice, matchedStake float64) error {
	query := `
		UPDATE orders SET
			price = $2, stake = $3, status = 'matched', matched_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.GetPool().Exec(ctx, query, id, matchedPrice, matchedStake)
	if err != nil {
		return fmt.Errorf("failed to mark order matched: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// UpdateStatus transitions an order's lifecycle state
func (r *PostgresOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error {
	var query string
	switch status {
	case models.OrderStatusSettled:
		query = `UPDATE orders SET status = $2, settled_at = NOW(), updated_at = NOW() WHERE id = $1`
	case models.OrderStatusCancelled:
		query = `UPDATE orders SET status = $2, cancelled_at = NOW(), updated_at = NOW() WHERE id = $1`
	default:
		query = `UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`
	}

	tag, err := r.db.GetPool().Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

func (r *PostgresOrderRepository) scanOne(row pgx.Row) (*models.Order, error) {
	order := &models.Order{}
	err := row.Scan(
		&order.ID, &order.BetID, &order.MarketID, &order.SelectionID, &order.RunnerName,
		&order.Side, &order.Stake, &order.Price, &order.Status, &order.PlacedAt,
		&order.MatchedAt, &order.SettledAt, &order.CancelledAt, &order.CreatedAt, &order.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}
	return order, nil
}

func (r *PostgresOrderRepository) scanMany(ctx context.Context, query string, args ...any) ([]*models.Order, error) {
	rows, err := r.db.GetPool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order := &models.Order{}
		err := rows.Scan(
			&order.ID, &order.BetID, &order.MarketID, &order.SelectionID, &order.RunnerName,
			&order.Side, &order.Stake, &order.Price, &order.Status, &order.PlacedAt,
			&order.MatchedAt, &order.SettledAt, &order.CancelledAt, &order.CreatedAt, &order.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	return orders, rows.Err()
}
