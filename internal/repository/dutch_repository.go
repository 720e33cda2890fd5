package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/dutch-trader/internal/database"
	"github.com/yourusername/dutch-trader/internal/models"
)

// PostgresDutchRepository implements DutchRepository for PostgreSQL.
// The per-leg breakdown is stored as JSONB; queries only ever need the
// whole summary back, never individual legs.
type PostgresDutchRepository struct {
	db *database.DB
}

// NewPostgresDutchRepository creates a dutch calculation repository
func NewPostgresDutchRepository(db *database.DB) DutchRepository {
	return &PostgresDutchRepository{db: db}
}

// Create inserts a dutch calculation record
func (r *PostgresDutchRepository) Create(ctx context.Context, record *models.DutchRecord) error {
	summary, err := json.Marshal(record.Summary)
	if err != nil {
		return fmt.Errorf("failed to marshal dutch summary: %w", err)
	}

	query := `
		INSERT INTO dutch_calculations (id, market_id, mode, total_stake, target_profit,
		                                uniform_profit, commission, summary, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	`

	_, err = r.db.GetPool().Exec(ctx, query,
		record.ID, record.MarketID, record.Mode, record.TotalStake, record.TargetProfit,
		record.UniformProfit, record.Commission, summary,
	)
	if err != nil {
		return fmt.Errorf("failed to create dutch record: %w", err)
	}

	return nil
}

// GetByID retrieves a dutch calculation by ID
func (r *PostgresDutchRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DutchRecord, error) {
	query := `
		SELECT id, market_id, mode, total_stake, target_profit, uniform_profit, commission, summary, created_at
		FROM dutch_calculations WHERE id = $1
	`

	return scanDutchRecord(r.db.GetPool().QueryRow(ctx, query, id))
}

// GetByMarket retrieves all dutch calculations for a market, newest first
func (r *PostgresDutchRepository) GetByMarket(ctx context.Context, marketID string) ([]*models.DutchRecord, error) {
	query := `
		SELECT id, market_id, mode, total_stake, target_profit, uniform_profit, commission, summary, created_at
		FROM dutch_calculations
		WHERE market_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.GetPool().Query(ctx, query, marketID)
	if err != nil {
		return nil, fmt.Errorf("failed to query dutch records: %w", err)
	}
	defer rows.Close()

	var records []*models.DutchRecord
	for rows.Next() {
		record, err := scanDutchRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

func scanDutchRecord(row pgx.Row) (*models.DutchRecord, error) {
	record := &models.DutchRecord{}
	var summary []byte

	err := row.Scan(
		&record.ID, &record.MarketID, &record.Mode, &record.TotalStake, &record.TargetProfit,
		&record.UniformProfit, &record.Commission, &summary, &record.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan dutch record: %w", err)
	}

	if err := json.Unmarshal(summary, &record.Summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dutch summary: %w", err)
	}

	return record, nil
}
