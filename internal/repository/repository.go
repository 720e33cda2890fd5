package repository

import (
	"fmt"

	"github.com/yourusername/dutch-trader/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Order OrderRepository
	Dutch DutchRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Order: NewPostgresOrderRepository(db),
		Dutch: NewPostgresDutchRepository(db),
	}, nil
}
