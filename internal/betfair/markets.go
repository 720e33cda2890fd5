package betfair

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/dutch-trader/internal/models"
)

// MarketCatalogue describes a market and its runners
type MarketCatalogue struct {
	MarketID     string            `json:"marketId"`
	MarketName   string            `json:"marketName"`
	TotalMatched float64           `json:"totalMatched"`
	Description  MarketDescription `json:"description"`
	Runners      []RunnerCatalogue `json:"runners"`
}

// MarketDescription contains market metadata
type MarketDescription struct {
	MarketType        string    `json:"marketType"`
	PersistenceType   string    `json:"persistenceType"`
	MarketTime        time.Time `json:"marketTime"`
	TurnInPlayEnabled bool      `json:"turnInPlayEnabled"`
	BettingType       string    `json:"bettingType"`
}

// RunnerCatalogue describes one selection in a market
type RunnerCatalogue struct {
	SelectionID  uint64  `json:"selectionId"`
	RunnerName   string  `json:"runnerName"`
	Handicap     float64 `json:"handicap"`
	SortPriority int     `json:"sortPriority"`
}

// MarketBook is the current state and prices for a market
type MarketBook struct {
	MarketID      string     `json:"marketId"`
	Status        string     `json:"status"`
	BetDelay      int        `json:"betDelay"`
	InPlay        bool       `json:"inplay"`
	TotalMatched  float64    `json:"totalMatched"`
	LastMatchTime *time.Time `json:"lastMatchTime"`
	Version       int64      `json:"version"`
	Runners       []Runner   `json:"runners"`
}

// Runner is one selection's live state within a market book
type Runner struct {
	SelectionID     uint64         `json:"selectionId"`
	Status          string         `json:"status"`
	LastPriceTraded float64        `json:"lastPriceTraded"`
	TotalMatched    float64        `json:"totalMatched"`
	ExchangePrices  ExchangePrices `json:"ex"`
}

// ExchangePrices holds the visible back and lay ladders
type ExchangePrices struct {
	AvailableToBack []PriceSize `json:"availableToBack"`
	AvailableToLay  []PriceSize `json:"availableToLay"`
	TradedVolume    []PriceSize `json:"tradedVolume"`
}

// PriceSize is one price level with its available size
type PriceSize struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// MarketFilter narrows catalogue queries
type MarketFilter struct {
	EventTypeIDs   []string `json:"eventTypeIds,omitempty"`
	EventIDs       []string `json:"eventIds,omitempty"`
	CompetitionIDs []string `json:"competitionIds,omitempty"`
	MarketIDs      []string `json:"marketIds,omitempty"`
	MarketTypes    []string `json:"marketTypeCodes,omitempty"`
	InPlayOnly     *bool    `json:"inPlayOnly,omitempty"`
}

// MarketService fetches market catalogues and books, caching catalogue
// results since runner names and metadata rarely change intraday.
type MarketService struct {
	client *Client
	cache  *gocache.Cache
	logger *logrus.Logger
}

// NewMarketService creates a market service with the given catalogue cache TTL
func NewMarketService(client *Client, cacheTTL time.Duration, logger *logrus.Logger) *MarketService {
	return &MarketService{
		client: client,
		cache:  gocache.New(cacheTTL, 2*cacheTTL),
		logger: logger,
	}
}

// ListMarketCatalogue fetches market catalogues matching the filter
func (m *MarketService) ListMarketCatalogue(ctx context.Context, filter MarketFilter, maxResults int) ([]MarketCatalogue, error) {
	if maxResults <= 0 || maxResults > 1000 {
		maxResults = 100
	}

	params := map[string]any{
		"filter":           filter,
		"marketProjection": []string{"RUNNER_DESCRIPTION", "MARKET_DESCRIPTION", "MARKET_START_TIME"},
		"sort":             "FIRST_TO_START",
		"maxResults":       maxResults,
	}

	result, err := m.client.makeRequest(ctx, "listMarketCatalogue", params)
	if err != nil {
		return nil, err
	}

	var catalogues []MarketCatalogue
	if err := json.Unmarshal(result, &catalogues); err != nil {
		return nil, fmt.Errorf("failed to parse market catalogue response: %w", err)
	}

	m.logger.WithField("markets", len(catalogues)).Debug("Retrieved market catalogues")
	return catalogues, nil
}

// GetMarketCatalogue fetches the catalogue for a single market, served
// from cache when fresh.
func (m *MarketService) GetMarketCatalogue(ctx context.Context, marketID string) (*MarketCatalogue, error) {
	if cached, found := m.cache.Get(marketID); found {
		cat := cached.(MarketCatalogue)
		return &cat, nil
	}

	catalogues, err := m.ListMarketCatalogue(ctx, MarketFilter{MarketIDs: []string{marketID}}, 1)
	if err != nil {
		return nil, err
	}
	if len(catalogues) == 0 {
		return nil, fmt.Errorf("market %s not found", marketID)
	}

	m.cache.Set(marketID, catalogues[0], gocache.DefaultExpiration)
	return &catalogues[0], nil
}

// ListMarketBook fetches current state and best prices for the given markets
func (m *MarketService) ListMarketBook(ctx context.Context, marketIDs []string) ([]MarketBook, error) {
	if len(marketIDs) == 0 {
		return nil, fmt.Errorf("at least one market ID required")
	}

	params := map[string]any{
		"marketIds": marketIDs,
		"priceProjection": map[string]any{
			"priceData": []string{"EX_BEST_OFFERS", "EX_TRADED"},
		},
	}

	result, err := m.client.makeRequest(ctx, "listMarketBook", params)
	if err != nil {
		return nil, err
	}

	var books []MarketBook
	if err := json.Unmarshal(result, &books); err != nil {
		return nil, fmt.Errorf("failed to parse market book response: %w", err)
	}

	return books, nil
}

// GetMarketSnapshots returns the best-price view of a market keyed by
// selection, in the shape the dutching and cashout calculators consume.
func (m *MarketService) GetMarketSnapshots(ctx context.Context, marketID string) (map[uint64]models.PriceSnapshot, error) {
	books, err := m.ListMarketBook(ctx, []string{marketID})
	if err != nil {
		return nil, err
	}
	if len(books) == 0 {
		return nil, fmt.Errorf("no market book returned for %s", marketID)
	}

	book := books[0]
	if book.Status == "SUSPENDED" {
		return nil, &MarketSuspendedError{MarketID: marketID}
	}

	snapshots := make(map[uint64]models.PriceSnapshot, len(book.Runners))
	for _, runner := range book.Runners {
		if runner.Status != "ACTIVE" {
			continue
		}
		snapshots[runner.SelectionID] = runnerSnapshot(runner)
	}

	return snapshots, nil
}

// runnerSnapshot flattens a runner's ladders into a best-price snapshot
func runnerSnapshot(runner Runner) models.PriceSnapshot {
	snap := models.PriceSnapshot{
		SelectionID:     runner.SelectionID,
		LastTradedPrice: runner.LastPriceTraded,
		TotalVolume:     runner.TotalMatched,
	}
	if len(runner.ExchangePrices.AvailableToBack) > 0 {
		snap.BestBackPrice = runner.ExchangePrices.AvailableToBack[0].Price
		snap.BestBackSize = runner.ExchangePrices.AvailableToBack[0].Size
	}
	if len(runner.ExchangePrices.AvailableToLay) > 0 {
		snap.BestLayPrice = runner.ExchangePrices.AvailableToLay[0].Price
		snap.BestLaySize = runner.ExchangePrices.AvailableToLay[0].Size
	}
	return snap
}
