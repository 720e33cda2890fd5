package betfair

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/dutch-trader/internal/metrics"
	"github.com/yourusername/dutch-trader/internal/models"
)

// PlaceInstruction is a single order placement instruction
type PlaceInstruction struct {
	OrderType   string      `json:"orderType"`
	SelectionID uint64      `json:"selectionId"`
	Handicap    float64     `json:"handicap,omitempty"`
	Side        string      `json:"side"`
	LimitOrder  *LimitOrder `json:"limitOrder,omitempty"`
}

// LimitOrder is a limit order at a fixed price
type LimitOrder struct {
	Size            float64 `json:"size"`
	Price           float64 `json:"price"`
	PersistenceType string  `json:"persistenceType,omitempty"`
}

// PlaceExecutionReport is the placeOrders response
type PlaceExecutionReport struct {
	MarketID           string                   `json:"marketId"`
	Status             string                   `json:"status"`
	ErrorCode          string                   `json:"errorCode,omitempty"`
	CustomerRef        string                   `json:"customerRef,omitempty"`
	InstructionReports []PlaceInstructionReport `json:"instructionReports"`
}

// PlaceInstructionReport is the per-instruction placement result
type PlaceInstructionReport struct {
	Status              string           `json:"status"`
	ErrorCode           string           `json:"errorCode,omitempty"`
	OrderStatus         string           `json:"orderStatus,omitempty"`
	BetID               string           `json:"betId,omitempty"`
	PlacedDate          *time.Time       `json:"placedDate,omitempty"`
	AveragePriceMatched float64          `json:"averagePriceMatched,omitempty"`
	SizeMatched         float64          `json:"sizeMatched,omitempty"`
	Instruction         PlaceInstruction `json:"instruction"`
}

// CurrentOrder is an open order as reported by listCurrentOrders
type CurrentOrder struct {
	BetID               string    `json:"betId"`
	MarketID            string    `json:"marketId"`
	SelectionID         uint64    `json:"selectionId"`
	Side                string    `json:"side"`
	Status              string    `json:"status"`
	PlacedDate          time.Time `json:"placedDate"`
	AveragePriceMatched float64   `json:"averagePriceMatched"`
	SizeMatched         float64   `json:"sizeMatched"`
	SizeRemaining       float64   `json:"sizeRemaining"`
	SizeCancelled       float64   `json:"sizeCancelled"`
	PriceSize           PriceSize `json:"priceSize"`
}

// BettingService places and manages orders on the exchange
type BettingService struct {
	client *Client
	logger *logrus.Logger
}

// NewBettingService creates a betting service
func NewBettingService(client *Client, logger *logrus.Logger) *BettingService {
	return &BettingService{
		client: client,
		logger: logger,
	}
}

// PlaceDutchLegs submits every leg of a dutch calculation in a single
// placeOrders call so the exchange treats them as one transactional batch.
func (b *BettingService) PlaceDutchLegs(ctx context.Context, marketID string, results []models.DutchingResult) ([]PlaceInstructionReport, error) {
	if len(results) == 0 {
		return nil, fmt.Errorf("no legs to place")
	}

	instructions := make([]PlaceInstruction, 0, len(results))
	for _, leg := range results {
		instructions = append(instructions, PlaceInstruction{
			OrderType:   "LIMIT",
			SelectionID: leg.SelectionID,
			Side:        string(leg.Side),
			LimitOrder: &LimitOrder{
				Size:            leg.Stake,
				Price:           leg.Price,
				PersistenceType: "LAPSE",
			},
		})
	}

	return b.placeOrders(ctx, marketID, instructions)
}

// PlaceOrder submits a single limit order and returns its bet ID
func (b *BettingService) PlaceOrder(ctx context.Context, marketID string, selectionID uint64, side models.BetSide, price, stake float64) (string, error) {
	reports, err := b.placeOrders(ctx, marketID, []PlaceInstruction{{
		OrderType:   "LIMIT",
		SelectionID: selectionID,
		Side:        string(side),
		LimitOrder: &LimitOrder{
			Size:            stake,
			Price:           price,
			PersistenceType: "LAPSE",
		},
	}})
	if err != nil {
		return "", err
	}
	return reports[0].BetID, nil
}

func (b *BettingService) placeOrders(ctx context.Context, marketID string, instructions []PlaceInstruction) ([]PlaceInstructionReport, error) {
	params := map[string]any{
		"marketId":     marketID,
		"instructions": instructions,
		"customerRef":  uuid.New().String(),
	}

	start := time.Now()
	result, err := b.client.makeRequest(ctx, "placeOrders", params)
	if err != nil {
		return nil, err
	}

	var report PlaceExecutionReport
	if err := json.Unmarshal(result, &report); err != nil {
		return nil, fmt.Errorf("failed to parse place orders response: %w", err)
	}

	if report.Status != "SUCCESS" {
		return nil, NewAPIError(report.ErrorCode, fmt.Sprintf("placement failed on market %s", marketID), nil)
	}

	for _, ir := range report.InstructionReports {
		if ir.Status != "SUCCESS" {
			return report.InstructionReports, NewAPIError(ir.ErrorCode, "instruction rejected", nil)
		}
		metrics.RecordLegPlaced(time.Since(start).Seconds())
	}

	b.logger.WithFields(logrus.Fields{
		"market_id": marketID,
		"legs":      len(report.InstructionReports),
	}).Info("Orders placed")

	return report.InstructionReports, nil
}

// ListCurrentOrders fetches open orders, optionally scoped to markets
func (b *BettingService) ListCurrentOrders(ctx context.Context, marketIDs []string) ([]CurrentOrder, error) {
	params := map[string]any{
		"orderProjection": "ALL",
	}
	if len(marketIDs) > 0 {
		params["marketIds"] = marketIDs
	}

	result, err := b.client.makeRequest(ctx, "listCurrentOrders", params)
	if err != nil {
		return nil, err
	}

	var response struct {
		CurrentOrders []CurrentOrder `json:"currentOrders"`
		MoreAvailable bool           `json:"moreAvailable"`
	}
	if err := json.Unmarshal(result, &response); err != nil {
		return nil, fmt.Errorf("failed to parse current orders response: %w", err)
	}

	return response.CurrentOrders, nil
}

// CancelOrders cancels the unmatched portion of the given bets
func (b *BettingService) CancelOrders(ctx context.Context, marketID string, betIDs []string) error {
	if len(betIDs) == 0 {
		return fmt.Errorf("at least one bet ID required")
	}

	instructions := make([]map[string]any, 0, len(betIDs))
	for _, betID := range betIDs {
		instructions = append(instructions, map[string]any{"betId": betID})
	}

	params := map[string]any{
		"marketId":     marketID,
		"instructions": instructions,
	}

	result, err := b.client.makeRequest(ctx, "cancelOrders", params)
	if err != nil {
		return err
	}

	var response struct {
		Status    string `json:"status"`
		ErrorCode string `json:"errorCode,omitempty"`
	}
	if err := json.Unmarshal(result, &response); err != nil {
		return fmt.Errorf("failed to parse cancel response: %w", err)
	}

	if response.Status != "SUCCESS" {
		return NewAPIError(response.ErrorCode, fmt.Sprintf("cancel failed on market %s", marketID), nil)
	}

	b.logger.WithFields(logrus.Fields{
		"market_id": marketID,
		"bets":      len(betIDs),
	}).Info("Orders cancelled")
	return nil
}

// ToOrder converts an instruction report into the engine's order model
func (r *PlaceInstructionReport) ToOrder(marketID string) models.Order {
	now := time.Now()
	order := models.Order{
		ID:          uuid.New(),
		BetID:       r.BetID,
		MarketID:    marketID,
		SelectionID: r.Instruction.SelectionID,
		Side:        models.BetSide(r.Instruction.Side),
		Status:      models.OrderStatusPending,
		PlacedAt:    now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if r.Instruction.LimitOrder != nil {
		order.Stake = r.Instruction.LimitOrder.Size
		order.Price = r.Instruction.LimitOrder.Price
	}
	if r.SizeMatched > 0 {
		order.Stake = r.SizeMatched
		order.Price = r.AveragePriceMatched
		order.Status = models.OrderStatusMatched
		order.MatchedAt = &now
	}
	return order
}
