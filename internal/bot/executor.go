package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/dutch-trader/internal/betfair"
	"github.com/yourusername/dutch-trader/internal/config"
	"github.com/yourusername/dutch-trader/internal/dutching"
	"github.com/yourusername/dutch-trader/internal/logger"
	"github.com/yourusername/dutch-trader/internal/metrics"
	"github.com/yourusername/dutch-trader/internal/models"
	"github.com/yourusername/dutch-trader/internal/repository"
)

// LegPlacer submits dutch legs to the exchange
type LegPlacer interface {
	PlaceDutchLegs(ctx context.Context, marketID string, results []models.DutchingResult) ([]betfair.PlaceInstructionReport, error)
}

// PriceSource supplies the current best-price view of a market
type PriceSource interface {
	GetMarketSnapshots(ctx context.Context, marketID string) (map[uint64]models.PriceSnapshot, error)
}

// DutchRequest describes one dutch placement
type DutchRequest struct {
	MarketID   string
	Mode       models.DutchMode
	Selections []models.Selection
	// TotalStake drives the back mode; TargetProfit drives the others.
	// For the lay mode TargetProfit is interpreted as total liability.
	TotalStake   float64
	TargetProfit float64
}

// DutchExecutor computes dutch stakes, validates them and places the legs
type DutchExecutor struct {
	placer         LegPlacer
	orderRepo      repository.OrderRepository
	dutchRepo      repository.DutchRepository
	riskManager    *RiskManager
	circuitBreaker *CircuitBreaker
	trading        *config.TradingConfig
	paperTrading   bool
	audit          *logger.AuditLogger
	logger         *logrus.Logger
}

// NewDutchExecutor creates an executor. With paperTrading set the
// computed legs are recorded but never sent to the exchange.
func NewDutchExecutor(
	placer LegPlacer,
	orderRepo repository.OrderRepository,
	dutchRepo repository.DutchRepository,
	riskManager *RiskManager,
	circuitBreaker *CircuitBreaker,
	trading *config.TradingConfig,
	paperTrading bool,
	log *logrus.Logger,
) *DutchExecutor {
	return &DutchExecutor{
		placer:         placer,
		orderRepo:      orderRepo,
		dutchRepo:      dutchRepo,
		riskManager:    riskManager,
		circuitBreaker: circuitBreaker,
		trading:        trading,
		paperTrading:   paperTrading,
		audit:          logger.NewAuditLogger(log),
		logger:         log,
	}
}

// Compute runs the dutch calculation for a request without placing anything
func (e *DutchExecutor) Compute(req DutchRequest) (*models.DutchingSummary, error) {
	commission := e.trading.CommissionPercent

	switch req.Mode {
	case models.DutchModeBack:
		return dutching.CalculateBackDutching(req.Selections, req.TotalStake, commission)
	case models.DutchModeBackTarget:
		return dutching.CalculateBackDutchingTarget(req.Selections, req.TargetProfit, commission)
	case models.DutchModeLay:
		return dutching.CalculateLayDutching(req.Selections, req.TargetProfit, commission)
	case models.DutchModeMixed:
		return dutching.CalculateMixedDutching(req.Selections, req.TargetProfit, commission)
	default:
		return nil, fmt.Errorf("unknown dutch mode %q", req.Mode)
	}
}

// ExecuteDutch computes, validates and places a dutch, persisting both
// the calculation record and the resulting orders.
func (e *DutchExecutor) ExecuteDutch(ctx context.Context, req DutchRequest) (*models.DutchRecord, error) {
	if !e.circuitBreaker.Allow() {
		return nil, fmt.Errorf("trading halted by circuit breaker")
	}

	summary, err := e.Compute(req)
	if err != nil {
		return nil, fmt.Errorf("dutch calculation failed: %w", err)
	}
	metrics.RecordDutchCalculation(string(req.Mode))

	if violations := dutching.ValidateResults(summary.Results, e.trading.MinStake, e.trading.MaxPayout); len(violations) > 0 {
		metrics.RecordValidationFailure()
		e.audit.LogValidationRejection(req.MarketID, violations)
		return nil, fmt.Errorf("dutch rejected: %s", strings.Join(violations, "; "))
	}

	if err := e.riskManager.CheckDutchLimits(summary.TotalStake); err != nil {
		return nil, fmt.Errorf("risk limit check failed: %w", err)
	}

	orders, err := e.placeLegs(ctx, req.MarketID, summary.Results)
	if err != nil {
		e.circuitBreaker.RecordFailure(err)
		return nil, err
	}
	e.circuitBreaker.RecordSuccess()

	if err := e.orderRepo.CreateBatch(ctx, orders); err != nil {
		e.logger.WithError(err).Error("Failed to persist placed orders")
		return nil, fmt.Errorf("orders placed but not persisted: %w", err)
	}

	record := &models.DutchRecord{
		ID:            uuid.New(),
		MarketID:      req.MarketID,
		Mode:          req.Mode,
		TotalStake:    summary.TotalStake,
		TargetProfit:  req.TargetProfit,
		UniformProfit: summary.UniformProfit,
		Commission:    e.trading.CommissionPercent,
		Summary:       *summary,
		CreatedAt:     time.Now(),
	}
	if err := e.dutchRepo.Create(ctx, record); err != nil {
		e.logger.WithError(err).Error("Failed to persist dutch record")
	}

	e.riskManager.AddExposure(summary.TotalStake)

	for _, order := range orders {
		e.audit.LogDutchPlacement(
			order.BetID, req.MarketID, order.SelectionID, string(order.Side),
			order.Stake, order.Price, summary.UniformProfit, order.PlacedAt, e.paperTrading,
		)
	}

	e.logger.WithFields(logrus.Fields{
		"market_id":      req.MarketID,
		"mode":           req.Mode,
		"legs":           len(orders),
		"total_stake":    summary.TotalStake,
		"uniform_profit": summary.UniformProfit,
		"paper_trading":  e.paperTrading,
	}).Info("Dutch executed")

	return record, nil
}

// ExecuteCashout greens up every open order of a market at current prices
func (e *DutchExecutor) ExecuteCashout(ctx context.Context, marketID string, prices PriceSource) (*models.CashoutResult, error) {
	if !e.circuitBreaker.Allow() {
		return nil, fmt.Errorf("trading halted by circuit breaker")
	}

	open, err := e.orderRepo.GetOpenByMarket(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("failed to load open orders: %w", err)
	}
	if len(open) == 0 {
		return nil, fmt.Errorf("no open orders on market %s", marketID)
	}

	live, err := prices.GetMarketSnapshots(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch live prices: %w", err)
	}

	orders := make([]models.Order, len(open))
	for i, o := range open {
		orders[i] = *o
	}

	result := dutching.CalculateMultiCashout(orders, live, e.trading.CommissionPercent)
	if len(result.Hedges) == 0 {
		return &result, fmt.Errorf("no hedgeable orders on market %s (%d skipped)", marketID, result.Skipped)
	}

	legs := make([]models.DutchingResult, 0, len(result.Hedges))
	for _, h := range result.Hedges {
		legs = append(legs, models.DutchingResult{
			SelectionID: h.SelectionID,
			Price:       h.HedgePrice,
			Side:        h.HedgeSide,
			Stake:       h.HedgeStake,
		})
	}

	hedgeOrders, err := e.placeLegs(ctx, marketID, legs)
	if err != nil {
		e.circuitBreaker.RecordFailure(err)
		return &result, err
	}
	e.circuitBreaker.RecordSuccess()

	if err := e.orderRepo.CreateBatch(ctx, hedgeOrders); err != nil {
		e.logger.WithError(err).Error("Failed to persist hedge orders")
	}

	metrics.RecordCashout()
	e.audit.LogCashout(marketID, len(result.Hedges), result.TotalProfit, result.NetProfit, result.IsPartial)

	return &result, nil
}

// placeLegs sends the legs to the exchange, or fabricates matched orders
// in paper-trading mode.
func (e *DutchExecutor) placeLegs(ctx context.Context, marketID string, results []models.DutchingResult) ([]*models.Order, error) {
	if e.paperTrading {
		return paperOrders(marketID, results), nil
	}

	reports, err := e.placer.PlaceDutchLegs(ctx, marketID, results)
	if err != nil {
		return nil, fmt.Errorf("failed to place legs: %w", err)
	}

	orders := make([]*models.Order, 0, len(reports))
	for i, report := range reports {
		order := report.ToOrder(marketID)
		if i < len(results) {
			order.RunnerName = results[i].RunnerName
		}
		orders = append(orders, &order)
	}
	return orders, nil
}

// paperOrders fabricates fully matched orders at the requested prices
func paperOrders(marketID string, results []models.DutchingResult) []*models.Order {
	now := time.Now()
	orders := make([]*models.Order, 0, len(results))
	for _, leg := range results {
		orders = append(orders, &models.Order{
			ID:          uuid.New(),
			BetID:       "paper-" + uuid.New().String()[:8],
			MarketID:    marketID,
			SelectionID: leg.SelectionID,
			RunnerName:  leg.RunnerName,
			Side:        leg.Side,
			Stake:       leg.Stake,
			Price:       leg.Price,
			Status:      models.OrderStatusMatched,
			PlacedAt:    now,
			MatchedAt:   &now,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	return orders
}
