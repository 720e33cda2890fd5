package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/dutch-trader/internal/betfair"
	"github.com/yourusername/dutch-trader/internal/dutching"
	"github.com/yourusername/dutch-trader/internal/logger"
	"github.com/yourusername/dutch-trader/internal/metrics"
	"github.com/yourusername/dutch-trader/internal/models"
	"github.com/yourusername/dutch-trader/internal/repository"
)

// OrderLister reports open orders from the exchange
type OrderLister interface {
	ListCurrentOrders(ctx context.Context, marketIDs []string) ([]betfair.CurrentOrder, error)
}

// MonitorMetrics tracks sync statistics
type MonitorMetrics struct {
	SyncsPerformed int64     `json:"syncs_performed"`
	SyncErrors     int64     `json:"sync_errors"`
	Readjustments  int64     `json:"readjustments"`
	LastSyncTime   time.Time `json:"last_sync_time"`
}

// PositionMonitor reconciles local order state against the exchange and
// re-dutches the remaining selections when legs lapse after partial fills.
type PositionMonitor struct {
	lister       OrderLister
	orderRepo    repository.OrderRepository
	dutchRepo    repository.DutchRepository
	executor     *DutchExecutor
	riskManager  *RiskManager
	prices       PriceSource
	pollInterval time.Duration
	audit        *logger.AuditLogger
	logger       *logrus.Logger

	mu        sync.Mutex
	marketIDs map[string]struct{}
	metrics   MonitorMetrics
}

// NewPositionMonitor creates a position monitor
func NewPositionMonitor(
	lister OrderLister,
	orderRepo repository.OrderRepository,
	dutchRepo repository.DutchRepository,
	executor *DutchExecutor,
	riskManager *RiskManager,
	prices PriceSource,
	pollInterval time.Duration,
	log *logrus.Logger,
) *PositionMonitor {
	return &PositionMonitor{
		lister:       lister,
		orderRepo:    orderRepo,
		dutchRepo:    dutchRepo,
		executor:     executor,
		riskManager:  riskManager,
		prices:       prices,
		pollInterval: pollInterval,
		audit:        logger.NewAuditLogger(log),
		logger:       log,
		marketIDs:    make(map[string]struct{}),
	}
}

// Track adds a market to the reconciliation loop
func (m *PositionMonitor) Track(marketID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marketIDs[marketID] = struct{}{}
}

// Untrack removes a market from the reconciliation loop
func (m *PositionMonitor) Untrack(marketID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.marketIDs, marketID)
}

// Run reconciles on the poll interval until the context is cancelled
func (m *PositionMonitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	m.logger.WithField("interval", m.pollInterval).Info("Position monitor started")

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Position monitor stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := m.SyncOnce(ctx); err != nil {
				m.mu.Lock()
				m.metrics.SyncErrors++
				m.mu.Unlock()
				m.logger.WithError(err).Warn("Order sync failed")
			}
		}
	}
}

// SyncOnce reconciles every tracked market once
func (m *PositionMonitor) SyncOnce(ctx context.Context) error {
	m.mu.Lock()
	markets := make([]string, 0, len(m.marketIDs))
	for id := range m.marketIDs {
		markets = append(markets, id)
	}
	m.mu.Unlock()

	if len(markets) == 0 {
		return nil
	}

	current, err := m.lister.ListCurrentOrders(ctx, markets)
	if err != nil {
		return fmt.Errorf("failed to list current orders: %w", err)
	}

	byBetID := make(map[string]betfair.CurrentOrder, len(current))
	for _, o := range current {
		byBetID[o.BetID] = o
	}

	for _, marketID := range markets {
		if err := m.syncMarket(ctx, marketID, byBetID); err != nil {
			m.logger.WithFields(logrus.Fields{
				"market_id": marketID,
				"error":     err.Error(),
			}).Warn("Market sync failed")
		}
	}

	m.mu.Lock()
	m.metrics.SyncsPerformed++
	m.metrics.LastSyncTime = time.Now()
	m.mu.Unlock()

	return nil
}

// syncMarket applies exchange order state to local orders, then checks
// the market for lapsed legs needing re-adjustment.
func (m *PositionMonitor) syncMarket(ctx context.Context, marketID string, byBetID map[string]betfair.CurrentOrder) error {
	local, err := m.orderRepo.GetOpenByMarket(ctx, marketID)
	if err != nil {
		return err
	}

	var matched []models.Order
	var lapsed []*models.Order

	for _, order := range local {
		exchange, found := byBetID[order.BetID]
		if !found {
			// Not reported as current: either matched and completed or
			// lapsed away. A pending order that vanished is lapsed.
			if order.Status == models.OrderStatusPending {
				lapsed = append(lapsed, order)
			} else {
				matched = append(matched, *order)
			}
			continue
		}

		switch {
		case exchange.SizeMatched > 0 && order.Status == models.OrderStatusPending:
			if err := m.orderRepo.MarkMatched(ctx, order.ID, exchange.AveragePriceMatched, exchange.SizeMatched); err != nil {
				return err
			}
			m.audit.LogOrderStateChange(order.BetID, string(order.Status), string(models.OrderStatusMatched),
				exchange.SizeMatched, exchange.SizeRemaining)

			order.Status = models.OrderStatusMatched
			order.Price = exchange.AveragePriceMatched
			order.Stake = exchange.SizeMatched
			matched = append(matched, *order)

		case exchange.SizeCancelled > 0 && exchange.SizeMatched == 0:
			if err := m.orderRepo.UpdateStatus(ctx, order.ID, models.OrderStatusCancelled); err != nil {
				return err
			}
			m.audit.LogOrderStateChange(order.BetID, string(order.Status), string(models.OrderStatusCancelled),
				0, exchange.SizeRemaining)
			m.riskManager.ReleaseExposure(order.Stake)
			lapsed = append(lapsed, order)

		case order.Status == models.OrderStatusMatched:
			matched = append(matched, *order)
		}
	}

	if len(lapsed) == 0 || len(matched) == 0 {
		return nil
	}

	return m.readjust(ctx, marketID, matched, lapsed)
}

// readjust re-dutches the selections whose legs lapsed, folding the
// profit already locked by matched legs into the remaining target.
func (m *PositionMonitor) readjust(ctx context.Context, marketID string, matched []models.Order, lapsed []*models.Order) error {
	record, err := m.latestDutch(ctx, marketID)
	if err != nil {
		return err
	}
	if record == nil || record.TargetProfit <= 0 {
		// Stake-driven dutches have no target to chase after slippage
		return nil
	}

	// Lapsed legs are re-dutched at the market's current prices, not the
	// placement prices they lapsed at.
	snapshots, err := m.prices.GetMarketSnapshots(ctx, marketID)
	if err != nil {
		return fmt.Errorf("failed to fetch live prices for re-adjustment: %w", err)
	}

	remaining := make([]models.Selection, 0, len(lapsed))
	for _, order := range lapsed {
		snap, ok := snapshots[order.SelectionID]
		if !ok || snap.BestBackPrice <= 1.0 {
			m.logger.WithFields(logrus.Fields{
				"market_id":    marketID,
				"selection_id": order.SelectionID,
			}).Warn("No live price for lapsed leg, leaving it out of the re-adjustment")
			continue
		}
		remaining = append(remaining, models.Selection{
			SelectionID:   order.SelectionID,
			RunnerName:    order.RunnerName,
			Price:         snap.BestBackPrice,
			EffectiveType: order.Side,
		})
	}
	if len(remaining) == 0 {
		m.logger.WithField("market_id", marketID).
			Warn("No lapsed leg has a live price, skipping re-adjustment")
		return nil
	}

	summary, err := dutching.ReadjustForSlippage(matched, remaining, record.TargetProfit, record.Commission)
	if err != nil {
		return fmt.Errorf("re-adjustment failed: %w", err)
	}
	metrics.SlippageReadjustmentsTotal.Inc()

	m.mu.Lock()
	m.metrics.Readjustments++
	m.mu.Unlock()

	if len(summary.Results) == 0 {
		m.logger.WithFields(logrus.Fields{
			"market_id":      marketID,
			"matched_profit": summary.MatchedProfit,
		}).Info("Matched legs already cover the target, no re-placement needed")
		return nil
	}

	orders, err := m.executor.placeLegs(ctx, marketID, summary.Results)
	if err != nil {
		return fmt.Errorf("failed to place re-adjusted legs: %w", err)
	}
	if err := m.orderRepo.CreateBatch(ctx, orders); err != nil {
		return fmt.Errorf("re-adjusted orders placed but not persisted: %w", err)
	}

	readjusted := &models.DutchRecord{
		ID:            uuid.New(),
		MarketID:      marketID,
		Mode:          models.DutchModeBackTarget,
		TotalStake:    summary.TotalStake,
		TargetProfit:  record.TargetProfit,
		UniformProfit: summary.UniformProfit,
		Commission:    record.Commission,
		Summary:       *summary,
		CreatedAt:     time.Now(),
	}
	if err := m.dutchRepo.Create(ctx, readjusted); err != nil {
		m.logger.WithError(err).Error("Failed to persist re-adjusted dutch record")
	}

	m.logger.WithFields(logrus.Fields{
		"market_id":      marketID,
		"lapsed_legs":    len(lapsed),
		"new_legs":       len(summary.Results),
		"matched_profit": summary.MatchedProfit,
	}).Info("Re-dutched after slippage")

	return nil
}

func (m *PositionMonitor) latestDutch(ctx context.Context, marketID string) (*models.DutchRecord, error) {
	records, err := m.dutchRepo.GetByMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// GetMetrics returns sync statistics
func (m *PositionMonitor) GetMetrics() MonitorMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.metrics
}
