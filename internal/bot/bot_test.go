package bot

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/dutch-trader/internal/betfair"
	"github.com/yourusername/dutch-trader/internal/config"
	"github.com/yourusername/dutch-trader/internal/models"
)

func discardLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testTradingConfig() *config.TradingConfig {
	return &config.TradingConfig{
		CommissionPercent: 0,
		MinStake:          2.0,
		MaxPayout:         10000,
		MaxStakePerDutch:  500,
		MaxExposure:       1000,
		MaxDailyLoss:      200,
	}
}

// memOrderRepo is an in-memory OrderRepository for executor and monitor tests
type memOrderRepo struct {
	orders map[uuid.UUID]*models.Order
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[uuid.UUID]*models.Order)}
}

func (r *memOrderRepo) Create(_ context.Context, order *models.Order) error {
	cp := *order
	r.orders[order.ID] = &cp
	return nil
}

func (r *memOrderRepo) CreateBatch(ctx context.Context, orders []*models.Order) error {
	for _, o := range orders {
		if err := r.Create(ctx, o); err != nil {
			return err
		}
	}
	return nil
}

func (r *memOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *memOrderRepo) GetByBetID(_ context.Context, betID string) (*models.Order, error) {
	for _, o := range r.orders {
		if o.BetID == betID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *memOrderRepo) GetByMarket(_ context.Context, marketID string) ([]*models.Order, error) {
	var out []*models.Order
	for _, o := range r.orders {
		if o.MarketID == marketID {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memOrderRepo) GetOpenByMarket(_ context.Context, marketID string) ([]*models.Order, error) {
	var out []*models.Order
	for _, o := range r.orders {
		if o.MarketID == marketID &&
			(o.Status == models.OrderStatusPending || o.Status == models.OrderStatusMatched) {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memOrderRepo) MarkMatched(_ context.Context, id uuid.UUID, matchedPrice, matchedStake float64) error {
	o, ok := r.orders[id]
	if !ok {
		return models.ErrNotFound
	}
	now := time.Now()
	o.Status = models.OrderStatusMatched
	o.Price = matchedPrice
	o.Stake = matchedStake
	o.MatchedAt = &now
	return nil
}

func (r *memOrderRepo) UpdateStatus(_ context.Context, id uuid.UUID, status models.OrderStatus) error {
	o, ok := r.orders[id]
	if !ok {
		return models.ErrNotFound
	}
	o.Status = status
	return nil
}

// memDutchRepo is an in-memory DutchRepository
type memDutchRepo struct {
	records []*models.DutchRecord
}

func (r *memDutchRepo) Create(_ context.Context, record *models.DutchRecord) error {
	cp := *record
	r.records = append([]*models.DutchRecord{&cp}, r.records...)
	return nil
}

func (r *memDutchRepo) GetByID(_ context.Context, id uuid.UUID) (*models.DutchRecord, error) {
	for _, rec := range r.records {
		if rec.ID == id {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *memDutchRepo) GetByMarket(_ context.Context, marketID string) ([]*models.DutchRecord, error) {
	var out []*models.DutchRecord
	for _, rec := range r.records {
		if rec.MarketID == marketID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

// stubPlacer captures PlaceDutchLegs calls
type stubPlacer struct {
	marketID string
	legs     []models.DutchingResult
	calls    int
	err      error
}

func (p *stubPlacer) PlaceDutchLegs(_ context.Context, marketID string, results []models.DutchingResult) ([]betfair.PlaceInstructionReport, error) {
	p.calls++
	p.marketID = marketID
	p.legs = results
	if p.err != nil {
		return nil, p.err
	}
	now := time.Now()
	reports := make([]betfair.PlaceInstructionReport, len(results))
	for i, leg := range results {
		reports[i] = betfair.PlaceInstructionReport{
			Status:              "SUCCESS",
			OrderStatus:         "EXECUTION_COMPLETE",
			BetID:               "bet-" + uuid.New().String()[:8],
			PlacedDate:          &now,
			AveragePriceMatched: leg.Price,
			SizeMatched:         leg.Stake,
			Instruction: betfair.PlaceInstruction{
				SelectionID: leg.SelectionID,
				Side:        string(leg.Side),
				LimitOrder: &betfair.LimitOrder{
					Size:  leg.Stake,
					Price: leg.Price,
				},
			},
		}
	}
	return reports, nil
}

type stubPrices struct {
	snapshots map[uint64]models.PriceSnapshot
	err       error
}

func (s *stubPrices) GetMarketSnapshots(_ context.Context, _ string) (map[uint64]models.PriceSnapshot, error) {
	return s.snapshots, s.err
}

type stubLister struct {
	orders []betfair.CurrentOrder
	err    error
}

func (s *stubLister) ListCurrentOrders(_ context.Context, _ []string) ([]betfair.CurrentOrder, error) {
	return s.orders, s.err
}

func newTestExecutor(placer LegPlacer, paper bool, cfg *config.TradingConfig) (*DutchExecutor, *memOrderRepo, *memDutchRepo, *RiskManager, *CircuitBreaker) {
	log := discardLogger()
	orderRepo := newMemOrderRepo()
	dutchRepo := &memDutchRepo{}
	rm := NewRiskManager(cfg, log)
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig(), log)
	exec := NewDutchExecutor(placer, orderRepo, dutchRepo, rm, cb, cfg, paper, log)
	return exec, orderRepo, dutchRepo, rm, cb
}

func threeWaySelections() []models.Selection {
	return []models.Selection{
		{SelectionID: 101, RunnerName: "Home", Price: 2.5, EffectiveType: models.BetSideBack},
		{SelectionID: 102, RunnerName: "Draw", Price: 3.5, EffectiveType: models.BetSideBack},
		{SelectionID: 103, RunnerName: "Away", Price: 6.0, EffectiveType: models.BetSideBack},
	}
}

func TestExecuteDutchPaperTrading(t *testing.T) {
	exec, orderRepo, dutchRepo, rm, _ := newTestExecutor(nil, true, testTradingConfig())

	record, err := exec.ExecuteDutch(context.Background(), DutchRequest{
		MarketID:   "1.234",
		Mode:       models.DutchModeBack,
		Selections: threeWaySelections(),
		TotalStake: 100,
	})
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Equal(t, models.DutchModeBack, record.Mode)
	assert.InDelta(t, 100, record.TotalStake, 0.01)
	require.Len(t, dutchRepo.records, 1)

	orders, err := orderRepo.GetByMarket(context.Background(), "1.234")
	require.NoError(t, err)
	require.Len(t, orders, 3)
	for _, o := range orders {
		assert.Equal(t, models.OrderStatusMatched, o.Status)
		assert.Contains(t, o.BetID, "paper-")
		assert.NotNil(t, o.MatchedAt)
	}

	assert.InDelta(t, 100, rm.GetRiskMetrics().CurrentExposure, 0.01)
}

func TestExecuteDutchLivePlacement(t *testing.T) {
	placer := &stubPlacer{}
	exec, orderRepo, _, _, _ := newTestExecutor(placer, false, testTradingConfig())

	_, err := exec.ExecuteDutch(context.Background(), DutchRequest{
		MarketID:     "1.234",
		Mode:         models.DutchModeBackTarget,
		Selections:   threeWaySelections(),
		TargetProfit: 20,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, placer.calls)
	assert.Equal(t, "1.234", placer.marketID)
	require.Len(t, placer.legs, 3)

	orders, err := orderRepo.GetByMarket(context.Background(), "1.234")
	require.NoError(t, err)
	require.Len(t, orders, 3)
	for _, o := range orders {
		assert.Contains(t, o.BetID, "bet-")
		assert.Equal(t, "1.234", o.MarketID)
	}
}

func TestExecuteDutchValidationRejection(t *testing.T) {
	cfg := testTradingConfig()
	cfg.MinStake = 50 // every leg of a small dutch falls under this

	placer := &stubPlacer{}
	exec, orderRepo, dutchRepo, _, _ := newTestExecutor(placer, false, cfg)

	_, err := exec.ExecuteDutch(context.Background(), DutchRequest{
		MarketID:   "1.234",
		Mode:       models.DutchModeBack,
		Selections: threeWaySelections(),
		TotalStake: 30,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dutch rejected")

	assert.Zero(t, placer.calls)
	assert.Empty(t, dutchRepo.records)
	orders, _ := orderRepo.GetByMarket(context.Background(), "1.234")
	assert.Empty(t, orders)
}

func TestExecuteDutchRiskRejection(t *testing.T) {
	cfg := testTradingConfig()
	cfg.MaxStakePerDutch = 50

	placer := &stubPlacer{}
	exec, _, _, _, _ := newTestExecutor(placer, false, cfg)

	_, err := exec.ExecuteDutch(context.Background(), DutchRequest{
		MarketID:   "1.234",
		Mode:       models.DutchModeBack,
		Selections: threeWaySelections(),
		TotalStake: 100,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "risk limit")
	assert.Zero(t, placer.calls)
}

func TestExecuteDutchHaltedByCircuitBreaker(t *testing.T) {
	exec, _, _, _, cb := newTestExecutor(nil, true, testTradingConfig())
	cb.TriggerEmergencyShutdown("manual halt")

	_, err := exec.ExecuteDutch(context.Background(), DutchRequest{
		MarketID:   "1.234",
		Mode:       models.DutchModeBack,
		Selections: threeWaySelections(),
		TotalStake: 100,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker")
}

func TestExecuteDutchPlacementFailureOpensCircuit(t *testing.T) {
	placer := &stubPlacer{err: errors.New("connection reset")}
	log := discardLogger()
	cfg := testTradingConfig()
	orderRepo := newMemOrderRepo()
	dutchRepo := &memDutchRepo{}
	rm := NewRiskManager(cfg, log)
	cbCfg := DefaultCircuitBreakerConfig()
	cbCfg.MaxFailureCount = 1
	cb := NewCircuitBreaker(cbCfg, log)
	exec := NewDutchExecutor(placer, orderRepo, dutchRepo, rm, cb, cfg, false, log)

	req := DutchRequest{
		MarketID:   "1.234",
		Mode:       models.DutchModeBack,
		Selections: threeWaySelections(),
		TotalStake: 100,
	}

	_, err := exec.ExecuteDutch(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to place legs")
	assert.Equal(t, CircuitOpen, cb.GetState())

	// The open circuit blocks the next attempt before any calculation
	_, err = exec.ExecuteDutch(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker")
	assert.Equal(t, 1, placer.calls)
}

func TestExecuteCashout(t *testing.T) {
	exec, orderRepo, _, _, _ := newTestExecutor(nil, true, testTradingConfig())
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, orderRepo.Create(ctx, &models.Order{
		ID:          uuid.New(),
		BetID:       "bet-1",
		MarketID:    "1.234",
		SelectionID: 101,
		RunnerName:  "Home",
		Side:        models.BetSideBack,
		Stake:       10,
		Price:       3.0,
		Status:      models.OrderStatusMatched,
		PlacedAt:    now,
		MatchedAt:   &now,
	}))

	prices := &stubPrices{snapshots: map[uint64]models.PriceSnapshot{
		101: {SelectionID: 101, BestBackPrice: 1.98, BestBackSize: 500, BestLayPrice: 2.0, BestLaySize: 500},
	}}

	result, err := exec.ExecuteCashout(ctx, "1.234", prices)
	require.NoError(t, err)
	require.Len(t, result.Hedges, 1)

	hedge := result.Hedges[0]
	assert.Equal(t, models.BetSideLay, hedge.HedgeSide)
	assert.InDelta(t, 15.0, hedge.HedgeStake, 0.01)
	assert.InDelta(t, 5.0, result.TotalProfit, 0.01)
	assert.False(t, result.IsPartial)

	// The hedge leg is persisted alongside the original order
	orders, err := orderRepo.GetByMarket(ctx, "1.234")
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}

func TestExecuteCashoutNoOpenOrders(t *testing.T) {
	exec, _, _, _, _ := newTestExecutor(nil, true, testTradingConfig())

	_, err := exec.ExecuteCashout(context.Background(), "1.234", &stubPrices{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no open orders")
}

func TestComputeUnknownMode(t *testing.T) {
	exec, _, _, _, _ := newTestExecutor(nil, true, testTradingConfig())

	_, err := exec.Compute(DutchRequest{Mode: "martingale", Selections: threeWaySelections(), TotalStake: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown dutch mode")
}

func TestRiskManagerLimits(t *testing.T) {
	cfg := testTradingConfig()
	rm := NewRiskManager(cfg, discardLogger())

	assert.NoError(t, rm.CheckDutchLimits(100))
	assert.Error(t, rm.CheckDutchLimits(cfg.MaxStakePerDutch+1))

	rm.AddExposure(900)
	err := rm.CheckDutchLimits(200)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max exposure")

	rm.ReleaseExposure(900)
	assert.NoError(t, rm.CheckDutchLimits(200))

	// Exposure never goes negative
	rm.ReleaseExposure(5000)
	assert.Zero(t, rm.GetRiskMetrics().CurrentExposure)

	rm.RecordSettlement(-cfg.MaxDailyLoss)
	err = rm.CheckDutchLimits(10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "daily loss limit")
	assert.False(t, rm.IsWithinLimits())

	rm.ResetDaily()
	assert.NoError(t, rm.CheckDutchLimits(10))
	assert.True(t, rm.IsWithinLimits())
}

func TestCircuitBreakerFailureWindow(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig()
	cfg.MaxFailureCount = 2
	cfg.CooldownPeriod = 10 * time.Millisecond
	cb := NewCircuitBreaker(cfg, discardLogger())

	assert.True(t, cb.Allow())
	cb.RecordFailure(errors.New("timeout"))
	assert.True(t, cb.Allow())
	cb.RecordFailure(errors.New("timeout"))
	assert.False(t, cb.Allow())
	assert.Equal(t, CircuitOpen, cb.GetState())

	// After the cooldown a probe placement is allowed
	time.Sleep(20 * time.Millisecond)
	assert.True(t, cb.Allow())
	assert.Equal(t, CircuitHalfOpen, cb.GetState())

	cb.RecordSuccess()
	assert.Equal(t, CircuitClosed, cb.GetState())
}

func TestCircuitBreakerLossStreak(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig()
	cfg.MaxConsecutiveLosses = 3
	cb := NewCircuitBreaker(cfg, discardLogger())

	cb.RecordSettlement(-10)
	cb.RecordSettlement(-5)
	cb.RecordSettlement(20) // win resets the streak
	cb.RecordSettlement(-10)
	cb.RecordSettlement(-5)
	assert.Equal(t, CircuitClosed, cb.GetState())

	cb.RecordSettlement(-1)
	assert.Equal(t, CircuitOpen, cb.GetState())
}

func TestCircuitBreakerShutdownCallback(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig(), discardLogger())

	var gotReason string
	cb.RegisterShutdownCallback(func(reason string) error {
		gotReason = reason
		return nil
	})

	cb.TriggerEmergencyShutdown("stream dead")
	assert.Equal(t, "stream dead", gotReason)
	assert.False(t, cb.Allow())

	cb.Reset()
	assert.True(t, cb.Allow())
}

func newTestMonitor(lister OrderLister, cfg *config.TradingConfig) (*PositionMonitor, *memOrderRepo, *memDutchRepo, *RiskManager) {
	return newTestMonitorWithPrices(lister, &stubPrices{}, cfg)
}

func newTestMonitorWithPrices(lister OrderLister, prices PriceSource, cfg *config.TradingConfig) (*PositionMonitor, *memOrderRepo, *memDutchRepo, *RiskManager) {
	log := discardLogger()
	orderRepo := newMemOrderRepo()
	dutchRepo := &memDutchRepo{}
	rm := NewRiskManager(cfg, log)
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig(), log)
	exec := NewDutchExecutor(nil, orderRepo, dutchRepo, rm, cb, cfg, true, log)
	mon := NewPositionMonitor(lister, orderRepo, dutchRepo, exec, rm, prices, 10*time.Millisecond, log)
	return mon, orderRepo, dutchRepo, rm
}

func pendingOrder(marketID, betID string, selectionID uint64, price, stake float64) *models.Order {
	return &models.Order{
		ID:          uuid.New(),
		BetID:       betID,
		MarketID:    marketID,
		SelectionID: selectionID,
		RunnerName:  "Runner",
		Side:        models.BetSideBack,
		Stake:       stake,
		Price:       price,
		Status:      models.OrderStatusPending,
		PlacedAt:    time.Now(),
	}
}

func TestPositionMonitorMarksMatched(t *testing.T) {
	lister := &stubLister{orders: []betfair.CurrentOrder{
		{BetID: "bet-1", MarketID: "1.234", SizeMatched: 10, AveragePriceMatched: 2.1, SizeRemaining: 0},
	}}
	mon, orderRepo, _, _ := newTestMonitor(lister, testTradingConfig())
	ctx := context.Background()

	order := pendingOrder("1.234", "bet-1", 101, 2.0, 10)
	require.NoError(t, orderRepo.Create(ctx, order))
	mon.Track("1.234")

	require.NoError(t, mon.SyncOnce(ctx))

	got, err := orderRepo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusMatched, got.Status)
	assert.InDelta(t, 2.1, got.Price, 0.001)
	assert.InDelta(t, 10, got.Stake, 0.001)
	assert.NotNil(t, got.MatchedAt)

	m := mon.GetMetrics()
	assert.EqualValues(t, 1, m.SyncsPerformed)
	assert.Zero(t, m.Readjustments)
}

func TestPositionMonitorCancelReleasesExposure(t *testing.T) {
	lister := &stubLister{orders: []betfair.CurrentOrder{
		{BetID: "bet-1", MarketID: "1.234", SizeCancelled: 10, SizeMatched: 0},
	}}
	mon, orderRepo, _, rm := newTestMonitor(lister, testTradingConfig())
	ctx := context.Background()

	rm.AddExposure(10)
	order := pendingOrder("1.234", "bet-1", 101, 2.0, 10)
	require.NoError(t, orderRepo.Create(ctx, order))
	mon.Track("1.234")

	require.NoError(t, mon.SyncOnce(ctx))

	got, err := orderRepo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, got.Status)
	assert.Zero(t, rm.GetRiskMetrics().CurrentExposure)
}

func TestPositionMonitorReadjustsAfterSlippage(t *testing.T) {
	// One leg filled, one leg lapsed off the exchange entirely. The lapsed
	// selection is re-dutched for the profit the fill did not lock in,
	// priced at the market's current best back rather than the price the
	// leg originally lapsed at.
	lister := &stubLister{orders: []betfair.CurrentOrder{
		{BetID: "bet-1", MarketID: "1.234", SizeMatched: 10, AveragePriceMatched: 2.0},
	}}
	prices := &stubPrices{snapshots: map[uint64]models.PriceSnapshot{
		102: {SelectionID: 102, BestBackPrice: 4.0, BestLayPrice: 4.1},
	}}
	mon, orderRepo, dutchRepo, _ := newTestMonitorWithPrices(lister, prices, testTradingConfig())
	ctx := context.Background()

	require.NoError(t, orderRepo.Create(ctx, pendingOrder("1.234", "bet-1", 101, 2.0, 10)))
	lapsed := pendingOrder("1.234", "bet-2", 102, 3.0, 8)
	require.NoError(t, orderRepo.Create(ctx, lapsed))

	require.NoError(t, dutchRepo.Create(ctx, &models.DutchRecord{
		ID:           uuid.New(),
		MarketID:     "1.234",
		Mode:         models.DutchModeBackTarget,
		TargetProfit: 15,
		Commission:   0,
		CreatedAt:    time.Now(),
	}))

	mon.Track("1.234")
	require.NoError(t, mon.SyncOnce(ctx))

	// Matched profit 10*(2.0-1)=10, remaining 5 chased at the live 4.0,
	// not the lapsed 3.0: stake 5/(4-1)=1.67
	assert.EqualValues(t, 1, mon.GetMetrics().Readjustments)
	require.Len(t, dutchRepo.records, 2)
	readjusted := dutchRepo.records[0]
	assert.Equal(t, models.DutchModeBackTarget, readjusted.Mode)
	assert.InDelta(t, 1.67, readjusted.TotalStake, 0.01)
	assert.InDelta(t, 10, readjusted.Summary.MatchedProfit, 0.01)
	require.Len(t, readjusted.Summary.Results, 1)
	assert.InDelta(t, 4.0, readjusted.Summary.Results[0].Price, 0.001)

	// The replacement leg was persisted as a paper order at the live price
	orders, err := orderRepo.GetByMarket(ctx, "1.234")
	require.NoError(t, err)
	require.Len(t, orders, 3)
	var replacement *models.Order
	for _, o := range orders {
		if o.BetID != "bet-1" && o.BetID != "bet-2" {
			replacement = o
		}
	}
	require.NotNil(t, replacement)
	assert.InDelta(t, 4.0, replacement.Price, 0.001)
}

func TestPositionMonitorReadjustSkipsWithoutLivePrice(t *testing.T) {
	lister := &stubLister{orders: []betfair.CurrentOrder{
		{BetID: "bet-1", MarketID: "1.234", SizeMatched: 10, AveragePriceMatched: 2.0},
	}}
	mon, orderRepo, dutchRepo, _ := newTestMonitorWithPrices(lister, &stubPrices{}, testTradingConfig())
	ctx := context.Background()

	require.NoError(t, orderRepo.Create(ctx, pendingOrder("1.234", "bet-1", 101, 2.0, 10)))
	require.NoError(t, orderRepo.Create(ctx, pendingOrder("1.234", "bet-2", 102, 3.0, 8)))

	require.NoError(t, dutchRepo.Create(ctx, &models.DutchRecord{
		ID:           uuid.New(),
		MarketID:     "1.234",
		Mode:         models.DutchModeBackTarget,
		TargetProfit: 15,
		CreatedAt:    time.Now(),
	}))

	mon.Track("1.234")
	require.NoError(t, mon.SyncOnce(ctx))

	// The lapsed selection has no tradeable price, so nothing was re-placed
	assert.Zero(t, mon.GetMetrics().Readjustments)
	require.Len(t, dutchRepo.records, 1)
	orders, err := orderRepo.GetByMarket(ctx, "1.234")
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}

func TestPositionMonitorSkipsReadjustForStakeDrivenDutch(t *testing.T) {
	lister := &stubLister{orders: []betfair.CurrentOrder{
		{BetID: "bet-1", MarketID: "1.234", SizeMatched: 10, AveragePriceMatched: 2.0},
	}}
	mon, orderRepo, dutchRepo, _ := newTestMonitor(lister, testTradingConfig())
	ctx := context.Background()

	require.NoError(t, orderRepo.Create(ctx, pendingOrder("1.234", "bet-1", 101, 2.0, 10)))
	require.NoError(t, orderRepo.Create(ctx, pendingOrder("1.234", "bet-2", 102, 3.0, 8)))

	require.NoError(t, dutchRepo.Create(ctx, &models.DutchRecord{
		ID:        uuid.New(),
		MarketID:  "1.234",
		Mode:      models.DutchModeBack,
		CreatedAt: time.Now(),
	}))

	mon.Track("1.234")
	require.NoError(t, mon.SyncOnce(ctx))

	assert.Zero(t, mon.GetMetrics().Readjustments)
	require.Len(t, dutchRepo.records, 1)
}

func TestPositionMonitorRunStopsOnCancel(t *testing.T) {
	lister := &stubLister{}
	mon, _, _, _ := newTestMonitor(lister, testTradingConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := mon.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
