package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/dutch-trader/internal/betfair"
	"github.com/yourusername/dutch-trader/internal/config"
	"github.com/yourusername/dutch-trader/internal/live"
	"github.com/yourusername/dutch-trader/internal/models"
	"github.com/yourusername/dutch-trader/internal/repository"
)

// Status is a point-in-time view of the running bot
type Status struct {
	Running             bool           `json:"running"`
	PaperTrading        bool           `json:"paper_trading"`
	StreamConnected     bool           `json:"stream_connected"`
	TrackedMarkets      []string       `json:"tracked_markets"`
	CircuitBreakerState string         `json:"circuit_breaker_state"`
	RiskMetrics         RiskMetrics    `json:"risk_metrics"`
	MonitorMetrics      MonitorMetrics `json:"monitor_metrics"`
}

// Orchestrator wires the stream, the cashout refreshers and the position
// monitor together and manages their lifecycles.
type Orchestrator struct {
	cfg      *config.Config
	stream   *betfair.StreamClient
	buffer   *live.PriceBuffer
	executor *DutchExecutor
	monitor  *PositionMonitor
	rm       *RiskManager
	cb       *CircuitBreaker
	orders   repository.OrderRepository
	logger   *logrus.Logger

	mu         sync.Mutex
	running    bool
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	markets    []string
	refreshers map[string]*live.CashoutRefresher
}

// NewOrchestrator assembles the bot runtime
func NewOrchestrator(
	cfg *config.Config,
	stream *betfair.StreamClient,
	buffer *live.PriceBuffer,
	executor *DutchExecutor,
	monitor *PositionMonitor,
	rm *RiskManager,
	cb *CircuitBreaker,
	orders repository.OrderRepository,
	logger *logrus.Logger,
) (*Orchestrator, error) {
	if executor == nil || monitor == nil {
		return nil, fmt.Errorf("executor and monitor are required")
	}
	return &Orchestrator{
		cfg:        cfg,
		stream:     stream,
		buffer:     buffer,
		executor:   executor,
		monitor:    monitor,
		rm:         rm,
		cb:         cb,
		orders:     orders,
		logger:     logger,
		refreshers: make(map[string]*live.CashoutRefresher),
	}, nil
}

// repoOrderProvider adapts the order repository to the refresher's
// read-only view of open orders.
type repoOrderProvider struct {
	repo repository.OrderRepository
}

func (p repoOrderProvider) OpenOrders(ctx context.Context, marketID string) ([]models.Order, error) {
	open, err := p.repo.GetOpenByMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	orders := make([]models.Order, len(open))
	for i, o := range open {
		orders[i] = *o
	}
	return orders, nil
}

// Start launches the stream, the position monitor and one cashout
// refresher per market. It returns once everything is running.
func (o *Orchestrator) Start(ctx context.Context, marketIDs []string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		return fmt.Errorf("orchestrator is already running")
	}
	if len(marketIDs) == 0 {
		return fmt.Errorf("no markets to trade")
	}

	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.markets = append([]string(nil), marketIDs...)

	if o.stream != nil {
		o.stream.AddHandler(func(_ string, snapshot models.PriceSnapshot) {
			o.buffer.Update(snapshot)
		})

		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			if err := o.stream.Run(runCtx, marketIDs); err != nil && runCtx.Err() == nil {
				o.logger.WithError(err).Error("Market stream terminated")
				o.cb.TriggerEmergencyShutdown("market stream terminated")
			}
		}()
	}

	for _, marketID := range marketIDs {
		o.monitor.Track(marketID)

		refresher := live.NewCashoutRefresher(
			marketID,
			o.cfg.RefreshInterval(),
			o.cfg.Trading.CommissionPercent,
			o.buffer,
			repoOrderProvider{repo: o.orders},
			o.logger,
		)
		o.refreshers[marketID] = refresher

		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			if err := refresher.Run(runCtx); err != nil && runCtx.Err() == nil {
				o.logger.WithError(err).Error("Cashout refresher terminated")
			}
		}()
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		if err := o.monitor.Run(runCtx); err != nil && runCtx.Err() == nil {
			o.logger.WithError(err).Error("Position monitor terminated")
		}
	}()

	o.running = true
	o.logger.WithFields(logrus.Fields{
		"markets":          len(marketIDs),
		"refresh_interval": o.cfg.RefreshInterval(),
		"paper_trading":    o.executor.paperTrading,
	}).Info("Orchestrator started")

	return nil
}

// Stop shuts the runtime down and waits for the worker goroutines
func (o *Orchestrator) Stop() error {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return nil
	}
	o.running = false
	cancel := o.cancel
	o.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		o.logger.Warn("Timed out waiting for workers to stop")
	}

	if o.stream != nil {
		if err := o.stream.Close(); err != nil {
			o.logger.WithError(err).Warn("Stream close failed")
		}
	}

	o.logger.Info("Orchestrator stopped")
	return nil
}

// Executor exposes the dutch executor for callers that place on demand
func (o *Orchestrator) Executor() *DutchExecutor {
	return o.executor
}

// CashoutResult returns the latest refreshed cashout for a market
func (o *Orchestrator) CashoutResult(marketID string) (models.CashoutResult, bool) {
	o.mu.Lock()
	refresher, ok := o.refreshers[marketID]
	o.mu.Unlock()
	if !ok {
		return models.CashoutResult{}, false
	}
	return refresher.Latest()
}

// GetStatus reports the current runtime state
func (o *Orchestrator) GetStatus() Status {
	o.mu.Lock()
	markets := append([]string(nil), o.markets...)
	running := o.running
	o.mu.Unlock()

	status := Status{
		Running:             running,
		PaperTrading:        o.executor.paperTrading,
		TrackedMarkets:      markets,
		CircuitBreakerState: o.cb.GetState().String(),
		RiskMetrics:         o.rm.GetRiskMetrics(),
		MonitorMetrics:      o.monitor.GetMetrics(),
	}
	if o.stream != nil {
		status.StreamConnected = o.stream.IsConnected()
	}
	return status
}
