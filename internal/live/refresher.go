package live

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/dutch-trader/internal/dutching"
	"github.com/yourusername/dutch-trader/internal/metrics"
	"github.com/yourusername/dutch-trader/internal/models"
)

// OrderProvider supplies the open orders whose cashout value should be
// kept current.
type OrderProvider interface {
	OpenOrders(ctx context.Context, marketID string) ([]models.Order, error)
}

// CashoutListener receives each recomputed cashout result
type CashoutListener func(marketID string, result models.CashoutResult)

// CashoutRefresher recomputes the multi-cashout figures for a market on a
// fixed cadence against the latest buffered prices. The cadence is short
// enough that the displayed cashout value tracks every price tick.
type CashoutRefresher struct {
	marketID   string
	interval   time.Duration
	commission float64

	buffer   *PriceBuffer
	provider OrderProvider
	logger   *logrus.Entry

	mu        sync.RWMutex
	latest    models.CashoutResult
	hasResult bool
	listeners []CashoutListener
}

// NewCashoutRefresher creates a refresher for one market
func NewCashoutRefresher(
	marketID string,
	interval time.Duration,
	commission float64,
	buffer *PriceBuffer,
	provider OrderProvider,
	logger *logrus.Logger,
) *CashoutRefresher {
	return &CashoutRefresher{
		marketID:   marketID,
		interval:   interval,
		commission: commission,
		buffer:     buffer,
		provider:   provider,
		logger:     logger.WithField("market_id", marketID),
	}
}

// AddListener registers a listener for recomputed results. Listeners run
// on the refresh goroutine and must not block.
func (r *CashoutRefresher) AddListener(listener CashoutListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, listener)
}

// Run refreshes on the configured cadence until the context is cancelled
func (r *CashoutRefresher) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.WithField("interval", r.interval).Info("Cashout refresher started")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Cashout refresher stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := r.RefreshOnce(ctx); err != nil {
				r.logger.WithError(err).Warn("Cashout refresh failed")
			}
		}
	}
}

// RefreshOnce recomputes the cashout figures against the current buffer
func (r *CashoutRefresher) RefreshOnce(ctx context.Context) error {
	start := time.Now()

	orders, err := r.provider.OpenOrders(ctx, r.marketID)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		return nil
	}

	result := dutching.CalculateMultiCashout(orders, r.buffer.Snapshot(), r.commission)

	r.mu.Lock()
	r.latest = result
	r.hasResult = true
	listeners := r.listeners
	r.mu.Unlock()

	metrics.RecordCashoutRefresh(time.Since(start).Seconds())
	metrics.UpdateLockedProfit(result.NetProfit)

	for _, listener := range listeners {
		listener(r.marketID, result)
	}

	return nil
}

// Latest returns the most recently computed cashout result
func (r *CashoutRefresher) Latest() (models.CashoutResult, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest, r.hasResult
}
