// Package bot executes dutch calculations against the exchange and keeps
// placed positions in sync with it.
package bot

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/dutch-trader/internal/config"
	"github.com/yourusername/dutch-trader/internal/metrics"
)

// RiskMetrics is a point-in-time view of exposure and limits
type RiskMetrics struct {
	CurrentExposure   float64   `json:"current_exposure"`
	DailyPnL          float64   `json:"daily_pnl"`
	MaxExposure       float64   `json:"max_exposure"`
	MaxDailyLoss      float64   `json:"max_daily_loss"`
	RemainingCapacity float64   `json:"remaining_capacity"`
	LastUpdate        time.Time `json:"last_update"`
}

// RiskManager enforces stake and exposure limits on dutch placements
type RiskManager struct {
	config *config.TradingConfig

	mu              sync.RWMutex
	currentExposure float64
	dailyPnL        float64

	logger *logrus.Logger
}

// NewRiskManager creates a risk manager
func NewRiskManager(cfg *config.TradingConfig, logger *logrus.Logger) *RiskManager {
	return &RiskManager{
		config: cfg,
		logger: logger,
	}
}

// CheckDutchLimits validates a proposed dutch placement against limits
func (rm *RiskManager) CheckDutchLimits(totalStake float64) error {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	if totalStake > rm.config.MaxStakePerDutch {
		return fmt.Errorf("total stake %.2f exceeds max stake per dutch %.2f",
			totalStake, rm.config.MaxStakePerDutch)
	}

	newExposure := rm.currentExposure + totalStake
	if newExposure > rm.config.MaxExposure {
		return fmt.Errorf("placement would exceed max exposure (current: %.2f, proposed: %.2f, max: %.2f)",
			rm.currentExposure, totalStake, rm.config.MaxExposure)
	}

	if -rm.dailyPnL >= rm.config.MaxDailyLoss {
		return fmt.Errorf("daily loss limit reached (loss: %.2f, max: %.2f)",
			-rm.dailyPnL, rm.config.MaxDailyLoss)
	}

	return nil
}

// AddExposure records newly committed stake
func (rm *RiskManager) AddExposure(amount float64) {
	rm.mu.Lock()
	rm.currentExposure += amount
	exposure := rm.currentExposure
	rm.mu.Unlock()

	metrics.UpdateOpenExposure(exposure)
}

// ReleaseExposure frees stake that is no longer at risk, such as after
// settlement or cancellation.
func (rm *RiskManager) ReleaseExposure(amount float64) {
	rm.mu.Lock()
	rm.currentExposure -= amount
	if rm.currentExposure < 0 {
		rm.currentExposure = 0
	}
	exposure := rm.currentExposure
	rm.mu.Unlock()

	metrics.UpdateOpenExposure(exposure)
}

// RecordSettlement folds a settled position's result into the daily P&L
func (rm *RiskManager) RecordSettlement(pnl float64) {
	rm.mu.Lock()
	rm.dailyPnL += pnl
	daily := rm.dailyPnL
	rm.mu.Unlock()

	metrics.UpdateDailyPnL(daily)

	if -daily >= rm.config.MaxDailyLoss {
		rm.logger.WithFields(logrus.Fields{
			"daily_pnl":      daily,
			"max_daily_loss": rm.config.MaxDailyLoss,
		}).Warn("Daily loss limit reached, further placements blocked")
	}
}

// ResetDaily zeroes the daily P&L. The scheduler calls this at midnight.
func (rm *RiskManager) ResetDaily() {
	rm.mu.Lock()
	rm.dailyPnL = 0
	rm.mu.Unlock()

	metrics.UpdateDailyPnL(0)
	rm.logger.Info("Daily P&L reset")
}

// IsWithinLimits reports whether new placements are currently allowed
func (rm *RiskManager) IsWithinLimits() bool {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	if rm.currentExposure >= rm.config.MaxExposure {
		return false
	}
	if -rm.dailyPnL >= rm.config.MaxDailyLoss {
		return false
	}
	return true
}

// GetRiskMetrics returns the current risk state for monitoring
func (rm *RiskManager) GetRiskMetrics() RiskMetrics {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	return RiskMetrics{
		CurrentExposure:   rm.currentExposure,
		DailyPnL:          rm.dailyPnL,
		MaxExposure:       rm.config.MaxExposure,
		MaxDailyLoss:      rm.config.MaxDailyLoss,
		RemainingCapacity: rm.config.MaxExposure - rm.currentExposure,
		LastUpdate:        time.Now(),
	}
}
