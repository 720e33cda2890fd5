package bot

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// CircuitState represents the state of the trading circuit breaker
type CircuitState int

const (
	// CircuitClosed means trading is active
	CircuitClosed CircuitState = iota
	// CircuitHalfOpen means trading is resuming after cooldown
	CircuitHalfOpen
	// CircuitOpen means trading is halted
	CircuitOpen
)

// String returns string representation of circuit state
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "CLOSED"
	case CircuitHalfOpen:
		return "HALF_OPEN"
	case CircuitOpen:
		return "OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreakerConfig defines trading halt thresholds
type CircuitBreakerConfig struct {
	MaxConsecutiveLosses int           `json:"max_consecutive_losses"`
	MaxFailureCount      int           `json:"max_failure_count"`
	FailureTimeWindow    time.Duration `json:"failure_time_window"`
	CooldownPeriod       time.Duration `json:"cooldown_period"`
}

// DefaultCircuitBreakerConfig returns conservative halt thresholds
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MaxConsecutiveLosses: 5,
		MaxFailureCount:      3,
		FailureTimeWindow:    5 * time.Minute,
		CooldownPeriod:       30 * time.Minute,
	}
}

// ShutdownCallback is called when an emergency halt is triggered
type ShutdownCallback func(reason string) error

// CircuitBreaker halts dutch placement after repeated placement failures
// or a run of losing positions.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu                sync.Mutex
	state             CircuitState
	failureCount      int
	lastFailureTime   time.Time
	consecutiveLosses int
	openedAt          time.Time
	callbacks         []ShutdownCallback

	logger *logrus.Logger
}

// NewCircuitBreaker creates a circuit breaker
func NewCircuitBreaker(config CircuitBreakerConfig, logger *logrus.Logger) *CircuitBreaker {
	return &CircuitBreaker{
		config: config,
		state:  CircuitClosed,
		logger: logger,
	}
}

// RecordSettlement tracks settled positions for loss streaks
func (cb *CircuitBreaker) RecordSettlement(pnl float64) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if pnl >= 0 {
		cb.consecutiveLosses = 0
		return
	}

	cb.consecutiveLosses++
	cb.logger.WithFields(logrus.Fields{
		"consecutive_losses": cb.consecutiveLosses,
		"max_allowed":        cb.config.MaxConsecutiveLosses,
	}).Warn("Losing position settled")

	if cb.consecutiveLosses >= cb.config.MaxConsecutiveLosses {
		cb.openLocked(fmt.Sprintf(
			"max consecutive losses exceeded (%d >= %d)",
			cb.consecutiveLosses, cb.config.MaxConsecutiveLosses,
		))
	}
}

// RecordFailure tracks placement failures within the time window
func (cb *CircuitBreaker) RecordFailure(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := time.Now()
	if now.Sub(cb.lastFailureTime) > cb.config.FailureTimeWindow {
		cb.failureCount = 0
	}

	cb.failureCount++
	cb.lastFailureTime = now

	cb.logger.WithFields(logrus.Fields{
		"failure_count": cb.failureCount,
		"max_allowed":   cb.config.MaxFailureCount,
		"error":         err.Error(),
	}).Warn("Placement failure recorded")

	if cb.failureCount >= cb.config.MaxFailureCount {
		cb.openLocked(fmt.Sprintf(
			"max failure count exceeded (%d >= %d) within %v",
			cb.failureCount, cb.config.MaxFailureCount, cb.config.FailureTimeWindow,
		))
	}
}

// RecordSuccess resets the placement failure count
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount = 0
	if cb.state == CircuitHalfOpen {
		cb.state = CircuitClosed
		cb.logger.Info("Circuit breaker closed after successful half-open placement")
	}
}

// Allow reports whether placements may proceed, transitioning to
// half-open once the cooldown has elapsed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitOpen && time.Since(cb.openedAt) > cb.config.CooldownPeriod {
		cb.state = CircuitHalfOpen
		cb.logger.Info("Circuit breaker entering half-open state after cooldown")
	}

	return cb.state != CircuitOpen
}

// GetState returns the current circuit state
func (cb *CircuitBreaker) GetState() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset manually closes the circuit
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = CircuitClosed
	cb.failureCount = 0
	cb.consecutiveLosses = 0
	cb.logger.Info("Circuit breaker manually reset")
}

// RegisterShutdownCallback registers a callback for emergency halts
func (cb *CircuitBreaker) RegisterShutdownCallback(callback ShutdownCallback) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.callbacks = append(cb.callbacks, callback)
}

// TriggerEmergencyShutdown opens the circuit and runs all callbacks
func (cb *CircuitBreaker) TriggerEmergencyShutdown(reason string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.openLocked(reason)
}

func (cb *CircuitBreaker) openLocked(reason string) {
	if cb.state == CircuitOpen {
		return
	}

	cb.state = CircuitOpen
	cb.openedAt = time.Now()

	cb.logger.WithFields(logrus.Fields{
		"reason":             reason,
		"consecutive_losses": cb.consecutiveLosses,
		"failure_count":      cb.failureCount,
		"cooldown":           cb.config.CooldownPeriod,
	}).Error("Trading halted")

	for i, callback := range cb.callbacks {
		if err := callback(reason); err != nil {
			cb.logger.WithFields(logrus.Fields{
				"callback_index": i,
				"error":          err.Error(),
			}).Error("Shutdown callback failed")
		}
	}
}
