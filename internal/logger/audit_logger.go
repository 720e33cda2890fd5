// Package logger provides audit logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// AuditLogger provides a dedicated audit trail for bet placement and hedging
// activity. It is constructed explicitly and injected wherever needed; there
// is no process-wide logger singleton.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogDutchPlacement logs the placement of one leg of a dutch.
func (al *AuditLogger) LogDutchPlacement(betID, marketID string, selectionID uint64, side string, stake, price, uniformProfit float64, timestamp time.Time, paperTrading bool) {
	al.WithFields(logrus.Fields{
		"bet_id":         betID,
		"market_id":      marketID,
		"selection_id":   selectionID,
		"side":           side,
		"stake":          stake,
		"price":          price,
		"uniform_profit": uniformProfit,
		"timestamp":      timestamp.Unix(),
		"paper_trading":  paperTrading,
	}).Info("Dutch leg placement recorded")
}

// LogCashout logs a cashout execution.
func (al *AuditLogger) LogCashout(marketID string, hedgeCount int, totalProfit, netProfit float64, partial bool) {
	al.WithFields(logrus.Fields{
		"market_id":    marketID,
		"hedge_count":  hedgeCount,
		"total_profit": totalProfit,
		"net_profit":   netProfit,
		"partial":      partial,
	}).Info("Cashout recorded")
}

// LogOrderStateChange logs an order state change.
func (al *AuditLogger) LogOrderStateChange(betID string, oldState, newState string, matchedSize, remainingSize float64) {
	al.WithFields(logrus.Fields{
		"bet_id":         betID,
		"old_state":      oldState,
		"new_state":      newState,
		"matched_size":   matchedSize,
		"remaining_size": remainingSize,
	}).Info("Order state changed")
}

// LogValidationRejection logs a dutch rejected by business-rule validation.
func (al *AuditLogger) LogValidationRejection(marketID string, violations []string) {
	al.WithFields(logrus.Fields{
		"market_id":  marketID,
		"violations": violations,
	}).Warn("Dutch rejected by validation")
}
