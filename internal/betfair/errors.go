package betfair

import "fmt"

// Betting API error codes surfaced in APINGException payloads
const (
	ErrorCodeInvalidSession       = "INVALID_SESSION_INFORMATION"
	ErrorCodeNoAppKey             = "NO_APP_KEY"
	ErrorCodeInvalidAppKey        = "INVALID_APP_KEY"
	ErrorCodeTooManyRequests      = "TOO_MANY_REQUESTS"
	ErrorCodeServiceBusy          = "SERVICE_BUSY"
	ErrorCodeInsufficientFunds    = "INSUFFICIENT_FUNDS"
	ErrorCodeMarketSuspended      = "MARKET_SUSPENDED"
	ErrorCodeBetActionError       = "BET_ACTION_ERROR"
	ErrorCodeInvalidBetSize       = "INVALID_BET_SIZE"
	ErrorCodeBetTakenOrLapsed     = "BET_TAKEN_OR_LAPSED"
	ErrorCodeOrderLimitExceeded   = "ORDER_LIMIT_EXCEEDED"
	ErrorCodeDuplicateTransaction = "DUPLICATE_TRANSACTION"
)

// APIError represents an error returned by the Betting API
type APIError struct {
	Code    string
	Message string
	Cause   error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("exchange API error %s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

// AuthenticationError represents a login or session failure
type AuthenticationError struct {
	Message string
	Cause   error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication error: %s", e.Message)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Cause
}

// MarketSuspendedError represents a market that cannot accept orders
type MarketSuspendedError struct {
	MarketID string
}

func (e *MarketSuspendedError) Error() string {
	return fmt.Sprintf("market %s suspended", e.MarketID)
}

// InsufficientFundsError represents an account balance rejection
type InsufficientFundsError struct {
	Message string
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: %s", e.Message)
}

// NewAPIError creates an APIError with the given code and message
func NewAPIError(code, message string, cause error) *APIError {
	return &APIError{Code: code, Message: message, Cause: cause}
}

// NewAuthenticationError creates an authentication failure error
func NewAuthenticationError(message string, cause error) *AuthenticationError {
	return &AuthenticationError{Message: message, Cause: cause}
}

// mapAPIError converts a Betting API error code into a typed error
func mapAPIError(code, message string) error {
	switch code {
	case ErrorCodeInvalidSession:
		return NewAuthenticationError("session token rejected", nil)
	case ErrorCodeInsufficientFunds:
		return &InsufficientFundsError{Message: message}
	case ErrorCodeMarketSuspended:
		return &MarketSuspendedError{}
	default:
		return NewAPIError(code, message, nil)
	}
}
