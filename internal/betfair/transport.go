package betfair

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// TransportConfig holds configuration for the exchange HTTP transport
type TransportConfig struct {
	Timeout           time.Duration
	MaxRetries        int
	RetryWaitMin      time.Duration
	RetryWaitMax      time.Duration
	RateLimit         float64 // requests per second
	CircuitBreakerMax int     // consecutive failures before the circuit opens
}

// DefaultTransportConfig returns defaults tuned for the Betting API
// transaction limits.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		Timeout:           30 * time.Second,
		MaxRetries:        3,
		RetryWaitMin:      100 * time.Millisecond,
		RetryWaitMax:      5 * time.Second,
		RateLimit:         10.0,
		CircuitBreakerMax: 5,
	}
}

// Transport wraps retryablehttp.Client with rate limiting and a circuit
// breaker so a flapping exchange endpoint cannot amplify into a request storm.
type Transport struct {
	client            *retryablehttp.Client
	limiter           *rate.Limiter
	circuitBreakerMax int

	mu                sync.Mutex
	consecutiveErrors int
	isOpen            bool
	lastError         error

	logger *logrus.Logger
}

// NewTransport creates a rate-limited HTTP transport for exchange calls
func NewTransport(cfg TransportConfig, logger *logrus.Logger) *Transport {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Timeout = cfg.Timeout
	retryClient.RetryMax = cfg.MaxRetries
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.CheckRetry = exchangeRetryPolicy()
	retryClient.Logger = nil

	return &Transport{
		client:            retryClient,
		limiter:           rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		circuitBreakerMax: cfg.CircuitBreakerMax,
		logger:            logger,
	}
}

// Do executes an HTTP request with rate limiting and circuit breaking
func (t *Transport) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	t.mu.Lock()
	if t.isOpen {
		lastErr := t.lastError
		t.mu.Unlock()
		return nil, fmt.Errorf("circuit breaker open: %v", lastErr)
	}
	t.mu.Unlock()

	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	retryReq, err := retryablehttp.FromRequest(req)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap request: %w", err)
	}

	resp, err := t.client.Do(retryReq.WithContext(ctx))

	t.mu.Lock()
	defer t.mu.Unlock()

	if err != nil {
		t.consecutiveErrors++
		t.lastError = err
		if t.consecutiveErrors >= t.circuitBreakerMax {
			t.isOpen = true
			t.logger.WithFields(logrus.Fields{
				"consecutive_errors": t.consecutiveErrors,
				"error":              err,
			}).Error("Circuit breaker opened")
		}
		return nil, err
	}

	if resp.StatusCode < 500 {
		t.consecutiveErrors = 0
		t.isOpen = false
	}

	return resp, nil
}

// Reset closes the circuit and clears the failure count. The keep-alive
// scheduler calls this after a successful session refresh.
func (t *Transport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.consecutiveErrors = 0
	t.isOpen = false
	t.lastError = nil
}

// IsOpen reports whether the circuit breaker is currently open
func (t *Transport) IsOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.isOpen
}

// Close releases idle connections held by the underlying client
func (t *Transport) Close() error {
	t.client.HTTPClient.CloseIdleConnections()
	return nil
}

// exchangeRetryPolicy retries network errors, 429s and 5xx responses.
// Other client errors are surfaced immediately: a rejected bet must not
// be retried blindly.
func exchangeRetryPolicy() retryablehttp.CheckRetry {
	return func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if err != nil {
			return true, err
		}

		switch resp.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true, nil
		}

		return false, nil
	}
}
