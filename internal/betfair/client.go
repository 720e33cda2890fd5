package betfair

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/dutch-trader/internal/config"
	"github.com/yourusername/dutch-trader/internal/metrics"
)

const methodPrefix = "SportsAPING/v1.0/"

// Client is a JSON-RPC client for the Betfair Exchange Italy Betting API
type Client struct {
	transport *Transport
	config    *config.BetfairConfig

	mu           sync.RWMutex
	sessionToken string
	tokenExpiry  time.Time

	logger *logrus.Logger
}

// jsonRPCRequest is the JSON-RPC 2.0 request envelope
type jsonRPCRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
	ID      int            `json:"id"`
}

// jsonRPCResponse is the JSON-RPC 2.0 response envelope
type jsonRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonRPCError   `json:"error,omitempty"`
	ID      int             `json:"id"`
}

type jsonRPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// apiNGException is the structured error payload inside a JSON-RPC error
type apiNGException struct {
	APINGException struct {
		ErrorCode    string `json:"errorCode"`
		ErrorDetails string `json:"errorDetails"`
	} `json:"APINGException"`
}

// NewClient creates an exchange API client
func NewClient(cfg *config.BetfairConfig, transport *Transport, logger *logrus.Logger) *Client {
	return &Client{
		transport: transport,
		config:    cfg,
		logger:    logger,
	}
}

// makeRequest performs a single Betting API call and returns the raw result
func (c *Client) makeRequest(ctx context.Context, method string, params map[string]any) (json.RawMessage, error) {
	c.mu.RLock()
	sessionToken := c.sessionToken
	c.mu.RUnlock()

	if sessionToken == "" {
		return nil, NewAuthenticationError("no active session token", nil)
	}

	reqBody := jsonRPCRequest{
		JSONRPC: "2.0",
		Method:  methodPrefix + method,
		Params:  params,
		ID:      1,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.APIURL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Application", c.config.AppKey)
	req.Header.Set("X-Authentication", sessionToken)

	start := time.Now()
	resp, err := c.transport.Do(ctx, req)
	metrics.RecordAPIRequest(method, time.Since(start).Seconds())
	if err != nil {
		metrics.RecordAPIError("TRANSPORT")
		return nil, fmt.Errorf("%s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.RecordAPIError(fmt.Sprintf("HTTP_%d", resp.StatusCode))
		return nil, fmt.Errorf("%s returned status %d", method, resp.StatusCode)
	}

	var jsonResp jsonRPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&jsonResp); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", method, err)
	}

	if jsonResp.Error != nil {
		code := exceptionCode(jsonResp.Error)
		metrics.RecordAPIError(code)
		c.logger.WithFields(logrus.Fields{
			"method": method,
			"code":   code,
		}).Warn("Exchange API error")
		return nil, mapAPIError(code, jsonResp.Error.Message)
	}

	return jsonResp.Result, nil
}

// exceptionCode extracts the APINGException error code from a JSON-RPC error
func exceptionCode(rpcErr *jsonRPCError) string {
	if len(rpcErr.Data) > 0 {
		var exc apiNGException
		if err := json.Unmarshal(rpcErr.Data, &exc); err == nil && exc.APINGException.ErrorCode != "" {
			return exc.APINGException.ErrorCode
		}
	}
	// Fall back to the message, which carries the code for some errors
	if idx := strings.LastIndex(rpcErr.Message, " "); idx >= 0 {
		return rpcErr.Message[idx+1:]
	}
	return rpcErr.Message
}

// SetSessionToken stores the session token used for subsequent API calls
func (c *Client) SetSessionToken(token string, expiry time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionToken = token
	c.tokenExpiry = expiry
}

// SessionToken returns the current session token
func (c *Client) SessionToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionToken
}

// IsAuthenticated checks whether the client holds an unexpired session
func (c *Client) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionToken != "" && time.Now().Before(c.tokenExpiry)
}

// NeedsRefresh reports whether the session expires within five minutes
func (c *Client) NeedsRefresh() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Now().Add(5 * time.Minute).After(c.tokenExpiry)
}

// Config returns the exchange configuration
func (c *Client) Config() *config.BetfairConfig {
	return c.config
}
