package betfair

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/dutch-trader/internal/metrics"
	"github.com/yourusername/dutch-trader/internal/models"
)

// SnapshotHandler receives a best-price snapshot for one selection
type SnapshotHandler func(marketID string, snapshot models.PriceSnapshot)

// ReconnectConfig controls stream reconnection behaviour
type ReconnectConfig struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// DefaultReconnectConfig returns the default reconnection policy
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		MaxRetries:        10,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 1.5,
	}
}

// streamMessage is a message from the market stream
type streamMessage struct {
	Op            string         `json:"op"`
	ID            int            `json:"id,omitempty"`
	StatusCode    string         `json:"statusCode,omitempty"`
	ErrorCode     string         `json:"errorCode,omitempty"`
	ConnectionID  string         `json:"connectionId,omitempty"`
	ChangeType    string         `json:"ct,omitempty"`
	Clk           string         `json:"clk,omitempty"`
	InitialClk    string         `json:"initialClk,omitempty"`
	MarketChanges []marketChange `json:"mc,omitempty"`
}

// marketChange carries runner deltas for one market
type marketChange struct {
	MarketID     string         `json:"id"`
	FullImage    bool           `json:"img,omitempty"`
	TotalVolume  float64        `json:"tv,omitempty"`
	Conflated    bool           `json:"con,omitempty"`
	RunnerChange []runnerChange `json:"rc,omitempty"`
}

// runnerChange carries ladder deltas for one selection. Ladder entries
// are [price, size] pairs; a size of zero removes the level.
type runnerChange struct {
	SelectionID     uint64      `json:"id"`
	LastTradedPrice float64     `json:"ltp,omitempty"`
	TotalVolume     float64     `json:"tv,omitempty"`
	BestBack        [][]float64 `json:"bdatb,omitempty"`
	BestLay         [][]float64 `json:"bdatl,omitempty"`
	Back            [][]float64 `json:"atb,omitempty"`
	Lay             [][]float64 `json:"atl,omitempty"`
}

// StreamClient consumes the market stream over a websocket and reduces
// ladder deltas into per-selection best-price snapshots.
type StreamClient struct {
	streamURL  string
	appKey     string
	conflateMs int
	reconnect  ReconnectConfig

	client *Client
	logger *logrus.Logger

	mu              sync.RWMutex
	conn            *websocket.Conn
	isConnected     bool
	handlers        []SnapshotHandler
	marketIDs       []string
	lastMessageTime time.Time
	clk             string
	initialClk      string

	// latest snapshot per selection, merged across deltas
	snapshots map[uint64]models.PriceSnapshot
}

// NewStreamClient creates a stream client for the given markets
func NewStreamClient(client *Client, conflateMs int, logger *logrus.Logger) *StreamClient {
	return &StreamClient{
		streamURL:  client.Config().StreamURL,
		appKey:     client.Config().AppKey,
		conflateMs: conflateMs,
		reconnect:  DefaultReconnectConfig(),
		client:     client,
		logger:     logger,
		snapshots:  make(map[uint64]models.PriceSnapshot),
	}
}

// AddHandler registers a snapshot handler. Handlers run on the read
// goroutine and must not block.
func (s *StreamClient) AddHandler(handler SnapshotHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, handler)
}

// Run connects, subscribes and keeps the stream alive until the context
// is cancelled, reconnecting with exponential backoff on failure.
func (s *StreamClient) Run(ctx context.Context, marketIDs []string) error {
	s.mu.Lock()
	s.marketIDs = marketIDs
	s.mu.Unlock()

	backoff := s.reconnect.InitialBackoff
	retries := 0

	for {
		err := s.connectAndRead(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		retries++
		if s.reconnect.MaxRetries > 0 && retries > s.reconnect.MaxRetries {
			return fmt.Errorf("stream gave up after %d reconnect attempts: %w", retries-1, err)
		}

		metrics.RecordStreamReconnect()
		s.logger.WithFields(logrus.Fields{
			"attempt": retries,
			"backoff": backoff,
			"error":   err,
		}).Warn("Stream disconnected, reconnecting")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * s.reconnect.BackoffMultiplier)
		if backoff > s.reconnect.MaxBackoff {
			backoff = s.reconnect.MaxBackoff
		}
	}
}

// connectAndRead performs one connect, authenticate, subscribe, read cycle
func (s *StreamClient) connectAndRead(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.streamURL, nil)
	if err != nil {
		return fmt.Errorf("stream dial failed: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.isConnected = true
	s.lastMessageTime = time.Now()
	marketIDs := s.marketIDs
	clk, initialClk := s.clk, s.initialClk
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isConnected = false
		s.mu.Unlock()
		conn.Close()
	}()

	authMsg := map[string]any{
		"op":      "authentication",
		"id":      1,
		"session": s.client.SessionToken(),
		"appKey":  s.appKey,
	}
	if err := conn.WriteJSON(authMsg); err != nil {
		return fmt.Errorf("stream authentication failed: %w", err)
	}

	subMsg := map[string]any{
		"op": "marketSubscription",
		"id": 2,
		"marketFilter": map[string]any{
			"marketIds": marketIDs,
		},
		"marketDataFilter": map[string]any{
			"fields":       []string{"EX_BEST_OFFERS", "EX_LTP", "EX_MARKET_DEF"},
			"ladderLevels": 3,
		},
		"conflateMs": s.conflateMs,
		"heartbeatMs": 5000,
	}
	// Resume from the last checkpoint after a reconnect
	if clk != "" {
		subMsg["clk"] = clk
		subMsg["initialClk"] = initialClk
	}
	if err := conn.WriteJSON(subMsg); err != nil {
		return fmt.Errorf("market subscription failed: %w", err)
	}

	s.logger.WithField("markets", len(marketIDs)).Info("Subscribed to market stream")

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var msg streamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("stream read failed: %w", err)
		}

		s.mu.Lock()
		s.lastMessageTime = time.Now()
		s.mu.Unlock()

		if err := s.processMessage(&msg); err != nil {
			s.logger.WithError(err).Warn("Failed to process stream message")
		}
	}
}

// processMessage merges a stream message into the snapshot state and
// fans the updated snapshots out to registered handlers.
func (s *StreamClient) processMessage(msg *streamMessage) error {
	switch msg.Op {
	case "status":
		if msg.StatusCode == "FAILURE" {
			return fmt.Errorf("stream status failure: %s", msg.ErrorCode)
		}
		return nil
	case "mcm":
	default:
		return nil
	}

	s.mu.Lock()
	if msg.Clk != "" {
		s.clk = msg.Clk
	}
	if msg.InitialClk != "" {
		s.initialClk = msg.InitialClk
	}
	handlers := s.handlers
	s.mu.Unlock()

	for _, mc := range msg.MarketChanges {
		for _, rc := range mc.RunnerChange {
			snap := s.mergeRunnerChange(mc.MarketID, rc)
			metrics.RecordStreamTick()
			for _, handler := range handlers {
				handler(mc.MarketID, snap)
			}
		}
	}

	return nil
}

// mergeRunnerChange applies a runner delta on top of the last known
// snapshot so unchanged fields survive partial updates.
func (s *StreamClient) mergeRunnerChange(marketID string, rc runnerChange) models.PriceSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.snapshots[rc.SelectionID]
	if !ok {
		snap = models.PriceSnapshot{SelectionID: rc.SelectionID}
	}

	if rc.LastTradedPrice > 0 {
		snap.LastTradedPrice = rc.LastTradedPrice
	}
	if rc.TotalVolume > 0 {
		snap.TotalVolume = rc.TotalVolume
	}
	if price, size, ok := bestLevel(rc.BestBack, rc.Back); ok {
		snap.BestBackPrice = price
		snap.BestBackSize = size
	}
	if price, size, ok := bestLevel(rc.BestLay, rc.Lay); ok {
		snap.BestLayPrice = price
		snap.BestLaySize = size
	}

	s.snapshots[rc.SelectionID] = snap
	return snap
}

// bestLevel extracts the top of the ladder, preferring the best-display
// ladder when present. Display ladder entries are [level, price, size];
// full ladder entries are [price, size].
func bestLevel(display, full [][]float64) (price, size float64, ok bool) {
	for _, level := range display {
		if len(level) == 3 && level[0] == 0 && level[2] > 0 {
			return level[1], level[2], true
		}
	}
	for _, level := range full {
		if len(level) == 2 && level[1] > 0 {
			return level[0], level[1], true
		}
	}
	return 0, 0, false
}

// IsConnected reports whether the stream connection is up
func (s *StreamClient) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isConnected
}

// LastMessageTime returns when the last stream message arrived
func (s *StreamClient) LastMessageTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastMessageTime
}

// Snapshot returns the last merged snapshot for a selection
func (s *StreamClient) Snapshot(selectionID uint64) (models.PriceSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[selectionID]
	return snap, ok
}

// Close tears down the stream connection
func (s *StreamClient) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	s.isConnected = false
	return s.conn.Close()
}
