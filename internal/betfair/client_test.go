package betfair

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/dutch-trader/internal/config"
	"github.com/yourusername/dutch-trader/internal/models"
)

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.BetfairConfig{
		APIURL:    server.URL,
		LoginURL:  server.URL + "/certlogin",
		StreamURL: "wss://stream.betfair.it/api",
		AppKey:    "test-app-key",
		Username:  "test-user",
		Password:  "test-pass",
	}

	transportCfg := DefaultTransportConfig()
	transportCfg.MaxRetries = 0
	transport := NewTransport(transportCfg, discardLogger())

	client := NewClient(cfg, transport, discardLogger())
	client.SetSessionToken("test-session", time.Now().Add(time.Hour))
	return client, server
}

func rpcResult(t *testing.T, w http.ResponseWriter, result any) {
	t.Helper()
	raw, err := json.Marshal(result)
	require.NoError(t, err)
	resp := jsonRPCResponse{JSONRPC: "2.0", Result: raw, ID: 1}
	require.NoError(t, json.NewEncoder(w).Encode(resp))
}

func TestMakeRequest(t *testing.T) {
	t.Run("requires session token", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
		client.SetSessionToken("", time.Time{})

		_, err := client.makeRequest(context.Background(), "listMarketBook", nil)
		require.Error(t, err)
		assert.IsType(t, &AuthenticationError{}, err)
	})

	t.Run("sends application and session headers", func(t *testing.T) {
		var gotApp, gotSession, gotMethod string
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			gotApp = r.Header.Get("X-Application")
			gotSession = r.Header.Get("X-Authentication")
			var req jsonRPCRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			gotMethod = req.Method
			rpcResult(t, w, map[string]any{})
		})

		_, err := client.makeRequest(context.Background(), "listMarketBook", map[string]any{})
		require.NoError(t, err)
		assert.Equal(t, "test-app-key", gotApp)
		assert.Equal(t, "test-session", gotSession)
		assert.Equal(t, "SportsAPING/v1.0/listMarketBook", gotMethod)
	})

	t.Run("maps APINGException error codes", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			data := json.RawMessage(`{"APINGException":{"errorCode":"INVALID_SESSION_INFORMATION","errorDetails":""}}`)
			resp := jsonRPCResponse{
				JSONRPC: "2.0",
				Error:   &jsonRPCError{Code: -32099, Message: "ANGX-0003", Data: data},
				ID:      1,
			}
			require.NoError(t, json.NewEncoder(w).Encode(resp))
		})

		_, err := client.makeRequest(context.Background(), "listMarketBook", nil)
		require.Error(t, err)
		assert.IsType(t, &AuthenticationError{}, err)
	})

	t.Run("surfaces non-200 status", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})

		_, err := client.makeRequest(context.Background(), "listMarketBook", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "403")
	})
}

func TestSessionLifecycle(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	assert.True(t, client.IsAuthenticated())

	client.SetSessionToken("tok", time.Now().Add(2*time.Minute))
	assert.True(t, client.IsAuthenticated())
	assert.True(t, client.NeedsRefresh())

	client.SetSessionToken("tok", time.Now().Add(time.Hour))
	assert.False(t, client.NeedsRefresh())

	client.SetSessionToken("", time.Time{})
	assert.False(t, client.IsAuthenticated())
}

func TestMarketService(t *testing.T) {
	marketBookResponse := []MarketBook{{
		MarketID: "1.234",
		Status:   "OPEN",
		Runners: []Runner{
			{
				SelectionID:     101,
				Status:          "ACTIVE",
				LastPriceTraded: 2.48,
				TotalMatched:    15000,
				ExchangePrices: ExchangePrices{
					AvailableToBack: []PriceSize{{Price: 2.5, Size: 120}, {Price: 2.48, Size: 300}},
					AvailableToLay:  []PriceSize{{Price: 2.52, Size: 80}},
				},
			},
			{SelectionID: 102, Status: "REMOVED"},
		},
	}}

	t.Run("builds snapshots from best offers", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			rpcResult(t, w, marketBookResponse)
		})
		svc := NewMarketService(client, time.Minute, discardLogger())

		snapshots, err := svc.GetMarketSnapshots(context.Background(), "1.234")
		require.NoError(t, err)
		require.Len(t, snapshots, 1, "removed runner must be skipped")

		snap := snapshots[101]
		assert.Equal(t, 2.5, snap.BestBackPrice)
		assert.Equal(t, 120.0, snap.BestBackSize)
		assert.Equal(t, 2.52, snap.BestLayPrice)
		assert.Equal(t, 80.0, snap.BestLaySize)
		assert.Equal(t, 2.48, snap.LastTradedPrice)
	})

	t.Run("suspended market returns typed error", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			rpcResult(t, w, []MarketBook{{MarketID: "1.234", Status: "SUSPENDED"}})
		})
		svc := NewMarketService(client, time.Minute, discardLogger())

		_, err := svc.GetMarketSnapshots(context.Background(), "1.234")
		require.Error(t, err)
		assert.IsType(t, &MarketSuspendedError{}, err)
	})

	t.Run("catalogue served from cache on second call", func(t *testing.T) {
		calls := 0
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls++
			rpcResult(t, w, []MarketCatalogue{{
				MarketID:   "1.234",
				MarketName: "Match Odds",
				Runners:    []RunnerCatalogue{{SelectionID: 101, RunnerName: "Juventus"}},
			}})
		})
		svc := NewMarketService(client, time.Minute, discardLogger())

		first, err := svc.GetMarketCatalogue(context.Background(), "1.234")
		require.NoError(t, err)
		second, err := svc.GetMarketCatalogue(context.Background(), "1.234")
		require.NoError(t, err)

		assert.Equal(t, 1, calls)
		assert.Equal(t, first.MarketName, second.MarketName)
	})
}

func TestBettingService(t *testing.T) {
	results := []models.DutchingResult{
		{SelectionID: 101, Price: 2.0, Side: models.BetSideBack, Stake: 50.0},
		{SelectionID: 102, Price: 4.0, Side: models.BetSideBack, Stake: 25.0},
	}

	t.Run("places all legs in one batch", func(t *testing.T) {
		var gotInstructions []PlaceInstruction
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			var req jsonRPCRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			raw, err := json.Marshal(req.Params["instructions"])
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(raw, &gotInstructions))

			reports := make([]PlaceInstructionReport, len(gotInstructions))
			for i, inst := range gotInstructions {
				reports[i] = PlaceInstructionReport{
					Status:      "SUCCESS",
					OrderStatus: "EXECUTION_COMPLETE",
					BetID:       fmt.Sprintf("bet-%d", i+1),
					Instruction: inst,
				}
			}
			rpcResult(t, w, PlaceExecutionReport{
				MarketID:           "1.234",
				Status:             "SUCCESS",
				InstructionReports: reports,
			})
		})
		svc := NewBettingService(client, discardLogger())

		reports, err := svc.PlaceDutchLegs(context.Background(), "1.234", results)
		require.NoError(t, err)
		require.Len(t, reports, 2)

		require.Len(t, gotInstructions, 2)
		assert.Equal(t, uint64(101), gotInstructions[0].SelectionID)
		assert.Equal(t, "BACK", gotInstructions[0].Side)
		assert.Equal(t, 50.0, gotInstructions[0].LimitOrder.Size)
		assert.Equal(t, 2.0, gotInstructions[0].LimitOrder.Price)
		assert.Equal(t, "LAPSE", gotInstructions[0].LimitOrder.PersistenceType)
	})

	t.Run("rejects empty leg list", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
		svc := NewBettingService(client, discardLogger())

		_, err := svc.PlaceDutchLegs(context.Background(), "1.234", nil)
		require.Error(t, err)
	})

	t.Run("failed execution report returns API error", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			rpcResult(t, w, PlaceExecutionReport{
				MarketID:  "1.234",
				Status:    "FAILURE",
				ErrorCode: "INSUFFICIENT_FUNDS",
			})
		})
		svc := NewBettingService(client, discardLogger())

		_, err := svc.PlaceDutchLegs(context.Background(), "1.234", results)
		require.Error(t, err)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "INSUFFICIENT_FUNDS", apiErr.Code)
	})

	t.Run("cancel orders", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			rpcResult(t, w, map[string]any{"status": "SUCCESS"})
		})
		svc := NewBettingService(client, discardLogger())

		err := svc.CancelOrders(context.Background(), "1.234", []string{"bet-1", "bet-2"})
		require.NoError(t, err)
	})
}

func TestInstructionReportToOrder(t *testing.T) {
	now := time.Now()
	report := PlaceInstructionReport{
		Status:              "SUCCESS",
		OrderStatus:         "EXECUTION_COMPLETE",
		BetID:               "bet-7",
		PlacedDate:          &now,
		AveragePriceMatched: 2.02,
		SizeMatched:         50.0,
		Instruction: PlaceInstruction{
			SelectionID: 101,
			Side:        "BACK",
			LimitOrder:  &LimitOrder{Size: 50.0, Price: 2.0},
		},
	}

	order := report.ToOrder("1.234")
	assert.Equal(t, "bet-7", order.BetID)
	assert.Equal(t, "1.234", order.MarketID)
	assert.Equal(t, models.BetSideBack, order.Side)
	assert.Equal(t, models.OrderStatusMatched, order.Status)
	assert.Equal(t, 50.0, order.Stake)
	assert.Equal(t, 2.02, order.Price, "matched price wins over requested price")
	require.NotNil(t, order.MatchedAt)
}

func TestTransportCircuitBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	serverURL := server.URL
	server.Close() // requests now fail at dial time

	cfg := DefaultTransportConfig()
	cfg.MaxRetries = 0
	cfg.CircuitBreakerMax = 2
	transport := NewTransport(cfg, discardLogger())

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, serverURL, nil)
		require.NoError(t, err)
		_, err = transport.Do(ctx, req)
		require.Error(t, err)
	}

	assert.True(t, transport.IsOpen())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, serverURL, nil)
	require.NoError(t, err)
	_, err = transport.Do(ctx, req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker open")

	transport.Reset()
	assert.False(t, transport.IsOpen())
}

func TestStreamSnapshotMerging(t *testing.T) {
	stream := &StreamClient{
		logger:    discardLogger(),
		snapshots: make(map[uint64]models.PriceSnapshot),
	}

	snap := stream.mergeRunnerChange("1.234", runnerChange{
		SelectionID:     101,
		LastTradedPrice: 2.48,
		BestBack:        [][]float64{{0, 2.5, 120}, {1, 2.48, 300}},
		BestLay:         [][]float64{{0, 2.52, 80}},
	})

	assert.Equal(t, 2.5, snap.BestBackPrice)
	assert.Equal(t, 120.0, snap.BestBackSize)
	assert.Equal(t, 2.52, snap.BestLayPrice)
	assert.Equal(t, 2.48, snap.LastTradedPrice)

	// A partial delta must leave untouched fields intact
	snap = stream.mergeRunnerChange("1.234", runnerChange{
		SelectionID: 101,
		BestLay:     [][]float64{{0, 2.54, 60}},
	})

	assert.Equal(t, 2.5, snap.BestBackPrice, "back price preserved across partial update")
	assert.Equal(t, 2.54, snap.BestLayPrice)
	assert.Equal(t, 2.48, snap.LastTradedPrice)
}

func TestStreamHandlersReceiveTicks(t *testing.T) {
	stream := &StreamClient{
		logger:    discardLogger(),
		snapshots: make(map[uint64]models.PriceSnapshot),
	}

	var gotMarket string
	var gotSnaps []models.PriceSnapshot
	stream.AddHandler(func(marketID string, snapshot models.PriceSnapshot) {
		gotMarket = marketID
		gotSnaps = append(gotSnaps, snapshot)
	})

	err := stream.processMessage(&streamMessage{
		Op: "mcm",
		MarketChanges: []marketChange{{
			MarketID: "1.234",
			RunnerChange: []runnerChange{
				{SelectionID: 101, BestBack: [][]float64{{0, 2.5, 100}}},
				{SelectionID: 102, BestBack: [][]float64{{0, 4.0, 50}}},
			},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, "1.234", gotMarket)
	require.Len(t, gotSnaps, 2)
	assert.Equal(t, uint64(101), gotSnaps[0].SelectionID)
	assert.Equal(t, uint64(102), gotSnaps[1].SelectionID)
}

func TestStreamStatusFailure(t *testing.T) {
	stream := &StreamClient{
		logger:    discardLogger(),
		snapshots: make(map[uint64]models.PriceSnapshot),
	}

	err := stream.processMessage(&streamMessage{Op: "status", StatusCode: "FAILURE", ErrorCode: "NOT_AUTHORIZED"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOT_AUTHORIZED")
}

func TestKeepAliveEndpoint(t *testing.T) {
	got := keepAliveEndpoint("https://identitysso-cert.betfair.it/api/certlogin")
	assert.Equal(t, "https://identitysso.betfair.it/api/keepAlive", got)
}

func TestMapAPIError(t *testing.T) {
	tests := []struct {
		name string
		code string
		want any
	}{
		{"invalid session", ErrorCodeInvalidSession, &AuthenticationError{}},
		{"insufficient funds", ErrorCodeInsufficientFunds, &InsufficientFundsError{}},
		{"market suspended", ErrorCodeMarketSuspended, &MarketSuspendedError{}},
		{"unknown code", "SOMETHING_ELSE", &APIError{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapAPIError(tt.code, "detail")
			assert.IsType(t, tt.want, err)
		})
	}
}
