// Package main provides the entry point for the dutch trading bot.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/dutch-trader/internal/betfair"
	"github.com/yourusername/dutch-trader/internal/bot"
	"github.com/yourusername/dutch-trader/internal/config"
	"github.com/yourusername/dutch-trader/internal/database"
	"github.com/yourusername/dutch-trader/internal/health"
	"github.com/yourusername/dutch-trader/internal/live"
	"github.com/yourusername/dutch-trader/internal/logger"
	"github.com/yourusername/dutch-trader/internal/metrics"
	"github.com/yourusername/dutch-trader/internal/repository"
	"github.com/yourusername/dutch-trader/internal/scheduler"
)

// keepAliveInterval stays well under the 20 minute Italian session lifetime
const keepAliveInterval = 15 * time.Minute

func main() {
	markets := os.Args[1:]
	if len(markets) == 0 {
		log.Fatalf("Usage: %s <marketId> [marketId...]", os.Args[0])
	}

	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			log.Fatalf("AWS_REGION and AWS_SECRET_NAME must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			log.Fatalf("Failed to load secrets: %v", err)
		}
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if !cfg.Features.LiveTradingEnabled && !cfg.Features.PaperTradingEnabled {
		log.Fatalf("At least one trading mode must be enabled")
	}
	paperTrading := !cfg.Features.LiveTradingEnabled

	appLog := logger.NewLogger(cfg.App.LogLevel)
	appLog.WithFields(logrus.Fields{
		"environment":   cfg.App.Environment,
		"log_level":     cfg.App.LogLevel,
		"paper_trading": paperTrading,
		"markets":       markets,
	}).Info("Dutch Trader starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.NewDB(ctx, &cfg.Database)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()
	appLog.Info("Database connection established")

	repos, err := repository.NewRepositories(db)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to initialize repositories")
	}

	metrics.InitRegistry()
	if cfg.Metrics.Enabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle(cfg.Metrics.Path, metrics.Handler())
			addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
			appLog.WithField("addr", addr).Info("Metrics server starting")
			if err := http.ListenAndServe(addr, mux); err != nil {
				appLog.WithError(err).Error("Metrics server error")
			}
		}()
	}

	// A session is needed even in paper mode: the price stream and market
	// data require authentication.
	transport := betfair.NewTransport(betfair.DefaultTransportConfig(), appLog)
	defer transport.Close()

	client := betfair.NewClient(&cfg.Betfair, transport, appLog)
	auth := betfair.NewAuthService(client, appLog)

	if err := auth.Login(ctx); err != nil {
		appLog.WithError(err).Fatal("Failed to login to Betfair")
	}
	defer func() {
		if err := auth.Logout(context.Background()); err != nil {
			appLog.WithError(err).Error("Failed to logout from Betfair")
		}
	}()
	appLog.Info("Betfair session established")

	betting := betfair.NewBettingService(client, appLog)
	marketService := betfair.NewMarketService(client, cfg.CatalogueCacheTTL(), appLog)
	stream := betfair.NewStreamClient(client, cfg.Live.ConflateMs, appLog)

	riskManager := bot.NewRiskManager(&cfg.Trading, appLog)
	circuitBreaker := bot.NewCircuitBreaker(bot.DefaultCircuitBreakerConfig(), appLog)
	circuitBreaker.RegisterShutdownCallback(func(reason string) error {
		appLog.WithField("reason", reason).Error("Emergency shutdown triggered")
		return nil
	})

	executor := bot.NewDutchExecutor(
		betting, repos.Order, repos.Dutch,
		riskManager, circuitBreaker,
		&cfg.Trading, paperTrading, appLog,
	)

	monitor := bot.NewPositionMonitor(
		betting, repos.Order, repos.Dutch,
		executor, riskManager, marketService,
		5*time.Second, appLog,
	)

	buffer := live.NewPriceBuffer()

	orchestrator, err := bot.NewOrchestrator(
		cfg, stream, buffer, executor, monitor,
		riskManager, circuitBreaker, repos.Order, appLog,
	)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to create orchestrator")
	}

	// Maintenance jobs run on exchange time
	rome, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		rome = time.UTC
	}
	sched := scheduler.NewScheduler(rome, appLog)
	if err := sched.ScheduleKeepAlive(auth, keepAliveInterval); err != nil {
		appLog.WithError(err).Fatal("Failed to schedule keep-alive")
	}
	if err := sched.ScheduleDailyReset(riskManager); err != nil {
		appLog.WithError(err).Fatal("Failed to schedule daily reset")
	}
	if err := sched.Start(); err != nil {
		appLog.WithError(err).Fatal("Failed to start scheduler")
	}
	defer sched.Stop()

	healthServer := health.NewServer(health.Config{
		ServiceName: cfg.App.Name,
		Port:        os.Getenv("HEALTH_PORT"),
		Logger:      appLog,
		DB:          db,
		Session:     client,
		Stream:      stream,
	})
	if err := healthServer.Start(ctx); err != nil {
		appLog.WithError(err).Fatal("Failed to start health server")
	}

	if err := orchestrator.Start(ctx, markets); err != nil {
		appLog.WithError(err).Fatal("Failed to start orchestrator")
	}
	healthServer.SetReady(true)

	status := orchestrator.GetStatus()
	appLog.WithFields(logrus.Fields{
		"tracked_markets":       status.TrackedMarkets,
		"circuit_breaker_state": status.CircuitBreakerState,
		"max_exposure":          status.RiskMetrics.MaxExposure,
		"max_daily_loss":        status.RiskMetrics.MaxDailyLoss,
	}).Info("Bot is running")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	appLog.WithField("signal", sig).Info("Shutdown signal received")

	healthServer.SetReady(false)
	cancel()

	if err := orchestrator.Stop(); err != nil {
		appLog.WithError(err).Error("Error during orchestrator shutdown")
	}

	appLog.Info("Dutch Trader shut down")
}
