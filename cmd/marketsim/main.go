package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/efreitasn/marketsim/internal/behavior"
	"github.com/efreitasn/marketsim/internal/config"
	"github.com/efreitasn/marketsim/internal/export"
	"github.com/efreitasn/marketsim/internal/handler"
	"github.com/efreitasn/marketsim/internal/market"
)

func main() {
	scenarioPath := flag.String("scenario", "scenario.yaml", "Path to the scenario YAML file")
	serve := flag.Bool("serve", false, "Serve the results API and advance rounds on demand instead of running to completion")
	exportPath := flag.String("export", "", "Write histories to this SQLite file after the run")
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up slog logger with configured level.
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	scenario, err := config.LoadScenario(*scenarioPath)
	if err != nil {
		logger.Error("failed to load scenario", slog.String("path", *scenarioPath), slog.String("error", err.Error()))
		os.Exit(1)
	}

	hub := handler.NewHub()

	mktCfg := scenario.MarketConfig()
	mktCfg.Decision = behavior.Default()
	mktCfg.Logger = logger
	mktCfg.OnRound = hub.Broadcast

	mkt, err := market.New(mktCfg)
	if err != nil {
		logger.Error("failed to initialize market", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !*serve {
		if err := mkt.Run(ctx); err != nil {
			logger.Error("run failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("run complete",
			slog.Int("rounds", mkt.Round()),
			slog.Int("transactions", len(mkt.Transactions())),
			slog.Int("dropped_intents", mkt.DroppedIntents()),
		)
		if *exportPath != "" {
			if err := exportRun(ctx, *exportPath, mkt); err != nil {
				logger.Error("export failed", slog.String("error", err.Error()))
				os.Exit(1)
			}
			logger.Info("export complete", slog.String("path", *exportPath))
		}
		return
	}

	// Serve mode: rounds advance via POST /rounds; /ws streams snapshots.
	router := handler.NewRouter(mkt, hub, logger)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Wait for SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	cancel()

	if *exportPath != "" {
		if err := exportRun(context.Background(), *exportPath, mkt); err != nil {
			logger.Error("export failed", slog.String("error", err.Error()))
		} else {
			logger.Info("export complete", slog.String("path", *exportPath))
		}
	}

	logger.Info("server stopped")
}

func exportRun(ctx context.Context, path string, mkt *market.Market) error {
	w, err := export.NewWriter(path)
	if err != nil {
		return err
	}
	defer w.Close()
	return w.Export(ctx, mkt)
}
