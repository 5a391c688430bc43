package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/saikarthik/stockpilot/backend/internal/api"
	"github.com/saikarthik/stockpilot/backend/internal/api/handlers"
	"github.com/saikarthik/stockpilot/backend/internal/backtest"
	"github.com/saikarthik/stockpilot/backend/internal/marketdata"
	"github.com/saikarthik/stockpilot/backend/internal/pipeline"
	"github.com/saikarthik/stockpilot/backend/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Starts the REST API server.

This command:
- Serves the processed feature dataset
- Serves live and historical signals
- Runs backtests on demand

Endpoints:
  GET  /health                  - Health check
  GET  /api/data                - Multi-ticker frames
  GET  /api/data/{ticker}       - Single-ticker frame
  POST /api/signal/live         - Latest signal for a ticker
  POST /api/signal/historical   - One signal per row, trailing year
  POST /api/backtest/run        - Run a backtest

Example:
  go run ./cmd/stockpilot api
  go run ./cmd/stockpilot api --port 8089`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== StockPilot API Server ===")

	// 1. Load config, logger, database, market data client
	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.close()

	if apiPort != "" {
		d.cfg.Port = apiPort
	}

	d.log.WithFields(map[string]interface{}{
		"port": d.cfg.Port,
		"env":  d.cfg.Env,
	}).Info("Initializing API server")

	// 2. Connect to Redis (no-op when disabled)
	redisClient, err := redis.New(d.cfg, d.log)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()

	cache := redis.NewCache(redisClient, "stockpilot")

	// 3. Create repositories
	featureRepo := pipeline.NewFeatureRepository(d.db.Pool)
	barRepo := marketdata.NewBarRepository(d.db.Pool)

	// 4. Create predictor and simulator
	pred := d.initPredictor()
	simulator := backtest.NewSimulator(d.log)

	// 5. Create handlers
	dataHandler := handlers.NewDataHandler(featureRepo, cache, d.log)
	signalHandler := handlers.NewSignalHandler(featureRepo, pred, cache, d.cfg.Predictor.WindowSize, d.log)
	backtestHandler := handlers.NewBacktestHandler(
		featureRepo, barRepo, pred, simulator,
		d.cfg.Backtest, d.cfg.Predictor.WindowSize, d.log,
	)

	// 6. Create router and server
	router := api.NewRouter(dataHandler, signalHandler, backtestHandler, d.log)
	server := api.New(d.cfg, d.log, router)

	// 7. Start server with graceful shutdown
	go func() {
		if err := server.Start(); err != nil {
			d.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	d.log.Info("API server started successfully")
	fmt.Printf("\nServer running on http://localhost:%s\n", d.cfg.Port)
	fmt.Println("\nAvailable endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  GET  /api/data")
	fmt.Println("  GET  /api/data/{ticker}")
	fmt.Println("  POST /api/signal/live")
	fmt.Println("  POST /api/signal/historical")
	fmt.Println("  POST /api/backtest/run")
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	d.log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	d.log.Info("Server stopped")
	return nil
}
