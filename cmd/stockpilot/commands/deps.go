package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/saikarthik/stockpilot/backend/internal/contracts"
	"github.com/saikarthik/stockpilot/backend/internal/marketdata"
	"github.com/saikarthik/stockpilot/backend/internal/pipeline"
	"github.com/saikarthik/stockpilot/backend/internal/predictor"
	"github.com/saikarthik/stockpilot/backend/pkg/config"
	"github.com/saikarthik/stockpilot/backend/pkg/database"
	"github.com/saikarthik/stockpilot/backend/pkg/httputil"
	"github.com/saikarthik/stockpilot/backend/pkg/logger"
)

// deps bundles the shared wiring every command needs
type deps struct {
	cfg    *config.Config
	log    *logger.Logger
	db     *database.DB
	client *marketdata.Client
}

// initDeps loads config, connects to the database and builds the
// market data client
func initDeps() (*deps, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Connect to database
	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// 4. Create market data client
	httpClient := httputil.New(log)
	client := marketdata.NewClient(cfg, httpClient, log)

	return &deps{cfg: cfg, log: log, db: db, client: client}, nil
}

func (d *deps) close() {
	d.db.Close()
}

// initRunner wires the full fetch → clean → feature → assemble pipeline
func (d *deps) initRunner(ctx context.Context) (*pipeline.Runner, error) {
	barRepo := marketdata.NewBarRepository(d.db.Pool)
	featureRepo := pipeline.NewFeatureRepository(d.db.Pool)
	tickerIDRepo := pipeline.NewTickerIDRepository(d.db.Pool)

	encoder, err := pipeline.LoadTickerEncoder(ctx, tickerIDRepo)
	if err != nil {
		return nil, fmt.Errorf("load ticker encoder: %w", err)
	}

	cleaner := pipeline.NewCleaner(
		pipeline.FxRates{Static: d.cfg.Pipeline.FxRate},
		pipeline.AllPriceColumns,
		d.log,
	)
	engine := pipeline.NewFeatureEngine(d.log)
	assembler := pipeline.NewAssembler(featureRepo, encoder, d.log)

	return pipeline.NewRunner(d.client, barRepo, cleaner, engine, assembler, d.log), nil
}

// initPredictor builds the configured signal source: the remote ML
// service when reachable, wrapped so low-confidence calls collapse to HOLD
func (d *deps) initPredictor() contracts.Predictor {
	httpClient := httputil.NewWithTimeout(d.log, d.cfg.Predictor.Timeout)

	var inner contracts.Predictor = predictor.NewRemote(d.cfg, httpClient, d.log)
	if d.cfg.Predictor.BaseURL == "" {
		inner = predictor.NewCrossover()
	}

	return predictor.NewThresholded(inner, d.cfg.Predictor.ConfidenceThreshold)
}

// resolveTickers returns the watch list: the optional seed file merged
// with every ticker the dataset already knows
func (d *deps) resolveTickers(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var tickers []string

	add := func(t string) {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t != "" && !seen[t] {
			seen[t] = true
			tickers = append(tickers, t)
		}
	}

	if d.cfg.Pipeline.TickerFile != "" {
		file, err := os.Open(d.cfg.Pipeline.TickerFile)
		if err != nil {
			return nil, fmt.Errorf("open ticker file: %w", err)
		}
		defer file.Close()

		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			add(line)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read ticker file: %w", err)
		}
	}

	ids, err := pipeline.NewTickerIDRepository(d.db.Pool).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load known tickers: %w", err)
	}
	for t := range ids {
		add(t)
	}

	return tickers, nil
}
