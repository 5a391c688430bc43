package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/saikarthik/stockpilot/backend/internal/alerts"
	"github.com/saikarthik/stockpilot/backend/internal/pipeline"
	"github.com/saikarthik/stockpilot/backend/internal/scheduler"
	"github.com/saikarthik/stockpilot/backend/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Scheduler management",
	Long: `Starts the scheduler or manages its jobs.

This command:
- Starts the scheduler daemon
- Lists registered jobs
- Triggers a job immediately

Subcommands:
  start   - start the scheduler
  list    - list registered jobs
  run     - run one job immediately

Example:
  go run ./cmd/stockpilot scheduler start
  go run ./cmd/stockpilot scheduler list
  go run ./cmd/stockpilot scheduler run pipeline_refresh`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler",
		Long: `Starts the scheduler and schedules all registered jobs.

Registered jobs:
- pipeline_refresh: nightly dataset rebuild (PIPELINE_REFRESH_CRON)
- signal_alert: after-close signal evaluation and email alerts (ALERTS_CRON)

Stop the scheduler with Ctrl+C.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run one job immediately",
		Args:  cobra.ExactArgs(1),
		RunE:  triggerJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== StockPilot Scheduler ===")

	sched, cleanup, err := initScheduler(cmd)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer cleanup()

	sched.Start()

	fmt.Println("\nScheduler started")
	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.Jobs() {
		fmt.Printf("  - %s\n", jobName)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	sched, cleanup, err := initScheduler(cmd)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer cleanup()

	fmt.Println("Registered jobs:")
	for _, jobName := range sched.Jobs() {
		fmt.Printf("  - %s\n", jobName)
	}

	return nil
}

func triggerJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	fmt.Printf("Running job: %s\n", jobName)

	sched, cleanup, err := initScheduler(cmd)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer cleanup()

	if err := sched.TriggerNow(jobName); err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	// TriggerNow is asynchronous; block until interrupted so the job
	// can finish
	fmt.Println("Job started, press Ctrl+C once it completes")
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	return nil
}

func initScheduler(cmd *cobra.Command) (*scheduler.Scheduler, func(), error) {
	// 1. Load config, logger, database, market data client
	d, err := initDeps()
	if err != nil {
		return nil, nil, err
	}

	ctx := cmd.Context()

	// 2. Wire the pipeline
	runner, err := d.initRunner(ctx)
	if err != nil {
		d.close()
		return nil, nil, err
	}

	// 3. Wire signal evaluation and alert delivery
	featureRepo := pipeline.NewFeatureRepository(d.db.Pool)
	pred := d.initPredictor()
	mailer := alerts.NewMailer(d.cfg, d.log)
	alertRepo := alerts.NewRepository(d.db.Pool)

	// Watch list is re-resolved on every run so newly added tickers
	// are picked up without a restart
	watchList := func() []string {
		tickers, err := d.resolveTickers(ctx)
		if err != nil {
			d.log.WithError(err).Error("Failed to resolve watch list")
			return nil
		}
		return tickers
	}

	// 4. Create scheduler and register jobs
	sched := scheduler.New(d.log)

	if err := sched.Register(jobs.NewPipelineRefresh(runner, watchList, d.cfg.Alerts.RefreshCron, d.log)); err != nil {
		d.close()
		return nil, nil, err
	}

	if d.cfg.Alerts.Enabled {
		alertJob := jobs.NewSignalAlert(
			featureRepo, pred, mailer, alertRepo,
			watchList, d.cfg.Predictor.WindowSize, d.cfg.Alerts.CronSpec, d.log,
		)
		if err := sched.Register(alertJob); err != nil {
			d.close()
			return nil, nil, err
		}
	}

	return sched, d.close, nil
}
