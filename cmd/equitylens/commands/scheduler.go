package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/equitylens/internal/scheduler"
	"github.com/wonny/equitylens/internal/scheduler/jobs"
	"github.com/wonny/equitylens/internal/watchlist"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Manage the scheduler",
	Long: `Starts the scheduler or runs its jobs by hand.

Subcommands:
  start   - start the scheduler daemon
  list    - list registered jobs
  run     - run one job now and wait for it

Example:
  go run ./cmd/equitylens scheduler start
  go run ./cmd/equitylens scheduler list
  go run ./cmd/equitylens scheduler run watchlist_refresh`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler",
		Long: `Starts the scheduler and schedules every registered job.

Registered jobs:
- watchlist_refresh: WATCHLIST_SCHEDULE (re-analyzes WATCHLIST_FILE or WATCHLIST symbols)
- cache_cleanup: every 5 minutes, only without Redis

The scheduler stops on Ctrl+C.`,
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
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

// loadWatchlist reads WATCHLIST_FILE when set, else builds a watchlist from WATCHLIST.
// It returns nil when nothing is configured.
func loadWatchlist(a *app) (*watchlist.Config, error) {
	wcfg := a.cfg.Watchlist
	if wcfg.File == "" {
		if len(wcfg.Symbols) == 0 {
			return nil, nil
		}
		return watchlist.FromSymbols("env", wcfg.Schedule, wcfg.Symbols), nil
	}

	list, _, err := watchlist.Load(wcfg.File)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", wcfg.File, err)
	}
	for _, w := range watchlist.Warn(list) {
		a.log.WithField("code", w.Code).Warn(w.Message)
	}
	if list.Meta.Schedule == "" {
		list.Meta.Schedule = wcfg.Schedule
	}

	hash, err := watchlist.Hash(list)
	if err != nil {
		return nil, err
	}
	a.log.WithFields(map[string]interface{}{
		"file":    wcfg.File,
		"symbols": len(list.Symbols),
		"hash":    hash[:12],
	}).Info("Watchlist loaded")

	return list, nil
}

// newScheduler registers the jobs that apply to the wired app
func newScheduler(a *app) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.log)

	list, err := loadWatchlist(a)
	if err != nil {
		return nil, err
	}
	if list != nil {
		job := jobs.NewWatchlistJob(a.orchestrator, list.Requests(), list.Meta.Schedule, a.log)
		if err := sched.AddJob(job); err != nil {
			return nil, err
		}
	} else {
		a.log.Warn("No watchlist configured, watchlist refresh not scheduled")
	}

	if a.memStore != nil {
		if err := sched.AddJob(jobs.NewCacheCleanupJob(a.memStore, a.log)); err != nil {
			return nil, err
		}
	}

	return sched, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	sched, err := newScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	<-ctx.Done()

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	sched, err := newScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	fmt.Println("Registered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}

	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	sched, err := newScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	fmt.Printf("Running job: %s\n", jobName)
	result, err := sched.RunJob(cmd.Context(), jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	if !result.Success {
		return fmt.Errorf("job %s failed after %d attempts: %s", jobName, result.Attempts, result.Error)
	}

	PrintCompletion(cmd.OutOrStdout(), result.Duration)
	return nil
}
