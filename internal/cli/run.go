package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/zasylogic/casebridge/internal/model"
	"github.com/zasylogic/casebridge/internal/sched"
)

var (
	runFrom    string
	runTo      string
	runWorkers int
	runTimeout time.Duration
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [account...]",
	Short: "Run provider ingestion once",
	Long: `Run the ingestion pipeline once for the named accounts, or for every
configured account when none are named.

The date window bounds which assignments are ingested; providers whose
upstream has no date filter ignore it. Re-running the same window is
safe: already-stored expedientes are skipped.

Example:
  casebridge run
  casebridge run MlSevilla AsiturTgn
  casebridge run MlSevilla --from 2026-08-01 --to 2026-08-27`,
	RunE: runOnce,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFrom, "from", "", "window start (YYYY-MM-DD, default: 24h ago)")
	runCmd.Flags().StringVar(&runTo, "to", "", "window end (YYYY-MM-DD, default: now)")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "concurrent account runs (default: scheduler.workers)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 15*time.Minute, "total timeout for the run")
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	accounts, err := selectAccounts(cfg, args)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		return fmt.Errorf("no accounts configured (run 'casebridge config init' to create a config file)")
	}

	opts, err := windowOptions(runFrom, runTo)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	rt, err := buildRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.store.Close()

	workers := runWorkers
	if workers <= 0 {
		workers = cfg.Scheduler.Workers
	}

	results := sched.RunAccounts(ctx, rt.runner, rt.store, rt.deps, accounts, opts, workers, rt.log)

	fmt.Fprintf(os.Stderr, "\n")
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "  ✗ %-16s %v\n", r.Account, r.Err)
			continue
		}
		fmt.Fprintf(os.Stderr, "  ✓ %-16s procesados=%d omitidos=%d disponibles=%d (%s)\n",
			r.Account, r.Outcome.Processed, r.Outcome.Omitted, r.Outcome.TotalAvailable,
			r.Duration.Round(time.Millisecond))
	}
	fmt.Fprintf(os.Stderr, "\n")

	if failed > 0 {
		return fmt.Errorf("%d of %d account runs failed", failed, len(results))
	}
	return nil
}

// windowOptions parses the --from/--to date flags. Both or neither must
// be given; the zero value keeps the default 24-hour window.
func windowOptions(from, to string) (model.RunOptions, error) {
	if from == "" && to == "" {
		return model.RunOptions{}, nil
	}
	if from == "" || to == "" {
		return model.RunOptions{}, fmt.Errorf("--from and --to must be given together")
	}
	f, err := time.Parse("2006-01-02", from)
	if err != nil {
		return model.RunOptions{}, fmt.Errorf("invalid --from date: %w", err)
	}
	t, err := time.Parse("2006-01-02", to)
	if err != nil {
		return model.RunOptions{}, fmt.Errorf("invalid --to date: %w", err)
	}
	if t.Before(f) {
		return model.RunOptions{}, fmt.Errorf("--to is before --from")
	}
	// The end of the window is inclusive of the whole day.
	return model.RunOptions{From: f, To: t.Add(24*time.Hour - time.Nanosecond)}, nil
}
