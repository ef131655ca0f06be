package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zasylogic/casebridge/internal/sched"
)

// scheduleCmd represents the schedule command
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the interval scheduler",
	Long: `Run every configured account on its interval until interrupted.

Each account runs on its own cadence (the interval field of the accounts
section, default 5m); due accounts run concurrently. One run-log row is
recorded per account run.

Example:
  casebridge schedule
  casebridge schedule --config ./casebridge.yaml`,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(cfg.Accounts) == 0 {
		return fmt.Errorf("no accounts configured (run 'casebridge config init' to create a config file)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := buildRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.store.Close()

	s := sched.New(cfg.Accounts, rt.deps, rt.runner, rt.store,
		cfg.Scheduler, cfg.Scheduler.Workers, rt.log)

	if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
