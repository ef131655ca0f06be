package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/zasylogic/casebridge/internal/provider/registry"
	"github.com/zasylogic/casebridge/internal/sched"
)

// providersCmd represents the providers command
var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List supported providers and configured accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Println("Supported providers:")
		for _, name := range registry.Available() {
			fmt.Printf("  %s\n", name)
		}
		fmt.Println()

		if len(cfg.Accounts) == 0 {
			fmt.Println("No accounts configured.")
			return nil
		}

		fmt.Println("Configured accounts:")
		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "  NAME\tPROVIDER\tINTERVAL\tSTORED")
		ctx := context.Background()
		rt, err := buildRuntime(ctx, cfg)
		if err != nil {
			return err
		}
		defer rt.store.Close()

		for _, account := range cfg.Accounts {
			interval := account.Interval
			if interval <= 0 {
				interval = sched.DefaultInterval
			}
			stored := "-"
			if n, err := rt.store.CountByCliente(ctx, account.Name); err == nil {
				stored = fmt.Sprintf("%d", n)
			}
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n",
				account.Name, account.Provider, formatInterval(interval), stored)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(providersCmd)
}

func formatInterval(d time.Duration) string {
	return d.Round(time.Second).String()
}
