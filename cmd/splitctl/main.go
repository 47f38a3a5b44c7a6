package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fkhayef/splitdraft/internal/money"
	"github.com/fkhayef/splitdraft/pkg/logging"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "splitctl",
		Short: "Compute and check expense splits from the command line",
		Long: `splitctl runs the same split engine as the API server.

Use it to preview how a total divides between participants, to check whether
a set of exact amounts would pass submission, or to mint a development token.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level, _ := cmd.Flags().GetString("log-level")
			logging.Setup(level, "text")
		},
	}

	cmd.PersistentFlags().String("currency", "INR", "ISO currency code")
	cmd.PersistentFlags().String("symbol", "", "override the currency symbol")
	cmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")

	cmd.AddCommand(computeCmd())
	cmd.AddCommand(checkCmd())
	cmd.AddCommand(tokenCmd())
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func currencyFlag(cmd *cobra.Command) money.Currency {
	code, _ := cmd.Flags().GetString("currency")
	symbol, _ := cmd.Flags().GetString("symbol")
	return money.Lookup(code, symbol)
}
