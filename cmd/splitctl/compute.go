package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/fkhayef/splitdraft/internal/expense/split"
	"github.com/fkhayef/splitdraft/internal/money"
)

func computeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Seed a split for a total and a participant list",
		Example: `  splitctl compute --mode equal --amount 100 --participants a,b,c --payer a
  splitctl compute --mode percentage --amount 250 --participants a,b`,
		RunE: runCompute,
	}

	cmd.Flags().String("mode", "equal", "split mode (equal, percentage, exact)")
	cmd.Flags().String("amount", "", "expense total")
	cmd.Flags().StringSlice("participants", nil, "participant IDs in display order")
	cmd.Flags().String("payer", "", "ID of the participant who paid")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("participants")

	return cmd
}

func runCompute(cmd *cobra.Command, _ []string) error {
	rawMode, _ := cmd.Flags().GetString("mode")
	rawAmount, _ := cmd.Flags().GetString("amount")
	ids, _ := cmd.Flags().GetStringSlice("participants")
	payer, _ := cmd.Flags().GetString("payer")

	mode, err := split.ParseMode(rawMode)
	if err != nil {
		return err
	}
	currency := currencyFlag(cmd)
	total, err := currency.Parse(rawAmount)
	if err != nil {
		return fmt.Errorf("--amount: %w", err)
	}

	engine := split.NewEngine(currency)
	lines, err := engine.Compute(mode, total, toParticipants(ids), payer)
	if err != nil {
		return err
	}

	status := engine.Check(lines, total)
	printLines(cmd.OutOrStdout(), currency, lines)
	printStatus(cmd.OutOrStdout(), currency, status, total, engine.Warnings(mode, status, total))
	return nil
}

func toParticipants(ids []string) []split.Participant {
	ps := make([]split.Participant, len(ids))
	for i, id := range ids {
		ps[i] = split.Participant{ID: id, Name: id}
	}
	return ps
}

func printLines(w io.Writer, currency money.Currency, lines split.Lines) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PARTICIPANT\tAMOUNT\tSHARE\tPAID")
	for _, l := range lines {
		paid := ""
		if l.Paid {
			paid = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", l.UserID, currency.Format(l.Amount), money.FormatPercent(l.Percentage), paid)
	}
	tw.Flush()
}

func printStatus(w io.Writer, currency money.Currency, status split.Status, total decimal.Decimal, warnings []string) {
	fmt.Fprintf(w, "\nsum %s of %s (ok: %t), percentages %s (ok: %t)\n",
		currency.Format(status.AmountTotal),
		currency.Format(total),
		status.AmountOK,
		money.FormatPercent(status.PercentageTotal),
		status.PercentageOK,
	)
	for _, warning := range warnings {
		fmt.Fprintln(w, "warning:", warning)
	}
}
