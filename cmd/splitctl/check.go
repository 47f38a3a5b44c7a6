package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fkhayef/splitdraft/internal/expense/split"
)

func checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run the submission check on exact amounts",
		Long: `Check builds an exact split from --line flags and runs the same gate a
submission goes through. It exits non-zero when the amounts do not reconcile.`,
		Example: `  splitctl check --amount 100 --line a=60 --line b=40 --payer a`,
		RunE:    runCheck,
	}

	cmd.Flags().String("amount", "", "expense total")
	cmd.Flags().StringArray("line", nil, "participant=amount, repeatable")
	cmd.Flags().String("payer", "", "ID of the participant who paid")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("line")

	return cmd
}

func runCheck(cmd *cobra.Command, _ []string) error {
	rawAmount, _ := cmd.Flags().GetString("amount")
	rawLines, _ := cmd.Flags().GetStringArray("line")
	payer, _ := cmd.Flags().GetString("payer")

	currency := currencyFlag(cmd)
	total, err := currency.Parse(rawAmount)
	if err != nil {
		return fmt.Errorf("--amount: %w", err)
	}

	ids := make([]string, len(rawLines))
	values := make([]string, len(rawLines))
	for i, raw := range rawLines {
		id, value, ok := strings.Cut(raw, "=")
		if !ok || strings.TrimSpace(id) == "" {
			return fmt.Errorf("--line %q: expected participant=amount", raw)
		}
		ids[i], values[i] = strings.TrimSpace(id), value
	}
	if payer == "" {
		payer = ids[0]
	}

	engine := split.NewEngine(currency)
	lines, err := engine.Compute(split.ModeExact, total, toParticipants(ids), payer)
	if err != nil {
		return err
	}
	for i, id := range ids {
		if err := engine.SetExactAmount(lines, total, id, values[i]); err != nil {
			return err
		}
	}

	status := engine.Check(lines, total)
	printLines(cmd.OutOrStdout(), currency, lines)
	printStatus(cmd.OutOrStdout(), currency, status, total, engine.Warnings(split.ModeExact, status, total))

	if _, err := engine.Finalize(lines, total, payer); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "accepted")
	return nil
}
