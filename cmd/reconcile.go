package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"license-agent/core/reconcile"

	"github.com/spf13/cobra"
)

var (
	// Flags for the reconcile command
	dryRunReconcile bool
	printReport     bool
)

// reconcileCmd runs a single reconcile cycle.
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run one reconcile cycle",
	Long: `Queries every configured license server once, merges the result with the
open bookings and submits the report to the backend.

Examples:
  # Compute and print the report without submitting it
  reconcile --dry-run --print

  # Run one cycle as the scheduler would
  reconcile`,
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().BoolVar(&dryRunReconcile, "dry-run", false, "Compute the report without submitting it")
	reconcileCmd.Flags().BoolVar(&printReport, "print", false, "Print the report as JSON on stdout")

	RootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, l, err := loadConfig(true)
	if err != nil {
		return err
	}
	defer l.Sync()

	a, err := newAgent(ctx, cfg, l)
	if err != nil {
		return err
	}

	plan, err := a.engine.Run(ctx, reconcile.Options{DryRun: dryRunReconcile})
	reconcile.LogPlan(l, plan)
	if err != nil {
		return fmt.Errorf("reconcile failed: %w", err)
	}

	if printReport || dryRunReconcile {
		out, err := json.MarshalIndent(plan.Report, "", "  ")
		if err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
	}
	return nil
}
