package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/castlemilk/pfinance/analytics/internal/demo"
	"github.com/castlemilk/pfinance/analytics/internal/model"
	"github.com/castlemilk/pfinance/analytics/internal/snapshot"
)

func newDemoCmd(opts *rootOptions) *cobra.Command {
	var (
		out    string
		months int
		seed   int64
	)
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Write a synthetic ledger to try the other commands against",
		Long: `demo generates a reproducible ledger of bills, subscriptions, everyday
spending and income, plus three savings goals. The format follows the --out
extension; CSV output carries transactions only.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			end := time.Now()
			if opts.asOf != "" {
				day, err := model.ParseDate(opts.asOf)
				if err != nil {
					return fmt.Errorf("--as-of: %w", err)
				}
				end = day
			}
			snap := demo.Generate(demo.Options{Seed: seed, Months: months, End: end})

			if out == "" {
				return writeJSON(cmd.OutOrStdout(), snap)
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}
			defer f.Close()

			if snapshot.FormatOf(out) == snapshot.FormatCSV {
				err = snapshot.WriteCSV(f, snap.Transactions)
			} else {
				err = writeJSON(f, snap)
			}
			if err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d transactions and %d goals to %s\n",
				len(snap.Transactions), len(snap.Goals), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (.json or .csv); stdout when empty")
	cmd.Flags().IntVar(&months, "months", 6, "months of history to generate")
	cmd.Flags().Int64Var(&seed, "seed", demo.DefaultSeed, "random seed")
	return cmd
}
