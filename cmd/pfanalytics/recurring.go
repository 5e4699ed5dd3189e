package main

import (
	"github.com/spf13/cobra"

	"github.com/castlemilk/pfinance/analytics/internal/recurring"
)

func newRecurringCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "recurring",
		Short: "Detect subscriptions and other recurring charges",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.load(cmd)
			if err != nil {
				return err
			}
			result, err := recurring.NewDetector(e.cfg.Recurring).Detect(e.ctx, e.snap.Transactions)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
}
