package main

import (
	"github.com/spf13/cobra"

	"github.com/castlemilk/pfinance/analytics/internal/forecast"
	"github.com/castlemilk/pfinance/analytics/internal/recurring"
)

func newCapacityCmd(opts *rootOptions) *cobra.Command {
	var req forecast.CapacityRequest
	cmd := &cobra.Command{
		Use:   "capacity",
		Short: "Estimate the monthly surplus available to invest",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.load(cmd)
			if err != nil {
				return err
			}
			engine := forecast.NewEngine(e.cfg.Forecast, recurring.NewDetector(e.cfg.Recurring), e.now)
			c, err := engine.InvestmentCapacity(e.ctx, req, e.snap.Goals, e.snap.Transactions)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), c)
		},
	}
	cmd.Flags().Float64VarP(&req.MonthlyIncome, "income", "i", 0, "monthly income (default: goal or observed income)")
	cmd.Flags().BoolVar(&req.Gross, "gross", false, "income is before tax")
	return cmd
}
