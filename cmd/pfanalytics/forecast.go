package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/castlemilk/pfinance/analytics/internal/forecast"
	"github.com/castlemilk/pfinance/analytics/internal/model"
	"github.com/castlemilk/pfinance/analytics/internal/recurring"
)

func newForecastCmd(opts *rootOptions) *cobra.Command {
	var goalID string
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Forecast a savings goal against the snapshot's other goals",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.load(cmd)
			if err != nil {
				return err
			}

			var (
				goal     *model.Goal
				siblings []model.Goal
			)
			for i, g := range e.snap.Goals {
				if g.ID == goalID {
					goal = &e.snap.Goals[i]
					continue
				}
				siblings = append(siblings, g)
			}
			if goal == nil {
				return fmt.Errorf("goal %q not found in snapshot", goalID)
			}

			engine := forecast.NewEngine(e.cfg.Forecast, recurring.NewDetector(e.cfg.Recurring), e.now)
			fc, err := engine.ForecastGoal(e.ctx, *goal, siblings, e.snap.Transactions)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), fc)
		},
	}
	cmd.Flags().StringVarP(&goalID, "goal", "g", "", "goal_id to forecast")
	cmd.MarkFlagRequired("goal")
	return cmd
}
