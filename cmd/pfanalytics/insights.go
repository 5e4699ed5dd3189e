package main

import (
	"github.com/spf13/cobra"

	"github.com/castlemilk/pfinance/analytics/internal/insights"
	"github.com/castlemilk/pfinance/analytics/internal/recurring"
)

func newInsightsCmd(opts *rootOptions) *cobra.Command {
	var topN, buffer int
	cmd := &cobra.Command{
		Use:   "insights",
		Short: "Rank the snapshot's spending insights",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.load(cmd)
			if err != nil {
				return err
			}
			pipeline := insights.NewPipeline(e.cfg.Insights, recurring.NewDetector(e.cfg.Recurring), e.now)
			feed, err := pipeline.RankInsights(e.ctx, e.snap.Transactions, nil, e.snap.Goals, topN, buffer)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), feed)
		},
	}
	cmd.Flags().IntVarP(&topN, "top", "n", 0, "visible items (0 uses the configured default)")
	cmd.Flags().IntVarP(&buffer, "buffer", "b", 0, "reserve items after the visible ones")
	return cmd
}
