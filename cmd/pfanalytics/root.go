package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/castlemilk/pfinance/analytics/internal/config"
	"github.com/castlemilk/pfinance/analytics/internal/logger"
	"github.com/castlemilk/pfinance/analytics/internal/model"
	"github.com/castlemilk/pfinance/analytics/internal/snapshot"
)

type rootOptions struct {
	snapshot   string
	configPath string
	asOf       string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "pfanalytics",
		Short: "Run pfinance analytics over a transaction snapshot",
		Long: `pfanalytics detects recurring charges, forecasts savings goals, ranks
spending insights and estimates investment capacity over a JSON or CSV
snapshot on disk or in Cloud Storage.`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.snapshot, "snapshot", "s", "", "snapshot path or gs://bucket/object (.json or .csv)")
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file with analysis thresholds")
	flags.StringVar(&opts.asOf, "as-of", "", "evaluation date YYYY-MM-DD (default today)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging to stderr")

	cmd.AddCommand(
		newRecurringCmd(opts),
		newForecastCmd(opts),
		newInsightsCmd(opts),
		newCapacityCmd(opts),
		newImportCmd(opts),
		newDemoCmd(opts),
	)
	return cmd
}

// env is what every subcommand needs after flags are parsed.
type env struct {
	cfg  *config.Config
	snap *snapshot.Snapshot
	now  func() time.Time
	ctx  context.Context
}

func (o *rootOptions) load(cmd *cobra.Command) (*env, error) {
	if o.snapshot == "" {
		return nil, fmt.Errorf("--snapshot is required")
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}

	now := time.Now
	if o.asOf != "" {
		day, err := model.ParseDate(o.asOf)
		if err != nil {
			return nil, fmt.Errorf("--as-of: %w", err)
		}
		now = func() time.Time { return day }
	}

	level := zerolog.WarnLevel
	if o.verbose {
		level = zerolog.DebugLevel
	}
	log := logger.NewWithOptions(cmd.ErrOrStderr(), logger.Options{Format: "console"}).Level(level)
	ctx := logger.WithContext(cmd.Context(), log)

	snap, err := snapshot.Load(ctx, o.snapshot, cfg.ClientOptions()...)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Int("transactions", len(snap.Transactions)).
		Int("goals", len(snap.Goals)).
		Msg("snapshot loaded")

	return &env{cfg: cfg, snap: snap, now: now, ctx: ctx}, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
