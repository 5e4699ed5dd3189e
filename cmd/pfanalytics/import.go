package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/castlemilk/pfinance/analytics/internal/store"
)

func newImportCmd(opts *rootOptions) *cobra.Command {
	var userID, dbPath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load a snapshot into the configured store for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.load(cmd)
			if err != nil {
				return err
			}

			storeOpts := e.cfg.StoreOptions()
			if dbPath != "" {
				storeOpts.Backend = store.BackendSQLite
				storeOpts.SQLitePath = dbPath
			}
			st, closeStore, err := store.Open(e.ctx, storeOpts)
			if err != nil {
				return err
			}
			defer closeStore()

			if err := st.PutTransactions(e.ctx, userID, e.snap.Transactions); err != nil {
				return fmt.Errorf("failed to import transactions: %w", err)
			}
			for i := range e.snap.Goals {
				goal := e.snap.Goals[i]
				goal.UserID = userID
				if err := st.PutGoal(e.ctx, &goal); err != nil {
					return fmt.Errorf("failed to import goal %s: %w", goal.ID, err)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "imported %d transactions and %d goals for %s into %s\n",
				len(e.snap.Transactions), len(e.snap.Goals), userID, storeOpts.Backend)
			return nil
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "owner of the imported records")
	cmd.Flags().StringVar(&dbPath, "db", "", "import into this SQLite file instead of the configured store")
	cmd.MarkFlagRequired("user")
	return cmd
}
