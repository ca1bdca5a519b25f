package main

import (
	"github.com/spf13/cobra"
)

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create tables and indexes for the configured store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, closeStore, err := openStore(ctx, a)
			if err != nil {
				return err
			}
			defer closeStore()

			if err := store.Migrate(ctx); err != nil {
				return err
			}
			a.logg.Info(ctx, "migrations applied")
			return nil
		},
	}
}
