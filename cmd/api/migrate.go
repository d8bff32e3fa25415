package main

import (
	"github.com/spf13/cobra"

	"personal-metrics-service/internal/infra/postgres/migrations"
)

var rollback bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations, or roll back the last one",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		b, err := newBase(cmd.Context())
		if err != nil {
			return err
		}
		defer b.close()

		if rollback {
			if err := migrations.Rollback(b.db); err != nil {
				return err
			}
			b.log.Info("rolled back last migration")
			return nil
		}

		if err := migrations.Run(b.db); err != nil {
			return err
		}
		b.log.Info("database migrations completed")
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&rollback, "rollback", false, "roll back the last applied migration")
}
