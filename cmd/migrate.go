package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KromaEnergia/api-marketplace/internal/utils/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDatabase()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close(database) }()

		if err := db.Migrate(database); err != nil {
			return err
		}
		zap.L().Info("schema migrated")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
