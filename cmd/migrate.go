package cmd

import (
	"github.com/spf13/cobra"

	"localevents/db"
	"localevents/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or revert the embedded SQL migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply every pending migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := db.RunMigrations(cfg.Database.DSN); err != nil {
			return err
		}
		logger.Info("migrations applied", nil)
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert every applied migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := db.RollbackMigrations(cfg.Database.DSN); err != nil {
			return err
		}
		logger.Info("migrations reverted", nil)
		return nil
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
}
