package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ndomo/agentline/internal/config"
	"github.com/ndomo/agentline/internal/db"
)

func newMigrateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		Long:  "Runs GORM auto-migration for the session and message-log tables. Safe to run multiple times.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			gormDB, err := db.Connect(cfg.Database)
			if err != nil {
				return err
			}
			if err := db.AutoMigrate(gormDB); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migration complete.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "agentline.yaml", "path to agentline config file")
	return cmd
}
