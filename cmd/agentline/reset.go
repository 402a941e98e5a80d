package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ndomo/agentline/internal/config"
	"github.com/ndomo/agentline/internal/db"
	"github.com/ndomo/agentline/internal/store"
)

func newResetCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "reset <phone>",
		Short: "Reset a session back to the login state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			gormDB, err := db.Connect(cfg.Database)
			if err != nil {
				return err
			}
			st, err := store.New(gormDB)
			if err != nil {
				return err
			}
			if err := st.Reset(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session %s reset.\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "agentline.yaml", "path to agentline config file")
	return cmd
}
