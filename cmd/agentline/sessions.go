package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ndomo/agentline/internal/config"
	"github.com/ndomo/agentline/internal/db"
	"github.com/ndomo/agentline/internal/store"
)

func newSessionsCmd() *cobra.Command {
	var (
		configPath string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List active conversation sessions",
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
			sessions, err := st.Active(limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PHONE\tSTATE\tAGENT\tLAST ACTIVITY")
			for _, sess := range sessions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					sess.PhoneNumber, sess.State, sessionAgent(sess.Context),
					sess.LastActivity.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "agentline.yaml", "path to agentline config file")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum sessions to list")
	return cmd
}

// sessionAgent extracts the agent name from a stored session context, or "-".
func sessionAgent(rawContext string) string {
	var ctx struct {
		Auth struct {
			AgentName string `json:"agent_name"`
		} `json:"auth"`
	}
	if err := json.Unmarshal([]byte(rawContext), &ctx); err != nil || ctx.Auth.AgentName == "" {
		return "-"
	}
	return ctx.Auth.AgentName
}
