package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ndomo/agentline/internal/backend"
	"github.com/ndomo/agentline/internal/config"
	"github.com/ndomo/agentline/internal/db"
	"github.com/ndomo/agentline/internal/engine"
	"github.com/ndomo/agentline/internal/intent"
	"github.com/ndomo/agentline/internal/notify"
	"github.com/ndomo/agentline/internal/store"
	"github.com/ndomo/agentline/internal/sweeper"
	"github.com/ndomo/agentline/internal/wassenger"
	"github.com/ndomo/agentline/internal/webhook"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook server",
		Long:  "Starts the Wassenger webhook server and, when enabled, the idle-session sweeper.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "agentline.yaml", "path to agentline config file")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string) error {
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

	st, err := store.New(gormDB)
	if err != nil {
		return err
	}

	gateway, err := backend.New(backend.Opts{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.BackendTimeout(),
	})
	if err != nil {
		return err
	}

	messenger, err := wassenger.New(wassenger.Opts{
		APIURL:   cfg.Wassenger.APIURL,
		APIKey:   cfg.Wassenger.APIKey,
		DeviceID: cfg.Wassenger.DeviceID,
		Timeout:  cfg.WassengerTimeout(),
	})
	if err != nil {
		return err
	}

	notifier, err := notify.New(cfg.Notify)
	if err != nil {
		return err
	}

	var classifier engine.Classifier
	if cfg.Intent.APIKey != "" {
		classifier, err = intent.New(intent.Opts{
			APIKey: cfg.Intent.APIKey,
			Model:  cfg.Intent.Model,
		})
		if err != nil {
			return err
		}
		log.Printf("serve: intent classifier enabled (model %s)", cfg.Intent.Model)
	}

	eng, err := engine.New(engine.Opts{
		Store:         st,
		Messenger:     messenger,
		Gateway:       gateway,
		Notifier:      notifier,
		Classifier:    classifier,
		MinConfidence: cfg.Intent.MinConfidence,
		CallTimeout:   cfg.BackendTimeout(),
	})
	if err != nil {
		return err
	}

	srv, err := webhook.New(webhook.Opts{
		Store:       st,
		Handler:     eng,
		VerifyToken: cfg.Wassenger.VerifyToken,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	if cfg.Sweeper.Enabled {
		sw, err := sweeper.New(sweeper.Opts{
			Store:    st,
			Schedule: cfg.Sweeper.Cron,
			IdleFor:  time.Duration(cfg.Sweeper.IdleHours) * time.Hour,
		})
		if err != nil {
			return err
		}
		go sw.Run(ctx)
		log.Printf("serve: sweeper enabled (%s, idle after %dh)", cfg.Sweeper.Cron, cfg.Sweeper.IdleHours)
	}

	return srv.Run(ctx, cfg.Server.Listen)
}
