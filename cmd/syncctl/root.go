package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmdatafocus/sync_backend/config"
	"github.com/mmdatafocus/sync_backend/schema"
	"github.com/mmdatafocus/sync_backend/syncentity"
)

type schemaFlags struct {
	source         string
	path           string
	connectTimeout time.Duration
}

func rootCmd() *cobra.Command {
	settings := config.LoadSyncSettings()
	flags := &schemaFlags{source: settings.SchemaSource, path: settings.SchemaPath}

	cmd := &cobra.Command{
		Use:           "syncctl",
		Short:         "Inspect the sync entity registry",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&flags.source, "source", flags.source, "schema source: file or database")
	cmd.PersistentFlags().StringVar(&flags.path, "schema", flags.path, "schema file (Prisma or YAML)")
	cmd.PersistentFlags().DurationVar(&flags.connectTimeout, "connect-timeout", 30*time.Second, "how long to retry the database for --source database")

	cmd.AddCommand(listCmd(flags))
	cmd.AddCommand(showCmd(flags))
	cmd.AddCommand(unresolvedCmd(flags))
	cmd.AddCommand(tokenCmd())
	return cmd
}

// loadRegistry builds the registry exactly as the service does at start-up.
func loadRegistry(ctx context.Context, flags *schemaFlags) (*syncentity.Registry, error) {
	if flags.source == schema.SourceDatabase {
		connectCtx, cancel := context.WithTimeout(ctx, flags.connectTimeout)
		defer cancel()
		if err := config.ConnectDatabaseWithRetry(connectCtx); err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		if sqlDB, err := config.GetDB().DB(); err == nil {
			defer sqlDB.Close()
		}
	}
	models, err := schema.Load(ctx, flags.source, flags.path, config.GetDB())
	if err != nil {
		return nil, err
	}
	reg, err := syncentity.Build(syncentity.DefaultCatalog(), models)
	if err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}
	return reg, nil
}
