package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"repdir-backend/internal/config"
	"repdir-backend/internal/directory"
	"repdir-backend/internal/kstream"
	"repdir-backend/internal/logging"
	"repdir-backend/internal/model"
	"repdir-backend/internal/storage"
)

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print the stored directory as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := loadDirectory(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), dir)
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print counts for the stored directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := loadDirectory(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), directory.ComputeStats(dir))
		},
	}
}

func watchCmd() *cobra.Command {
	var group string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream directory change events from Kafka as JSON lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cfg.Events.KafkaBroker == "" {
				return fmt.Errorf("events.kafka_broker is not configured")
			}
			logger, err := logging.New(cfg.Logging)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			enc := json.NewEncoder(cmd.OutOrStdout())
			return kstream.ConsumeChanges(ctx, cfg.Events.KafkaBroker, cfg.Events.Topic, group, logger,
				func(evt model.ChangeEvent) { _ = enc.Encode(evt) })
		},
	}
	cmd.Flags().StringVar(&group, "group", "repdir-watch", "Kafka consumer group")
	return cmd
}

func loadDirectory(ctx context.Context) (model.Directory, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	p, err := storage.Open(cfg.Storage)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	dir, err := p.Load(ctx)
	if err != nil {
		return nil, err
	}
	return dir.Normalize(), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
