package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"repdir-backend/internal/config"
	"repdir-backend/internal/directory"
	"repdir-backend/internal/httpapi"
	"repdir-backend/internal/kstream"
	"repdir-backend/internal/logging"
	"repdir-backend/internal/rejections"
	"repdir-backend/internal/storage"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	persister, err := storage.Open(cfg.Storage)
	if err != nil {
		return err
	}
	defer persister.Close()

	publisher := kstream.NewPublisher(cfg.Events.KafkaBroker, cfg.Events.Topic)
	defer publisher.Close()

	var rec rejections.Recorder = rejections.Discard{}
	if cfg.Rejections.Dir != "" {
		rec = rejections.NewStore(cfg.Rejections.Dir)
	}

	store, err := directory.Open(ctx, persister, directory.Options{
		AllowGlobalLookup: cfg.API.AllowGlobalLookup,
		Publisher:         publisher,
		Logger:            logger.Named("directory"),
	})
	if err != nil {
		return err
	}

	api := httpapi.NewServer(store, httpapi.Options{
		StaticDir:      cfg.HTTP.StaticDir,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		StatsCacheTTL:  cfg.API.StatsCacheTTL,
		Rejections:     rec,
		Logger:         logger.Named("http"),
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening",
			zap.String("addr", cfg.HTTP.Addr),
			zap.String("storage", cfg.Storage.Backend),
			zap.Bool("events", cfg.Events.KafkaBroker != ""))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
