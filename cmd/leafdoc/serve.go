package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/leafdoc/internal/metrics"
	"github.com/crimson-sun/leafdoc/internal/output/async"
	"github.com/crimson-sun/leafdoc/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web UI and JSON API",
	Long: `Loads the model and diagnosis table once, then serves the upload page on /,
the JSON API under /api and Prometheus metrics on /metrics. SIGINT or SIGTERM
triggers a graceful shutdown.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadValidConfig()
	if err != nil {
		return err
	}

	eng, cls, err := openEngine(cfg.Engine)
	if err != nil {
		return err
	}
	defer cls.Close()

	opts := []server.Option{
		server.WithMaxUploadBytes(cfg.Server.MaxUploadBytes),
		server.WithMaxPixels(cfg.Server.MaxPixels),
	}
	if cfg.Server.Metrics {
		opts = append(opts, server.WithMetrics(metrics.New()))
	}
	if hook := newWebhook(cfg.Notify); hook != nil {
		notifier := async.New(hook)
		defer notifier.Close()
		opts = append(opts, server.WithOutput(notifier))
		slog.Info("forwarding diagnoses", "webhook", cfg.Notify.WebhookURL)
	}
	srv := server.New(eng, opts...)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("leafdoc starting",
		"version", rootCmd.Version,
		"model", cfg.Engine.ModelPath,
		"layout", cls.Layout().String(),
		"threshold", cfg.Engine.ConfidenceThreshold,
	)
	return srv.ListenAndServe(ctx, cfg.Server.Addr, cfg.Server.ShutdownTimeout)
}
