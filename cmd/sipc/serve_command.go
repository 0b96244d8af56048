package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"sipc/internal/compressor"
	"sipc/internal/deps"
	"sipc/internal/events"
	"sipc/internal/jobs"
	"sipc/internal/logging"
	"sipc/internal/server"
	"sipc/internal/store"
	"sipc/internal/transform"
)

// interruptedReason is recorded for packs a previous server left mid-job.
const interruptedReason = "Server stopped before the job finished"

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, ctx, bind)
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Override server.bind (host:port)")
	return cmd
}

func runServe(cmd *cobra.Command, ctx *commandContext, bind string) error {
	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if value := strings.TrimSpace(bind); value != "" {
		cfg.Server.Bind = value
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open pack store", logging.Error(err))
		return err
	}
	defer st.Close()
	if n, err := st.FailProcessing(signalCtx, interruptedReason); err != nil {
		logger.Warn("failed to reset interrupted packs", logging.Error(err))
	} else if n > 0 {
		logger.Info("marked interrupted packs as failed", logging.Int64("count", n))
	}

	if status := deps.CheckFFmpeg(signalCtx, cfg.Compress.FFmpegBinary); !status.Available {
		logger.Warn("ffmpeg unavailable; video and audio will be kept as-is",
			logging.String("command", status.Command),
			logging.String("detail", status.Detail),
		)
	}

	registry := events.NewRegistry()
	comp := compressor.New(transform.NewDispatcher(cfg, logger), cfg.Compress.CompressionLevel, logger)
	runner, err := jobs.New(cfg, st, registry, comp, logger)
	if err != nil {
		return err
	}
	srv, err := server.New(cfg, st, registry, runner, logger)
	if err != nil {
		return err
	}
	if err := srv.Start(signalCtx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", srv.Addr())

	<-signalCtx.Done()
	srv.Stop()
	if running := runner.Running(); running > 0 {
		logger.Info("waiting for running jobs", logging.Int("running", running))
	}
	runner.Wait()
	logger.Info("sipc server shut down")
	return nil
}
