package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solatis/canvasagent/internal/core/api"
	"github.com/solatis/canvasagent/internal/core/server"
	"github.com/solatis/canvasagent/internal/core/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC canvas agent service",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "gRPC server host")
	serveCmd.Flags().Int("port", 50051, "gRPC server port")
	serveCmd.Flags().String("model", "", "Gemini model name")
	serveCmd.Flags().Int("rate-limit", 0, "requests per identity per rate window")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("telemetry.shutdown_failed", zap.Error(err))
		}
	}()

	database, queries, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	authenticator, err := newAuthenticator(queries, true)
	if err != nil {
		return err
	}

	service, ctl, err := newCommandService(ctx, cfg, queries)
	if err != nil {
		return err
	}

	sweep := time.NewTicker(cfg.Admission.SweepInterval)
	defer sweep.Stop()
	go ctl.Run(ctx, sweep.C)

	handler, err := api.NewGRPCHandler(service, logger)
	if err != nil {
		return err
	}

	grpcServer, err := server.NewGRPCServer(cfg.Server, handler, authenticator, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	logger.Info("server.starting",
		zap.String("version", Version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("model", cfg.Agent.Model),
	)

	errChan := make(chan error, 1)
	go func() {
		errChan <- grpcServer.Start(ctx)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("server.shutting_down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout+time.Second)
		defer cancel()
		return grpcServer.Shutdown(shutdownCtx)
	}
}
