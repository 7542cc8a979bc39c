package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"erlobby/internal/app/chat"
	"erlobby/internal/app/storage"
	"erlobby/internal/configs"
	"erlobby/internal/handler"
	"erlobby/internal/pkg/limiter"
	"erlobby/internal/pkg/logx"
	"erlobby/internal/pkg/supervise"
)

// shutdownTimeout bounds the graceful HTTP shutdown.
const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the WebSocket server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

// runServe restores persisted state, starts the hub and keeps the HTTP listener alive
// until ctx is cancelled. The hub outlives listener restarts, so connected state is only
// lost when the process exits.
func runServe(ctx context.Context) error {
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Str("addr", cfg.Addr()).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("data_dir", cfg.DataDir).
		Bool("postgres", cfg.DatabaseDSN != "").
		Bool("s3_mirror", cfg.S3BucketName != "").
		Msg("Configuration loaded successfully")

	store, err := storage.Open(ctx, storageConfig(cfg))
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logx.Error(err, "Failed to close store")
		}
	}()

	state, err := storage.LoadState(ctx, store, cfg.DataDir)
	if err != nil {
		return err
	}

	hub := chat.NewHub(chat.Options{
		Store:   store,
		Records: state.Records,
		History: state.History,
		Limiter: limiter.NewWindowLimiter(cfg.ChatRateWindow),
	})
	go hub.Run()
	defer hub.Stop()

	// A crashed hub ends the process so the process manager restarts it.
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	go func() {
		select {
		case <-hub.Done():
			if err := hub.Err(); err != nil {
				cancel(err)
			}
		case <-ctx.Done():
		}
	}()

	router, cleanup := handler.Router(&handler.AppDeps{Hub: hub, Config: cfg})
	defer cleanup()

	err = supervise.Run(ctx, supervise.Options{
		RestartDelay:   cfg.RestartDelay,
		AddrInUseDelay: cfg.AddrInUseDelay,
	}, func(ctx context.Context) error {
		return serveHTTP(ctx, cfg.Addr(), router)
	})
	if cause := context.Cause(ctx); errors.Is(cause, chat.ErrHubPanicked) {
		return cause
	}
	if errors.Is(err, context.Canceled) {
		logx.Info("Received shutdown signal. Server stopping.")
		return nil
	}
	return err
}

// serveHTTP listens on addr and serves h until the listener fails or ctx is cancelled.
func serveHTTP(ctx context.Context, addr string, h http.Handler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	server := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logx.Info(fmt.Sprintf("WebSocket server started on ws://%s", ln.Addr()))
		errCh <- server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving http: %w", err)

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logx.Error(err, "Server forced to shutdown")
		}
		return ctx.Err()
	}
}

func storageConfig(cfg *configs.AppConfig) storage.ServiceConfig {
	return storage.ServiceConfig{
		DataDir:     cfg.DataDir,
		DatabaseDSN: cfg.DatabaseDSN,
		S3: storage.S3Config{
			BucketName:      cfg.S3BucketName,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Prefix:          cfg.S3Prefix,
		},
	}
}
