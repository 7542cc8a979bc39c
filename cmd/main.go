/*
Package main is the entry point of the erlobby server.

It loads configuration, initializes the global logging system and dispatches to the
cobra sub-commands: "serve" (the default) runs the WebSocket server under a restart
supervisor, and "leaderboard" prints the persisted playtime leaderboard offline.
*/
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"erlobby/internal/configs"
	"erlobby/internal/pkg/logx"
)

var (
	cfg     *configs.AppConfig
	logSink io.Closer
)

// newRootCmd creates the root command. Running it without a sub-command serves.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "erlobby",
		Short: "Presence, chat and lobby discovery server",
		Long: `erlobby keeps track of who is online, relays chat, advertises co-op lobbies
and accrues per-player playtime over a JSON WebSocket protocol.

Configuration is read from environment variables (PORT, DATA_DIR, DATABASE_URL, ...).`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := configs.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			cfg = loaded

			var extra []io.Writer
			if cfg.LogFile != "" {
				f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return fmt.Errorf("opening log file: %w", err)
				}
				logSink = f
				extra = append(extra, f)
			}

			logx.InitGlobalLogger(cfg.IsDevelopment(), extra...)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if logSink != nil {
				return logSink.Close()
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newLeaderboardCmd())

	return rootCmd
}

func main() {
	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
