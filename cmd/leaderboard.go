package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"erlobby/internal/app/playtime"
	"erlobby/internal/app/storage"
)

func newLeaderboardCmd() *cobra.Command {
	var (
		limit  int
		output string
	)

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print the persisted playtime leaderboard",
		Long: `Reads the identity records from the configured store and prints the leaderboard.
Legacy record files are read but never migrated by this command.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 1 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}

			svc := storageConfig(cfg)
			svc.S3 = storage.S3Config{}
			svc.ReadOnly = true

			records, err := readRecords(cmd.Context(), svc)
			if err != nil {
				return err
			}

			return printLeaderboard(cmd.OutOrStdout(), playtime.Leaderboard(records, limit), output)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", playtime.LeaderboardSize, "Number of entries to print")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format: text, json")

	return cmd
}

// readRecords loads the unified records, falling back to a view of the legacy files.
// Nothing in the data directory is changed.
func readRecords(ctx context.Context, svc storage.ServiceConfig) (storage.Records, error) {
	store, err := storage.Open(ctx, svc)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	return storage.ReadRecords(ctx, store, svc.DataDir)
}

func printLeaderboard(w io.Writer, entries []playtime.Entry, output string) error {
	switch output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)

	case "text":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tNICKNAME\tCODE\tPLAYTIME")
		for i, e := range entries {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, e.Nickname, e.Code, e.Playtime)
		}
		return tw.Flush()

	default:
		return fmt.Errorf("unknown output format %q", output)
	}
}
