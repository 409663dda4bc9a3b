package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/YannickHerrero/miru/internal/config"
	"github.com/YannickHerrero/miru/internal/models"
)

func newHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently watched movies and episodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// History only needs the database, not the full service stack
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			db, err := models.NewDatabase(cfg.HistoryFile)
			if err != nil {
				return fmt.Errorf("failed to open history database: %w", err)
			}
			defer db.Close()

			items, err := db.GetRecentWatched(limit)
			if err != nil {
				return fmt.Errorf("failed to read watch history: %w", err)
			}
			if len(items) == 0 {
				cmd.Println("No watch history yet")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "WATCHED\tTITLE\tEPISODE")
			for _, item := range items {
				fmt.Fprintf(w, "%s\t%s\t%s\n",
					item.WatchedAt.Format("2006-01-02 15:04"),
					item.Title,
					item.EpisodeDisplay())
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of entries to show")

	return cmd
}
