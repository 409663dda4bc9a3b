package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/YannickHerrero/miru/internal/models"
	"github.com/YannickHerrero/miru/internal/services/tmdb"
)

func newSearchCommand() *cobra.Command {
	var season, episode int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "List available streams for a movie or episode",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			query := strings.Join(args, " ")
			media, imdbID, err := a.resolveMedia(ctx, query)
			if err != nil {
				return err
			}

			if media.MediaType == models.MediaTypeTV {
				if season == 0 {
					season = 1
				}
				if episode == 0 {
					episode = 1
				}
			}

			streams, err := a.fetchStreams(ctx, media, imdbID, season, episode)
			if err != nil {
				return err
			}
			if len(streams) == 0 {
				return fmt.Errorf("no streams found for %q", media.DisplayTitle())
			}

			printMediaHeader(cmd, media, season, episode)
			printStreams(cmd, streams)
			return nil
		},
	}

	cmd.Flags().IntVarP(&season, "season", "s", 0, "season number (TV only, defaults to 1)")
	cmd.Flags().IntVarP(&episode, "episode", "e", 0, "episode number (TV only, defaults to 1)")

	return cmd
}

// resolveMedia finds the best TMDB match for the query and its IMDB ID
func (a *app) resolveMedia(ctx context.Context, query string) (*tmdb.SearchResult, string, error) {
	results, err := a.tmdb.SearchMulti(ctx, query)
	if err != nil {
		return nil, "", err
	}
	if len(results) == 0 {
		return nil, "", fmt.Errorf("no results for %q", query)
	}

	media := results[0]
	imdbID, err := a.tmdb.ExternalIDs(ctx, media.MediaType, media.ID)
	if err != nil {
		return nil, "", err
	}

	return &media, imdbID, nil
}

// fetchStreams queries the addon and returns the ranked stream list
func (a *app) fetchStreams(ctx context.Context, media *tmdb.SearchResult, imdbID string, season, episode int) ([]models.Stream, error) {
	var (
		results []models.AddonResult
		err     error
	)
	if media.MediaType == models.MediaTypeTV {
		results, err = a.torrentio.SearchEpisode(ctx, imdbID, season, episode)
	} else {
		results, err = a.torrentio.SearchMovie(ctx, imdbID)
	}
	if err != nil {
		return nil, err
	}

	return a.playback.ResolveAndRank(results), nil
}

func printMediaHeader(cmd *cobra.Command, media *tmdb.SearchResult, season, episode int) {
	title := media.DisplayTitle()
	if year := media.Year(); year != "" {
		title += " (" + year + ")"
	}
	if media.MediaType == models.MediaTypeTV {
		title += fmt.Sprintf(" S%02dE%02d", season, episode)
	}
	cmd.Println(title)
	cmd.Println()
}

func printStreams(cmd *cobra.Command, streams []models.Stream) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tQUALITY\tSIZE\tCODEC\tAUDIO\tHDR\tSOURCE\tSEED\tCACHED\tPROVIDER")

	for i, s := range streams {
		cached := ""
		if s.IsCached {
			cached = "yes"
		}
		seeders := ""
		if s.Seeders != nil {
			seeders = fmt.Sprintf("%d", *s.Seeders)
		}
		provider := s.Provider
		if !s.Playable() {
			provider += " (unplayable)"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			i, s.Quality, s.SizeDisplay, s.VideoCodec, s.Audio, s.HDR, s.SourceType, seeders, cached, provider)
	}

	w.Flush()
}
