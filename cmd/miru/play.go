package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/YannickHerrero/miru/internal/models"
	"github.com/YannickHerrero/miru/internal/services/tmdb"
)

func newPlayCommand() *cobra.Command {
	var (
		season, episode int
		index           int
	)

	cmd := &cobra.Command{
		Use:   "play <query>",
		Short: "Search, buffer and play a movie or episode",
		Long: `Searches for the title, picks a stream and launches the player.

For TV shows without -s/-e the watch history decides: playback resumes at
the episode after the last watched one.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if !a.player.Available() {
				return fmt.Errorf("player %q not found in PATH", a.cfg.PlayerCommand)
			}

			query := strings.Join(args, " ")
			media, imdbID, err := a.resolveMedia(ctx, query)
			if err != nil {
				return err
			}

			if media.MediaType == models.MediaTypeTV {
				if season == 0 {
					season, episode = a.nextEpisode(ctx, media)
				} else if episode == 0 {
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
			if index < 0 || index >= len(streams) {
				return fmt.Errorf("stream index %d out of range, %d streams available", index, len(streams))
			}

			// Unplayable entries are kept in the ranked list for display;
			// here the best playable one wins unless an index was forced
			if !cmd.Flags().Changed("index") {
				index = firstPlayable(streams)
				if index < 0 {
					return fmt.Errorf("no playable streams for %q", media.DisplayTitle())
				}
			} else if !streams[index].Playable() {
				return fmt.Errorf("stream %d has no playable source", index)
			}

			selected := streams[index]
			printMediaHeader(cmd, media, season, episode)

			handle, err := a.playback.Play(ctx, selected)
			if err != nil {
				return err
			}
			defer a.playback.Stop()

			a.recordWatched(ctx, media, season, episode)

			return a.player.Play(ctx, handle.PlaybackURL, playerTitle(media, season, episode))
		},
	}

	cmd.Flags().IntVarP(&season, "season", "s", 0, "season number (TV only)")
	cmd.Flags().IntVarP(&episode, "episode", "e", 0, "episode number (TV only)")
	cmd.Flags().IntVarP(&index, "index", "i", 0, "stream index from the ranked list")

	return cmd
}

// firstPlayable returns the index of the best-ranked playable stream, -1
// when none qualifies
func firstPlayable(streams []models.Stream) int {
	for i, s := range streams {
		if s.Playable() {
			return i
		}
	}
	return -1
}

// nextEpisode picks the episode after the last watched one, rolling over to
// the next season when the current one is exhausted. Falls back to S01E01
// for unwatched shows.
func (a *app) nextEpisode(ctx context.Context, media *tmdb.SearchResult) (int, int) {
	last, err := a.db.GetLastWatchedEpisode(media.ID)
	if err != nil {
		return 1, 1
	}

	episodes, err := a.tmdb.SeasonDetails(ctx, media.ID, last.Season)
	if err == nil && last.Episode >= len(episodes) {
		return last.Season + 1, 1
	}

	return last.Season, last.Episode + 1
}

// recordWatched stores the playback in the watch history. Failures are
// logged, not escalated, so a broken history file never blocks playback.
func (a *app) recordWatched(ctx context.Context, media *tmdb.SearchResult, season, episode int) {
	item := &models.WatchedItem{
		TMDBID:     media.ID,
		MediaType:  media.MediaType,
		Title:      media.DisplayTitle(),
		Season:     season,
		Episode:    episode,
		CoverImage: tmdb.PosterURL(media.PosterPath),
	}

	if media.MediaType == models.MediaTypeTV {
		if episodes, err := a.tmdb.SeasonDetails(ctx, media.ID, season); err == nil {
			for _, e := range episodes {
				if e.EpisodeNumber == episode {
					item.EpisodeTitle = e.Name
					break
				}
			}
		}
	}

	if err := a.db.RecordWatched(item); err != nil {
		a.logger.WithError(err).Warn("Failed to record watch history")
	}
}

// playerTitle builds the window title shown by the player
func playerTitle(media *tmdb.SearchResult, season, episode int) string {
	title := media.DisplayTitle()
	if media.MediaType == models.MediaTypeTV {
		title += fmt.Sprintf(" S%02dE%02d", season, episode)
	}
	return title
}
