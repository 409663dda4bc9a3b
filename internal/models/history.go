package models

import (
	"fmt"
	"time"
)

// WatchedItem represents one watched media record
type WatchedItem struct {
	ID     uint64 `boltholdKey:"ID"`
	TMDBID int    `boltholdIndex:"TMDBID"`

	MediaType MediaType
	Title     string

	// Season/Episode are 0 for movies
	Season  int
	Episode int

	EpisodeTitle string
	CoverImage   string

	WatchedAt time.Time
}

// EpisodeDisplay returns "S01E05"-style text, empty for movies
func (w WatchedItem) EpisodeDisplay() string {
	if w.MediaType == MediaTypeMovie {
		return ""
	}
	return fmt.Sprintf("S%02dE%02d", w.Season, w.Episode)
}
