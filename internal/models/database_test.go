package models

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()

	db, err := NewDatabase(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordWatchedUpsert(t *testing.T) {
	db := newTestDatabase(t)

	item := &WatchedItem{
		TMDBID:    100,
		MediaType: MediaTypeTV,
		Title:     "Some Show",
		Season:    1,
		Episode:   3,
	}
	if err := db.RecordWatched(item); err != nil {
		t.Fatalf("failed to record: %v", err)
	}

	// Rewatching the same episode refreshes the entry instead of duplicating
	rewatch := &WatchedItem{
		TMDBID:    100,
		MediaType: MediaTypeTV,
		Title:     "Some Show",
		Season:    1,
		Episode:   3,
	}
	if err := db.RecordWatched(rewatch); err != nil {
		t.Fatalf("failed to record rewatch: %v", err)
	}

	items, err := db.GetRecentWatched(0)
	if err != nil {
		t.Fatalf("failed to read history: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 entry after rewatch, got %d", len(items))
	}
}

func TestGetRecentWatchedOrder(t *testing.T) {
	db := newTestDatabase(t)

	for i := 1; i <= 3; i++ {
		item := &WatchedItem{
			TMDBID:    200,
			MediaType: MediaTypeTV,
			Title:     "Some Show",
			Season:    1,
			Episode:   i,
		}
		if err := db.RecordWatched(item); err != nil {
			t.Fatalf("failed to record: %v", err)
		}
		// RecordWatched stamps time.Now; keep timestamps distinct
		time.Sleep(5 * time.Millisecond)
	}

	items, err := db.GetRecentWatched(2)
	if err != nil {
		t.Fatalf("failed to read history: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(items))
	}
	if items[0].Episode != 3 || items[1].Episode != 2 {
		t.Errorf("expected most recent first, got episodes %d, %d", items[0].Episode, items[1].Episode)
	}
}

func TestGetLastWatchedEpisode(t *testing.T) {
	db := newTestDatabase(t)

	episodes := []int{1, 2}
	for _, e := range episodes {
		item := &WatchedItem{
			TMDBID:    300,
			MediaType: MediaTypeTV,
			Title:     "Some Show",
			Season:    2,
			Episode:   e,
		}
		if err := db.RecordWatched(item); err != nil {
			t.Fatalf("failed to record: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	// A movie with the same TMDB id must not interfere
	movie := &WatchedItem{TMDBID: 300, MediaType: MediaTypeMovie, Title: "Some Movie"}
	if err := db.RecordWatched(movie); err != nil {
		t.Fatalf("failed to record movie: %v", err)
	}

	last, err := db.GetLastWatchedEpisode(300)
	if err != nil {
		t.Fatalf("failed to read last episode: %v", err)
	}
	if last.Season != 2 || last.Episode != 2 {
		t.Errorf("expected S02E02, got %s", last.EpisodeDisplay())
	}
}

func TestPruneWatchedBefore(t *testing.T) {
	db := newTestDatabase(t)

	old := &WatchedItem{TMDBID: 400, MediaType: MediaTypeMovie, Title: "Old Movie"}
	if err := db.RecordWatched(old); err != nil {
		t.Fatalf("failed to record: %v", err)
	}

	// Everything is newer than a cutoff in the past
	pruned, err := db.PruneWatchedBefore(time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if pruned != 0 {
		t.Errorf("expected nothing pruned, got %d", pruned)
	}

	// A future cutoff removes everything
	pruned, err = db.PruneWatchedBefore(time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if pruned != 1 {
		t.Errorf("expected 1 pruned entry, got %d", pruned)
	}

	items, err := db.GetRecentWatched(0)
	if err != nil {
		t.Fatalf("failed to read history: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected empty history after prune, got %d entries", len(items))
	}
}
