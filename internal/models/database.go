package models

import (
	"fmt"
	"time"

	"github.com/timshannon/bolthold"
	"go.etcd.io/bbolt"
)

// Database wraps the bolthold store holding the watch history
type Database struct {
	store *bolthold.Store
}

// NewDatabase creates a new database connection
func NewDatabase(path string) (*Database, error) {
	store, err := bolthold.Open(path, 0600, &bolthold.Options{
		Options: &bbolt.Options{
			Timeout: 1 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Database{store: store}, nil
}

// Close closes the database connection
func (db *Database) Close() error {
	return db.store.Close()
}

// RecordWatched inserts a watched item, or refreshes WatchedAt when the same
// movie or episode was already recorded (rewatch)
func (db *Database) RecordWatched(item *WatchedItem) error {
	existing, err := db.findWatched(item.TMDBID, item.MediaType, item.Season, item.Episode)
	if err != nil && err != bolthold.ErrNotFound {
		return err
	}

	item.WatchedAt = time.Now()

	if existing != nil {
		item.ID = existing.ID
		return db.store.Update(existing.ID, item)
	}

	return db.store.Insert(bolthold.NextSequence(), item)
}

// findWatched looks up a watched item by its identity tuple
func (db *Database) findWatched(tmdbID int, mediaType MediaType, season, episode int) (*WatchedItem, error) {
	var items []*WatchedItem
	err := db.store.Find(&items,
		bolthold.Where("TMDBID").Eq(tmdbID).
			And("MediaType").Eq(mediaType).
			And("Season").Eq(season).
			And("Episode").Eq(episode))
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, bolthold.ErrNotFound
	}
	return items[0], nil
}

// GetRecentWatched retrieves watched items, most recent first
func (db *Database) GetRecentWatched(limit int) ([]*WatchedItem, error) {
	query := (&bolthold.Query{}).SortBy("WatchedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var items []*WatchedItem
	if err := db.store.Find(&items, query); err != nil {
		return nil, err
	}

	return items, nil
}

// GetLastWatchedEpisode retrieves the most recently watched episode of a show
func (db *Database) GetLastWatchedEpisode(tmdbID int) (*WatchedItem, error) {
	var items []*WatchedItem
	err := db.store.Find(&items,
		bolthold.Where("TMDBID").Eq(tmdbID).And("MediaType").Eq(MediaTypeTV).
			SortBy("WatchedAt").Reverse().Limit(1))
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, bolthold.ErrNotFound
	}

	return items[0], nil
}

// PruneWatchedBefore deletes watched items older than the cutoff.
// Returns the number of deleted records.
func (db *Database) PruneWatchedBefore(cutoff time.Time) (int, error) {
	var items []*WatchedItem
	err := db.store.Find(&items, bolthold.Where("WatchedAt").Lt(cutoff))
	if err != nil {
		return 0, err
	}

	for _, item := range items {
		if err := db.store.Delete(item.ID, &WatchedItem{}); err != nil {
			return 0, err
		}
	}

	return len(items), nil
}
