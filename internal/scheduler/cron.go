package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/YannickHerrero/miru/internal/controllers"
	"github.com/YannickHerrero/miru/internal/models"
)

// Scheduler manages the background jobs of serve mode
type Scheduler struct {
	cron          *cron.Cron
	playback      *controllers.PlaybackController
	engine        controllers.TransferLister
	db            *models.Database
	retentionDays int
	logger        *logrus.Logger
}

// NewScheduler creates a new scheduler
func NewScheduler(playback *controllers.PlaybackController, engine controllers.TransferLister, db *models.Database, retentionDays int, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:          cron.New(),
		playback:      playback,
		engine:        engine,
		db:            db,
		retentionDays: retentionDays,
		logger:        logger,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.logger.Info("Starting scheduler")

	// Daily at 04:00: prune old watch history
	_, err := s.cron.AddFunc("0 4 * * *", func() {
		s.runHistoryPrune()
	})
	if err != nil {
		return fmt.Errorf("failed to add history prune job: %w", err)
	}

	// Every 5 minutes: log progress of the active transfer, if any
	_, err = s.cron.AddFunc("*/5 * * * *", func() {
		s.runProgressLog()
	})
	if err != nil {
		return fmt.Errorf("failed to add progress log job: %w", err)
	}

	// Every hour: delete engine transfers not belonging to the active session
	_, err = s.cron.AddFunc("0 * * * *", func() {
		s.runOrphanSweep()
	})
	if err != nil {
		return fmt.Errorf("failed to add orphan sweep job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Scheduler started")

	// Catch up immediately: prune stale history and clear transfers left
	// behind by a previous run
	go func() {
		s.runHistoryPrune()
		s.runOrphanSweep()
	}()

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	s.cron.Stop()
}

// runHistoryPrune removes watch history entries past the retention window
func (s *Scheduler) runHistoryPrune() {
	if s.retentionDays <= 0 {
		s.logger.Debug("History retention disabled, skipping prune")
		return
	}

	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)
	pruned, err := s.db.PruneWatchedBefore(cutoff)
	if err != nil {
		s.logger.WithError(err).Error("History prune failed")
		return
	}

	if pruned > 0 {
		s.logger.WithFields(logrus.Fields{
			"pruned": pruned,
			"cutoff": cutoff.Format("2006-01-02"),
		}).Info("Pruned old watch history")
	}
}

// runOrphanSweep deletes engine transfers that no session owns
func (s *Scheduler) runOrphanSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	swept, err := s.playback.SweepOrphans(ctx, s.engine)
	if err != nil {
		s.logger.WithError(err).Error("Orphan sweep failed")
		return
	}

	if swept > 0 {
		s.logger.WithField("swept", swept).Info("Deleted orphaned transfers")
	}
}

// runProgressLog logs the state of the active transfer
func (s *Scheduler) runProgressLog() {
	snapshot := s.playback.Progress()
	if snapshot == nil {
		return
	}

	s.logger.WithFields(logrus.Fields{
		"percent":    fmt.Sprintf("%.1f", snapshot.Percent),
		"downloaded": snapshot.DownloadedBytes,
		"total":      snapshot.TotalBytes,
		"speed":      snapshot.DownloadSpeed,
		"peers":      snapshot.Peers,
	}).Info("Active transfer progress")
}
