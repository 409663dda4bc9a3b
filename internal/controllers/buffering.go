package controllers

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/YannickHerrero/miru/internal/models"
)

// Typed failures of the buffering pipeline. The two timeouts are recoverable
// by retrying with a different stream; ErrAddTransfer and ErrNoVideoFile are
// usually permanent for that particular source.
var (
	ErrAddTransfer     = errors.New("transfer engine rejected the transfer")
	ErrMetadataTimeout = errors.New("timed out waiting for transfer metadata")
	ErrBufferTimeout   = errors.New("timed out buffering, likely a low-seeder torrent")
	ErrNoVideoFile     = errors.New("transfer contains no video file")
)

const (
	// How long to wait for the engine to learn the transfer's file listing
	metadataTimeout = 60 * time.Second
	// How long to wait for enough data to start playback
	bufferTimeout = 30 * time.Second

	pollInterval = 500 * time.Millisecond

	// Playback starts once either threshold is reached: the percentage keeps
	// small files from stalling on rounding, the byte floor keeps very large
	// files from waiting on an absolute amount
	readyPercent = 2.0
	readyBytes   = 5 * 1024 * 1024
)

// videoExtensions is the allow-list used when picking the file to stream
var videoExtensions = []string{
	".mkv", ".mp4", ".avi", ".mov", ".wmv", ".flv",
	".webm", ".m4v", ".mpg", ".mpeg", ".ts", ".m2ts",
}

// TransferHandle identifies a transfer managed by the engine
type TransferHandle string

// TransferStats is a point-in-time stats read for one transfer.
// TotalBytes of zero means the engine has no metadata yet.
type TransferStats struct {
	TotalBytes      int64
	DownloadedBytes int64
	DownloadSpeed   int64 // bytes/sec
	Peers           int
}

// TransferFile describes one file inside a transfer
type TransferFile struct {
	Index int
	Name  string
	Size  int64
}

// TransferEngine is the surface the buffering controller drives. Add is
// idempotent: adding an already-managed transfer returns the existing handle.
type TransferEngine interface {
	Add(ctx context.Context, transferID string) (TransferHandle, error)
	Stats(ctx context.Context, handle TransferHandle) (TransferStats, error)
	ListFiles(ctx context.Context, handle TransferHandle) ([]TransferFile, error)
	Delete(ctx context.Context, handle TransferHandle, purgeData bool) error
	PlaybackURL(handle TransferHandle, fileIndex int) string
}

// TransferLister enumerates every transfer the engine currently manages
type TransferLister interface {
	List(ctx context.Context) ([]TransferHandle, error)
}

// bufferingSession is the single live transfer. The uuid ties progress
// snapshots to the session they were read for, so a snapshot from a
// superseded session is never surfaced.
type bufferingSession struct {
	id        uuid.UUID
	handle    TransferHandle
	fileIndex int
	fileName  string
	startedAt time.Time
}

// BufferingController manages the lifecycle of at most one active transfer:
// add, await metadata, select the video file, then poll until enough data is
// buffered for playback
type BufferingController struct {
	engine TransferEngine
	logger *logrus.Logger

	metadataTimeout time.Duration
	bufferTimeout   time.Duration
	pollInterval    time.Duration
	now             func() time.Time

	// startMu serializes Start/Stop; mu guards the session slot so progress
	// reads can run concurrently with each other but not with a writer
	startMu sync.Mutex
	mu      sync.RWMutex
	session *bufferingSession
}

// NewBufferingController creates a new buffering controller
func NewBufferingController(engine TransferEngine, logger *logrus.Logger) *BufferingController {
	return &BufferingController{
		engine:          engine,
		logger:          logger,
		metadataTimeout: metadataTimeout,
		bufferTimeout:   bufferTimeout,
		pollInterval:    pollInterval,
		now:             time.Now,
	}
}

// Start adds the transfer to the engine, waits for its metadata, selects the
// largest video file and polls until the readiness threshold is met. Any
// prior session is torn down first, including its downloaded data. On every
// failure path the transfer is cleaned up before the error is returned.
func (c *BufferingController) Start(ctx context.Context, transferID string) (models.StreamHandle, error) {
	c.startMu.Lock()
	defer c.startMu.Unlock()

	// At most one active transfer at any time
	c.teardown()

	c.logger.WithField("transfer_id", truncateID(transferID)).Info("Starting transfer")

	handle, err := c.engine.Add(ctx, transferID)
	if err != nil {
		return models.StreamHandle{}, fmt.Errorf("%w: %v", ErrAddTransfer, err)
	}

	if err := c.awaitMetadata(ctx, handle); err != nil {
		c.deleteTransfer(handle)
		return models.StreamHandle{}, err
	}

	file, err := c.selectVideoFile(ctx, handle)
	if err != nil {
		c.deleteTransfer(handle)
		return models.StreamHandle{}, err
	}

	c.logger.WithFields(logrus.Fields{
		"file":  file.Name,
		"index": file.Index,
	}).Info("Streaming file selected")

	session := &bufferingSession{
		id:        uuid.New(),
		handle:    handle,
		fileIndex: file.Index,
		fileName:  file.Name,
		startedAt: c.now(),
	}

	c.mu.Lock()
	c.session = session
	c.mu.Unlock()

	playbackURL := c.engine.PlaybackURL(handle, file.Index)

	if err := c.awaitBuffer(ctx, handle); err != nil {
		c.stopSession(session.id)
		return models.StreamHandle{}, err
	}

	c.logger.WithField("url", playbackURL).Info("Stream ready for playback")

	return models.StreamHandle{
		PlaybackURL: playbackURL,
		FileName:    file.Name,
	}, nil
}

// Progress returns a snapshot of the active session, or nil when idle.
// Non-blocking apart from one stats read.
func (c *BufferingController) Progress() *models.ProgressSnapshot {
	c.mu.RLock()
	session := c.session
	c.mu.RUnlock()

	if session == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snapshot, err := c.snapshot(ctx, session.handle)
	if err != nil {
		return nil
	}

	// The session may have been replaced while the stats read was in flight
	c.mu.RLock()
	current := c.session != nil && c.session.id == session.id
	c.mu.RUnlock()
	if !current {
		return nil
	}

	return snapshot
}

// Stop tears down the active session, deleting the transfer and its
// downloaded data, and returns the controller to idle. Callable from any
// state; a no-op when idle.
func (c *BufferingController) Stop() {
	c.startMu.Lock()
	defer c.startMu.Unlock()
	c.teardown()
}

// SweepOrphans deletes every engine transfer that does not belong to the
// active session, e.g. leftovers from a crashed run or an engine shared with
// a previous instance. Serialized with Start and Stop so an in-flight start
// is never swept. Returns the number of deleted transfers.
func (c *BufferingController) SweepOrphans(ctx context.Context, lister TransferLister) (int, error) {
	c.startMu.Lock()
	defer c.startMu.Unlock()

	handles, err := lister.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list engine transfers: %w", err)
	}

	c.mu.RLock()
	var active TransferHandle
	if c.session != nil {
		active = c.session.handle
	}
	c.mu.RUnlock()

	swept := 0
	for _, handle := range handles {
		if active != "" && handle == active {
			continue
		}
		if err := c.engine.Delete(ctx, handle, true); err != nil {
			c.logger.WithError(err).WithField("handle", handle).Warn("Failed to delete orphaned transfer")
			continue
		}
		swept++
	}

	return swept, nil
}

// awaitMetadata polls the engine until the transfer's total size is known
func (c *BufferingController) awaitMetadata(ctx context.Context, handle TransferHandle) error {
	deadline := c.now().Add(c.metadataTimeout)

	for {
		stats, err := c.engine.Stats(ctx, handle)
		if err != nil {
			c.logger.WithError(err).Debug("Stats read failed while waiting for metadata")
		} else if stats.TotalBytes > 0 {
			return nil
		}

		if !c.now().Before(deadline) {
			return fmt.Errorf("%w after %s", ErrMetadataTimeout, c.metadataTimeout)
		}

		if err := c.sleep(ctx); err != nil {
			return err
		}
	}
}

// selectVideoFile picks the largest file whose extension is in the video
// allow-list
func (c *BufferingController) selectVideoFile(ctx context.Context, handle TransferHandle) (TransferFile, error) {
	files, err := c.engine.ListFiles(ctx, handle)
	if err != nil {
		return TransferFile{}, fmt.Errorf("%w: %v", ErrNoVideoFile, err)
	}

	var best *TransferFile
	for i := range files {
		file := files[i]
		if !isVideoFile(file.Name) {
			continue
		}
		if best == nil || file.Size > best.Size {
			best = &file
		}
	}

	if best == nil {
		return TransferFile{}, ErrNoVideoFile
	}
	return *best, nil
}

// awaitBuffer polls progress until the readiness threshold is met
func (c *BufferingController) awaitBuffer(ctx context.Context, handle TransferHandle) error {
	deadline := c.now().Add(c.bufferTimeout)

	for {
		snapshot, err := c.snapshot(ctx, handle)
		if err != nil {
			c.logger.WithError(err).Debug("Stats read failed while buffering")
		} else {
			if snapshot.ReadyToPlay {
				return nil
			}
			c.logger.WithFields(logrus.Fields{
				"percent":    fmt.Sprintf("%.1f", snapshot.Percent),
				"downloaded": snapshot.DownloadedBytes,
				"peers":      snapshot.Peers,
			}).Debug("Buffering")
		}

		if !c.now().Before(deadline) {
			return fmt.Errorf("%w after %s", ErrBufferTimeout, c.bufferTimeout)
		}

		if err := c.sleep(ctx); err != nil {
			return err
		}
	}
}

// snapshot reads the engine stats and derives the readiness signal
func (c *BufferingController) snapshot(ctx context.Context, handle TransferHandle) (*models.ProgressSnapshot, error) {
	stats, err := c.engine.Stats(ctx, handle)
	if err != nil {
		return nil, err
	}

	var percent float64
	if stats.TotalBytes > 0 {
		percent = float64(stats.DownloadedBytes) / float64(stats.TotalBytes) * 100.0
	}

	return &models.ProgressSnapshot{
		DownloadedBytes: stats.DownloadedBytes,
		TotalBytes:      stats.TotalBytes,
		Percent:         percent,
		DownloadSpeed:   stats.DownloadSpeed,
		Peers:           stats.Peers,
		ReadyToPlay:     percent >= readyPercent || stats.DownloadedBytes >= readyBytes,
	}, nil
}

// teardown clears the session slot and deletes its transfer. Caller holds
// startMu.
func (c *BufferingController) teardown() {
	c.mu.Lock()
	session := c.session
	c.session = nil
	c.mu.Unlock()

	if session != nil {
		c.deleteTransfer(session.handle)
	}
}

// stopSession tears down the session only if it is still the active one
func (c *BufferingController) stopSession(id uuid.UUID) {
	c.mu.Lock()
	session := c.session
	if session != nil && session.id == id {
		c.session = nil
	} else {
		session = nil
	}
	c.mu.Unlock()

	if session != nil {
		c.deleteTransfer(session.handle)
	}
}

// deleteTransfer removes the transfer and its data from the engine.
// Cleanup failures are logged, not escalated.
func (c *BufferingController) deleteTransfer(handle TransferHandle) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := c.engine.Delete(ctx, handle, true); err != nil {
		c.logger.WithError(err).WithField("handle", handle).Warn("Failed to delete transfer from engine")
	}
}

// sleep waits one poll interval, aborting early on context cancellation
func (c *BufferingController) sleep(ctx context.Context) error {
	timer := time.NewTimer(c.pollInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// isVideoFile checks the extension against the video allow-list
func isVideoFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range videoExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// truncateID shortens magnet links for logging
func truncateID(transferID string) string {
	if len(transferID) > 60 {
		return transferID[:60] + "..."
	}
	return transferID
}
