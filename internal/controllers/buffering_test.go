package controllers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

// fakeClock advances by a fixed step on every read, so deadline loops make
// progress without real waiting
type fakeClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(c.step)
	return c.t
}

type fakeEngine struct {
	mu       sync.Mutex
	addErr   error
	stats    TransferStats
	statsErr error
	files    []TransferFile
	filesErr error
	list     []TransferHandle
	addCalls int
	deleted  []TransferHandle
	purged   []bool
}

func (e *fakeEngine) Add(ctx context.Context, transferID string) (TransferHandle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.addErr != nil {
		return "", e.addErr
	}
	e.addCalls++
	return TransferHandle(fmt.Sprintf("transfer-%d", e.addCalls)), nil
}

func (e *fakeEngine) Stats(ctx context.Context, handle TransferHandle) (TransferStats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.statsErr != nil {
		return TransferStats{}, e.statsErr
	}
	return e.stats, nil
}

func (e *fakeEngine) ListFiles(ctx context.Context, handle TransferHandle) ([]TransferFile, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.files, e.filesErr
}

func (e *fakeEngine) Delete(ctx context.Context, handle TransferHandle, purgeData bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deleted = append(e.deleted, handle)
	e.purged = append(e.purged, purgeData)
	return nil
}

func (e *fakeEngine) List(ctx context.Context) ([]TransferHandle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]TransferHandle(nil), e.list...), nil
}

func (e *fakeEngine) PlaybackURL(handle TransferHandle, fileIndex int) string {
	return fmt.Sprintf("http://127.0.0.1:3131/torrents/%s/stream/%d", handle, fileIndex)
}

func (e *fakeEngine) deletedHandles() []TransferHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]TransferHandle(nil), e.deleted...)
}

func (e *fakeEngine) setStats(stats TransferStats) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats = stats
}

func newTestController(engine *fakeEngine) *BufferingController {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	c := NewBufferingController(engine, logger)
	c.pollInterval = time.Nanosecond
	clock := &fakeClock{t: time.Unix(0, 0), step: time.Second}
	c.now = clock.Now
	return c
}

func readyStats() TransferStats {
	return TransferStats{
		TotalBytes:      100 * 1024 * 1024,
		DownloadedBytes: 10 * 1024 * 1024,
		DownloadSpeed:   2 * 1024 * 1024,
		Peers:           12,
	}
}

func TestStartHappyPath(t *testing.T) {
	engine := &fakeEngine{
		stats: readyStats(),
		files: []TransferFile{
			{Index: 0, Name: "sample.txt", Size: 1024},
			{Index: 1, Name: "Movie.2024.1080p.mkv", Size: 90 * 1024 * 1024},
			{Index: 2, Name: "Movie.2024.srt", Size: 2048},
		},
	}
	c := newTestController(engine)

	handle, err := c.Start(context.Background(), "magnet:?xt=urn:btih:abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if handle.FileName != "Movie.2024.1080p.mkv" {
		t.Errorf("expected the video file, got %q", handle.FileName)
	}
	if handle.PlaybackURL != "http://127.0.0.1:3131/torrents/transfer-1/stream/1" {
		t.Errorf("unexpected playback URL %q", handle.PlaybackURL)
	}

	snapshot := c.Progress()
	if snapshot == nil {
		t.Fatal("expected progress for the active session")
	}
	if !snapshot.ReadyToPlay {
		t.Error("expected ReadyToPlay at 10 percent downloaded")
	}
	if snapshot.Peers != 12 {
		t.Errorf("expected 12 peers, got %d", snapshot.Peers)
	}
}

func TestStartSelectsLargestVideoFile(t *testing.T) {
	engine := &fakeEngine{
		stats: readyStats(),
		files: []TransferFile{
			{Index: 0, Name: "ep1.mkv", Size: 100},
			{Index: 1, Name: "ep2.mp4", Size: 500},
			{Index: 2, Name: "notes.txt", Size: 9999},
		},
	}
	c := newTestController(engine)

	handle, err := c.Start(context.Background(), "magnet:?xt=urn:btih:abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Largest video file wins even when a non-video file is bigger
	if handle.FileName != "ep2.mp4" {
		t.Errorf("expected ep2.mp4, got %q", handle.FileName)
	}
}

func TestStartNoVideoFile(t *testing.T) {
	engine := &fakeEngine{
		stats: readyStats(),
		files: []TransferFile{
			{Index: 0, Name: "readme.txt", Size: 100},
			{Index: 1, Name: "subs.srt", Size: 200},
		},
	}
	c := newTestController(engine)

	_, err := c.Start(context.Background(), "magnet:?xt=urn:btih:abc")
	if !errors.Is(err, ErrNoVideoFile) {
		t.Fatalf("expected ErrNoVideoFile, got %v", err)
	}
	if len(engine.deletedHandles()) != 1 {
		t.Error("failed start should delete the transfer")
	}
	if c.Progress() != nil {
		t.Error("controller should be idle after a failed start")
	}
}

func TestStartAddFailure(t *testing.T) {
	engine := &fakeEngine{addErr: errors.New("connection refused")}
	c := newTestController(engine)

	_, err := c.Start(context.Background(), "magnet:?xt=urn:btih:abc")
	if !errors.Is(err, ErrAddTransfer) {
		t.Fatalf("expected ErrAddTransfer, got %v", err)
	}
	if len(engine.deletedHandles()) != 0 {
		t.Error("nothing to delete when the add itself failed")
	}
}

func TestStartMetadataTimeout(t *testing.T) {
	// TotalBytes stays zero: metadata never arrives
	engine := &fakeEngine{stats: TransferStats{}}
	c := newTestController(engine)

	_, err := c.Start(context.Background(), "magnet:?xt=urn:btih:abc")
	if !errors.Is(err, ErrMetadataTimeout) {
		t.Fatalf("expected ErrMetadataTimeout, got %v", err)
	}
	if len(engine.deletedHandles()) != 1 {
		t.Error("timed-out transfer should be deleted")
	}
	if c.Progress() != nil {
		t.Error("controller should be idle after a metadata timeout")
	}
}

func TestStartBufferTimeout(t *testing.T) {
	// Metadata is known but no data ever arrives
	engine := &fakeEngine{
		stats: TransferStats{TotalBytes: 10 * 1024 * 1024 * 1024},
		files: []TransferFile{{Index: 0, Name: "movie.mkv", Size: 10 * 1024 * 1024 * 1024}},
	}
	c := newTestController(engine)

	_, err := c.Start(context.Background(), "magnet:?xt=urn:btih:abc")
	if !errors.Is(err, ErrBufferTimeout) {
		t.Fatalf("expected ErrBufferTimeout, got %v", err)
	}
	if len(engine.deletedHandles()) != 1 {
		t.Error("timed-out transfer should be deleted")
	}
	if c.Progress() != nil {
		t.Error("controller should be idle after a buffer timeout")
	}
}

func TestReadinessThresholds(t *testing.T) {
	const (
		mib = int64(1024 * 1024)
		gib = mib * 1024
	)

	tests := []struct {
		name       string
		total      int64
		downloaded int64
		want       bool
	}{
		{"exactly two percent", 100 * mib, 2 * mib, true},
		{"exactly five mebibytes", 10 * gib, 5 * mib, true},
		{"below both thresholds", 10 * gib, 5*mib - 1, false},
		{"just under two percent, small file", 100 * mib, 2*mib - 1024, false},
		{"nothing downloaded", 10 * gib, 0, false},
	}

	engine := &fakeEngine{}
	c := newTestController(engine)

	for _, tt := range tests {
		engine.setStats(TransferStats{TotalBytes: tt.total, DownloadedBytes: tt.downloaded})
		snapshot, err := c.snapshot(context.Background(), "transfer-1")
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		if snapshot.ReadyToPlay != tt.want {
			t.Errorf("%s: ReadyToPlay = %v, want %v", tt.name, snapshot.ReadyToPlay, tt.want)
		}
	}
}

func TestStartReplacesActiveSession(t *testing.T) {
	engine := &fakeEngine{
		stats: readyStats(),
		files: []TransferFile{{Index: 0, Name: "movie.mkv", Size: 90 * 1024 * 1024}},
	}
	c := newTestController(engine)

	first, err := c.Start(context.Background(), "magnet:?xt=urn:btih:aaa")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, err := c.Start(context.Background(), "magnet:?xt=urn:btih:bbb")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.PlaybackURL == second.PlaybackURL {
		t.Error("second start should produce a new transfer")
	}

	deleted := engine.deletedHandles()
	if len(deleted) != 1 || deleted[0] != "transfer-1" {
		t.Errorf("starting again should delete the previous transfer, deleted: %v", deleted)
	}
}

func TestStopIdempotent(t *testing.T) {
	engine := &fakeEngine{
		stats: readyStats(),
		files: []TransferFile{{Index: 0, Name: "movie.mkv", Size: 90 * 1024 * 1024}},
	}
	c := newTestController(engine)

	// Stop while idle is a no-op
	c.Stop()
	if len(engine.deletedHandles()) != 0 {
		t.Error("stop while idle should not delete anything")
	}

	if _, err := c.Start(context.Background(), "magnet:?xt=urn:btih:abc"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c.Stop()
	if c.Progress() != nil {
		t.Error("controller should be idle after stop")
	}
	if len(engine.deletedHandles()) != 1 {
		t.Error("stop should delete the active transfer")
	}
	if !engine.purged[0] {
		t.Error("stop should purge the downloaded data")
	}

	c.Stop()
	if len(engine.deletedHandles()) != 1 {
		t.Error("repeated stop should not delete again")
	}
}

func TestStartContextCancelled(t *testing.T) {
	// Metadata resolves but buffering never completes; cancellation aborts
	// the wait and tears the transfer down
	engine := &fakeEngine{
		stats: TransferStats{TotalBytes: 10 * 1024 * 1024 * 1024},
		files: []TransferFile{{Index: 0, Name: "movie.mkv", Size: 10 * 1024 * 1024 * 1024}},
	}
	c := newTestController(engine)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Start(ctx, "magnet:?xt=urn:btih:abc")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(engine.deletedHandles()) != 1 {
		t.Error("cancelled start should delete the transfer")
	}
	if c.Progress() != nil {
		t.Error("controller should be idle after cancellation")
	}
}

func TestSweepOrphansKeepsActiveSession(t *testing.T) {
	engine := &fakeEngine{
		stats: readyStats(),
		files: []TransferFile{{Index: 0, Name: "movie.mkv", Size: 90 * 1024 * 1024}},
	}
	c := newTestController(engine)

	if _, err := c.Start(context.Background(), "magnet:?xt=urn:btih:abc"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The engine also holds two transfers no session owns
	engine.mu.Lock()
	engine.list = []TransferHandle{"transfer-1", "stale-7", "stale-9"}
	engine.mu.Unlock()

	swept, err := c.SweepOrphans(context.Background(), engine)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if swept != 2 {
		t.Errorf("expected 2 swept transfers, got %d", swept)
	}

	deleted := engine.deletedHandles()
	for _, handle := range deleted {
		if handle == "transfer-1" {
			t.Error("the active session's transfer must not be swept")
		}
	}
	if len(deleted) != 2 {
		t.Errorf("expected 2 deletions, got %v", deleted)
	}
	if c.Progress() == nil {
		t.Error("active session should survive the sweep")
	}
}

func TestSweepOrphansWhileIdle(t *testing.T) {
	engine := &fakeEngine{list: []TransferHandle{"stale-1", "stale-2"}}
	c := newTestController(engine)

	swept, err := c.SweepOrphans(context.Background(), engine)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if swept != 2 {
		t.Errorf("expected every transfer swept while idle, got %d", swept)
	}
	if !engine.purged[0] || !engine.purged[1] {
		t.Error("sweep should purge downloaded data")
	}
}

func TestIsVideoFile(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"Movie.mkv", true},
		{"Movie.MKV", true},
		{"episode.m2ts", true},
		{"clip.webm", true},
		{"subs.srt", false},
		{"readme.txt", false},
		{"archive.rar", false},
		{"noextension", false},
	}

	for _, tt := range tests {
		if got := isVideoFile(tt.name); got != tt.want {
			t.Errorf("isVideoFile(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
