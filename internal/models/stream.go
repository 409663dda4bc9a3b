package models

import "strings"

// AddonResult is one raw search result as returned by a stream addon.
// Name and Title are free text; URL is a direct playback link when the
// source is cached by a debrid service, TransferID is a magnet-equivalent
// identifier for peer-to-peer fetching.
type AddonResult struct {
	Name       string
	Title      string
	URL        string
	TransferID string
}

// Stream represents one parsed, rankable candidate source.
// A Stream is built once from a single addon result and never mutated.
type Stream struct {
	// Provider name (e.g., "nyaasi", "1337x")
	Provider string

	// Quality as found in the text (e.g., "1080p", "4K"); empty when unknown
	Quality string

	// Human-readable size as extracted (e.g., "1.2 GB"); empty when unknown
	SizeDisplay string

	// Canonical byte count; nil when the size could not be parsed
	SizeBytes *int64

	// Number of seeders; nil when unknown
	Seeders *int

	// Normalized video codec tokens, space-joined (e.g., "HEVC 10bit")
	VideoCodec string

	// Normalized audio codec plus channel layout (e.g., "DTS-HD MA 7.1")
	Audio string

	// HDR variants, joined with " / " (e.g., "DV / HDR")
	HDR string

	// Normalized release source label (e.g., "WEB-DL", "UHD BluRay")
	SourceType string

	// Deduplicated human-readable language names
	Languages []string

	// Whether the source is immediately playable via a direct URL
	IsCached bool

	// Direct playback URL (cached sources)
	URL string

	// Transfer identifier for peer-to-peer playback (uncached sources)
	TransferID string
}

// QualityRank maps the quality token to a sortable tier (higher is better).
// 4K and 2160p share a rank but the token itself is kept as found.
func (s Stream) QualityRank() int {
	switch strings.ToUpper(s.Quality) {
	case "2160P", "4K":
		return 4
	case "1080P":
		return 3
	case "720P":
		return 2
	case "480P", "360P":
		return 1
	default:
		return 0
	}
}

// Playable reports whether the stream carries any way to start playback.
// Unplayable streams are surfaced, not discarded; the consumer decides.
func (s Stream) Playable() bool {
	return s.URL != "" || s.TransferID != ""
}

// StreamHandle is the result of resolving a stream to a playable URL
type StreamHandle struct {
	// Local or remote HTTP URL to stream from
	PlaybackURL string

	// File name being streamed
	FileName string
}

// ProgressSnapshot is a point-in-time view of the active buffering session
type ProgressSnapshot struct {
	DownloadedBytes int64   `json:"downloaded_bytes"`
	TotalBytes      int64   `json:"total_bytes"`
	Percent         float64 `json:"percent"`
	DownloadSpeed   int64   `json:"download_speed"` // bytes/sec
	Peers           int     `json:"peers"`
	ReadyToPlay     bool    `json:"ready_to_play"`
}
