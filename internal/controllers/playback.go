package controllers

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/YannickHerrero/miru/internal/models"
	"github.com/YannickHerrero/miru/internal/services/realdebrid"
	"github.com/YannickHerrero/miru/internal/stream"
)

// ErrNotPlayable is returned for streams with neither a direct URL nor a
// transfer id
var ErrNotPlayable = errors.New("stream has no playable source")

// LinkResolver converts restricted hoster links into direct download links
type LinkResolver interface {
	UnrestrictLink(ctx context.Context, link string) (*realdebrid.UnrestrictedLink, error)
}

// PlaybackController resolves addon results into ranked streams and plays
// the selected one, either directly or through the buffering pipeline
type PlaybackController struct {
	builder   *stream.Builder
	buffering *BufferingController
	resolver  LinkResolver // nil without a debrid account
	logger    *logrus.Logger
}

// NewPlaybackController creates a new playback controller. resolver may be
// nil when no debrid service is configured.
func NewPlaybackController(builder *stream.Builder, buffering *BufferingController, resolver LinkResolver, logger *logrus.Logger) *PlaybackController {
	return &PlaybackController{
		builder:   builder,
		buffering: buffering,
		resolver:  resolver,
		logger:    logger,
	}
}

// ResolveAndRank parses raw addon results and orders them for selection.
// Streams without a playable source stay in the output; callers decide
// whether to skip or flag them.
func (c *PlaybackController) ResolveAndRank(results []models.AddonResult) []models.Stream {
	streams := make([]models.Stream, 0, len(results))
	for _, result := range results {
		streams = append(streams, c.builder.Build(result))
	}

	c.logger.WithField("results", len(results)).Debug("Resolved addon results")

	return stream.Rank(streams)
}

// Play starts playback of the given stream. Direct URLs play immediately;
// raw torrents go through the buffering pipeline first.
func (c *PlaybackController) Play(ctx context.Context, s models.Stream) (models.StreamHandle, error) {
	switch {
	case s.URL != "":
		return c.playDirect(ctx, s)
	case s.TransferID != "":
		return c.buffering.Start(ctx, s.TransferID)
	default:
		return models.StreamHandle{}, ErrNotPlayable
	}
}

// Progress reports the buffering state of the active transfer, nil when no
// transfer is active
func (c *PlaybackController) Progress() *models.ProgressSnapshot {
	return c.buffering.Progress()
}

// Stop tears down the active transfer, if any
func (c *PlaybackController) Stop() {
	c.buffering.Stop()
}

// SweepOrphans deletes engine transfers that do not belong to the active
// session
func (c *PlaybackController) SweepOrphans(ctx context.Context, lister TransferLister) (int, error) {
	return c.buffering.SweepOrphans(ctx, lister)
}

// playDirect resolves a direct URL through the debrid service when one is
// configured. Unrestriction failures fall back to the raw URL, which most
// players can still open.
func (c *PlaybackController) playDirect(ctx context.Context, s models.Stream) (models.StreamHandle, error) {
	if c.resolver == nil {
		return models.StreamHandle{PlaybackURL: s.URL}, nil
	}

	unrestricted, err := c.resolver.UnrestrictLink(ctx, s.URL)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to unrestrict link, using raw URL")
		return models.StreamHandle{PlaybackURL: s.URL}, nil
	}

	return models.StreamHandle{
		PlaybackURL: unrestricted.Download,
		FileName:    unrestricted.Filename,
	}, nil
}
