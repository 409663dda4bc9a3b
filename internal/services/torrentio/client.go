package torrentio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/YannickHerrero/miru/internal/config"
	"github.com/YannickHerrero/miru/internal/models"
)

const baseURL = "https://torrentio.strem.fun"

// streamResponse is the addon's stream list payload
type streamResponse struct {
	Streams []addonStream `json:"streams"`
}

// addonStream is one stream entry as the addon returns it. URL is set for
// debrid-resolved entries, InfoHash for raw torrents.
type addonStream struct {
	Name     string `json:"name"`
	Title    string `json:"title"`
	URL      string `json:"url,omitempty"`
	InfoHash string `json:"infoHash,omitempty"`
	FileIdx  int    `json:"fileIdx,omitempty"`
}

// Client queries the Torrentio addon for available streams
type Client struct {
	baseURL       string
	providers     []string
	realDebridKey string
	showUncached  bool
	httpClient    *http.Client
	logger        *logrus.Logger
}

// NewClient creates a new Torrentio client
func NewClient(cfg *config.Config, logger *logrus.Logger) *Client {
	return &Client{
		baseURL:       baseURL,
		providers:     cfg.TorrentioProviders,
		realDebridKey: cfg.RealDebridAPIKey,
		showUncached:  cfg.ShowUncached,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		logger:        logger,
	}
}

// SearchMovie fetches streams for a movie by IMDB ID
func (c *Client) SearchMovie(ctx context.Context, imdbID string) ([]models.AddonResult, error) {
	return c.fetchStreams(ctx, "movie", imdbID)
}

// SearchEpisode fetches streams for one episode of a series
func (c *Client) SearchEpisode(ctx context.Context, imdbID string, season, episode int) ([]models.AddonResult, error) {
	videoID := fmt.Sprintf("%s:%d:%d", imdbID, season, episode)
	return c.fetchStreams(ctx, "series", videoID)
}

// configString builds the addon configuration path segment. Screener and cam
// rips are always filtered out; the debrid key and uncached toggle only
// apply when a key is configured.
func (c *Client) configString() string {
	parts := []string{
		"providers=" + strings.Join(c.providers, ","),
		"sort=qualitysize",
		"qualityfilter=scr,cam",
	}

	if c.realDebridKey != "" {
		if !c.showUncached {
			parts = append(parts, "debridoptions=nodownloadlinks")
		}
		parts = append(parts, "realdebrid="+c.realDebridKey)
	}

	return strings.Join(parts, "|")
}

// fetchStreams performs the addon request and converts the payload into
// addon results
func (c *Client) fetchStreams(ctx context.Context, contentType, videoID string) ([]models.AddonResult, error) {
	requestURL := fmt.Sprintf("%s/%s/stream/%s/%s.json", c.baseURL, c.configString(), contentType, videoID)

	c.logger.WithFields(logrus.Fields{
		"content_type": contentType,
		"video_id":     videoID,
	}).Debug("Fetching streams from Torrentio")

	var response streamResponse
	operation := func() error {
		return c.getJSON(ctx, requestURL, &response)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("torrentio request failed: %w", err)
	}

	results := make([]models.AddonResult, 0, len(response.Streams))
	for _, s := range response.Streams {
		results = append(results, models.AddonResult{
			Name:       s.Name,
			Title:      s.Title,
			URL:        s.URL,
			TransferID: transferID(s),
		})
	}

	c.logger.WithField("count", len(results)).Debug("Torrentio search completed")

	return results, nil
}

// getJSON performs one GET and decodes the JSON body. Client errors other
// than 429 are permanent and not worth retrying.
func (c *Client) getJSON(ctx context.Context, requestURL string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("User-Agent", "miru/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("torrentio API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("torrentio API returned status %d: %s", resp.StatusCode, string(body))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return backoff.Permanent(err)
		}
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
	}

	return nil
}

// transferID builds a magnet link for entries that carry a raw info hash.
// Debrid-resolved entries have a direct URL instead and need no transfer.
func transferID(s addonStream) string {
	if s.InfoHash == "" {
		return ""
	}
	return fmt.Sprintf("magnet:?xt=urn:btih:%s", s.InfoHash)
}
