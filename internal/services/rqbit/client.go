package rqbit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/YannickHerrero/miru/internal/config"
	"github.com/YannickHerrero/miru/internal/controllers"
)

// addResponse is returned when a torrent is added
type addResponse struct {
	ID      int64  `json:"id"`
	Details struct {
		InfoHash string `json:"info_hash"`
	} `json:"details"`
}

// statsResponse is the stats/v1 payload. Live is null for initializing or
// paused torrents.
type statsResponse struct {
	TotalBytes    int64 `json:"total_bytes"`
	ProgressBytes int64 `json:"progress_bytes"`
	Finished      bool  `json:"finished"`
	Live          *struct {
		DownloadSpeed struct {
			Mbps float64 `json:"mbps"`
		} `json:"download_speed"`
		Snapshot struct {
			PeerStats struct {
				Live int `json:"live"`
			} `json:"peer_stats"`
		} `json:"snapshot"`
	} `json:"live"`
}

// listResponse is the payload enumerating all managed torrents
type listResponse struct {
	Torrents []struct {
		ID       int64  `json:"id"`
		InfoHash string `json:"info_hash"`
	} `json:"torrents"`
}

// detailsResponse is the torrent details payload with its file listing
type detailsResponse struct {
	Files []struct {
		Name     string `json:"name"`
		Length   int64  `json:"length"`
		Included bool   `json:"included"`
	} `json:"files"`
}

// Client drives a running rqbit daemon over its HTTP API
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a client for the rqbit daemon at the configured URL
func NewClient(cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	if cfg.EngineURL == "" {
		return nil, fmt.Errorf("engine URL is required")
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.EngineURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}, nil
}

// Add submits a magnet link or torrent URL to the daemon. Overwrite makes
// re-adding a known torrent return its existing id.
func (c *Client) Add(ctx context.Context, transferID string) (controllers.TransferHandle, error) {
	requestURL := c.baseURL + "/torrents?overwrite=true"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, strings.NewReader(transferID))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	var response addResponse
	if err := c.do(req, &response); err != nil {
		return "", fmt.Errorf("failed to add torrent: %w", err)
	}

	handle := controllers.TransferHandle(fmt.Sprintf("%d", response.ID))
	c.logger.WithFields(logrus.Fields{
		"handle":    handle,
		"info_hash": response.Details.InfoHash,
	}).Debug("Torrent added to engine")

	return handle, nil
}

// List returns the handles of every torrent the daemon currently manages
func (c *Client) List(ctx context.Context) ([]controllers.TransferHandle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/torrents", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var response listResponse
	if err := c.do(req, &response); err != nil {
		return nil, fmt.Errorf("failed to list torrents: %w", err)
	}

	handles := make([]controllers.TransferHandle, 0, len(response.Torrents))
	for _, t := range response.Torrents {
		handles = append(handles, controllers.TransferHandle(fmt.Sprintf("%d", t.ID)))
	}

	return handles, nil
}

// Stats reads a point-in-time stats snapshot for the torrent
func (c *Client) Stats(ctx context.Context, handle controllers.TransferHandle) (controllers.TransferStats, error) {
	requestURL := fmt.Sprintf("%s/torrents/%s/stats/v1", c.baseURL, handle)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return controllers.TransferStats{}, fmt.Errorf("failed to create request: %w", err)
	}

	var response statsResponse
	if err := c.do(req, &response); err != nil {
		return controllers.TransferStats{}, fmt.Errorf("failed to read stats: %w", err)
	}

	stats := controllers.TransferStats{
		TotalBytes:      response.TotalBytes,
		DownloadedBytes: response.ProgressBytes,
	}
	if response.Live != nil {
		stats.DownloadSpeed = int64(response.Live.DownloadSpeed.Mbps * 1024 * 1024)
		stats.Peers = response.Live.Snapshot.PeerStats.Live
	}

	return stats, nil
}

// ListFiles returns the torrent's file listing. Indexes are positions in the
// daemon's own file list, which the stream endpoint expects.
func (c *Client) ListFiles(ctx context.Context, handle controllers.TransferHandle) ([]controllers.TransferFile, error) {
	requestURL := fmt.Sprintf("%s/torrents/%s", c.baseURL, handle)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var response detailsResponse
	if err := c.do(req, &response); err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	files := make([]controllers.TransferFile, 0, len(response.Files))
	for i, f := range response.Files {
		if !f.Included {
			continue
		}
		files = append(files, controllers.TransferFile{
			Index: i,
			Name:  f.Name,
			Size:  f.Length,
		})
	}

	return files, nil
}

// Delete removes the torrent from the daemon. With purgeData the downloaded
// files are removed from disk as well, otherwise the daemon only forgets it.
func (c *Client) Delete(ctx context.Context, handle controllers.TransferHandle, purgeData bool) error {
	action := "forget"
	if purgeData {
		action = "delete"
	}
	requestURL := fmt.Sprintf("%s/torrents/%s/%s", c.baseURL, handle, action)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("failed to %s torrent: %w", action, err)
	}

	c.logger.WithFields(logrus.Fields{
		"handle": handle,
		"action": action,
	}).Debug("Torrent removed from engine")

	return nil
}

// PlaybackURL builds the daemon's HTTP streaming URL for one file
func (c *Client) PlaybackURL(handle controllers.TransferHandle, fileIndex int) string {
	return fmt.Sprintf("%s/torrents/%s/stream/%d", c.baseURL, handle, fileIndex)
}

// do executes the request and decodes the JSON response when result is
// non-nil
func (c *Client) do(req *http.Request, result interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("engine request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("engine returned status %d: %s", resp.StatusCode, string(body))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
