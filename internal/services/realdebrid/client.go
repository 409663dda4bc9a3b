package realdebrid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/YannickHerrero/miru/internal/config"
)

const baseURL = "https://api.real-debrid.com/rest/1.0"

// ErrInvalidKey is returned when the API rejects the configured key
var ErrInvalidKey = errors.New("real-debrid API key is invalid or expired")

// User is the account info returned by the user endpoint
type User struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Premium  int    `json:"premium"` // seconds of premium left
	Type     string `json:"type"`
}

// UnrestrictedLink is the payload returned when unrestricting a hoster link
type UnrestrictedLink struct {
	Filename   string `json:"filename"`
	Filesize   int64  `json:"filesize"`
	Download   string `json:"download"`
	Streamable int    `json:"streamable"`
}

// Client handles communication with the Real-Debrid API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a new Real-Debrid client
func NewClient(cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	if cfg.RealDebridAPIKey == "" {
		return nil, fmt.Errorf("real-debrid API key is required")
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.RealDebridAPIKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}, nil
}

// ValidateKey checks the configured key against the user endpoint
func (c *Client) ValidateKey(ctx context.Context) (*User, error) {
	var user User
	if err := c.doRequest(ctx, http.MethodGet, "/user", nil, &user); err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"username":     user.Username,
		"premium_days": user.Premium / 86400,
	}).Debug("Real-Debrid key validated")

	return &user, nil
}

// UnrestrictLink converts a hoster link into a direct download link
func (c *Client) UnrestrictLink(ctx context.Context, link string) (*UnrestrictedLink, error) {
	form := url.Values{}
	form.Set("link", link)

	var unrestricted UnrestrictedLink
	if err := c.doRequest(ctx, http.MethodPost, "/unrestrict/link", form, &unrestricted); err != nil {
		return nil, fmt.Errorf("failed to unrestrict link: %w", err)
	}

	return &unrestricted, nil
}

// doRequest performs an authenticated request to the Real-Debrid API
func (c *Client) doRequest(ctx context.Context, method, path string, form url.Values, result interface{}) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("real-debrid request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrInvalidKey
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("real-debrid API returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
