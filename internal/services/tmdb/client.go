package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/YannickHerrero/miru/internal/config"
	"github.com/YannickHerrero/miru/internal/models"
)

const baseURL = "https://api.themoviedb.org/3"

// SearchResult is one entry from a multi search, movies and TV only
type SearchResult struct {
	ID           int              `json:"id"`
	MediaType    models.MediaType `json:"media_type"`
	Title        string           `json:"title,omitempty"`
	Name         string           `json:"name,omitempty"`
	ReleaseDate  string           `json:"release_date,omitempty"`
	FirstAirDate string           `json:"first_air_date,omitempty"`
	PosterPath   string           `json:"poster_path,omitempty"`
	Overview     string           `json:"overview,omitempty"`
}

// DisplayTitle returns the title for either media type
func (r SearchResult) DisplayTitle() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Name
}

// Year returns the release year, or empty when unknown
func (r SearchResult) Year() string {
	date := r.ReleaseDate
	if date == "" {
		date = r.FirstAirDate
	}
	if len(date) < 4 {
		return ""
	}
	return date[:4]
}

// Episode is one episode of a season
type Episode struct {
	EpisodeNumber int    `json:"episode_number"`
	Name          string `json:"name"`
	Overview      string `json:"overview"`
	AirDate       string `json:"air_date"`
}

type searchResponse struct {
	Results []SearchResult `json:"results"`
}

type externalIDsResponse struct {
	IMDBID string `json:"imdb_id"`
}

type seasonResponse struct {
	Episodes []Episode `json:"episodes"`
}

// Client handles communication with the TMDB API. Responses are cached
// in-process since titles and episode lists rarely change.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cache      *cache.Cache
	logger     *logrus.Logger
}

// NewClient creates a new TMDB client
func NewClient(cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	if cfg.TMDBAPIKey == "" {
		return nil, fmt.Errorf("TMDB API key is required")
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.TMDBAPIKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cache:      cache.New(30*time.Minute, 10*time.Minute),
		logger:     logger,
	}, nil
}

// SearchMulti searches movies and TV shows by free text. Person results and
// entries without a usable media type are dropped.
func (c *Client) SearchMulti(ctx context.Context, query string) ([]SearchResult, error) {
	cacheKey := "search:" + query
	if cached, found := c.cache.Get(cacheKey); found {
		return cached.([]SearchResult), nil
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("include_adult", "false")

	var response searchResponse
	if err := c.getJSON(ctx, "/search/multi", params, &response); err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]SearchResult, 0, len(response.Results))
	for _, r := range response.Results {
		if r.MediaType != models.MediaTypeMovie && r.MediaType != models.MediaTypeTV {
			continue
		}
		results = append(results, r)
	}

	c.logger.WithFields(logrus.Fields{
		"query": query,
		"count": len(results),
	}).Debug("TMDB search completed")

	c.cache.Set(cacheKey, results, cache.DefaultExpiration)
	return results, nil
}

// ExternalIDs returns the IMDB ID for a movie or TV show
func (c *Client) ExternalIDs(ctx context.Context, mediaType models.MediaType, tmdbID int) (string, error) {
	cacheKey := fmt.Sprintf("imdb:%s:%d", mediaType, tmdbID)
	if cached, found := c.cache.Get(cacheKey); found {
		return cached.(string), nil
	}

	path := fmt.Sprintf("/%s/%d/external_ids", endpointType(mediaType), tmdbID)

	var response externalIDsResponse
	if err := c.getJSON(ctx, path, nil, &response); err != nil {
		return "", fmt.Errorf("external IDs lookup failed: %w", err)
	}
	if response.IMDBID == "" {
		return "", fmt.Errorf("no IMDB ID for %s %d", mediaType, tmdbID)
	}

	c.cache.Set(cacheKey, response.IMDBID, cache.NoExpiration)
	return response.IMDBID, nil
}

// SeasonDetails returns the episode list for one season of a TV show
func (c *Client) SeasonDetails(ctx context.Context, tvID, season int) ([]Episode, error) {
	cacheKey := fmt.Sprintf("season:%d:%d", tvID, season)
	if cached, found := c.cache.Get(cacheKey); found {
		return cached.([]Episode), nil
	}

	path := fmt.Sprintf("/tv/%d/season/%d", tvID, season)

	var response seasonResponse
	if err := c.getJSON(ctx, path, nil, &response); err != nil {
		return nil, fmt.Errorf("season details failed: %w", err)
	}

	c.cache.Set(cacheKey, response.Episodes, cache.DefaultExpiration)
	return response.Episodes, nil
}

// PosterURL builds the full image URL for a poster path
func PosterURL(posterPath string) string {
	if posterPath == "" {
		return ""
	}
	return "https://image.tmdb.org/t/p/w500" + posterPath
}

// getJSON performs one authenticated GET and decodes the JSON body
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, result interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)

	requestURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("TMDB request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("TMDB API returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// endpointType maps a media type to its TMDB path segment
func endpointType(mediaType models.MediaType) string {
	if mediaType == models.MediaTypeTV {
		return "tv"
	}
	return "movie"
}
