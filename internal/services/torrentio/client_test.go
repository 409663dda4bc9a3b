package torrentio

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestConfigString(t *testing.T) {
	c := &Client{providers: []string{"yts", "nyaasi"}}
	got := c.configString()
	want := "providers=yts,nyaasi|sort=qualitysize|qualityfilter=scr,cam"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	c.realDebridKey = "SECRET"
	got = c.configString()
	want = "providers=yts,nyaasi|sort=qualitysize|qualityfilter=scr,cam|debridoptions=nodownloadlinks|realdebrid=SECRET"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	// Uncached streams enabled: the nodownloadlinks option is dropped
	c.showUncached = true
	got = c.configString()
	want = "providers=yts,nyaasi|sort=qualitysize|qualityfilter=scr,cam|realdebrid=SECRET"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestSearchEpisode(t *testing.T) {
	var requestedPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"streams": [
				{
					"name": "[RD+] Torrentio\n1080p",
					"title": "Show S01E05 1080p WEB x264\n👤 150 💾 1.2 GB",
					"url": "https://example.com/resolved/abc"
				},
				{
					"name": "Torrentio\n720p",
					"title": "Show S01E05 720p HDTV\n👤 40 💾 600 MB",
					"infoHash": "deadbeefdeadbeefdeadbeefdeadbeefdeadbeef",
					"fileIdx": 2
				}
			]
		}`)
	}))
	defer server.Close()

	c := &Client{
		baseURL:    server.URL,
		providers:  []string{"nyaasi"},
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     testLogger(),
	}

	results, err := c.SearchEpisode(context.Background(), "tt1234567", 1, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasSuffix(requestedPath, "/stream/series/tt1234567:1:5.json") {
		t.Errorf("unexpected request path %q", requestedPath)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	// Debrid-resolved entry keeps its URL and needs no transfer
	if results[0].URL != "https://example.com/resolved/abc" {
		t.Errorf("unexpected URL %q", results[0].URL)
	}
	if results[0].TransferID != "" {
		t.Errorf("resolved entry should have no transfer ID, got %q", results[0].TransferID)
	}

	// Raw torrent entry becomes a magnet link
	want := "magnet:?xt=urn:btih:deadbeefdeadbeefdeadbeefdeadbeefdeadbeef"
	if results[1].TransferID != want {
		t.Errorf("expected %q, got %q", want, results[1].TransferID)
	}
	if results[1].URL != "" {
		t.Errorf("raw entry should have no URL, got %q", results[1].URL)
	}
}

func TestSearchMoviePath(t *testing.T) {
	var requestedPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedPath = r.URL.Path
		io.WriteString(w, `{"streams": []}`)
	}))
	defer server.Close()

	c := &Client{
		baseURL:    server.URL,
		providers:  []string{"yts"},
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     testLogger(),
	}

	results, err := c.SearchMovie(context.Background(), "tt0133093")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
	if !strings.HasSuffix(requestedPath, "/stream/movie/tt0133093.json") {
		t.Errorf("unexpected request path %q", requestedPath)
	}
}

func TestSearchNotFoundIsPermanent(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	c := &Client{
		baseURL:    server.URL,
		providers:  []string{"yts"},
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     testLogger(),
	}

	if _, err := c.SearchMovie(context.Background(), "tt0000000"); err == nil {
		t.Fatal("expected an error for a 404 response")
	}
	if calls != 1 {
		t.Errorf("a 404 should not be retried, got %d calls", calls)
	}
}
