package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// TMDB (required for search)
	TMDBAPIKey string

	// Real-Debrid (optional - without it streams are fetched over P2P)
	RealDebridAPIKey string

	// Torrentio
	TorrentioProviders []string
	ShowUncached       bool

	// Transfer engine (rqbit daemon)
	EngineURL string

	// Player
	PlayerCommand string
	PlayerArgs    []string

	// Server (serve mode)
	ServerPort string

	// History
	HistoryRetentionDays int

	// Paths
	HistoryFile string // $CONFIG_DIR/history.db

	// Logging
	LogLevel string
}

// HasRealDebrid reports whether a Real-Debrid API key is configured
func (c *Config) HasRealDebrid() bool {
	return c.RealDebridAPIKey != ""
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Setup viper FIRST to load .env file
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = viper.ReadInConfig()

	// Set defaults
	viper.SetDefault("TORRENTIO_PROVIDERS", "yts,eztv,rarbg,1337x,thepiratebay,kickasstorrents,torrentgalaxy,nyaasi")
	viper.SetDefault("SHOW_UNCACHED", false)
	viper.SetDefault("ENGINE_URL", "http://127.0.0.1:3131")
	viper.SetDefault("PLAYER_COMMAND", "mpv")
	viper.SetDefault("PLAYER_ARGS", "--fullscreen")
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("HISTORY_RETENTION_DAYS", 90)
	viper.SetDefault("LOG_LEVEL", "info")

	// NOW read CONFIG_DIR from viper (which has loaded .env file)
	configDir := viper.GetString("CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "miru")
	} else {
		// Convert relative path to absolute path
		absPath, err := filepath.Abs(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for CONFIG_DIR: %w", err)
		}
		configDir = absPath
	}

	// Create config directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	config := &Config{
		// TMDB
		TMDBAPIKey: viper.GetString("TMDB_API_KEY"),

		// Real-Debrid
		RealDebridAPIKey: viper.GetString("RD_API_KEY"),

		// Torrentio
		TorrentioProviders: splitList(viper.GetString("TORRENTIO_PROVIDERS")),
		ShowUncached:       viper.GetBool("SHOW_UNCACHED"),

		// Transfer engine
		EngineURL: strings.TrimRight(viper.GetString("ENGINE_URL"), "/"),

		// Player
		PlayerCommand: viper.GetString("PLAYER_COMMAND"),
		PlayerArgs:    splitList(viper.GetString("PLAYER_ARGS")),

		// Server
		ServerPort: viper.GetString("SERVER_PORT"),

		// History
		HistoryRetentionDays: viper.GetInt("HISTORY_RETENTION_DAYS"),

		// Paths
		HistoryFile: filepath.Join(configDir, "history.db"),

		// Logging
		LogLevel: viper.GetString("LOG_LEVEL"),
	}

	// Validate required fields
	if config.TMDBAPIKey == "" {
		return nil, fmt.Errorf("TMDB_API_KEY is required")
	}
	if len(config.TorrentioProviders) == 0 {
		return nil, fmt.Errorf("TORRENTIO_PROVIDERS must list at least one provider")
	}

	return config, nil
}

// splitList splits a comma-separated value into trimmed, non-empty entries
func splitList(value string) []string {
	var entries []string
	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		if entry != "" {
			entries = append(entries, entry)
		}
	}
	return entries
}
