package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/YannickHerrero/miru/internal/classify"
	"github.com/YannickHerrero/miru/internal/config"
	"github.com/YannickHerrero/miru/internal/controllers"
	"github.com/YannickHerrero/miru/internal/models"
	"github.com/YannickHerrero/miru/internal/player"
	"github.com/YannickHerrero/miru/internal/services/realdebrid"
	"github.com/YannickHerrero/miru/internal/services/rqbit"
	"github.com/YannickHerrero/miru/internal/services/tmdb"
	"github.com/YannickHerrero/miru/internal/services/torrentio"
	"github.com/YannickHerrero/miru/internal/stream"
	"github.com/YannickHerrero/miru/internal/utils"
)

// app holds the wired application components shared by all commands
type app struct {
	cfg       *config.Config
	logger    *logrus.Logger
	db        *models.Database
	tmdb      *tmdb.Client
	torrentio *torrentio.Client
	engine    *rqbit.Client
	playback  *controllers.PlaybackController
	player    *player.Player
}

// newApp loads configuration and wires all services and controllers
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := utils.NewLogger(cfg.LogLevel)

	db, err := models.NewDatabase(cfg.HistoryFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	tmdbClient, err := tmdb.NewClient(cfg, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize TMDB client: %w", err)
	}

	engine, err := rqbit.NewClient(cfg, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize transfer engine client: %w", err)
	}

	var resolver controllers.LinkResolver
	if cfg.HasRealDebrid() {
		debrid, err := realdebrid.NewClient(cfg, logger)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize Real-Debrid client: %w", err)
		}
		if _, err := debrid.ValidateKey(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("real-debrid key validation failed: %w", err)
		}
		logger.Info("Real-Debrid key validated")
		resolver = debrid
	}

	buffering := controllers.NewBufferingController(engine, logger)
	builder := stream.NewBuilder(classify.New())
	playback := controllers.NewPlaybackController(builder, buffering, resolver, logger)

	return &app{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		tmdb:      tmdbClient,
		torrentio: torrentio.NewClient(cfg, logger),
		engine:    engine,
		playback:  playback,
		player:    player.New(cfg, logger),
	}, nil
}

// close releases the application's resources
func (a *app) close() {
	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Warn("Failed to close database")
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "miru",
		Short:         "Search and stream movies and TV shows from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newSearchCommand())
	root.AddCommand(newPlayCommand())
	root.AddCommand(newHistoryCommand())
	root.AddCommand(newServeCommand())

	return root
}
