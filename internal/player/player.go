// Package player launches an external media player on a stream URL.
package player

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/sirupsen/logrus"

	"github.com/YannickHerrero/miru/internal/config"
)

// Player launches the configured media player
type Player struct {
	command string
	args    []string
	logger  *logrus.Logger
}

// New creates a player from the configuration
func New(cfg *config.Config, logger *logrus.Logger) *Player {
	return &Player{
		command: cfg.PlayerCommand,
		args:    cfg.PlayerArgs,
		logger:  logger,
	}
}

// Available reports whether the player binary can be found in PATH
func (p *Player) Available() bool {
	_, err := exec.LookPath(p.command)
	return err == nil
}

// Play runs the player on the URL and blocks until it exits. The player
// inherits stdio so terminal players like mpv keep their controls.
func (p *Player) Play(ctx context.Context, url, title string) error {
	if _, err := exec.LookPath(p.command); err != nil {
		return fmt.Errorf("player %q not found in PATH: %w", p.command, err)
	}

	args := append([]string{}, p.args...)
	if title != "" && p.command == "mpv" {
		args = append(args, "--force-media-title="+title)
	}
	args = append(args, url)

	p.logger.WithFields(logrus.Fields{
		"player": p.command,
		"url":    url,
	}).Info("Launching player")

	cmd := exec.CommandContext(ctx, p.command, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("player exited with error: %w", err)
	}

	return nil
}
