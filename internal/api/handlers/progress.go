package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/YannickHerrero/miru/internal/controllers"
)

// ProgressHandler exposes the active transfer's buffering state
type ProgressHandler struct {
	playback *controllers.PlaybackController
	logger   *logrus.Logger
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(playback *controllers.PlaybackController, logger *logrus.Logger) *ProgressHandler {
	return &ProgressHandler{
		playback: playback,
		logger:   logger,
	}
}

// ProgressResponse wraps the snapshot so an idle engine still returns a
// well-formed body
type ProgressResponse struct {
	Active   bool        `json:"active"`
	Progress interface{} `json:"progress,omitempty"`
}

// ServeHTTP handles the progress endpoint
func (h *ProgressHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := ProgressResponse{}
	if snapshot := h.playback.Progress(); snapshot != nil {
		response.Active = true
		response.Progress = snapshot
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// StopHandler stops the active transfer
type StopHandler struct {
	playback *controllers.PlaybackController
	logger   *logrus.Logger
}

// NewStopHandler creates a new stop handler
func NewStopHandler(playback *controllers.PlaybackController, logger *logrus.Logger) *StopHandler {
	return &StopHandler{
		playback: playback,
		logger:   logger,
	}
}

// ServeHTTP handles the stop endpoint
func (h *StopHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.playback.Stop()
	h.logger.Info("Active transfer stopped via API")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "stopped"})
}
