package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/YannickHerrero/miru/internal/models"
)

// HistoryHandler serves the watch history
type HistoryHandler struct {
	db     *models.Database
	logger *logrus.Logger
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(db *models.Database, logger *logrus.Logger) *HistoryHandler {
	return &HistoryHandler{
		db:     db,
		logger: logger,
	}
}

// ServeHTTP handles the history endpoint
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 200 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	items, err := h.db.GetRecentWatched(limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to read watch history")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}
