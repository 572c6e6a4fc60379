// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/okian/recap/internal/domain/model"
)

// LeaderboardDependencies defines the read side of the board.
type LeaderboardDependencies interface {
	View() model.View
	Period() (startDate, endDate string)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps LeaderboardDependencies
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps}
}

// HandleGetLeaderboard handles GET /api/leaderboard requests.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, _ *http.Request) {
	start, end := h.deps.Period()
	writeJSON(w, http.StatusOK, NewViewResponse(h.deps.View(), start, end))
}
