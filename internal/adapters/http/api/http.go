// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/recap/internal/domain/model"
	"github.com/okian/recap/pkg/logger"
)

// IdempotencyHeader carries the intent ID of a mutating request.
const IdempotencyHeader = "Idempotency-Key"

// Dependencies required by HTTP handlers. Mutations go through the intent
// loop and block until the outcome is known.
type Dependencies interface {
	Add(ctx context.Context, intentID string) (model.Outcome, error)
	Delete(ctx context.Context, intentID string, t model.Target) (model.Outcome, error)
	Commit(ctx context.Context, intentID string, t model.Target, f model.Field, raw string) (model.Outcome, error)
	Load(ctx context.Context, intentID string, payload []byte) (model.Outcome, error)
	Export(ctx context.Context) ([]byte, error)

	View() model.View
	Period() (startDate, endDate string)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	leaderboardHandler *LeaderboardHandler
	cappersHandler     *CappersHandler
	transferHandler    *TransferHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	o := options{maxImportBytes: defaultMaxImportBytes, logger: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		leaderboardHandler: NewLeaderboardHandler(deps),
		cappersHandler:     NewCappersHandler(deps, o.logger),
		transferHandler:    NewTransferHandler(deps, o.maxImportBytes, o.logger),
	}
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(MetricsMiddleware)

		r.Get("/healthz", s.healthHandler.HandleHealth)
		r.Get("/metrics", s.healthHandler.HandleMetrics)
		r.Get("/stats", s.statsHandler.HandleStats)

		r.Route("/api", func(r chi.Router) {
			r.Get("/leaderboard", s.leaderboardHandler.HandleGetLeaderboard)

			r.Post("/cappers", s.cappersHandler.HandleAdd)
			r.Patch("/cappers/{id}", s.cappersHandler.HandleCommitByID)
			r.Delete("/cappers/{id}", s.cappersHandler.HandleDeleteByID)
			r.Patch("/rows/{index}", s.cappersHandler.HandleCommitAt)
			r.Delete("/rows/{index}", s.cappersHandler.HandleDeleteAt)

			r.Post("/import", s.transferHandler.HandleImport)
			r.Get("/export", s.transferHandler.HandleExport)
		})
	})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
