// Package web is the browser renderer of the board: a server-rendered page
// kept current over datastar SSE, with actions posted back as intents.
package web

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/okian/recap/internal/domain/model"
	"github.com/okian/recap/pkg/logger"
	"github.com/okian/recap/pkg/metrics"
)

const pageTitle = "OGTT Weekly Recap"

// Dependencies is what the web renderer needs from the service.
type Dependencies interface {
	Add(ctx context.Context, intentID string) (model.Outcome, error)
	Delete(ctx context.Context, intentID string, t model.Target) (model.Outcome, error)
	Commit(ctx context.Context, intentID string, t model.Target, f model.Field, raw string) (model.Outcome, error)

	View() model.View
	Period() (startDate, endDate string)
	Subscribe() chan struct{}
	Unsubscribe(ch chan struct{})
}

// CommitSignals carries the edited text of the input that changed.
type CommitSignals struct {
	Draft string `json:"draft"`
}

// Handlers provides HTTP handlers for the board page.
type Handlers struct {
	deps Dependencies
	log  logger.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps Dependencies, log logger.Logger) *Handlers {
	if log == nil {
		log = logger.Nop()
	}
	return &Handlers{deps: deps, log: log}
}

// SetupRoutes registers the board page, its update stream and its actions.
func SetupRoutes(router chi.Router, deps Dependencies, log logger.Logger) {
	h := NewHandlers(deps, log)

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/web", http.StatusFound)
	})
	router.Route("/web", func(r chi.Router) {
		r.Get("/", h.BoardPage)
		r.Get("/updates", h.BoardUpdates)
		r.Post("/add", h.AddSSE)
		r.Post("/rows/{id}/{field}", h.CommitSSE)
		r.Delete("/rows/{id}", h.DeleteSSE)
	})
}

// BoardPage renders the page with the current board.
func (h *Handlers) BoardPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := Page(pageTitle, h.boardData()).Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// BoardUpdates is the long-lived SSE endpoint. It only pushes on change;
// the initial state came with the page.
func (h *Handlers) BoardUpdates(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	updates := h.deps.Subscribe()
	defer h.deps.Unsubscribe(updates)
	metrics.StreamOpened()
	defer metrics.StreamClosed()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-updates:
			if !ok {
				return
			}
			if err := sse.PatchElementTempl(Board(h.boardData())); err != nil {
				h.log.Debug(ctx, "board stream closed", logger.Error(err))
				return
			}
		}
	}
}

// AddSSE appends a default entry and focuses its name input.
func (h *Handlers) AddSSE(w http.ResponseWriter, r *http.Request) {
	out, err := h.deps.Add(r.Context(), "")
	sse := datastar.NewSSE(w, r)
	if err != nil {
		_ = sse.ConsoleError(err)
		return
	}
	if err := sse.PatchElementTempl(Board(h.boardDataFor(out.View))); err != nil {
		return
	}
	_ = sse.ExecuteScript(focusScript(out.Entry.ID))
}

// CommitSSE stores the draft signal into one field of an entry.
func (h *Handlers) CommitSSE(w http.ResponseWriter, r *http.Request) {
	// Signals are read before the SSE writer takes over the response.
	var signals CommitSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		sse := datastar.NewSSE(w, r)
		_ = sse.ConsoleError(err)
		return
	}
	field, err := model.ParseField(chi.URLParam(r, "field"))
	if err != nil {
		sse := datastar.NewSSE(w, r)
		_ = sse.ConsoleError(err)
		return
	}

	out, err := h.deps.Commit(r.Context(), "", model.ByID(chi.URLParam(r, "id")), field, signals.Draft)
	sse := datastar.NewSSE(w, r)
	if err != nil {
		h.log.Debug(r.Context(), "web commit rejected", logger.Error(err))
		_ = sse.ConsoleError(err)
	}
	// Redraw either way so the input shows the canonical value.
	_ = sse.PatchElementTempl(Board(h.boardDataFor(out.View)))
}

// DeleteSSE starts the removal of an entry.
func (h *Handlers) DeleteSSE(w http.ResponseWriter, r *http.Request) {
	out, err := h.deps.Delete(r.Context(), "", model.ByID(chi.URLParam(r, "id")))
	sse := datastar.NewSSE(w, r)
	if err != nil {
		_ = sse.ConsoleError(err)
		return
	}
	_ = sse.PatchElementTempl(Board(h.boardDataFor(out.View)))
}

func (h *Handlers) boardData() BoardData {
	return h.boardDataFor(h.deps.View())
}

func (h *Handlers) boardDataFor(v model.View) BoardData { //nolint:gocritic // hugeParam
	start, end := h.deps.Period()
	return BoardData{View: v, StartDate: start, EndDate: end}
}
