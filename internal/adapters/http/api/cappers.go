package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/okian/recap/internal/domain/model"
	"github.com/okian/recap/pkg/logger"
)

// CappersDependencies defines the mutations reachable from the cappers routes.
type CappersDependencies interface {
	Add(ctx context.Context, intentID string) (model.Outcome, error)
	Delete(ctx context.Context, intentID string, t model.Target) (model.Outcome, error)
	Commit(ctx context.Context, intentID string, t model.Target, f model.Field, raw string) (model.Outcome, error)
	Period() (startDate, endDate string)
}

// CappersHandler turns requests into add, delete and commit intents.
type CappersHandler struct {
	deps CappersDependencies
	log  logger.Logger
}

// NewCappersHandler creates a new cappers handler.
func NewCappersHandler(deps CappersDependencies, log logger.Logger) *CappersHandler {
	return &CappersHandler{deps: deps, log: log}
}

// HandleAdd handles POST /api/cappers requests.
func (h *CappersHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	const op = "api.add_capper"
	out, err := h.deps.Add(r.Context(), r.Header.Get(IdempotencyHeader))
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	status := http.StatusCreated
	if out.Duplicate {
		status = http.StatusOK
	}
	h.respond(w, status, out)
}

// HandleCommitByID handles PATCH /api/cappers/{id} requests.
func (h *CappersHandler) HandleCommitByID(w http.ResponseWriter, r *http.Request) {
	h.commit(w, r, "api.commit_by_id", model.ByID(chi.URLParam(r, "id")))
}

// HandleCommitAt handles PATCH /api/rows/{index} requests.
func (h *CappersHandler) HandleCommitAt(w http.ResponseWriter, r *http.Request) {
	const op = "api.commit_at"
	t, err := indexTarget(r)
	if err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	h.commit(w, r, op, t)
}

// HandleDeleteByID handles DELETE /api/cappers/{id} requests.
func (h *CappersHandler) HandleDeleteByID(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, "api.delete_by_id", model.ByID(chi.URLParam(r, "id")))
}

// HandleDeleteAt handles DELETE /api/rows/{index} requests.
func (h *CappersHandler) HandleDeleteAt(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_at"
	t, err := indexTarget(r)
	if err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	h.delete(w, r, op, t)
}

func (h *CappersHandler) commit(w http.ResponseWriter, r *http.Request, op string, t model.Target) {
	var req CommitRequest
	if err := decodeBody(r, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	field, err := model.ParseField(req.Field)
	if err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	out, err := h.deps.Commit(r.Context(), r.Header.Get(IdempotencyHeader), t, field, *req.Value)
	if err != nil {
		h.log.Debug(r.Context(), "commit rejected", logger.String("target", t.String()), logger.Error(err))
		writeFailure(w, Wrap(op, err))
		return
	}
	h.respond(w, http.StatusOK, out)
}

func (h *CappersHandler) delete(w http.ResponseWriter, r *http.Request, op string, t model.Target) {
	out, err := h.deps.Delete(r.Context(), r.Header.Get(IdempotencyHeader), t)
	if err != nil {
		h.log.Debug(r.Context(), "delete rejected", logger.String("target", t.String()), logger.Error(err))
		writeFailure(w, Wrap(op, err))
		return
	}
	h.respond(w, http.StatusAccepted, out)
}

func (h *CappersHandler) respond(w http.ResponseWriter, status int, out model.Outcome) { //nolint:gocritic // hugeParam
	start, end := h.deps.Period()
	resp := MutationResponse{
		Status:    "applied",
		Duplicate: out.Duplicate,
		Entry:     newEntryResponse(out.Entry),
		View:      NewViewResponse(out.View, start, end),
	}
	if out.Duplicate {
		resp.Status = "duplicate"
	}
	writeJSON(w, status, resp)
}

func indexTarget(r *http.Request) (model.Target, error) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		return model.Target{}, err
	}
	return model.AtIndex(i), nil
}
