package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/okian/recap/internal/domain/model"
	"github.com/okian/recap/pkg/logger"
)

// ExportFilename is suggested to clients downloading an export.
const ExportFilename = "recap.json"

// TransferDependencies defines import and export.
type TransferDependencies interface {
	Load(ctx context.Context, intentID string, payload []byte) (model.Outcome, error)
	Export(ctx context.Context) ([]byte, error)
}

// TransferHandler handles import and export requests.
type TransferHandler struct {
	deps     TransferDependencies
	maxBytes int64
	log      logger.Logger
}

// NewTransferHandler creates a new transfer handler.
func NewTransferHandler(deps TransferDependencies, maxBytes int64, log logger.Logger) *TransferHandler {
	return &TransferHandler{deps: deps, maxBytes: maxBytes, log: log}
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// HandleImport handles POST /api/import requests. A document that cannot be
// read as a board is dropped on the server side; the caller still gets 202.
func (h *TransferHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	const op = "api.import"
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeFailure(w, NewKind(op, ErrTooLarge))
			return
		}
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	out, err := h.deps.Load(r.Context(), r.Header.Get(IdempotencyHeader), payload)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	if out.Discarded {
		h.log.Debug(r.Context(), "import discarded", logger.Int("bytes", len(payload)))
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Duplicate: out.Duplicate})
}

// HandleExport handles GET /api/export requests.
func (h *TransferHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	const op = "api.export"
	doc, err := h.deps.Export(r.Context())
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+ExportFilename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}
