package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	service "github.com/okian/recap/internal/app"
	"github.com/okian/recap/internal/domain/board"
	"github.com/okian/recap/internal/domain/model"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("backpressure")
	ErrTooLarge     = errors.New("payload too large")
)

// Error carries the operation that failed next to the error kind and cause.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Kind != nil {
		b.WriteString(": ")
		b.WriteString(e.Kind.Error())
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// NewKind returns an error of the given kind for op.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// WrapKind tags err with op and kind.
func WrapKind(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Wrap tags err with op.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// statusOf maps an error to its HTTP status and response code.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, board.ErrInvalidIndex):
		return http.StatusNotFound, "invalid_index"
	case errors.Is(err, board.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, board.ErrPendingRemoval):
		return http.StatusConflict, "pending_removal"
	case errors.Is(err, ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "too_large"
	case errors.Is(err, model.ErrUnknownField), errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrBackpressure), errors.Is(err, ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeFailure responds with the status mapped from err.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := statusOf(err)
	writeError(w, status, code, err)
}
