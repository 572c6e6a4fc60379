package snapshot

import "errors"

// ErrMalformedPayload means an import document could not be understood.
// Callers discard the payload and leave the board untouched.
var ErrMalformedPayload = errors.New("malformed import payload")
