package worker

import "errors"

// ErrHandlerPanic wraps a value recovered from a panicking handler.
var ErrHandlerPanic = errors.New("intent handler panicked")
