package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted    = errors.New("service not started")
	ErrBackpressure  = errors.New("intent queue full")
	ErrUnknownIntent = errors.New("unknown intent kind")
)
