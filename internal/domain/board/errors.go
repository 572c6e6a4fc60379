package board

import "errors"

// Sentinel kinds for board errors.
var (
	// ErrInvalidIndex means a positional target is outside the last published view.
	ErrInvalidIndex = errors.New("invalid index")
	// ErrNotFound means no entry carries the targeted identifier.
	ErrNotFound = errors.New("entry not found")
	// ErrPendingRemoval means the entry is waiting for its exit delay and is read-only.
	ErrPendingRemoval = errors.New("entry pending removal")
)
