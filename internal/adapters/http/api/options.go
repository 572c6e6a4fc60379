package api

import "github.com/okian/recap/pkg/logger"

const defaultMaxImportBytes int64 = 1 << 20

type options struct {
	maxImportBytes int64
	logger         logger.Logger
}

// Option configures the API server.
type Option func(*options)

// WithMaxImportBytes caps the size of an import document.
func WithMaxImportBytes(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxImportBytes = n
		}
	}
}

// WithLogger sets the logger used by mutating handlers.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
