package board

import (
	"github.com/okian/recap/pkg/logger"
)

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithRenderer sets the collaborator that receives every published view.
func WithRenderer(r Renderer) Option {
	return func(s *Store) {
		if r != nil {
			s.renderer = r
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithIDGenerator replaces the identifier source for new entries.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithStrictIndices makes an out-of-range positional target panic.
// Positional targets always come from the last publish, so a miss is a
// renderer synchronisation bug.
func WithStrictIndices(strict bool) Option {
	return func(s *Store) {
		s.strict = strict
	}
}
