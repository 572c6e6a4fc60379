package service

import (
	"time"

	"github.com/okian/recap/internal/domain/model"
	"github.com/okian/recap/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithQueueSize sets the maximum number of queued intents.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many intent IDs are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithRemovalDelay sets the exit delay between a delete and the removal.
// Zero removes immediately.
func WithRemovalDelay(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.removalDelay = d
		}
	}
}

// WithSeed sets the startup roster.
func WithSeed(entries []model.Entry) Option {
	return func(s *Service) {
		if entries != nil {
			s.seed = entries
		}
	}
}

// WithPeriod sets the reporting period shown with the board.
func WithPeriod(startDate, endDate string) Option {
	return func(s *Service) {
		s.startDate = startDate
		s.endDate = endDate
	}
}

// WithStrictIndices makes out-of-range positional intents an assertion failure.
func WithStrictIndices(strict bool) Option {
	return func(s *Service) {
		s.strict = strict
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
