// Package service wires the board, the intent queue and the dispatcher into
// the single control loop every surface talks to.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/recap/internal/adapters/mq/queue"
	"github.com/okian/recap/internal/adapters/mq/worker"
	"github.com/okian/recap/internal/adapters/render"
	"github.com/okian/recap/internal/adapters/snapshot"
	"github.com/okian/recap/internal/domain/board"
	"github.com/okian/recap/internal/domain/dedupe"
	"github.com/okian/recap/internal/domain/model"
	"github.com/okian/recap/pkg/logger"
	"github.com/okian/recap/pkg/metrics"
)

const stopTimeout = 5 * time.Second

// Reporting period used until configuration or an import replaces it.
const (
	defaultStartDate = "10/01/25"
	defaultEndDate   = "10/31/25"
)

// Service owns the board. Mutations only happen inside Apply, which runs on
// the dispatcher goroutine; the public methods enqueue an intent and wait
// for its outcome.
type Service struct {
	mu sync.RWMutex

	// Core components
	board      *board.Store
	hub        *render.Hub
	deduper    dedupe.Deduper
	queue      *queue.InMemoryQueue
	dispatcher *worker.Dispatcher

	// Configuration
	queueSize    int
	dedupeSize   int
	removalDelay time.Duration
	strict       bool
	seed         []model.Entry

	// Reporting period, replaced by imports. Guarded by mu.
	startDate string
	endDate   string

	// Exit-delay timers by entry id.
	timersMu sync.Mutex
	timers   map[string]*time.Timer

	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// New constructs a Service. The board is empty until Start seeds it.
func New(opts ...Option) *Service {
	s := &Service{
		queueSize:    1024,
		dedupeSize:   4096,
		removalDelay: 300 * time.Millisecond,
		seed:         model.DefaultSeed(),
		startDate:    defaultStartDate,
		endDate:      defaultEndDate,
		timers:       make(map[string]*time.Timer),
		hub:          render.NewHub(),
		logger:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.board = board.NewStore(
		board.WithRenderer(s.hub),
		board.WithLogger(s.logger.Named("board")),
		board.WithStrictIndices(s.strict),
	)
	return s
}

// Start seeds the board and starts the dispatcher.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.dispatcher = worker.NewDispatcher(s.queue, worker.HandlerFunc(s.Apply),
		worker.WithLogger(s.logger),
	)

	v := s.board.Initialize(ctx, s.seed)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	go s.dispatcher.Run(runCtx)

	s.started = true
	s.logger.Info(ctx, "leaderboard service started",
		logger.Int("entries", len(v.Rows)),
		logger.String("total", v.TotalDisplay),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Duration("removalDelay", s.removalDelay),
	)
	return nil
}

// Stop drains queued intents and stops the dispatcher.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	dispatcher, cancelRun := s.dispatcher, s.cancel
	s.mu.Unlock()

	ctx := context.Background()
	s.logger.Info(ctx, "stopping leaderboard service...")

	s.stopTimers()
	shutdownCtx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()
	// Queued intents may still take mu, so it is not held here.
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		s.logger.Error(ctx, "dispatcher shutdown failed", logger.Error(err))
	}
	cancelRun()

	s.logger.Info(ctx, "leaderboard service stopped")
}

// Add requests a new default entry.
func (s *Service) Add(ctx context.Context, intentID string) (model.Outcome, error) {
	return s.Submit(ctx, model.Intent{ID: intentID, Kind: model.IntentAdd})
}

// Delete requests removal of the targeted entry.
func (s *Service) Delete(ctx context.Context, intentID string, t model.Target) (model.Outcome, error) {
	return s.Submit(ctx, model.Intent{ID: intentID, Kind: model.IntentDelete, Target: t})
}

// Commit stores raw text into a field of the targeted entry.
func (s *Service) Commit(ctx context.Context, intentID string, t model.Target, f model.Field, raw string) (model.Outcome, error) {
	return s.Submit(ctx, model.Intent{ID: intentID, Kind: model.IntentCommit, Target: t, Field: f, RawText: raw})
}

// Load replaces the board from an import document. A malformed document is
// discarded: the outcome has Discarded set and no error is returned.
func (s *Service) Load(ctx context.Context, intentID string, payload []byte) (model.Outcome, error) {
	return s.Submit(ctx, model.Intent{ID: intentID, Kind: model.IntentLoad, Payload: payload})
}

// Submit enqueues an intent and waits for its outcome. A repeated intent ID
// is answered with the current view without being applied again. The ID is
// released when the intent is rejected, so a corrected retry applies.
func (s *Service) Submit(ctx context.Context, in model.Intent) (model.Outcome, error) { //nolint:gocritic // hugeParam
	s.mu.RLock()
	started, q, deduper := s.started, s.queue, s.deduper
	s.mu.RUnlock()
	if !started {
		return model.Outcome{View: s.board.View()}, ErrNotStarted
	}

	if in.ID != "" && deduper.SeenAndRecord(ctx, in.ID) {
		metrics.RecordIntent(string(in.Kind), "duplicate")
		s.logger.Debug(ctx, "duplicate intent, skipping", logger.String("intent_id", in.ID))
		return model.Outcome{View: s.board.View(), Duplicate: true}, nil
	}

	reply := make(chan model.Outcome, 1)
	in.Reply = reply
	if err := q.Enqueue(ctx, in); err != nil {
		if in.ID != "" {
			deduper.Unrecord(ctx, in.ID)
		}
		switch {
		case errors.Is(err, queue.ErrFull):
			metrics.RecordIntent(string(in.Kind), "backpressure")
			return model.Outcome{View: s.board.View()}, fmt.Errorf("%w: %w", ErrBackpressure, err)
		case errors.Is(err, queue.ErrClosed):
			return model.Outcome{View: s.board.View()}, fmt.Errorf("%w: %w", ErrNotStarted, err)
		default:
			return model.Outcome{View: s.board.View()}, err
		}
	}

	select {
	case out := <-reply:
		if out.Err != nil && in.ID != "" {
			// A rejected intent changed nothing; a retry under its key must apply.
			deduper.Unrecord(ctx, in.ID)
		}
		return out, out.Err
	case <-ctx.Done():
		// The intent is still applied; only the wait is abandoned.
		return model.Outcome{View: s.board.View()}, ctx.Err()
	}
}

// Apply mutates the board for one intent. It runs on the dispatcher goroutine.
func (s *Service) Apply(ctx context.Context, in model.Intent) model.Outcome { //nolint:gocritic // hugeParam
	switch in.Kind {
	case model.IntentAdd:
		e, v := s.board.AddEntry(ctx)
		return model.Outcome{View: v, Entry: e}

	case model.IntentDelete:
		return s.applyDelete(ctx, in.Target)

	case model.IntentCommit:
		e, v, err := s.board.EditField(ctx, in.Target, in.Field, in.RawText)
		return model.Outcome{View: v, Entry: e, Err: err}

	case model.IntentLoad:
		return s.applyLoad(ctx, in.Payload)

	case model.IntentRemovalDue:
		s.forgetTimer(in.Target.EntryID)
		e, v, err := s.board.DeleteEntry(ctx, in.Target)
		if err != nil {
			// The entry was replaced by an import while its delay ran.
			s.logger.Debug(ctx, "removal target gone", logger.String("entry_id", in.Target.EntryID))
		}
		return model.Outcome{View: v, Entry: e, Err: err}

	default:
		return model.Outcome{View: s.board.View(), Err: fmt.Errorf("%w: %q", ErrUnknownIntent, in.Kind)}
	}
}

func (s *Service) applyDelete(ctx context.Context, t model.Target) model.Outcome {
	if s.removalDelay == 0 {
		e, v, err := s.board.DeleteEntry(ctx, t)
		return model.Outcome{View: v, Entry: e, Err: err}
	}
	e, v, marked, err := s.board.MarkPendingRemoval(ctx, t)
	if err != nil {
		return model.Outcome{View: v, Err: err}
	}
	if marked {
		s.scheduleRemoval(e.ID)
	}
	return model.Outcome{View: v, Entry: e}
}

func (s *Service) applyLoad(ctx context.Context, payload []byte) model.Outcome {
	doc, err := snapshot.Decode(payload)
	if err != nil {
		metrics.RecordImportFailure()
		metrics.RecordErrorByComponent("snapshot", "malformed_payload")
		s.logger.Warn(ctx, "import payload discarded", logger.Int("bytes", len(payload)), logger.Error(err))
		return model.Outcome{View: s.board.View(), Discarded: true}
	}

	s.mu.Lock()
	if doc.StartDate != "" {
		s.startDate = doc.StartDate
	}
	if doc.EndDate != "" {
		s.endDate = doc.EndDate
	}
	s.mu.Unlock()

	if !doc.HasCappers {
		// Dates may have changed; let renderers redraw.
		s.hub.Broadcast()
		return model.Outcome{View: s.board.View()}
	}
	s.stopTimers()
	v := s.board.Initialize(ctx, doc.Cappers)
	s.logger.Info(ctx, "board imported", logger.Int("entries", len(v.Rows)), logger.String("total", v.TotalDisplay))
	return model.Outcome{View: v}
}

// scheduleRemoval queues a removal_due intent once the exit delay elapses.
// A full queue retries after another delay.
func (s *Service) scheduleRemoval(id string) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()

	s.timers[id] = time.AfterFunc(s.removalDelay, func() {
		s.mu.RLock()
		q := s.queue
		s.mu.RUnlock()

		err := q.Enqueue(context.Background(), model.Intent{Kind: model.IntentRemovalDue, Target: model.ByID(id)})
		switch {
		case err == nil:
		case errors.Is(err, queue.ErrFull):
			s.logger.Warn(context.Background(), "queue full, retrying removal", logger.String("entry_id", id))
			s.scheduleRemoval(id)
		default:
			s.forgetTimer(id)
		}
	})
}

func (s *Service) forgetTimer(id string) {
	s.timersMu.Lock()
	delete(s.timers, id)
	s.timersMu.Unlock()
}

func (s *Service) stopTimers() {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

// Export returns the current board as an indented JSON document.
func (s *Service) Export(_ context.Context) ([]byte, error) {
	start, end := s.Period()
	return snapshot.Encode(snapshot.FromView(s.board.View(), start, end))
}

// Period returns the reporting period.
func (s *Service) Period() (startDate, endDate string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startDate, s.endDate
}

// View returns the last published view.
func (s *Service) View() model.View {
	return s.board.View()
}

// Subscribe returns a channel pinged after every publish.
func (s *Service) Subscribe() chan struct{} { return s.hub.Subscribe() }

// Unsubscribe releases a channel from Subscribe.
func (s *Service) Unsubscribe(ch chan struct{}) { s.hub.Unsubscribe(ch) }

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := s.board.View()
	pending := 0
	for _, r := range v.Rows {
		if r.PendingRemoval {
			pending++
		}
	}
	stats := map[string]interface{}{
		"started":         s.started,
		"queueSize":       s.queueSize,
		"dedupeSize":      s.dedupeSize,
		"removalDelayMs":  s.removalDelay.Milliseconds(),
		"entries":         len(v.Rows),
		"pendingRemovals": pending,
		"total":           v.TotalDisplay,
		"version":         v.Version,
		"subscribers":     s.hub.Subscribers(),
	}
	if s.started {
		ctx := context.Background()
		stats["queueLength"] = s.queue.Len(ctx)
		stats["dedupeEntries"] = s.deduper.Size()
	}
	return stats
}
