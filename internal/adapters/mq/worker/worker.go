// Package worker runs the single control loop that applies intents one at a
// time, in arrival order.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/recap/internal/domain/model"
	"github.com/okian/recap/pkg/logger"
	"github.com/okian/recap/pkg/metrics"
)

// Handler applies one intent to completion.
type Handler interface {
	Apply(ctx context.Context, in model.Intent) model.Outcome
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, in model.Intent) model.Outcome

// Apply calls f.
func (f HandlerFunc) Apply(ctx context.Context, in model.Intent) model.Outcome { return f(ctx, in) }

// Queue defines how the dispatcher receives intents.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Intent
}

// Worker is the lifecycle of a control loop.
type Worker interface {
	// Run blocks until ctx is cancelled, the queue is drained after Close,
	// or Shutdown forces a stop.
	Run(ctx context.Context)
	// Shutdown closes the queue when it can, lets queued intents finish and
	// forces a stop if ctx expires first.
	Shutdown(ctx context.Context) error
}

// Dispatcher is the only goroutine that mutates the board. Intents never
// overlap: each is applied and replied to before the next is read.
type Dispatcher struct {
	queue   Queue
	handler Handler
	name    string

	stopOnce sync.Once
	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewDispatcher creates a dispatcher with configuration options.
func NewDispatcher(q Queue, h Handler, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		queue:    q,
		handler:  h,
		name:     "dispatcher",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.Named(d.name)
	return d
}

// Run starts the control loop.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	intents := d.queue.Dequeue(ctx)
	d.logger.Debug(ctx, "dispatcher started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.shutdown:
			return
		case in, ok := <-intents:
			if !ok {
				d.logger.Debug(ctx, "queue drained, dispatcher stopping")
				return
			}
			d.process(ctx, in)
		}
	}
}

// Done is closed when Run returns.
func (d *Dispatcher) Done() <-chan struct{} { return d.done }

// Shutdown gracefully stops the dispatcher.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	if closer, ok := d.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			d.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		d.stopOnce.Do(func() { close(d.shutdown) })
		d.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process applies a single intent and delivers its outcome.
func (d *Dispatcher) process(ctx context.Context, in model.Intent) { //nolint:gocritic // hugeParam: passed by value for channel semantics
	start := time.Now()
	out := d.apply(ctx, in)
	metrics.RecordIntentLatency(string(in.Kind), float64(time.Since(start).Microseconds())/1000)
	metrics.RecordIntent(string(in.Kind), result(out))

	if out.Err != nil {
		d.logger.Debug(ctx, "intent rejected",
			logger.String("kind", string(in.Kind)),
			logger.String("target", in.Target.String()),
			logger.Error(out.Err),
		)
	}
	if in.Reply == nil {
		return
	}
	select {
	case in.Reply <- out:
	default:
		d.logger.Warn(ctx, "reply channel full, outcome dropped",
			logger.String("kind", string(in.Kind)),
			logger.String("intent_id", in.ID),
		)
	}
}

// apply reports a panicking handler, e.g. a strict-mode index assertion,
// as the intent's error.
func (d *Dispatcher) apply(ctx context.Context, in model.Intent) (out model.Outcome) { //nolint:gocritic // hugeParam
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordErrorByComponent("dispatcher", "panic")
			d.logger.Error(ctx, "intent handler panicked",
				logger.String("kind", string(in.Kind)),
				logger.Any("panic", r),
			)
			if err, ok := r.(error); ok {
				out = model.Outcome{Err: fmt.Errorf("%w: %w", ErrHandlerPanic, err)}
				return
			}
			out = model.Outcome{Err: fmt.Errorf("%w: %v", ErrHandlerPanic, r)}
		}
	}()
	return d.handler.Apply(ctx, in)
}

func result(out model.Outcome) string { //nolint:gocritic // hugeParam
	switch {
	case out.Err != nil:
		return "rejected"
	case out.Duplicate:
		return "duplicate"
	case out.Discarded:
		return "discarded"
	default:
		return "applied"
	}
}
