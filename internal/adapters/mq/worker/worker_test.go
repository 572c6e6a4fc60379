package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"
	"go.uber.org/goleak"

	queue "github.com/okian/recap/internal/adapters/mq/queue"
	worker "github.com/okian/recap/internal/adapters/mq/worker"
	model "github.com/okian/recap/internal/domain/model"
)

// recordingHandler remembers the order intents were applied in and checks
// that no two applications overlap.
type recordingHandler struct {
	mu      sync.Mutex
	applied []string
	active  int
	overlap bool
	delay   time.Duration
}

func (h *recordingHandler) Apply(_ context.Context, in model.Intent) model.Outcome {
	h.mu.Lock()
	h.active++
	if h.active > 1 {
		h.overlap = true
	}
	h.mu.Unlock()

	time.Sleep(h.delay)

	h.mu.Lock()
	h.applied = append(h.applied, in.ID)
	h.active--
	h.mu.Unlock()

	switch in.ID {
	case "bad":
		return model.Outcome{Err: errors.New("rejected")}
	case "boom":
		panic("index assertion")
	}
	return model.Outcome{Entry: model.Entry{ID: in.ID}}
}

func (h *recordingHandler) order() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.applied...)
}

func TestDispatcher(t *testing.T) {
	defer goleak.VerifyNone(t)

	convey.Convey("Given a dispatcher over an in-memory queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(64))
		h := &recordingHandler{delay: time.Millisecond}
		d := worker.NewDispatcher(q, h, worker.WithName("test"))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go d.Run(ctx)

		convey.Convey("When intents are enqueued from many goroutines", func() {
			var wg sync.WaitGroup
			replies := make([]chan model.Outcome, 20)
			for i := range replies {
				replies[i] = make(chan model.Outcome, 1)
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_ = q.Enqueue(ctx, model.Intent{ID: string(rune('a' + i)), Kind: model.IntentAdd, Reply: replies[i]})
				}(i)
			}
			wg.Wait()
			for i := range replies {
				<-replies[i]
			}

			convey.Convey("Then every intent is applied exactly once without overlap", func() {
				convey.So(h.order(), convey.ShouldHaveLength, 20)
				convey.So(h.overlap, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When intents arrive in sequence", func() {
			reply := make(chan model.Outcome, 3)
			for _, id := range []string{"1", "2", "3"} {
				convey.So(q.Enqueue(ctx, model.Intent{ID: id, Reply: reply}), convey.ShouldBeNil)
			}
			for i := 0; i < 3; i++ {
				<-reply
			}

			convey.Convey("Then they are applied in arrival order", func() {
				convey.So(h.order(), convey.ShouldResemble, []string{"1", "2", "3"})
			})
		})

		convey.Convey("When the handler fails or panics", func() {
			reply := make(chan model.Outcome, 1)
			convey.So(q.Enqueue(ctx, model.Intent{ID: "bad", Reply: reply}), convey.ShouldBeNil)
			bad := <-reply
			convey.So(q.Enqueue(ctx, model.Intent{ID: "boom", Reply: reply}), convey.ShouldBeNil)
			boom := <-reply
			convey.So(q.Enqueue(ctx, model.Intent{ID: "after", Reply: reply}), convey.ShouldBeNil)
			after := <-reply

			convey.Convey("Then errors are replied and the loop keeps running", func() {
				convey.So(bad.Err, convey.ShouldNotBeNil)
				convey.So(errors.Is(boom.Err, worker.ErrHandlerPanic), convey.ShouldBeTrue)
				convey.So(after.Err, convey.ShouldBeNil)
				convey.So(after.Entry.ID, convey.ShouldEqual, "after")
			})
		})

		convey.Convey("When an intent has no reply channel", func() {
			convey.So(q.Enqueue(ctx, model.Intent{ID: "fire-and-forget"}), convey.ShouldBeNil)
			reply := make(chan model.Outcome, 1)
			convey.So(q.Enqueue(ctx, model.Intent{ID: "next", Reply: reply}), convey.ShouldBeNil)
			<-reply

			convey.Convey("Then it is still applied", func() {
				convey.So(h.order(), convey.ShouldResemble, []string{"fire-and-forget", "next"})
			})
		})

		shutdownCtx, done := context.WithTimeout(context.Background(), time.Second)
		defer done()
		convey.So(d.Shutdown(shutdownCtx), convey.ShouldBeNil)
		<-d.Done()
	})
}

func TestDispatcherShutdownDrains(t *testing.T) {
	defer goleak.VerifyNone(t)

	convey.Convey("Given queued intents before shutdown", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		h := &recordingHandler{}
		reply := make(chan model.Outcome, 4)
		for _, id := range []string{"w", "x", "y", "z"} {
			convey.So(q.Enqueue(context.Background(), model.Intent{ID: id, Reply: reply}), convey.ShouldBeNil)
		}
		d := worker.NewDispatcher(q, h)
		go d.Run(context.Background())

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		err := d.Shutdown(ctx)

		convey.Convey("Then every queued intent is applied before Run returns", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(h.order(), convey.ShouldResemble, []string{"w", "x", "y", "z"})
			convey.So(len(reply), convey.ShouldEqual, 4)
			convey.So(q.IsClosed(), convey.ShouldBeTrue)
		})
	})
}

func TestDispatcherShutdownTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	convey.Convey("Given a slow handler", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		h := &recordingHandler{delay: 50 * time.Millisecond}
		for _, id := range []string{"1", "2", "3", "4"} {
			convey.So(q.Enqueue(context.Background(), model.Intent{ID: id}), convey.ShouldBeNil)
		}
		d := worker.NewDispatcher(q, h)
		go d.Run(context.Background())

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		err := d.Shutdown(ctx)
		<-d.Done()

		convey.Convey("Then shutdown reports the timeout and Run still stops", func() {
			convey.So(errors.Is(err, context.DeadlineExceeded), convey.ShouldBeTrue)
			convey.So(len(h.order()), convey.ShouldBeLessThan, 4)
		})
	})
}
