package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/recap/internal/adapters/mq/worker"
	service "github.com/okian/recap/internal/app"
	"github.com/okian/recap/internal/domain/board"
	"github.com/okian/recap/internal/domain/model"
)

func started(opts ...service.Option) *service.Service {
	svc := service.New(opts...)
	if err := svc.Start(context.Background()); err != nil {
		panic(err)
	}
	return svc
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New()
		defer svc.Stop()

		Convey("Then intents are refused before Start", func() {
			_, err := svc.Add(context.Background(), "")
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})

		Convey("When started", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			So(svc.Start(context.Background()), ShouldBeNil)

			Convey("Then the default roster is published", func() {
				v := svc.View()
				So(v.Rows, ShouldHaveLength, 8)
				So(v.Rows[0].Name, ShouldEqual, "@MarshyPicks")
				So(v.TotalDisplay, ShouldEqual, "+207.08")
				So(svc.GetStats()["started"], ShouldEqual, true)
			})

			Convey("And then stopped", func() {
				svc.Stop()
				svc.Stop()
				_, err := svc.Add(context.Background(), "")

				Convey("Then it refuses intents again", func() {
					So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
					So(svc.GetStats()["started"], ShouldEqual, false)
				})
			})
		})
	})
}

func TestService_Intents(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service with an empty board", t, func() {
		svc := started(service.WithSeed([]model.Entry{}), service.WithRemovalDelay(20*time.Millisecond))
		defer svc.Stop()

		Convey("When an entry is added", func() {
			out, err := svc.Add(ctx, "click-1")

			Convey("Then the board holds one default entry at rank 01", func() {
				So(err, ShouldBeNil)
				So(out.View.State(), ShouldEqual, model.StatePopulated)
				So(out.View.Rows, ShouldHaveLength, 1)
				So(out.View.Rows[0].Rank, ShouldEqual, "01")
				So(out.Entry.Name, ShouldEqual, model.DefaultName)
				So(out.View.TotalDisplay, ShouldEqual, "+0.00")
			})

			Convey("Then a repeated intent id is not applied twice", func() {
				again, err := svc.Add(ctx, "click-1")
				So(err, ShouldBeNil)
				So(again.Duplicate, ShouldBeTrue)
				So(svc.View().Rows, ShouldHaveLength, 1)
			})

			Convey("Then its fields can be committed by id", func() {
				id := out.Entry.ID
				_, err := svc.Commit(ctx, "", model.ByID(id), model.FieldName, "@Sharp")
				So(err, ShouldBeNil)
				res, err := svc.Commit(ctx, "", model.ByID(id), model.FieldUnits, "12.345")
				So(err, ShouldBeNil)
				So(res.View.Rows[0].Name, ShouldEqual, "@Sharp")
				So(res.View.Rows[0].UnitsDisplay, ShouldEqual, "+12.35")
			})

			Convey("Then deleting it marks it pending and removes it after the delay", func() {
				res, err := svc.Delete(ctx, "", model.ByID(out.Entry.ID))
				So(err, ShouldBeNil)
				So(res.View.Rows, ShouldHaveLength, 1)
				So(res.View.Rows[0].PendingRemoval, ShouldBeTrue)

				_, err = svc.Commit(ctx, "", model.ByID(out.Entry.ID), model.FieldName, "x")
				So(errors.Is(err, board.ErrPendingRemoval), ShouldBeTrue)

				again, err := svc.Delete(ctx, "", model.AtIndex(0))
				So(err, ShouldBeNil)
				So(again.View.Version, ShouldEqual, res.View.Version)

				So(waitFor(func() bool { return svc.View().State() == model.StateEmpty }), ShouldBeTrue)
				So(svc.View().TotalDisplay, ShouldEqual, "+0.00")
			})
		})

		Convey("When a positional target is out of range", func() {
			_, err := svc.Delete(ctx, "", model.AtIndex(3))

			Convey("Then InvalidIndex is reported", func() {
				So(errors.Is(err, board.ErrInvalidIndex), ShouldBeTrue)
			})
		})

		Convey("When a keyed commit is rejected", func() {
			_, err := svc.Commit(ctx, "fix-1", model.AtIndex(99), model.FieldName, "@Late")
			So(errors.Is(err, board.ErrInvalidIndex), ShouldBeTrue)

			Convey("Then a corrected retry with the same key applies", func() {
				added, err := svc.Add(ctx, "")
				So(err, ShouldBeNil)

				res, err := svc.Commit(ctx, "fix-1", model.ByID(added.Entry.ID), model.FieldName, "@Late")
				So(err, ShouldBeNil)
				So(res.Duplicate, ShouldBeFalse)
				So(res.View.Rows[0].Name, ShouldEqual, "@Late")

				again, err := svc.Commit(ctx, "fix-1", model.ByID(added.Entry.ID), model.FieldName, "@Other")
				So(err, ShouldBeNil)
				So(again.Duplicate, ShouldBeTrue)
				So(svc.View().Rows[0].Name, ShouldEqual, "@Late")
			})
		})

		Convey("When many adds race", func() {
			var wg sync.WaitGroup
			for i := 0; i < 40; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, _ = svc.Add(ctx, fmt.Sprintf("add-%d", i))
				}(i)
			}
			wg.Wait()

			Convey("Then every add is applied once with contiguous ranks", func() {
				v := svc.View()
				So(v.Rows, ShouldHaveLength, 40)
				for i, r := range v.Rows {
					So(r.Rank, ShouldEqual, fmt.Sprintf("%02d", i+1))
				}
			})
		})
	})

	Convey("Given a service without an exit delay", t, func() {
		svc := started(service.WithRemovalDelay(0))
		defer svc.Stop()

		Convey("Then a delete removes immediately", func() {
			out, err := svc.Delete(ctx, "", model.AtIndex(0))
			So(err, ShouldBeNil)
			So(out.Entry.Name, ShouldEqual, "@MarshyPicks")
			So(out.View.Rows, ShouldHaveLength, 7)
		})
	})

	Convey("Given a strict service", t, func() {
		svc := started(service.WithStrictIndices(true))
		defer svc.Stop()

		Convey("Then an out-of-range index is an assertion failure and the loop survives", func() {
			_, err := svc.Commit(ctx, "", model.AtIndex(42), model.FieldName, "x")
			So(errors.Is(err, worker.ErrHandlerPanic), ShouldBeTrue)
			So(errors.Is(err, board.ErrInvalidIndex), ShouldBeTrue)

			_, err = svc.Add(ctx, "")
			So(err, ShouldBeNil)
			So(svc.View().Rows, ShouldHaveLength, 9)
		})
	})
}

func TestService_ImportExport(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service", t, func() {
		svc := started(service.WithPeriod("10/01/25", "10/31/25"))
		defer svc.Stop()
		before := svc.View()

		Convey("When a malformed payload is loaded", func() {
			out, err := svc.Load(ctx, "", []byte(`{"cappers":[`))

			Convey("Then it is discarded silently and state is untouched", func() {
				So(err, ShouldBeNil)
				So(out.Discarded, ShouldBeTrue)
				So(svc.View().Version, ShouldEqual, before.Version)
			})
		})

		Convey("When a payload without cappers is loaded", func() {
			out, err := svc.Load(ctx, "", []byte(`{"startDate":"11/01/25"}`))

			Convey("Then only the period changes", func() {
				So(err, ShouldBeNil)
				So(out.Discarded, ShouldBeFalse)
				So(svc.View().Rows, ShouldHaveLength, 8)
				start, end := svc.Period()
				So(start, ShouldEqual, "11/01/25")
				So(end, ShouldEqual, "10/31/25")
			})
		})

		Convey("When a full document is loaded", func() {
			out, err := svc.Load(ctx, "", []byte(`{"startDate":"s","endDate":"e","cappers":[
				{"name":"low","role":"a","units":-1},{"name":"high","role":"b","units":"5.5"}]}`))

			Convey("Then the board is replaced and ranked", func() {
				So(err, ShouldBeNil)
				So(out.View.Rows, ShouldHaveLength, 2)
				So(out.View.Rows[0].Name, ShouldEqual, "high")
				So(out.View.TotalDisplay, ShouldEqual, "+4.50")
			})

			Convey("Then export echoes it back", func() {
				data, err := svc.Export(ctx)
				So(err, ShouldBeNil)
				So(string(data), ShouldContainSubstring, `"startDate": "s"`)
				So(string(data), ShouldContainSubstring, `"name": "high"`)
				So(string(data), ShouldContainSubstring, `"total": 4.5`)
			})
		})

		Convey("When an entry is pending and the board is replaced", func() {
			svc2 := started(service.WithRemovalDelay(30 * time.Millisecond))
			defer svc2.Stop()
			_, err := svc2.Delete(ctx, "", model.AtIndex(0))
			So(err, ShouldBeNil)
			_, err = svc2.Load(ctx, "", []byte(`{"cappers":[{"name":"only","units":1}]}`))
			So(err, ShouldBeNil)
			time.Sleep(60 * time.Millisecond)

			Convey("Then the old exit timer does not touch the new board", func() {
				So(svc2.View().Rows, ShouldHaveLength, 1)
				So(svc2.View().Rows[0].Name, ShouldEqual, "only")
			})
		})
	})
}

func TestService_Subscribe(t *testing.T) {
	Convey("Given a subscriber", t, func() {
		svc := started()
		defer svc.Stop()
		ch := svc.Subscribe()
		defer svc.Unsubscribe(ch)

		Convey("Then it is pinged after a mutation", func() {
			_, err := svc.Add(context.Background(), "")
			So(err, ShouldBeNil)
			select {
			case <-ch:
			case <-time.After(time.Second):
				So("no ping", ShouldBeEmpty)
			}
			So(svc.GetStats()["subscribers"], ShouldEqual, 1)
		})
	})
}
