package queue_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	queue "github.com/ringsidehq/roundledger/internal/adapters/mq/queue"
	. "github.com/smartystreets/goconvey/convey"
)

func job(n int) queue.Job {
	return queue.Job{BoutID: "bout-1", RoundID: "r" + strconv.Itoa(n)}
}

func TestInMemoryQueue(t *testing.T) {
	Convey("Given an in-memory fusion queue", t, func() {
		ctx := context.Background()

		Convey("When enqueuing and dequeuing jobs", func() {
			q := queue.NewInMemoryQueue(queue.WithCapacity(8))

			So(q.Enqueue(ctx, job(1)), ShouldBeTrue)
			So(q.Enqueue(ctx, job(2)), ShouldBeTrue)
			So(q.Len(ctx), ShouldEqual, 2)

			Convey("Then jobs come out in order", func() {
				out := q.Dequeue(ctx)
				So(<-out, ShouldResemble, job(1))
				So(<-out, ShouldResemble, job(2))
			})
		})

		Convey("When the queue is full", func() {
			q := queue.NewInMemoryQueue(queue.WithCapacity(1))
			So(q.Enqueue(ctx, job(1)), ShouldBeTrue)

			Convey("Then enqueue fails fast instead of blocking ingestion", func() {
				So(q.Enqueue(ctx, job(2)), ShouldBeFalse)
			})
		})

		Convey("When the queue is closed", func() {
			q := queue.NewInMemoryQueue(queue.WithCapacity(4))
			So(q.Enqueue(ctx, job(1)), ShouldBeTrue)
			So(q.Close(), ShouldBeNil)

			Convey("Then no new jobs are accepted", func() {
				So(q.IsClosed(), ShouldBeTrue)
				So(q.Enqueue(ctx, job(2)), ShouldBeFalse)
			})

			Convey("Then buffered jobs drain and the channel closes", func() {
				out := q.Dequeue(ctx)
				So(<-out, ShouldResemble, job(1))

				select {
				case _, ok := <-out:
					So(ok, ShouldBeFalse)
				case <-time.After(time.Second):
					t.Fatal("dequeue channel did not close")
				}
			})

			Convey("Then closing again is harmless", func() {
				So(q.Close(), ShouldBeNil)
			})
		})

		Convey("When the consumer context is canceled", func() {
			q := queue.NewInMemoryQueue(queue.WithCapacity(4))
			cctx, cancel := context.WithCancel(ctx)
			out := q.Dequeue(cctx)
			cancel()

			Convey("Then the consumer channel closes once the queue closes", func() {
				So(q.Enqueue(ctx, job(1)), ShouldBeTrue)
				So(q.Close(), ShouldBeNil)

				select {
				case _, ok := <-out:
					So(ok, ShouldBeFalse)
				case <-time.After(time.Second):
					t.Fatal("dequeue channel did not close")
				}
			})
		})
	})
}
