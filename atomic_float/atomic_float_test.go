package atomic_float

import (
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSmooth(t *testing.T) {
	Convey("When Smooth is called", t, func() {
		var f64 AtomicFloat64

		Convey("The first sample is taken as-is", func() {
			So(f64.Smooth(40, 0.25), ShouldEqual, 40.0)

			Convey("Later samples move the average by alpha", func() {
				So(f64.Smooth(80, 0.25), ShouldEqual, 50.0)
				So(f64.Load(), ShouldEqual, 50.0)
			})
		})

		Convey("An alpha of one keeps only the latest sample", func() {
			f64.Smooth(10, 1)
			So(f64.Smooth(3.5, 1), ShouldEqual, 3.5)
		})

		Convey("When multiple writers smooth the same sample concurrently", func() {
			numOps := 3000
			numWriters := 200

			start := make(chan struct{})
			wg := sync.WaitGroup{}
			wg.Add(numWriters)
			smoother := func() {
				<-start
				for i := 0; i < numOps; i++ {
					f64.Smooth(7.0, 0.5)
				}
				wg.Done()
			}

			for i := 0; i < numWriters; i++ {
				go smoother()
			}

			// Wait for goroutines to begin
			time.Sleep(time.Millisecond * 10)
			close(start)
			wg.Wait()
			So(f64.Load(), ShouldEqual, 7.0)
		})

		Convey("When writers alternate between two samples concurrently", func() {
			numOps := 3000
			numWriters := 100

			start := make(chan struct{})
			wg := sync.WaitGroup{}
			wg.Add(numWriters * 2)
			step := func(sample float64) {
				<-start
				for i := 0; i < numOps; i++ {
					f64.Smooth(sample, 0.2)
				}
				wg.Done()
			}

			for i := 0; i < numWriters; i++ {
				go step(10.0)
				go step(20.0)
			}

			time.Sleep(time.Millisecond * 10)
			close(start)
			wg.Wait()
			So(f64.Load(), ShouldBeBetweenOrEqual, 10.0, 20.0)
		})
	})
}
