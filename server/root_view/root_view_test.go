package root_view

import (
	"bytes"
	"context"
	"html/template"
	"testing"
	"time"

	"lifeview/models"
	"lifeview/server/fastview"
	"lifeview/server/frame_views"
	"lifeview/session"
	"lifeview/viewport"
	"lifeview/world_sync"

	. "github.com/smartystreets/goconvey/convey"
)

func textUpdate(id, value string) fastview.EleUpdate {
	return fastview.EleUpdate{EleId: id, Ops: []fastview.Op{{Key: fastview.KeyText, Value: value}}}
}

func TestBatchify(t *testing.T) {
	Convey("Given a batching stage", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		source := make(chan []fastview.EleUpdate)
		batches := batchify(ctx.Done(), source, time.Millisecond*50)

		Convey("Updates for the same element within a batch collapse to the latest", func() {
			source <- []fastview.EleUpdate{textUpdate("a", "1"), textUpdate("b", "1")}
			source <- []fastview.EleUpdate{textUpdate("a", "2")}

			batch := <-batches
			So(batch, ShouldResemble, []fastview.EleUpdate{textUpdate("a", "2"), textUpdate("b", "1")})
		})

		Convey("Empty input produces no batch", func() {
			source <- nil
			select {
			case <-batches:
				So("unexpected batch", ShouldBeEmpty)
			case <-time.After(time.Millisecond * 120):
			}
		})

		Convey("A pending batch is flushed when the source closes", func() {
			source <- []fastview.EleUpdate{textUpdate("c", "9")}
			close(source)
			var got []fastview.EleUpdate
			for batch := range batches {
				got = append(got, batch...)
			}
			So(got, ShouldResemble, []fastview.EleUpdate{textUpdate("c", "9")})
		})
	})
}

func TestRootView(t *testing.T) {
	Convey("Given a root view fed with session frames", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		frames := make(chan session.Frame)
		rv, err := NewRootView(ctx, frames, Options{FlushInterval: time.Millisecond * 10})
		So(err, ShouldBeNil)

		frame := session.Frame{
			View:   viewport.DefaultViewState(),
			Width:  40,
			Height: 30,
			Snapshot: world_sync.Snapshot{
				Status: models.SimulationStatus{State: models.Running, TPS: 10},
			},
		}

		Convey("A frame yields both the image and the status updates", func() {
			go func() { frames <- frame }()

			ids := map[string]bool{}
			deadline := time.After(time.Second * 2)
			for !(ids["viewport"] && ids["status-badge"]) {
				select {
				case batch := <-rv.Updates():
					for _, update := range batch {
						ids[update.EleId] = true
					}
				case <-deadline:
					So(ids, ShouldContainKey, "viewport")
					So(ids, ShouldContainKey, "status-badge")
					return
				}
			}
			So(ids["btn-pause"], ShouldBeTrue)
		})

		Convey("The page template renders every view and the bootstrap script", func() {
			parent := template.New("root")
			name, err := rv.Parse(parent)
			So(err, ShouldBeNil)

			var buf bytes.Buffer
			So(parent.ExecuteTemplate(&buf, name, frame_views.Convert(frame)), ShouldBeNil)
			page := buf.String()
			So(page, ShouldContainSubstring, `id="viewport"`)
			So(page, ShouldContainSubstring, `id="status-badge"`)
			So(page, ShouldContainSubstring, `new WebSocket(scheme + location.host + "/ws")`)
		})
	})
}
