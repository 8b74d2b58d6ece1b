package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"lifeview/models"

	. "github.com/smartystreets/goconvey/convey"
)

// request is what the fake service saw.
type request struct {
	Method string
	Path   string
	Body   string
}

// requestLog records requests from the server goroutines.
type requestLog struct {
	mu   sync.Mutex
	reqs []request
}

func (rl *requestLog) add(req request) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.reqs = append(rl.reqs, req)
}

func (rl *requestLog) all() []request {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return append([]request(nil), rl.reqs...)
}

func (rl *requestLog) reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.reqs = nil
}

func newService(handler http.HandlerFunc) (*httptest.Server, *requestLog) {
	seen := &requestLog{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		seen.add(request{Method: r.Method, Path: r.URL.Path, Body: string(body)})
		handler(w, r)
	}))
	return srv, seen
}

const statusDoc = `{"state":"running","tick_count":12,"tps":10,"active_cells":5}`

func TestClient(t *testing.T) {
	ctx := context.Background()

	Convey("Given a healthy service", t, func() {
		srv, seen := newService(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/api/world/all":
				_, _ = w.Write([]byte(`[{"x":1,"y":2},{"x":-4,"y":0}]`))
			case "/api/world/presets":
				_, _ = w.Write([]byte(`{"presets":[{"name":"glider","description":"moves","cell_count":5}]}`))
			case "/api/world/preset", "/api/world/cell", "/api/world/clear":
				_, _ = w.Write([]byte(`{"ok":true}`))
			default:
				_, _ = w.Write([]byte(statusDoc))
			}
		})
		defer srv.Close()
		client := NewClient(srv.URL+"/api/", time.Second)

		Convey("Control actions POST and decode the status", func() {
			calls := map[string]func(context.Context) (models.SimulationStatus, error){
				"/api/control/start":  client.Start,
				"/api/control/stop":   client.Stop,
				"/api/control/pause":  client.Pause,
				"/api/control/resume": client.Resume,
				"/api/control/step":   client.Step,
			}
			for path, call := range calls {
				seen.reset()
				status, err := call(ctx)
				So(err, ShouldBeNil)
				So(status.State, ShouldEqual, models.Running)
				So(status.TickCount, ShouldEqual, uint64(12))
				So(seen.all(), ShouldResemble, []request{{Method: http.MethodPost, Path: path}})
			}
		})

		Convey("SetSpeed sends the tps", func() {
			_, err := client.SetSpeed(ctx, 25)
			So(err, ShouldBeNil)
			So(seen.all()[0].Path, ShouldEqual, "/api/control/speed")
			So(seen.all()[0].Body, ShouldEqual, `{"tps":25}`)
		})

		Convey("Status is a GET", func() {
			status, err := client.Status(ctx)
			So(err, ShouldBeNil)
			So(status.ActiveCells, ShouldEqual, 5)
			So(seen.all()[0].Method, ShouldEqual, http.MethodGet)
		})

		Convey("AllCells decodes the cell array", func() {
			cells, err := client.AllCells(ctx)
			So(err, ShouldBeNil)
			So(cells, ShouldResemble, []models.Cell{{X: 1, Y: 2}, {X: -4, Y: 0}})
		})

		Convey("Presets unwraps the envelope", func() {
			presets, err := client.Presets(ctx)
			So(err, ShouldBeNil)
			So(presets, ShouldResemble, []models.PresetDescriptor{
				{Name: "glider", Description: "moves", CellCount: 5},
			})
		})

		Convey("World mutations send their bodies and ignore the ack", func() {
			So(client.LoadPreset(ctx, "glider", 3, -2), ShouldBeNil)
			So(client.SetCell(ctx, 7, 8, true), ShouldBeNil)
			So(client.Clear(ctx), ShouldBeNil)

			var preset map[string]interface{}
			So(json.Unmarshal([]byte(seen.all()[0].Body), &preset), ShouldBeNil)
			So(preset, ShouldResemble, map[string]interface{}{
				"name": "glider", "offset_x": 3.0, "offset_y": -2.0,
			})
			So(seen.all()[1].Body, ShouldEqual, `{"x":7,"y":8,"alive":true}`)
			So(seen.all()[2].Path, ShouldEqual, "/api/world/clear")
		})
	})

	Convey("Given a failing service", t, func() {
		Convey("A non-2xx response is a StatusError wrapping ErrRequest", func() {
			srv, _ := newService(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusConflict)
				_, _ = w.Write([]byte(`{"error":"Simulation is already running"}`))
			})
			defer srv.Close()

			_, err := NewClient(srv.URL, time.Second).Start(ctx)
			So(errors.Is(err, ErrRequest), ShouldBeTrue)
			var statusErr *StatusError
			So(errors.As(err, &statusErr), ShouldBeTrue)
			So(statusErr.Code, ShouldEqual, http.StatusConflict)
			So(statusErr.Message, ShouldEqual, "Simulation is already running")
		})

		Convey("Malformed JSON wraps ErrRequest", func() {
			srv, _ := newService(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`not json`))
			})
			defer srv.Close()

			_, err := NewClient(srv.URL, time.Second).AllCells(ctx)
			So(errors.Is(err, ErrRequest), ShouldBeTrue)
		})

		Convey("An unreachable service wraps ErrRequest", func() {
			srv, _ := newService(func(w http.ResponseWriter, r *http.Request) {})
			url := srv.URL
			srv.Close()

			_, err := NewClient(url, 200*time.Millisecond).Status(ctx)
			So(errors.Is(err, ErrRequest), ShouldBeTrue)
		})
	})
}
