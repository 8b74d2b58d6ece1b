package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"lifeview/render"
	"lifeview/server/fastview"
	"lifeview/server/frame_views"
	"lifeview/server/root_view"
	"lifeview/session"
	"lifeview/viewport"
	"lifeview/world_sync"

	"github.com/gorilla/mux"
)

const shutdownGracePeriod = 5 * time.Second

// World is the shared client-side world the server presents. *world_sync.Loop implements it.
type World interface {
	session.Dispatcher
	Snapshot() world_sync.Snapshot
	Subscribe() chan world_sync.Snapshot
	Unsubscribe(ch chan world_sync.Snapshot)
}

// Options holds the per-session view defaults and presentation settings.
type Options struct {
	View            viewport.ViewState
	Width, Height   int
	Renderer        *render.Renderer
	PublishInterval time.Duration
	Logger          *log.Logger
	Debug           bool
}

// Server serves the viewer page, and one websocket per open page. Every websocket gets
// its own session, so each page pans and zooms independently over the same world.
type Server struct {
	addr   string
	world  World
	opts   Options
	logger *log.Logger
	page   *template.Template
	router *mux.Router
}

// NewServer parses the page and sets up the routes.
func NewServer(
	addr string,
	world World,
	opts Options,
) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Renderer == nil {
		opts.Renderer = render.NewRenderer(render.DefaultPalette())
	}

	page, err := parsePage(opts)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	server := &Server{
		addr:   addr,
		world:  world,
		opts:   opts,
		logger: opts.Logger,
		page:   page,
	}

	router := mux.NewRouter()
	router.HandleFunc("/", server.serveIndex).Methods(http.MethodGet)
	router.HandleFunc("/ws", server.serveWebsocket)
	router.HandleFunc("/healthz", server.serveHealth).Methods(http.MethodGet)
	server.router = router

	return server, nil
}

// parsePage builds the page template from a root view whose frame source is already
// closed, so its views only contribute their templates.
func parsePage(opts Options) (*template.Template, error) {
	frames := make(chan session.Frame)
	close(frames)
	rootView, err := root_view.NewRootView(context.Background(), frames, rootOptions(opts))
	if err != nil {
		return nil, err
	}

	t := template.New("index.html")
	var tname string
	if tname, err = rootView.Parse(t); err != nil {
		return nil, err
	}
	if _, err = t.Parse(`{{ template "` + tname + `" . }}`); err != nil {
		return nil, err
	}
	return t, nil
}

func rootOptions(opts Options) root_view.Options {
	return root_view.Options{
		Renderer:      opts.Renderer,
		FlushInterval: opts.PublishInterval,
		Logger:        opts.Logger,
		Debug:         opts.Debug,
	}
}

// Handler returns the routes, for serving or testing.
func (server *Server) Handler() http.Handler {
	return server.router
}

// Serve listens until ctx is cancelled, then shuts down gracefully.
func (server *Server) Serve(ctx context.Context) (err error) {
	httpServer := &http.Server{
		Addr:              server.addr,
		Handler:           server.router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	server.logger.Printf("listening on %s", server.addr)
	if err = httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		err = fmt.Errorf("serve: %w", err)
	}
	return
}

// serveWebsocket runs one session for the lifetime of the websocket: page input
// events drive the session, and the session's frames drive the views.
func (server *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	cli, err := fastview.NewClient[[]fastview.EleUpdate, session.InputEvent](w, r, server.logger)
	if err != nil {
		server.logger.Println("upgrade:", err)
		return
	}
	defer cli.Close()

	snapshots := server.world.Subscribe()
	defer server.world.Unsubscribe(snapshots)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sess := session.New(server.opts.View, server.opts.Width, server.opts.Height, server.world, server.logger)
	frames := sess.Run(ctx, cli.Inputs(), snapshots)

	rootView, err := root_view.NewRootView(ctx, frames, rootOptions(server.opts))
	if err != nil {
		server.logger.Println("views:", err)
		return
	}

	if err := cli.Sync(ctx, rootView.Updates()); err != nil {
		server.logger.Println("websocket:", err)
	}
}

// Serve the index.html main page, with the current world state.
func (server *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")

	initial := frame_views.Convert(session.Frame{
		View:     viewport.NewController(server.opts.View).View(),
		Width:    server.opts.Width,
		Height:   server.opts.Height,
		Snapshot: server.world.Snapshot(),
	})
	if err := server.page.Execute(w, initial); err != nil {
		server.logger.Println("index:", err)
	}
}

// Gauges are the sync loop's health figures; *world_sync.Loop implements them.
type Gauges interface {
	Latency() float64
	Skipped() uint64
	Subscribers() int
}

func (server *Server) serveHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	if gauges, ok := server.world.(Gauges); ok {
		w.Header().Set("X-Sync-Latency-Ms", strconv.FormatFloat(gauges.Latency(), 'f', 1, 64))
		w.Header().Set("X-Sync-Skipped-Ticks", strconv.FormatUint(gauges.Skipped(), 10))
		w.Header().Set("X-Sync-Subscribers", strconv.Itoa(gauges.Subscribers()))
	}
	_, _ = io.WriteString(w, "ok")
}
