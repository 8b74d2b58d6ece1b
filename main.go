/*
Lifeview is a live viewer for a remote Game of Life simulation. It polls the simulation service
for its status and live cells ten times a second, renders the world server-side onto a pannable,
zoomable grid, and streams the frames to a single page over a websocket. The page sends back
drags, wheel notches, double-clicks and button presses; each open page has its own view of the
same world, and the remote service stays the only source of truth for the world itself.
*/

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"lifeview/config"
	"lifeview/remote"
	"lifeview/render"
	"lifeview/server"
	"lifeview/world_sync"
)

var (
	configPath *string
	dbg        *bool
	host       *string
	port       *int
)

func init() {
	configPath = flag.String("config", "", "path to a yaml config file; defaults are used when empty")
	dbg = flag.Bool("debug", false, "debug mode: source lines in logs and per-frame render stats")
	host = flag.String("host", "", "the host ip, overrides server.addr")
	port = flag.Int("port", 0, "the host port, overrides server.addr")
}

func loadConfig() (cfg *config.Config, err error) {
	if *configPath == "" {
		cfg = config.Default()
	} else if cfg, err = config.FromYaml(*configPath); err != nil {
		return
	}
	cfg.WithListen(*host, *port)
	return
}

func runApp() (err error) {
	var cfg *config.Config
	if cfg, err = loadConfig(); err != nil {
		return
	}

	logger := log.New(os.Stderr, "lifeview: ", log.LstdFlags)
	if *dbg {
		logger.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	appCtx, appCancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer appCancel()

	world := remote.NewClient(cfg.Remote.BaseURL, cfg.RemoteTimeout())
	loop := world_sync.NewLoop(world, cfg.SyncInterval(), logger)

	// A failed initial fetch is already logged; the polls take over from here.
	_ = loop.Init(appCtx)
	go func() {
		_ = loop.Run(appCtx)
	}()

	var srv *server.Server
	if srv, err = server.NewServer(
		cfg.Server.Addr,
		loop,
		server.Options{
			View:            cfg.ViewState(),
			Width:           cfg.View.Width,
			Height:          cfg.View.Height,
			Renderer:        render.NewRenderer(cfg.RenderPalette()),
			PublishInterval: cfg.PublishInterval(),
			Logger:          logger,
			Debug:           *dbg,
		},
	); err != nil {
		return
	}

	err = srv.Serve(appCtx)
	return
}

func main() {
	flag.Parse()
	if err := runApp(); err != nil {
		log.Fatal(err)
	}
}
