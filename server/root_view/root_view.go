package root_view

import (
	"context"
	"html/template"
	"log"
	"time"

	"lifeview/render"
	"lifeview/server/fastview"
	"lifeview/server/frame_views"
	"lifeview/session"

	channerics "github.com/niceyeti/channerics/channels"
)

// DefaultFlushInterval is the rate at which batched ele-updates are sent to the page.
const DefaultFlushInterval = time.Millisecond * 50

// Options configures the views of a page.
type Options struct {
	Renderer      *render.Renderer
	FlushInterval time.Duration
	Logger        *log.Logger
	// Debug logs per-frame render stats.
	Debug bool
}

// RootView is the main page's index.html, which is the container for all the
// view components, the wiring for their channels, etc.
type RootView struct {
	views   []fastview.ViewComponent
	updates <-chan []fastview.EleUpdate
}

// NewRootView creates the main page and the views it contains, all fed from the
// passed session frames. The views stop when ctx is cancelled or frames is closed.
func NewRootView(
	ctx context.Context,
	frames <-chan session.Frame,
	opts Options,
) (*RootView, error) {
	if opts.Renderer == nil {
		opts.Renderer = render.NewRenderer(render.DefaultPalette())
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = DefaultFlushInterval
	}

	views, updates, err := fastview.NewViewBuilder[session.Frame, frame_views.FrameModel]().
		WithContext(ctx).
		WithModel(frames, frame_views.Convert).
		WithView(func(
			done <-chan struct{},
			models <-chan frame_views.FrameModel) fastview.ViewComponent {
			return frame_views.NewCanvasView(done, models, opts.Renderer, opts.Logger, opts.Debug)
		}).
		WithView(func(
			done <-chan struct{},
			models <-chan frame_views.FrameModel) fastview.ViewComponent {
			return frame_views.NewStatusView(done, models)
		}).
		Build()
	if err != nil {
		return nil, err
	}

	return &RootView{
		views:   views,
		updates: batchify(ctx.Done(), updates, opts.FlushInterval),
	}, nil
}

// Updates returns the main ele-update channel for all the views.
func (rv *RootView) Updates() <-chan []fastview.EleUpdate {
	return rv.updates
}

// Parse builds the main page's template, with websocket bootstrap code, and returns its name.
// The page template is executed with a frame_views.FrameModel.
func (rv *RootView) Parse(
	parent *template.Template,
) (name string, err error) {
	viewTemplates := []string{}
	for _, vc := range rv.views {
		tname, parseErr := vc.Parse(parent)
		if parseErr != nil {
			err = parseErr
			return
		}
		viewTemplates = append(viewTemplates, tname)
	}

	// Specify the nested templates
	var bodySpec string
	for _, tname := range viewTemplates {
		bodySpec += (`{{ template "` + tname + `" . }}`)
	}

	// The main template bootstraps the rest: sets up client websocket and updates, aggregates views,
	// and forwards gestures and button presses to the server.
	name = "mainpage"
	indexTemplate := `
	{{ define "` + name + `" }}
	<!DOCTYPE html>
	<html>
		<head>
			<link rel="icon" href="data:,">
			<title>Game of Life</title>
			<style>
				body { margin: 0; display: flex; background: #0a0e27; color: #e0e0f0; font-family: sans-serif; }
				#stage { flex: 1; height: 100vh; overflow: hidden; }
				#viewport { display: block; user-select: none; }
				#sidebar { width: 260px; padding: 16px; background: #141833; }
				.badge { padding: 2px 8px; border-radius: 8px; background: #1e2139; }
				.status-running { background: #2f7d4f; }
				.status-paused { background: #8a6d1f; }
				.controls button, .presets button { margin: 2px; }
				.presets { list-style: none; padding: 0; }
			</style>
		</head>
		<body>
		` + bodySpec + `
			<!--This is the client bootstrap code by which the server pushes new data to the view via websocket.-->
			<script>
				const scheme = location.protocol === "https:" ? "wss://" : "ws://";
				const ws = new WebSocket(scheme + location.host + "/ws");
				const send = (msg) => {
					if (ws.readyState === WebSocket.OPEN) {
						ws.send(JSON.stringify(msg));
					}
				};

				const stage = document.getElementById("stage");
				const img = document.getElementById("viewport");
				const resize = () => send({kind: "resize", width: stage.clientWidth, height: stage.clientHeight});

				ws.onopen = function (event) {
					console.log("Web socket opened");
					resize();
				};

				// Listen for errors
				ws.onerror = function (event) {
					console.log('WebSocket error: ', event);
				};

				// The meat: when the server pushes view updates, find these eles and update them.
				ws.onmessage = function (event) {
					const items = JSON.parse(event.data);
					for (const update of items) {
						const ele = document.getElementById(update.EleId);
						if (!ele) {
							continue;
						}
						for (const op of update.Ops) {
							if (op.Key === "textContent") {
								ele.textContent = op.Value;
							} else if (op.Key === "hidden") {
								ele.hidden = op.Value === "true";
							} else if (op.Key === "value") {
								ele.value = op.Value;
							} else {
								ele.setAttribute(op.Key, op.Value);
							}
						}
					}
				};

				// Pointer coordinates are sent in canvas pixels.
				const at = (e) => {
					const r = img.getBoundingClientRect();
					return {x: e.clientX - r.left, y: e.clientY - r.top};
				};
				img.addEventListener("mousedown", (e) => send({kind: "down", ...at(e)}));
				img.addEventListener("mousemove", (e) => send({kind: "move", ...at(e)}));
				img.addEventListener("mouseup", (e) => send({kind: "up", ...at(e)}));
				img.addEventListener("mouseleave", () => send({kind: "leave"}));
				img.addEventListener("dblclick", (e) => send({kind: "toggle", ...at(e)}));
				img.addEventListener("wheel", (e) => {
					e.preventDefault();
					send({kind: "wheel", deltaY: e.deltaY});
				}, {passive: false});
				window.addEventListener("resize", resize);

				document.querySelectorAll("button[data-action]").forEach((btn) => {
					btn.addEventListener("click", () => send({kind: "control", action: btn.dataset.action}));
				});
				document.querySelectorAll("button[data-preset]").forEach((btn) => {
					btn.addEventListener("click", () => send({kind: "control", action: "preset", preset: btn.dataset.preset}));
				});
				document.getElementById("tps-slider").addEventListener("change", (e) => {
					send({kind: "control", action: "speed", tps: parseInt(e.target.value, 10)});
				});
			</script>
		</body></html>
	{{ end }}
	`

	_, err = parent.Parse(indexTemplate)
	return
}

// batchify batches updates and sends them once per rate tick, over-writing previously
// received values for the same ele-id. This ensures that redundant updates for the
// same ele-id are not sent, and only the latest values are sent. A pending batch
// is flushed before the output is closed.
func batchify(
	done <-chan struct{},
	source <-chan []fastview.EleUpdate,
	rate time.Duration,
) <-chan []fastview.EleUpdate {
	output := make(chan []fastview.EleUpdate)

	go func() {
		defer close(output)

		data := map[string]fastview.EleUpdate{}
		order := []string{}
		flush := func() bool {
			if len(order) == 0 {
				return true
			}
			batch := make([]fastview.EleUpdate, 0, len(order))
			for _, id := range order {
				batch = append(batch, data[id])
			}
			select {
			case output <- batch:
				data = map[string]fastview.EleUpdate{}
				order = order[:0]
				return true
			case <-done:
				return false
			}
		}

		ticker := channerics.NewTicker(done, rate)
		for {
			select {
			case <-done:
				return
			case updates, ok := <-source:
				if !ok {
					flush()
					return
				}
				// Intentionally overwrites pre-existing values for an ele-id within this batch's time frame.
				for _, update := range updates {
					if _, seen := data[update.EleId]; !seen {
						order = append(order, update.EleId)
					}
					data[update.EleId] = update
				}
			case <-ticker:
				if !flush() {
					return
				}
			}
		}
	}()

	return output
}
