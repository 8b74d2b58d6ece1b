// session is one viewer's UI thread. A Session goroutine exclusively owns the
// viewport controller, the canvas size and the latest world snapshot; input
// events and snapshots reach it over channels and are handled one at a time.
// Every handled change ends with exactly one Frame, which is the redraw signal.
package session

import (
	"context"
	"errors"
	"log"

	"lifeview/models"
	"lifeview/viewport"
	"lifeview/world_sync"
)

const maxCanvasDim = 4096

type EventKind string

const (
	KindDown    EventKind = "down"
	KindMove    EventKind = "move"
	KindUp      EventKind = "up"
	KindLeave   EventKind = "leave"
	KindWheel   EventKind = "wheel"
	KindResize  EventKind = "resize"
	KindToggle  EventKind = "toggle"
	KindControl EventKind = "control"
)

// InputEvent is a gesture or button press forwarded by the page.
// Pointer coordinates are canvas pixels.
type InputEvent struct {
	Kind   EventKind `json:"kind"`
	X      float64   `json:"x"`
	Y      float64   `json:"y"`
	DeltaY float64   `json:"deltaY"`
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Action string    `json:"action"`
	TPS    int       `json:"tps"`
	Preset string    `json:"preset"`
}

// Frame is everything needed to draw one frame.
type Frame struct {
	View     viewport.ViewState
	Width    int
	Height   int
	Dragging bool
	Snapshot world_sync.Snapshot
}

// Dispatcher runs control commands; *world_sync.Loop implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd world_sync.Command) error
}

type Session struct {
	ctrl   *viewport.Controller
	width  int
	height int
	snap   world_sync.Snapshot
	live   map[models.Cell]struct{}
	world  Dispatcher
	logger *log.Logger
}

func New(
	initial viewport.ViewState,
	width, height int,
	world Dispatcher,
	logger *log.Logger,
) *Session {
	if logger == nil {
		logger = log.Default()
	}
	return &Session{
		ctrl:   viewport.NewController(initial),
		width:  clampDim(width),
		height: clampDim(height),
		snap:   world_sync.Snapshot{Loading: true},
		world:  world,
		logger: logger,
	}
}

// Run starts the session goroutine and returns its frame channel, which is
// closed when ctx is done or inputs is closed. The first frame is sent immediately.
func (s *Session) Run(
	ctx context.Context,
	inputs <-chan InputEvent,
	snapshots <-chan world_sync.Snapshot,
) <-chan Frame {
	frames := make(chan Frame)

	go func() {
		defer close(frames)

		redraw := s.ctrl.TakeDirty()
		for {
			if redraw {
				select {
				case frames <- s.frame():
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-ctx.Done():
				return
			case ev, ok := <-inputs:
				if !ok {
					return
				}
				redraw = s.handle(ctx, ev)
			case snap, ok := <-snapshots:
				if !ok {
					// The world went away; keep serving the view with the last snapshot.
					snapshots = nil
					redraw = false
					continue
				}
				redraw = snap.Version != s.snap.Version || s.snap.Loading != snap.Loading
				s.snap = snap
				s.live = nil
			}
		}
	}()

	return frames
}

func (s *Session) frame() Frame {
	return Frame{
		View:     s.ctrl.View(),
		Width:    s.width,
		Height:   s.height,
		Dragging: s.ctrl.Dragging(),
		Snapshot: s.snap,
	}
}

// handle applies one input event and reports whether a redraw is due.
func (s *Session) handle(ctx context.Context, ev InputEvent) bool {
	switch ev.Kind {
	case KindDown:
		s.ctrl.BeginDrag(ev.X, ev.Y)
	case KindMove:
		s.ctrl.ContinueDrag(ev.X, ev.Y)
	case KindUp, KindLeave:
		s.ctrl.EndDrag()
	case KindWheel:
		s.ctrl.Zoom(ev.DeltaY)
	case KindResize:
		width, height := clampDim(ev.Width), clampDim(ev.Height)
		if width == s.width && height == s.height {
			return false
		}
		s.width, s.height = width, height
		return true
	case KindToggle:
		cell := s.ctrl.View().CellAt(ev.X, ev.Y)
		s.dispatch(ctx, world_sync.Command{
			Action: world_sync.ActionCell,
			X:      cell.X,
			Y:      cell.Y,
			Alive:  !s.isAlive(cell),
		})
	case KindControl:
		s.dispatch(ctx, world_sync.Command{
			Action: world_sync.Action(ev.Action),
			TPS:    ev.TPS,
			Preset: ev.Preset,
		})
	default:
		s.logger.Printf("session: unknown event kind %q", ev.Kind)
	}
	return s.ctrl.TakeDirty()
}

// dispatch runs cmd off the session goroutine; its effect comes back as a snapshot.
// Remote failures are reported by the loop itself.
func (s *Session) dispatch(ctx context.Context, cmd world_sync.Command) {
	go func() {
		err := s.world.Dispatch(ctx, cmd)
		if errors.Is(err, world_sync.ErrUnknownAction) || errors.Is(err, world_sync.ErrSpeedRange) {
			s.logger.Printf("session: %s rejected: %v", cmd.Action, err)
		}
	}()
}

// isAlive indexes the current snapshot on the first toggle after it arrives.
func (s *Session) isAlive(cell models.Cell) bool {
	if s.live == nil {
		s.live = models.CellSet(s.snap.Cells)
	}
	_, ok := s.live[cell]
	return ok
}

func clampDim(d int) int {
	if d < 1 {
		return 1
	}
	if d > maxCanvasDim {
		return maxCanvasDim
	}
	return d
}
