// world_sync keeps a client-side snapshot of the remote world current. A Loop
// polls status and the full cell collection on a fixed cadence, issues control
// actions on demand, and publishes every accepted change to its subscribers.
package world_sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"lifeview/atomic_float"
	"lifeview/models"

	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultInterval = 100 * time.Millisecond
	MinTPS          = 1
	MaxTPS          = 100

	// Weight of a new sample in the latency average.
	latencyAlpha = 0.2
)

// World is the remote simulation service. *remote.Client implements it.
type World interface {
	Status(ctx context.Context) (models.SimulationStatus, error)
	AllCells(ctx context.Context) ([]models.Cell, error)
	Presets(ctx context.Context) ([]models.PresetDescriptor, error)
	Start(ctx context.Context) (models.SimulationStatus, error)
	Stop(ctx context.Context) (models.SimulationStatus, error)
	Pause(ctx context.Context) (models.SimulationStatus, error)
	Resume(ctx context.Context) (models.SimulationStatus, error)
	Step(ctx context.Context) (models.SimulationStatus, error)
	SetSpeed(ctx context.Context, tps int) (models.SimulationStatus, error)
	LoadPreset(ctx context.Context, name string, offsetX, offsetY int) error
	SetCell(ctx context.Context, x, y int, alive bool) error
	Clear(ctx context.Context) error
}

// Snapshot is the client's view of the remote world. Published snapshots are
// never mutated; Cells is replaced wholesale, not patched.
type Snapshot struct {
	Status  models.SimulationStatus
	Cells   []models.Cell
	Presets []models.PresetDescriptor
	// Loading is true until the initial status/preset fetch has finished, successfully or not.
	Loading bool
	// Version increments with every published change.
	Version uint64
}

// ErrSpeedRange is returned for a speed outside [MinTPS, MaxTPS]; no request is made.
var ErrSpeedRange = fmt.Errorf("tps must be within [%d, %d]", MinTPS, MaxTPS)

// Loop owns the snapshot. Fetch results are applied freshest-first: each fetch
// takes a sequence number when issued and its result is dropped if a fetch
// issued later has already been applied to the same field.
type Loop struct {
	world    World
	interval time.Duration
	logger   *log.Logger
	hub      *Broadcaster[Snapshot]

	mu        sync.Mutex
	snap      Snapshot
	statusSeq uint64
	cellsSeq  uint64

	seq      atomic.Uint64
	inFlight atomic.Bool
	skipped  atomic.Uint64
	latency  atomic_float.AtomicFloat64
	wg       sync.WaitGroup
}

func NewLoop(world World, interval time.Duration, logger *log.Logger) *Loop {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Loop{
		world:    world,
		interval: interval,
		logger:   logger,
		hub:      NewBroadcaster[Snapshot](),
		snap: Snapshot{
			Cells:   []models.Cell{},
			Loading: true,
		},
	}
}

// Snapshot returns the current snapshot.
func (l *Loop) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snap
}

// Subscribe returns a channel that immediately holds the current snapshot and
// afterwards receives every published one (latest-wins when lagging).
func (l *Loop) Subscribe() chan Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch := l.hub.Subscribe()
	ch <- l.snap
	return ch
}

func (l *Loop) Unsubscribe(ch chan Snapshot) {
	l.hub.Unsubscribe(ch)
}

// Latency is the moving average of poll round trips, in milliseconds.
func (l *Loop) Latency() float64 {
	return l.latency.Load()
}

// Skipped counts ticks that found the previous poll still outstanding.
func (l *Loop) Skipped() uint64 {
	return l.skipped.Load()
}

// Subscribers is the number of open snapshot subscriptions, one per live page.
func (l *Loop) Subscribers() int {
	return l.hub.Len()
}

// Init fetches the status and preset list once. The loading phase ends whatever
// the outcome.
func (l *Loop) Init(ctx context.Context) error {
	seq := l.seq.Add(1)

	var status models.SimulationStatus
	var presets []models.PresetDescriptor
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() (err error) {
		status, err = l.world.Status(groupCtx)
		return
	})
	group.Go(func() (err error) {
		presets, err = l.world.Presets(groupCtx)
		return
	})
	err := group.Wait()
	if err != nil {
		l.report("init", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err == nil {
		l.snap.Presets = presets
		if seq > l.statusSeq {
			l.snap.Status = status
			l.statusSeq = seq
		}
	}
	l.snap.Loading = false
	l.publishLocked()
	return err
}

// Run polls every interval until ctx is done. A tick is skipped while the
// previous poll is still outstanding. Run waits for that poll before returning.
func (l *Loop) Run(ctx context.Context) error {
	defer l.wg.Wait()

	ticker := channerics.NewTicker(ctx.Done(), l.interval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-ticker:
			if !ok || ctx.Err() != nil {
				return nil
			}
			l.tick(ctx)
		}
	}
}

func (l *Loop) tick(ctx context.Context) {
	if !l.inFlight.CompareAndSwap(false, true) {
		l.skipped.Add(1)
		return
	}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer l.inFlight.Store(false)
		_ = l.Poll(ctx)
	}()
}

// Poll fetches status and cells concurrently and applies both only if both
// succeeded. On failure the held snapshot is left exactly as it was.
func (l *Loop) Poll(ctx context.Context) error {
	seq := l.seq.Add(1)
	started := time.Now()

	var status models.SimulationStatus
	var cells []models.Cell
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() (err error) {
		status, err = l.world.Status(groupCtx)
		return
	})
	group.Go(func() (err error) {
		cells, err = l.world.AllCells(groupCtx)
		return
	})
	if err := group.Wait(); err != nil {
		l.report("poll", err)
		return err
	}

	l.latency.Smooth(float64(time.Since(started).Microseconds())/1000, latencyAlpha)
	if cells == nil {
		cells = []models.Cell{}
	}
	l.apply(seq, &status, cells)
	return nil
}

func (l *Loop) Start(ctx context.Context) error {
	return l.control(ctx, "start", l.world.Start)
}

func (l *Loop) Stop(ctx context.Context) error {
	return l.control(ctx, "stop", l.world.Stop)
}

func (l *Loop) Pause(ctx context.Context) error {
	return l.control(ctx, "pause", l.world.Pause)
}

func (l *Loop) Resume(ctx context.Context) error {
	return l.control(ctx, "resume", l.world.Resume)
}

func (l *Loop) Step(ctx context.Context) error {
	return l.control(ctx, "step", l.world.Step)
}

func (l *Loop) SetSpeed(ctx context.Context, tps int) error {
	if tps < MinTPS || tps > MaxTPS {
		return ErrSpeedRange
	}
	return l.control(ctx, "speed", func(ctx context.Context) (models.SimulationStatus, error) {
		return l.world.SetSpeed(ctx, tps)
	})
}

// LoadPreset loads a preset remotely, then refetches the cells once, off the
// poll cadence, so the new world shows without waiting for the next tick.
func (l *Loop) LoadPreset(ctx context.Context, name string, offsetX, offsetY int) error {
	if err := l.world.LoadPreset(ctx, name, offsetX, offsetY); err != nil {
		l.report("load preset "+name, err)
		return err
	}
	return l.RefreshCells(ctx)
}

// RefreshCells fetches and applies the cell collection alone.
func (l *Loop) RefreshCells(ctx context.Context) error {
	seq := l.seq.Add(1)
	cells, err := l.world.AllCells(ctx)
	if err != nil {
		l.report("refresh cells", err)
		return err
	}
	if cells == nil {
		cells = []models.Cell{}
	}
	l.apply(seq, nil, cells)
	return nil
}

// Clear empties the remote world and, once acknowledged, the held cells.
func (l *Loop) Clear(ctx context.Context) error {
	seq := l.seq.Add(1)
	if err := l.world.Clear(ctx); err != nil {
		l.report("clear", err)
		return err
	}
	l.apply(seq, nil, []models.Cell{})
	return nil
}

// SetCell sets one cell remotely. The ack carries no world state; the change
// shows with the next poll.
func (l *Loop) SetCell(ctx context.Context, x, y int, alive bool) error {
	if err := l.world.SetCell(ctx, x, y, alive); err != nil {
		l.report(fmt.Sprintf("set cell (%d,%d)", x, y), err)
		return err
	}
	return nil
}

func (l *Loop) control(
	ctx context.Context,
	name string,
	call func(context.Context) (models.SimulationStatus, error),
) error {
	seq := l.seq.Add(1)
	status, err := call(ctx)
	if err != nil {
		l.report(name, err)
		return err
	}
	l.apply(seq, &status, nil)
	return nil
}

// apply installs whichever of status and cells are newer than what is held.
// A nil status or nil cells leaves that field alone.
func (l *Loop) apply(seq uint64, status *models.SimulationStatus, cells []models.Cell) {
	l.mu.Lock()
	defer l.mu.Unlock()

	changed := false
	if status != nil && seq > l.statusSeq {
		l.snap.Status = *status
		l.statusSeq = seq
		changed = true
	}
	if cells != nil && seq > l.cellsSeq {
		l.snap.Cells = cells
		l.cellsSeq = seq
		changed = true
	}
	if changed {
		l.publishLocked()
	}
}

// publishLocked must be called with mu held, which keeps publication order
// identical to application order.
func (l *Loop) publishLocked() {
	l.snap.Version++
	l.hub.Publish(l.snap)
}

func (l *Loop) report(op string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	l.logger.Printf("sync: %s failed: %v", op, err)
}
