package world_sync

import (
	"context"
	"fmt"
)

// Action names a one-shot control action against the remote world.
type Action string

const (
	ActionStart  Action = "start"
	ActionStop   Action = "stop"
	ActionPause  Action = "pause"
	ActionResume Action = "resume"
	ActionStep   Action = "step"
	ActionSpeed  Action = "speed"
	ActionPreset Action = "preset"
	ActionClear  Action = "clear"
	ActionCell   Action = "cell"
)

// Command is an action plus whichever arguments it takes.
type Command struct {
	Action  Action
	TPS     int
	Preset  string
	OffsetX int
	OffsetY int
	X, Y    int
	Alive   bool
}

// ErrUnknownAction is returned by Dispatch for an action it does not know.
var ErrUnknownAction = fmt.Errorf("unknown action")

// Dispatch runs cmd against the loop.
func (l *Loop) Dispatch(ctx context.Context, cmd Command) error {
	switch cmd.Action {
	case ActionStart:
		return l.Start(ctx)
	case ActionStop:
		return l.Stop(ctx)
	case ActionPause:
		return l.Pause(ctx)
	case ActionResume:
		return l.Resume(ctx)
	case ActionStep:
		return l.Step(ctx)
	case ActionSpeed:
		return l.SetSpeed(ctx, cmd.TPS)
	case ActionPreset:
		return l.LoadPreset(ctx, cmd.Preset, cmd.OffsetX, cmd.OffsetY)
	case ActionClear:
		return l.Clear(ctx)
	case ActionCell:
		return l.SetCell(ctx, cmd.X, cmd.Y, cmd.Alive)
	}
	return fmt.Errorf("%w: %q", ErrUnknownAction, cmd.Action)
}
