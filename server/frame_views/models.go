// frame_views contains views derived from the FrameModel view-model.
package frame_views

import (
	"fmt"
	"strings"

	"lifeview/models"
	"lifeview/session"
	"lifeview/viewport"
)

// FrameModel is a session.Frame flattened into fields that are immediately usable
// as view parameters, both by the page template and by the views' ele-updates.
type FrameModel struct {
	View     viewport.ViewState
	Width    int
	Height   int
	Dragging bool
	Cells    []models.Cell

	Caption    string
	State      models.SimState
	StateLabel string
	StateClass string
	Ticks      uint64
	Population int
	TPS        int
	Controls   ControlSet
	Loading    bool
	Presets    []models.PresetDescriptor
}

// ControlSet tells which control buttons are offered.
type ControlSet struct {
	Start  bool
	Pause  bool
	Resume bool
	Stop   bool
	Step   bool
	Clear  bool
}

// Controls returns the buttons offered in a given simulation state: start when stopped,
// pause when running and resume when paused. Stop, step and clear are always offered.
func Controls(state models.SimState) ControlSet {
	set := ControlSet{Stop: true, Step: true, Clear: true}
	switch state {
	case models.Running:
		set.Pause = true
	case models.Paused:
		set.Resume = true
	default:
		set.Start = true
	}
	return set
}

// Caption is the overlay text painted over the bottom of every frame.
func Caption(scale float64) string {
	return fmt.Sprintf("Zoom: %.1fx | Use mouse wheel to zoom | Drag to pan", scale)
}

// Convert transforms the passed frame into a FrameModel for consumption by the frame views.
func Convert(frame session.Frame) FrameModel {
	status := frame.Snapshot.Status
	label := status.State.String()
	return FrameModel{
		View:       frame.View,
		Width:      frame.Width,
		Height:     frame.Height,
		Dragging:   frame.Dragging,
		Cells:      frame.Snapshot.Cells,
		Caption:    Caption(frame.View.Scale),
		State:      status.State,
		StateLabel: strings.ToUpper(label[:1]) + label[1:],
		StateClass: "status-" + label,
		Ticks:      status.TickCount,
		Population: status.ActiveCells,
		TPS:        status.TPS,
		Controls:   Controls(status.State),
		Loading:    frame.Snapshot.Loading,
		Presets:    frame.Snapshot.Presets,
	}
}
