// viewport maps the unbounded world grid onto screen pixels. ViewState is a
// plain value; Controller owns one and is the only thing that mutates it.
package viewport

import (
	"math"

	"lifeview/models"
)

const (
	MinScale     = 5.0
	MaxScale     = 50.0
	DefaultScale = 20.0

	zoomInFactor  = 1.1
	zoomOutFactor = 0.9
)

// ViewState is the zoom scale (pixels per cell) and the pixel offset of world (0,0).
// Scale is kept in [MinScale, MaxScale] by the Controller on every mutation.
type ViewState struct {
	Scale   float64
	OffsetX float64
	OffsetY float64
}

// DefaultViewState is the view every session starts with.
func DefaultViewState() ViewState {
	return ViewState{Scale: DefaultScale}
}

// WorldToScreen returns the pixel position of the top-left corner of world cell (x, y).
func (v ViewState) WorldToScreen(x, y float64) (px, py float64) {
	return x*v.Scale + v.OffsetX, y*v.Scale + v.OffsetY
}

// ScreenToWorld is the inverse of WorldToScreen. The result is fractional; use
// CellAt to get the cell address under a pixel.
func (v ViewState) ScreenToWorld(px, py float64) (x, y float64) {
	return (px - v.OffsetX) / v.Scale, (py - v.OffsetY) / v.Scale
}

// CellAt returns the address of the cell covering pixel (px, py).
func (v ViewState) CellAt(px, py float64) models.Cell {
	x, y := v.ScreenToWorld(px, py)
	return models.Cell{X: int(math.Floor(x)), Y: int(math.Floor(y))}
}

// Bounds is an inclusive rectangle of world cell addresses.
type Bounds struct {
	MinX, MinY int
	MaxX, MaxY int
}

// VisibleBounds inverse-transforms the canvas corners and widens the result by one
// cell on every side, which is the range grid lines are drawn for.
func (v ViewState) VisibleBounds(width, height int) Bounds {
	x0, y0 := v.ScreenToWorld(0, 0)
	x1, y1 := v.ScreenToWorld(float64(width), float64(height))
	return Bounds{
		MinX: int(math.Floor(x0)) - 1,
		MinY: int(math.Floor(y0)) - 1,
		MaxX: int(math.Ceil(x1)) + 1,
		MaxY: int(math.Ceil(y1)) + 1,
	}
}

// ClampScale limits scale to [MinScale, MaxScale].
func ClampScale(scale float64) float64 {
	return math.Max(MinScale, math.Min(MaxScale, scale))
}

// ZoomScale returns the scale after one wheel notch. A positive deltaY zooms out.
// Zoom pivots on the screen origin; the offset is left alone.
func ZoomScale(deltaY, current float64) float64 {
	factor := zoomInFactor
	if deltaY > 0 {
		factor = zoomOutFactor
	}
	return ClampScale(current * factor)
}
