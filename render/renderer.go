// render paints one frame of the world: background, the grid lines that are on
// screen, and every live cell whose square intersects the canvas.
package render

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"lifeview/models"
	"lifeview/viewport"
)

// Palette holds the frame colors.
type Palette struct {
	Background color.RGBA
	Grid       color.RGBA
	Cell       color.RGBA
	Caption    color.RGBA
}

func DefaultPalette() Palette {
	return Palette{
		Background: color.RGBA{R: 0x0a, G: 0x0e, B: 0x27, A: 0xff},
		Grid:       color.RGBA{R: 0x1e, G: 0x21, B: 0x39, A: 0xff},
		Cell:       color.RGBA{R: 0xa7, G: 0x8b, B: 0xfa, A: 0xff},
		Caption:    color.RGBA{R: 0xc8, G: 0xc8, B: 0xd8, A: 0xff},
	}
}

// ParseHexColor parses "#rrggbb" (the leading # is optional) into an opaque color.
func ParseHexColor(s string) (c color.RGBA, err error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		err = fmt.Errorf("color %q: want #rrggbb", s)
		return
	}
	var v uint64
	if v, err = strconv.ParseUint(s, 16, 32); err != nil {
		err = fmt.Errorf("color %q: %w", s, err)
		return
	}
	c = color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
	return
}

// Stats describes what one Render call painted.
type Stats struct {
	GridLines int
	Painted   int
	Culled    int
}

type Renderer struct {
	palette    Palette
	glowRadius float64
}

func NewRenderer(palette Palette) *Renderer {
	return &Renderer{
		palette:    palette,
		glowRadius: 10,
	}
}

// Render repaints the whole canvas for the passed view and cells.
func (r *Renderer) Render(
	cv Canvas,
	view viewport.ViewState,
	cells []models.Cell,
) (stats Stats) {
	width, height := cv.Size()
	cv.Fill(r.palette.Background)

	bounds := view.VisibleBounds(width, height)
	for x := bounds.MinX; x <= bounds.MaxX; x++ {
		sx, _ := view.WorldToScreen(float64(x), 0)
		cv.VLine(sx, r.palette.Grid)
		stats.GridLines++
	}
	for y := bounds.MinY; y <= bounds.MaxY; y++ {
		_, sy := view.WorldToScreen(0, float64(y))
		cv.HLine(sy, r.palette.Grid)
		stats.GridLines++
	}

	for _, cell := range cells {
		if !Visible(view, cell, width, height) {
			stats.Culled++
			continue
		}
		rect := CellRect(view, cell)
		cv.Glow(rect, r.palette.Cell, r.glowRadius)
		cv.FillRect(rect, r.palette.Cell)
		stats.Painted++
	}
	return
}

// Caption writes a line of text in the bottom-left corner of the canvas.
func (r *Renderer) Caption(cv Canvas, text string) {
	_, height := cv.Size()
	cv.Text(8, height-8, text, r.palette.Caption)
}

// CellRect is the painted square of a cell: its screen square inset by one pixel.
func CellRect(view viewport.ViewState, cell models.Cell) Rect {
	x, y := view.WorldToScreen(float64(cell.X), float64(cell.Y))
	return Rect{X: x + 1, Y: y + 1, W: view.Scale - 2, H: view.Scale - 2}
}

// Visible reports whether the cell's screen square intersects a width x height canvas.
func Visible(view viewport.ViewState, cell models.Cell, width, height int) bool {
	x, y := view.WorldToScreen(float64(cell.X), float64(cell.Y))
	return x > -view.Scale && x < float64(width) &&
		y > -view.Scale && y < float64(height)
}
