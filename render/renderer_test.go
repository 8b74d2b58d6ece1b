package render

import (
	"image/color"
	"strings"
	"testing"

	"lifeview/models"
	"lifeview/viewport"

	. "github.com/smartystreets/goconvey/convey"
)

// recorder is a Canvas that remembers the operations painted on it.
type recorder struct {
	width, height int
	fills         []color.Color
	vlines        []float64
	hlines        []float64
	rects         []Rect
	glows         []Rect
	texts         []string
}

func (rc *recorder) Size() (int, int)                      { return rc.width, rc.height }
func (rc *recorder) Fill(c color.Color)                    { rc.fills = append(rc.fills, c) }
func (rc *recorder) VLine(x float64, _ color.Color)        { rc.vlines = append(rc.vlines, x) }
func (rc *recorder) HLine(y float64, _ color.Color)        { rc.hlines = append(rc.hlines, y) }
func (rc *recorder) FillRect(r Rect, _ color.Color)        { rc.rects = append(rc.rects, r) }
func (rc *recorder) Glow(r Rect, _ color.Color, _ float64) { rc.glows = append(rc.glows, r) }
func (rc *recorder) Text(_, _ int, s string, _ color.Color) {
	rc.texts = append(rc.texts, s)
}

func TestRender(t *testing.T) {
	renderer := NewRenderer(DefaultPalette())

	Convey("Given the default view on a 400x300 canvas", t, func() {
		cv := &recorder{width: 400, height: 300}
		view := viewport.DefaultViewState()

		Convey("Cell (5,5) is painted at (101,101) as an 18x18 square", func() {
			stats := renderer.Render(cv, view, []models.Cell{{X: 5, Y: 5}})
			So(stats.Painted, ShouldEqual, 1)
			So(cv.rects, ShouldResemble, []Rect{{X: 101, Y: 101, W: 18, H: 18}})
			So(cv.glows, ShouldHaveLength, 1)
		})

		Convey("The background is cleared before anything else", func() {
			renderer.Render(cv, view, nil)
			So(cv.fills, ShouldHaveLength, 1)
			So(cv.fills[0], ShouldResemble, DefaultPalette().Background)
		})

		Convey("Grid lines span the visible cells plus one on each side", func() {
			stats := renderer.Render(cv, view, nil)
			// x from -1 to 21, y from -1 to 16
			So(cv.vlines, ShouldHaveLength, 23)
			So(cv.hlines, ShouldHaveLength, 18)
			So(stats.GridLines, ShouldEqual, 41)
			So(cv.vlines[0], ShouldEqual, -20.0)
			So(cv.hlines[len(cv.hlines)-1], ShouldEqual, 320.0)
		})

		Convey("Cells entirely off the canvas are culled", func() {
			cells := []models.Cell{
				{X: -1, Y: 0},  // x = -20, exactly one cell left of the edge
				{X: 20, Y: 0},  // x = 400, at the right edge
				{X: 0, Y: -1},  // y = -20
				{X: 0, Y: 15},  // y = 300
				{X: 1000, Y: 3},
				{X: 0, Y: 0},
				{X: 19, Y: 14},
			}
			stats := renderer.Render(cv, view, cells)
			So(stats.Painted, ShouldEqual, 2)
			So(stats.Culled, ShouldEqual, 5)
			So(cv.rects, ShouldResemble, []Rect{
				{X: 1, Y: 1, W: 18, H: 18},
				{X: 381, Y: 281, W: 18, H: 18},
			})
		})

		Convey("A partially visible cell is painted", func() {
			view.OffsetX = -10
			stats := renderer.Render(cv, view, []models.Cell{{X: 0, Y: 0}})
			So(stats.Painted, ShouldEqual, 1)
		})

		Convey("The caption is written as text", func() {
			renderer.Caption(cv, "Zoom: 20.0x")
			So(cv.texts, ShouldResemble, []string{"Zoom: 20.0x"})
		})
	})
}

func TestRGBACanvas(t *testing.T) {
	Convey("Given a rendered RGBA canvas", t, func() {
		palette := DefaultPalette()
		cv := NewRGBACanvas(100, 100)
		NewRenderer(palette).Render(cv, viewport.DefaultViewState(), []models.Cell{{X: 2, Y: 2}})
		img := cv.Image()

		Convey("The cell interior carries the cell color", func() {
			So(img.RGBAAt(50, 50), ShouldResemble, palette.Cell)
		})

		Convey("Pixels far from any cell carry the background or grid color", func() {
			c := img.RGBAAt(5, 95)
			So(c == palette.Background || c == palette.Grid, ShouldBeTrue)
		})

		Convey("The frame encodes as a PNG data URL", func() {
			url, err := EncodePNG(img)
			So(err, ShouldBeNil)
			So(strings.HasPrefix(url, "data:image/png;base64,"), ShouldBeTrue)
		})
	})
}

func TestParseHexColor(t *testing.T) {
	Convey("Hex colors parse with or without the hash", t, func() {
		c, err := ParseHexColor("#a78bfa")
		So(err, ShouldBeNil)
		So(c, ShouldResemble, color.RGBA{R: 0xa7, G: 0x8b, B: 0xfa, A: 0xff})

		c, err = ParseHexColor("0a0e27")
		So(err, ShouldBeNil)
		So(c, ShouldResemble, DefaultPalette().Background)
	})

	Convey("Malformed colors are rejected", t, func() {
		_, err := ParseHexColor("#fff")
		So(err, ShouldNotBeNil)
		_, err = ParseHexColor("#gggggg")
		So(err, ShouldNotBeNil)
	})
}
