package render

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Rect is a pixel rectangle with a float origin, as produced by the view transform.
type Rect struct {
	X, Y, W, H float64
}

// Canvas is the paint surface the Renderer draws on. Tests substitute a recorder.
type Canvas interface {
	Size() (width, height int)
	Fill(c color.Color)
	VLine(x float64, c color.Color)
	HLine(y float64, c color.Color)
	FillRect(r Rect, c color.Color)
	// Glow paints a soft halo of the passed radius around r, under whatever is drawn next.
	Glow(r Rect, c color.Color, radius float64)
	Text(x, y int, s string, c color.Color)
}

// RGBACanvas is a Canvas backed by an in-memory RGBA image.
type RGBACanvas struct {
	img *image.RGBA
}

func NewRGBACanvas(width, height int) *RGBACanvas {
	return &RGBACanvas{img: image.NewRGBA(image.Rect(0, 0, width, height))}
}

func (cv *RGBACanvas) Image() *image.RGBA {
	return cv.img
}

func (cv *RGBACanvas) Size() (int, int) {
	b := cv.img.Bounds()
	return b.Dx(), b.Dy()
}

func (cv *RGBACanvas) Fill(c color.Color) {
	draw.Draw(cv.img, cv.img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

func (cv *RGBACanvas) VLine(x float64, c color.Color) {
	px := int(math.Round(x))
	cv.paint(image.Rect(px, 0, px+1, cv.img.Bounds().Dy()), c, draw.Over)
}

func (cv *RGBACanvas) HLine(y float64, c color.Color) {
	py := int(math.Round(y))
	cv.paint(image.Rect(0, py, cv.img.Bounds().Dx(), py+1), c, draw.Over)
}

func (cv *RGBACanvas) FillRect(r Rect, c color.Color) {
	cv.paint(toImageRect(r), c, draw.Over)
}

// Glow approximates a shadow blur with concentric translucent rings; inner rings
// overlap the outer ones so the halo brightens toward r.
func (cv *RGBACanvas) Glow(r Rect, c color.Color, radius float64) {
	const rings = 4
	cr, cg, cb, _ := c.RGBA()
	for i := 1; i <= rings; i++ {
		pad := radius * float64(rings-i+1) / rings
		halo := color.NRGBA{
			R: uint8(cr >> 8),
			G: uint8(cg >> 8),
			B: uint8(cb >> 8),
			A: uint8(20 * i),
		}
		cv.paint(toImageRect(Rect{X: r.X - pad, Y: r.Y - pad, W: r.W + 2*pad, H: r.H + 2*pad}), halo, draw.Over)
	}
}

func (cv *RGBACanvas) Text(x, y int, s string, c color.Color) {
	d := font.Drawer{
		Dst:  cv.img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func (cv *RGBACanvas) paint(r image.Rectangle, c color.Color, op draw.Op) {
	r = r.Intersect(cv.img.Bounds())
	if r.Empty() {
		return
	}
	draw.Draw(cv.img, r, image.NewUniform(c), image.Point{}, op)
}

func toImageRect(r Rect) image.Rectangle {
	return image.Rect(
		int(math.Round(r.X)),
		int(math.Round(r.Y)),
		int(math.Round(r.X+r.W)),
		int(math.Round(r.Y+r.H)),
	)
}
