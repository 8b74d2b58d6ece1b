package frame_views

import (
	"html/template"
	"log"
	"strconv"

	"lifeview/render"
	"lifeview/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

// CanvasView paints every frame with the renderer and ships it to the page as a PNG data url.
type CanvasView struct {
	id       string
	renderer *render.Renderer
	canvas   *render.RGBACanvas
	logger   *log.Logger
	debug    bool
	updates  <-chan []fastview.EleUpdate
}

func NewCanvasView(
	done <-chan struct{},
	frames <-chan FrameModel,
	renderer *render.Renderer,
	logger *log.Logger,
	debug bool,
) (cv *CanvasView) {
	if logger == nil {
		logger = log.Default()
	}
	cv = &CanvasView{
		id:       "viewport",
		renderer: renderer,
		logger:   logger,
		debug:    debug,
	}
	cv.updates = channerics.Convert(done, frames, cv.onUpdate)
	return
}

func (cv *CanvasView) Updates() <-chan []fastview.EleUpdate {
	return cv.updates
}

// onUpdate redraws the whole frame. The canvas is reused until the frame size changes.
func (cv *CanvasView) onUpdate(fm FrameModel) []fastview.EleUpdate {
	if cv.canvas == nil {
		cv.canvas = render.NewRGBACanvas(fm.Width, fm.Height)
	} else if w, h := cv.canvas.Size(); w != fm.Width || h != fm.Height {
		cv.canvas = render.NewRGBACanvas(fm.Width, fm.Height)
	}

	stats := cv.renderer.Render(cv.canvas, fm.View, fm.Cells)
	cv.renderer.Caption(cv.canvas, fm.Caption)
	if cv.debug {
		cv.logger.Printf("render: %d grid lines, %d painted, %d culled",
			stats.GridLines, stats.Painted, stats.Culled)
	}

	src, err := render.EncodePNG(cv.canvas.Image())
	if err != nil {
		cv.logger.Printf("render: encode failed: %v", err)
		return nil
	}

	cursor := "grab"
	if fm.Dragging {
		cursor = "grabbing"
	}
	return []fastview.EleUpdate{
		{
			EleId: cv.id,
			Ops: []fastview.Op{
				{Key: "src", Value: src},
				{Key: "width", Value: strconv.Itoa(fm.Width)},
				{Key: "height", Value: strconv.Itoa(fm.Height)},
				{Key: "style", Value: "cursor: " + cursor},
			},
		},
	}
}

func (cv *CanvasView) Parse(
	t *template.Template,
) (name string, err error) {
	name = cv.id
	_, err = t.Parse(
		`{{ define "` + name + `" }}
		<div id="stage">
			<img id="` + cv.id + `"
				width="{{ .Width }}"
				height="{{ .Height }}"
				draggable="false"
				style="cursor: grab"
				alt="world view">
		</div>
		{{ end }}`)
	return
}
