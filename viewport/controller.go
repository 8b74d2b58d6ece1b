package viewport

// Controller interprets drag and wheel gestures as ViewState changes. It never
// touches the network. Every mutation marks the controller dirty; the owner
// redraws once per TakeDirty that returns true.
type Controller struct {
	view     ViewState
	dragging bool
	anchorX  float64
	anchorY  float64
	dirty    bool
}

// NewController starts from the passed view, with its scale clamped.
func NewController(initial ViewState) *Controller {
	initial.Scale = ClampScale(initial.Scale)
	return &Controller{view: initial, dirty: true}
}

func (c *Controller) View() ViewState {
	return c.view
}

func (c *Controller) Dragging() bool {
	return c.dragging
}

// BeginDrag anchors the drag so that the world stays under the pointer.
func (c *Controller) BeginDrag(px, py float64) {
	c.dragging = true
	c.anchorX = px - c.view.OffsetX
	c.anchorY = py - c.view.OffsetY
}

// ContinueDrag moves the offset with the pointer. No-op unless dragging.
func (c *Controller) ContinueDrag(px, py float64) {
	if !c.dragging {
		return
	}
	c.view.OffsetX = px - c.anchorX
	c.view.OffsetY = py - c.anchorY
	c.dirty = true
}

// EndDrag clears the dragging flag unconditionally. Pointer-leave ends up here too.
func (c *Controller) EndDrag() {
	c.dragging = false
}

// Zoom applies one wheel notch; see ZoomScale.
func (c *Controller) Zoom(deltaY float64) {
	next := ZoomScale(deltaY, c.view.Scale)
	if next == c.view.Scale {
		return
	}
	c.view.Scale = next
	c.dirty = true
}

// TakeDirty reports whether the view changed since the last call, and resets the flag.
func (c *Controller) TakeDirty() bool {
	dirty := c.dirty
	c.dirty = false
	return dirty
}
