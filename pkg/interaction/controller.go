// Package interaction turns raw input events into calls on the navigator,
// the measurement engine and the view controller.
package interaction

import (
	"fmt"
	"log/slog"

	"mriviewer/pkg/state"
	"mriviewer/pkg/transform"
)

// Navigator moves between slices and series
type Navigator interface {
	SelectSeries(id string) error
	LoadSlice(i int)
	Next()
	Previous()
	First()
	Last()
}

// Measurer is the measurement tool
type Measurer interface {
	Click(p transform.Point) error
	ToggleMode()
	Clear()
	Cancel()
	Cursor() string
}

// View adjusts the viewport
type View interface {
	ZoomIn() bool
	ZoomOut() bool
	Wheel(deltaY float64) bool
	Pan(dx, dy float64)
	AdjustBrightness(value float64)
	AdjustContrast(value float64)
	Reset()
}

// Viewporter exposes the viewport used for the cursor readout
type Viewporter interface {
	Viewport() (transform.Viewport, bool)
}

// Readout is the cursor coordinate overlay
type Readout struct {
	Visible  bool   `json:"visible"`
	Pixel    string `json:"pixel"`
	Position string `json:"position"`
}

// CursorGrabbing is shown while the image is being dragged
const CursorGrabbing = "grabbing"

// Controller dispatches input events. Pointer and wheel input is ignored
// until the first image has been displayed.
type Controller struct {
	state   *state.State
	nav     Navigator
	measure Measurer
	view    View
	canvas  Viewporter
	logger  *slog.Logger

	dragging bool
	last     transform.Point
	readout  Readout
}

// NewController wires a controller to its collaborators
func NewController(st *state.State, nav Navigator, measure Measurer, view View, canvas Viewporter, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		state:   st,
		nav:     nav,
		measure: measure,
		view:    view,
		canvas:  canvas,
		logger:  logger,
	}
}

// Handle processes one event
func (c *Controller) Handle(ev Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	switch ev.Type {
	case PointerDown, PointerMove, PointerUp, PointerLeave, Wheel:
		if !c.state.InteractionEnabled() {
			return nil
		}
		return c.handlePointer(ev)
	case KeyDown:
		c.handleKey(ev.Key)
		return nil
	default:
		return c.handleControl(ev)
	}
}

func (c *Controller) handlePointer(ev Event) error {
	p := transform.Pt(ev.X, ev.Y)
	switch ev.Type {
	case PointerDown:
		if c.state.MeasurementMode() {
			return c.measure.Click(p)
		}
		c.dragging = true
		c.last = p
	case PointerMove:
		if c.dragging {
			c.view.Pan(p.X-c.last.X, p.Y-c.last.Y)
			c.last = p
		}
		c.updateReadout(p)
	case PointerUp:
		c.dragging = false
	case PointerLeave:
		c.dragging = false
		c.readout.Visible = false
	case Wheel:
		c.view.Wheel(ev.DeltaY)
	}
	return nil
}

func (c *Controller) handleKey(key string) {
	if _, ok := c.state.CurrentSeries(); !ok {
		return
	}
	switch key {
	case "ArrowUp", "ArrowRight":
		c.nav.Next()
	case "ArrowDown", "ArrowLeft":
		c.nav.Previous()
	case "Escape":
		c.measure.Cancel()
	}
}

func (c *Controller) handleControl(ev Event) error {
	switch ev.Control {
	case ControlZoomIn:
		c.view.ZoomIn()
	case ControlZoomOut:
		c.view.ZoomOut()
	case ControlReset:
		c.view.Reset()
	case ControlMeasure:
		c.measure.ToggleMode()
	case ControlClearMeasure:
		c.measure.Clear()
	case ControlFirst:
		c.nav.First()
	case ControlPrevious:
		c.nav.Previous()
	case ControlNext:
		c.nav.Next()
	case ControlLast:
		c.nav.Last()
	case ControlSlice:
		c.nav.LoadSlice(int(ev.Value))
	case ControlSeries:
		return c.nav.SelectSeries(ev.Series)
	case ControlBrightness:
		c.view.AdjustBrightness(ev.Value)
	case ControlContrast:
		c.view.AdjustContrast(ev.Value)
	default:
		return fmt.Errorf("unknown control %q", ev.Control)
	}
	return nil
}

// updateReadout shows the image pixel under the cursor and its physical
// position
func (c *Controller) updateReadout(p transform.Point) {
	vp, ok := c.canvas.Viewport()
	if !ok {
		return
	}
	ip, err := transform.CanvasToImage(p, vp)
	if err != nil {
		c.logger.Debug("cursor readout unavailable", "error", err)
		return
	}
	px := transform.RoundToPixel(ip)
	mm := transform.PositionMM(px, c.state.PixelSpacing())

	c.readout = Readout{
		Visible:  true,
		Pixel:    fmt.Sprintf("Pixel: (%d, %d)", int(px.X), int(px.Y)),
		Position: fmt.Sprintf("Position: (%.2f, %.2f) mm", mm.X, mm.Y),
	}
}

// Readout returns the cursor coordinate overlay
func (c *Controller) Readout() Readout {
	return c.readout
}

// Cursor returns the cursor affordance of the image surface
func (c *Controller) Cursor() string {
	if c.dragging {
		return CursorGrabbing
	}
	return c.measure.Cursor()
}
