// Package viewcontrol adjusts the viewport of the displayed image: zoom,
// pan, window/level and reset.
package viewcontrol

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"mriviewer/pkg/state"
	"mriviewer/pkg/transform"
)

// Canvas is the part of the display engine that owns the viewport
type Canvas interface {
	Viewport() (transform.Viewport, bool)
	SetViewport(vp transform.Viewport)
	Reset()
}

// Redrawer refreshes the measurement overlay after the viewport moved
type Redrawer interface {
	Redraw()
}

// Settings holds the zoom increments and limits
type Settings struct {
	// ZoomStep is applied by the zoom buttons
	ZoomStep float64
	// WheelStep is applied per wheel notch
	WheelStep float64

	MinScale float64
	MaxScale float64
}

// DefaultSettings returns the stock zoom behaviour
func DefaultSettings() Settings {
	return Settings{
		ZoomStep:  0.2,
		WheelStep: 0.1,
		MinScale:  transform.MinScale,
		MaxScale:  transform.MaxScale,
	}
}

// Controller applies view changes to a canvas
type Controller struct {
	state    *state.State
	canvas   Canvas
	overlay  Redrawer
	settings Settings

	// slider positions of the brightness and contrast controls
	brightness float64
	contrast   float64
}

// New creates a view controller. overlay may be nil.
func New(st *state.State, canvas Canvas, overlay Redrawer, settings Settings) *Controller {
	if settings.ZoomStep <= 0 {
		settings.ZoomStep = DefaultSettings().ZoomStep
	}
	if settings.WheelStep <= 0 {
		settings.WheelStep = DefaultSettings().WheelStep
	}
	settings.MinScale = math.Max(settings.MinScale, transform.MinScale)
	if settings.MaxScale <= 0 || settings.MaxScale > transform.MaxScale {
		settings.MaxScale = transform.MaxScale
	}
	return &Controller{state: st, canvas: canvas, overlay: overlay, settings: settings}
}

// ZoomIn enlarges the image by one zoom step
func (c *Controller) ZoomIn() bool {
	return c.zoom(c.settings.ZoomStep)
}

// ZoomOut shrinks the image by one zoom step
func (c *Controller) ZoomOut() bool {
	return c.zoom(-c.settings.ZoomStep)
}

// Wheel zooms by one wheel step; scrolling down (deltaY > 0) zooms out
func (c *Controller) Wheel(deltaY float64) bool {
	if deltaY > 0 {
		return c.zoom(-c.settings.WheelStep)
	}
	return c.zoom(c.settings.WheelStep)
}

// zoom changes the scale by delta. Zoom only applies while no measurement
// is in progress or on screen; it reports whether the scale was changed.
func (c *Controller) zoom(delta float64) bool {
	if !c.state.ZoomAllowed() {
		return false
	}
	vp, ok := c.canvas.Viewport()
	if !ok {
		return false
	}
	vp.Scale = math.Max(c.settings.MinScale, math.Min(c.settings.MaxScale, vp.Scale+delta))
	c.canvas.SetViewport(vp)
	c.redraw()
	return true
}

// Pan moves the image by a canvas-space drag delta
func (c *Controller) Pan(dx, dy float64) {
	vp, ok := c.canvas.Viewport()
	if !ok {
		return
	}
	c.canvas.SetViewport(transform.Pan(vp, r2.Vec{X: dx, Y: dy}))
	c.redraw()
}

// AdjustBrightness shifts the window center by value/10
func (c *Controller) AdjustBrightness(value float64) {
	vp, ok := c.canvas.Viewport()
	if !ok {
		return
	}
	c.brightness = value
	vp.VOI.WindowCenter += value / 10
	c.canvas.SetViewport(vp)
}

// AdjustContrast widens the window by value/10, keeping it at least 1
func (c *Controller) AdjustContrast(value float64) {
	vp, ok := c.canvas.Viewport()
	if !ok {
		return
	}
	c.contrast = value
	vp.VOI.WindowWidth = transform.ClampWindowWidth(vp.VOI.WindowWidth + value/10)
	c.canvas.SetViewport(vp)
}

// Reset restores the default viewport and zeroes the sliders
func (c *Controller) Reset() {
	c.canvas.Reset()
	c.brightness = 0
	c.contrast = 0
	c.redraw()
}

// Sliders returns the brightness and contrast slider positions
func (c *Controller) Sliders() (brightness, contrast float64) {
	return c.brightness, c.contrast
}

func (c *Controller) redraw() {
	if c.overlay != nil {
		c.overlay.Redraw()
	}
}
