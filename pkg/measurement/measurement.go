// Package measurement implements the two-click distance tool. Completed
// measurements are kept in image coordinates and mapped onto the canvas
// through the current viewport on every redraw, so they follow pan and
// zoom.
package measurement

import (
	"fmt"
	"log/slog"

	"mriviewer/internal/models"
	"mriviewer/pkg/state"
	"mriviewer/pkg/transform"
	"mriviewer/pkg/visualization"
)

// Cursor affordances of the image surface
const (
	CursorCrosshair = "crosshair"
	CursorGrab      = "grab"
)

// Canvas is the part of the display engine the tool draws on
type Canvas interface {
	Viewport() (transform.Viewport, bool)
	Overlay() *visualization.Overlay
}

// Engine places measurement points and keeps the overlay in sync with the
// saved measurements.
type Engine struct {
	state  *state.State
	canvas Canvas
	logger *slog.Logger
}

// NewEngine creates a measurement engine drawing on canvas
func NewEngine(st *state.State, canvas Canvas, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{state: st, canvas: canvas, logger: logger}
}

// FormatDistance renders a distance the way the result label shows it
func FormatDistance(mm float64) string {
	return fmt.Sprintf("Distance: %.2f mm", mm)
}

// Click places a point at a canvas position. The first click of a pair
// leaves a pending marker; the second completes the measurement. Clicks
// outside measurement mode, or before an image is shown, are ignored.
func (e *Engine) Click(p transform.Point) error {
	if !e.state.MeasurementMode() {
		return nil
	}
	vp, ok := e.canvas.Viewport()
	if !ok {
		return nil
	}
	ip, err := transform.CanvasToImage(p, vp)
	if err != nil {
		return fmt.Errorf("placing measurement point: %w", err)
	}

	if e.state.AddPending(models.MeasurementPoint{Image: ip, Canvas: p}) >= 2 {
		pts := e.state.PendingPoints()
		m := models.Measurement{
			P1:         pts[0].Image,
			P2:         pts[1].Image,
			DistanceMM: transform.DistanceMM(pts[0].Image, pts[1].Image, e.state.PixelSpacing()),
		}
		e.state.SaveMeasurement(m)
		e.state.ClearPending()
		e.logger.Info("saved measurement",
			"p1", fmt.Sprintf("(%.2f, %.2f)", m.P1.X, m.P1.Y),
			"p2", fmt.Sprintf("(%.2f, %.2f)", m.P2.X, m.P2.Y),
			"distance_mm", m.DistanceMM)
	}

	e.Redraw()
	return nil
}

// Redraw rebuilds the overlay from the saved measurements and the pending
// point using the current viewport.
func (e *Engine) Redraw() {
	o := e.canvas.Overlay()
	o.Clear()

	vp, ok := e.canvas.Viewport()
	if !ok {
		o.HideResult()
		return
	}

	for _, m := range e.state.Measurements() {
		c1 := transform.ImageToCanvas(m.P1, vp)
		c2 := transform.ImageToCanvas(m.P2, vp)
		o.Line(c1, c2)
		o.Marker(c1)
		o.Marker(c2)
	}
	if p, ok := e.state.Pending(); ok {
		o.Marker(transform.ImageToCanvas(p.Image, vp))
	}

	if last, ok := e.state.LastMeasurement(); ok {
		o.SetResult(FormatDistance(last.DistanceMM))
	} else {
		o.HideResult()
	}
}

// ToggleMode switches measurement mode, dropping any pending point
func (e *Engine) ToggleMode() {
	e.state.SetMeasurementMode(!e.state.MeasurementMode())
	e.Redraw()
}

// Clear removes every measurement and leaves measurement mode
func (e *Engine) Clear() {
	e.state.ClearMeasurements()
	e.state.SetMeasurementMode(false)
	e.Redraw()
}

// Cancel leaves measurement mode and drops the pending point. Saved
// measurements stay on screen.
func (e *Engine) Cancel() {
	if !e.state.MeasurementMode() {
		return
	}
	e.state.SetMeasurementMode(false)
	e.Redraw()
}

// Cursor returns the cursor affordance for the current mode
func (e *Engine) Cursor() string {
	if e.state.MeasurementMode() {
		return CursorCrosshair
	}
	return CursorGrab
}
