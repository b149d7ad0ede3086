// Package visualization implements the display engine of the viewer: a
// software canvas that holds the displayed image and its viewport, records
// the measurement overlay and composites both into a raster.
package visualization

import (
	"errors"

	"github.com/gogpu/gg"

	"mriviewer/pkg/transform"
)

// ErrNoImage is returned when rendering a canvas that shows nothing
var ErrNoImage = errors.New("no image to export")

// Canvas is a display surface. It owns the viewport of the image it shows.
type Canvas struct {
	width      int
	height     int
	background gg.RGBA

	image    *Image
	viewport transform.Viewport

	overlay *Overlay
}

// NewCanvas creates an empty canvas of the given size in pixels
func NewCanvas(width, height int) *Canvas {
	return &Canvas{
		width:      width,
		height:     height,
		background: gg.RGB(0, 0, 0),
		overlay:    NewOverlay(),
	}
}

// SetBackground sets the fill colour around the image from a hex string
// such as "#000000"
func (c *Canvas) SetBackground(hex string) {
	c.background = gg.Hex(hex)
}

// Size returns the canvas dimensions
func (c *Canvas) Size() (int, int) {
	return c.width, c.height
}

// Overlay returns the measurement overlay drawn over the image
func (c *Canvas) Overlay() *Overlay {
	return c.overlay
}

// Image returns the displayed image, or nil
func (c *Canvas) Image() *Image {
	return c.image
}

// Display shows img. The first image gets the default viewport; later
// images keep the current pan, zoom and window.
func (c *Canvas) Display(img *Image) {
	first := c.image == nil
	c.image = img
	if first {
		c.viewport = c.defaultViewport()
	}
}

// Viewport returns the current viewport; ok is false while nothing is shown
func (c *Canvas) Viewport() (transform.Viewport, bool) {
	return c.viewport, c.image != nil
}

// SetViewport replaces the viewport, enforcing the scale and window limits
func (c *Canvas) SetViewport(vp transform.Viewport) {
	if c.image == nil {
		return
	}
	vp.Scale = transform.ClampScale(vp.Scale)
	vp.VOI.WindowWidth = transform.ClampWindowWidth(vp.VOI.WindowWidth)
	c.viewport = vp
}

// Reset restores the default viewport of the displayed image
func (c *Canvas) Reset() {
	if c.image == nil {
		return
	}
	c.viewport = c.defaultViewport()
}

// Clear removes the image and the overlay
func (c *Canvas) Clear() {
	c.image = nil
	c.viewport = transform.Viewport{}
	c.overlay.Clear()
	c.overlay.HideResult()
}

func (c *Canvas) defaultViewport() transform.Viewport {
	return transform.Fit(c.image.Width, c.image.Height, c.width, c.height, c.image.DefaultVOI)
}
