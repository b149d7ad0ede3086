// Package transform converts points between the three coordinate spaces of
// the viewer: image pixel space, the viewport transform, and canvas space.
//
// A viewport maps an image point p to the canvas as p*Scale + Translation.
// All functions are pure; none of them touch application state.
package transform

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Scale and window limits applied by every zoom and contrast operation.
const (
	MinScale       = 0.1
	MaxScale       = 10.0
	MinWindowWidth = 1.0
)

// ErrDegenerateViewport is returned when a viewport cannot be inverted.
var ErrDegenerateViewport = errors.New("viewport scale must be positive")

// Point is a 2D point in image or canvas space.
type Point = r2.Vec

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// VOI is the value-of-interest (window/level) part of a viewport.
type VOI struct {
	WindowCenter float64 `json:"windowCenter"`
	WindowWidth  float64 `json:"windowWidth"`
}

// Viewport is the display transform of a single canvas.
type Viewport struct {
	Scale       float64 `json:"scale"`
	Translation Point   `json:"translation"`
	VOI         VOI     `json:"voi"`
}

// PixelSpacing is the physical size of one pixel in millimetres.
// Row spacing is the vertical (Y) distance between rows and Column spacing
// the horizontal (X) distance between columns, matching the row\column
// order of the PixelSpacing attribute.
type PixelSpacing struct {
	Row    float64 `json:"row"`
	Column float64 `json:"column"`
}

// DefaultPixelSpacing is used when an image carries no spacing attribute.
func DefaultPixelSpacing() PixelSpacing {
	return PixelSpacing{Row: 1, Column: 1}
}

// ImageToCanvas maps an image-space point onto the canvas.
func ImageToCanvas(p Point, vp Viewport) Point {
	return r2.Add(r2.Scale(vp.Scale, p), vp.Translation)
}

// CanvasToImage maps a canvas point back into image space.
// It fails for a viewport with a non-positive scale.
func CanvasToImage(p Point, vp Viewport) (Point, error) {
	if !(vp.Scale > 0) {
		return Point{}, ErrDegenerateViewport
	}
	return r2.Scale(1/vp.Scale, r2.Sub(p, vp.Translation)), nil
}

// PixelDeltaToMM converts an image-space displacement into millimetres.
// Column spacing scales the X axis, row spacing the Y axis.
func PixelDeltaToMM(d Point, spacing PixelSpacing) Point {
	return Point{X: d.X * spacing.Column, Y: d.Y * spacing.Row}
}

// DistanceMM returns the physical distance between two image-space points.
func DistanceMM(p1, p2 Point, spacing PixelSpacing) float64 {
	return r2.Norm(PixelDeltaToMM(r2.Sub(p2, p1), spacing))
}

// PositionMM returns the physical offset of an image point from the image
// origin.
func PositionMM(p Point, spacing PixelSpacing) Point {
	return PixelDeltaToMM(p, spacing)
}

// RoundToPixel snaps an image-space point to the nearest pixel.
func RoundToPixel(p Point) Point {
	return Point{X: math.Round(p.X), Y: math.Round(p.Y)}
}

// ClampScale limits a zoom factor to [MinScale, MaxScale].
func ClampScale(s float64) float64 {
	return math.Max(MinScale, math.Min(MaxScale, s))
}

// ClampWindowWidth keeps the window width at or above MinWindowWidth.
func ClampWindowWidth(w float64) float64 {
	return math.Max(MinWindowWidth, w)
}

// Pan shifts the viewport by a canvas-space cursor delta. The delta is
// divided by the current scale so pan speed does not depend on zoom.
func Pan(vp Viewport, delta Point) Viewport {
	if vp.Scale > 0 {
		vp.Translation = r2.Add(vp.Translation, r2.Scale(1/vp.Scale, delta))
	}
	return vp
}

// Fit returns the viewport that centres an image of the given size on a
// canvas, scaled to fit entirely inside it.
func Fit(imageW, imageH, canvasW, canvasH int, voi VOI) Viewport {
	vp := Viewport{Scale: 1, VOI: voi}
	if imageW <= 0 || imageH <= 0 || canvasW <= 0 || canvasH <= 0 {
		return vp
	}
	s := math.Min(float64(canvasW)/float64(imageW), float64(canvasH)/float64(imageH))
	vp.Scale = ClampScale(s)
	vp.Translation = Point{
		X: (float64(canvasW) - float64(imageW)*vp.Scale) / 2,
		Y: (float64(canvasH) - float64(imageH)*vp.Scale) / 2,
	}
	return vp
}
