package visualization

import "mriviewer/pkg/transform"

// Segment is a measurement line in canvas coordinates
type Segment struct {
	From transform.Point `json:"from"`
	To   transform.Point `json:"to"`
}

// Overlay records the annotation shapes drawn over the canvas. Shapes are
// in canvas coordinates and are replaced wholesale on every redraw.
type Overlay struct {
	Lines   []Segment         `json:"lines"`
	Markers []transform.Point `json:"markers"`

	Result     string `json:"result"`
	ShowResult bool   `json:"showResult"`
}

// NewOverlay returns an empty overlay
func NewOverlay() *Overlay {
	return &Overlay{}
}

// Clear removes every shape. The result text is left alone.
func (o *Overlay) Clear() {
	o.Lines = nil
	o.Markers = nil
}

// Line adds a measurement line
func (o *Overlay) Line(from, to transform.Point) {
	o.Lines = append(o.Lines, Segment{From: from, To: to})
}

// Marker adds an endpoint marker
func (o *Overlay) Marker(p transform.Point) {
	o.Markers = append(o.Markers, p)
}

// SetResult shows a measurement result
func (o *Overlay) SetResult(text string) {
	o.Result = text
	o.ShowResult = true
}

// HideResult hides the measurement result
func (o *Overlay) HideResult() {
	o.Result = ""
	o.ShowResult = false
}

// Empty reports whether there is nothing to draw
func (o *Overlay) Empty() bool {
	return len(o.Lines) == 0 && len(o.Markers) == 0 && !o.ShowResult
}
