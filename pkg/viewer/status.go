package viewer

import (
	"context"
	"fmt"

	"mriviewer/internal/models"
	"mriviewer/pkg/dicomio"
	"mriviewer/pkg/interaction"
	"mriviewer/pkg/series"
	"mriviewer/pkg/transform"
)

// panel is the metadata shown beside the image
type panel struct {
	study             []dicomio.Field
	image             []dicomio.Field
	selector          []series.Option
	seriesDescription string
	sliceInfo         string
}

// SeriesSelected implements navigator.MetadataSink
func (a *App) SeriesSelected(s *models.Series) {
	a.panel.seriesDescription = s.Description
}

// SliceDisplayed implements navigator.MetadataSink
func (a *App) SliceDisplayed(desc models.ImageDescriptor, index, total int) {
	a.panel.image = dicomio.ImageInfo(desc.Metadata)
	a.panel.sliceInfo = fmt.Sprintf("Slice %d / %d", index+1, total)
}

// Status is a snapshot of everything the page displays
type Status struct {
	Loading bool     `json:"loading"`
	Alerts  []string `json:"alerts,omitempty"`

	HasImage bool               `json:"hasImage"`
	Viewport transform.Viewport `json:"viewport"`

	Study []dicomio.Field `json:"study"`
	Image []dicomio.Field `json:"image"`

	Series            string          `json:"series,omitempty"`
	SeriesDescription string          `json:"seriesDescription"`
	Selector          []series.Option `json:"selector"`

	Slice      int    `json:"slice"`
	SliceCount int    `json:"sliceCount"`
	SliceInfo  string `json:"sliceInfo"`

	Mode        string `json:"mode"`
	ZoomAllowed bool   `json:"zoomAllowed"`
	Result      string `json:"result,omitempty"`
	ShowClear   bool   `json:"showClear"`

	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`

	Cursor  string              `json:"cursor"`
	Readout interaction.Readout `json:"readout"`
}

// Status returns the current view model. Pending alerts are handed out
// once.
func (a *App) Status(ctx context.Context) (Status, error) {
	var st Status
	err := a.Do(ctx, func() {
		st = a.snapshot()
		a.alerts = nil
	})
	return st, err
}

func (a *App) snapshot() Status {
	vp, hasImage := a.canvas.Viewport()
	overlay := a.canvas.Overlay()
	brightness, contrast := a.view.Sliders()
	id, _ := a.state.CurrentSeries()

	return Status{
		Loading:           a.loading || a.nav.Loading(),
		Alerts:            append([]string(nil), a.alerts...),
		HasImage:          hasImage,
		Viewport:          vp,
		Study:             a.panel.study,
		Image:             a.panel.image,
		Series:            id,
		SeriesDescription: a.panel.seriesDescription,
		Selector:          a.panel.selector,
		Slice:             a.state.CurrentSlice(),
		SliceCount:        a.nav.SliceCount(),
		SliceInfo:         a.panel.sliceInfo,
		Mode:              a.state.Mode().String(),
		ZoomAllowed:       a.state.ZoomAllowed(),
		Result:            overlay.Result,
		ShowClear:         overlay.ShowResult,
		Brightness:        brightness,
		Contrast:          contrast,
		Cursor:            a.ctrl.Cursor(),
		Readout:           a.ctrl.Readout(),
	}
}
