// Package navigator selects series and moves between the slices of the
// current series. Slice decoding runs on its own goroutine; the result is
// posted back to the event loop and dropped if a newer load was requested
// in the meantime.
package navigator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"mriviewer/internal/models"
	"mriviewer/pkg/dicomio"
	"mriviewer/pkg/state"
	"mriviewer/pkg/visualization"
)

// ErrUnknownSeries is returned when selecting a series that is not indexed
var ErrUnknownSeries = errors.New("unknown series")

// DecodeDisplayError reports a slice that could not be decoded or shown
type DecodeDisplayError struct {
	ImageID string
	Err     error
}

func (e *DecodeDisplayError) Error() string {
	return fmt.Sprintf("failed to display %s: %v", e.ImageID, e.Err)
}

func (e *DecodeDisplayError) Unwrap() error { return e.Err }

// Scheduler runs fn on the event loop
type Scheduler interface {
	Post(fn func())
}

// Display shows a decoded image
type Display interface {
	Display(img *visualization.Image)
}

// SeriesSource looks up series by id
type SeriesSource interface {
	Series(id string) (*models.Series, bool)
}

// MetadataSink receives what the metadata panel shows
type MetadataSink interface {
	SeriesSelected(s *models.Series)
	SliceDisplayed(desc models.ImageDescriptor, index, total int)
}

// Notifier raises a user-visible alert
type Notifier interface {
	Notify(msg string)
}

// Measurements is cleared whenever a new slice or series is shown
type Measurements interface {
	Clear()
}

// Options carries the optional collaborators of a Navigator
type Options struct {
	Sink         MetadataSink
	Measurements Measurements
	Notifier     Notifier
	Logger       *slog.Logger
}

// Navigator drives series selection and slice loading
type Navigator struct {
	state   *state.State
	series  SeriesSource
	loader  visualization.Loader
	display Display
	sched   Scheduler

	sink     MetadataSink
	measure  Measurements
	notifier Notifier
	logger   *slog.Logger

	// target is the slice most recently requested; it runs ahead of the
	// state's current slice while a load is in flight
	target int
	cancel context.CancelFunc
}

// New creates a navigator over src. Loads decode through loader and finish
// on sched.
func New(st *state.State, src SeriesSource, loader visualization.Loader, display Display, sched Scheduler, opts Options) *Navigator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Navigator{
		state:    st,
		series:   src,
		loader:   loader,
		display:  display,
		sched:    sched,
		sink:     opts.Sink,
		measure:  opts.Measurements,
		notifier: opts.Notifier,
		logger:   logger,
	}
}

// SetSource replaces the series source, e.g. after a new folder was opened.
// Any load still in flight is abandoned.
func (n *Navigator) SetSource(src SeriesSource) {
	n.abort()
	n.state.NextLoad()
	n.series = src
	n.target = 0
}

// SelectSeries makes id the current series and loads its first slice
func (n *Navigator) SelectSeries(id string) error {
	s, ok := n.lookup(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSeries, id)
	}

	n.state.SetCurrentSeries(id)
	n.target = 0
	n.clearMeasurements()
	if n.sink != nil {
		n.sink.SeriesSelected(s)
	}
	n.LoadSlice(0)
	return nil
}

// LoadSlice starts loading slice i of the current series. An index outside
// the series is ignored.
func (n *Navigator) LoadSlice(i int) {
	id, ok := n.state.CurrentSeries()
	if !ok {
		return
	}
	s, ok := n.lookup(id)
	if !ok || i < 0 || i >= s.Len() {
		return
	}

	n.abort()
	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel

	token := n.state.NextLoad()
	n.target = i
	desc := s.Images[i]

	go func() {
		img, err := n.loader.LoadImage(ctx, desc.ID)
		n.sched.Post(func() {
			cancel()
			n.finish(token, s, i, desc, img, err)
		})
	}()
}

// finish runs on the event loop once a decode returns
func (n *Navigator) finish(token uint64, s *models.Series, i int, desc models.ImageDescriptor, img *visualization.Image, err error) {
	if !n.state.IsCurrentLoad(token) {
		n.logger.Debug("discarding stale slice load", "image", desc.ID)
		return
	}
	n.cancel = nil

	id, ok := n.state.CurrentSeries()
	if cur, found := n.lookup(id); !ok || !found || cur != s {
		n.logger.Debug("series changed during slice load", "image", desc.ID)
		return
	}

	if err == nil && img == nil {
		err = errors.New("decoder returned no image")
	}
	if err != nil {
		n.target = n.state.CurrentSlice()
		derr := &DecodeDisplayError{ImageID: desc.ID, Err: err}
		n.logger.Error("error loading slice", "index", i, "error", derr)
		if n.notifier != nil {
			n.notifier.Notify(fmt.Sprintf("Error loading slice %d: %v", i+1, err))
		}
		return
	}

	n.display.Display(img)
	n.state.SetCurrentSlice(i)
	n.state.SetPixelSpacing(dicomio.PixelSpacing(desc.Metadata))
	n.clearMeasurements()
	if n.sink != nil {
		n.sink.SliceDisplayed(desc, i, s.Len())
	}
	if n.state.EnableInteraction() {
		n.logger.Debug("image interaction enabled")
	}
}

// Next moves one slice forward; it does nothing on the last slice
func (n *Navigator) Next() {
	if s, ok := n.current(); ok && n.target < s.Len()-1 {
		n.LoadSlice(n.target + 1)
	}
}

// Previous moves one slice back; it does nothing on the first slice
func (n *Navigator) Previous() {
	if _, ok := n.current(); ok && n.target > 0 {
		n.LoadSlice(n.target - 1)
	}
}

// First jumps to the first slice
func (n *Navigator) First() {
	n.LoadSlice(0)
}

// Last jumps to the last slice
func (n *Navigator) Last() {
	if s, ok := n.current(); ok {
		n.LoadSlice(s.Len() - 1)
	}
}

// SliceCount returns the number of slices in the current series
func (n *Navigator) SliceCount() int {
	if s, ok := n.current(); ok {
		return s.Len()
	}
	return 0
}

// Loading reports whether a slice load is in flight
func (n *Navigator) Loading() bool {
	return n.cancel != nil
}

func (n *Navigator) current() (*models.Series, bool) {
	id, ok := n.state.CurrentSeries()
	if !ok {
		return nil, false
	}
	return n.lookup(id)
}

func (n *Navigator) lookup(id string) (*models.Series, bool) {
	if n.series == nil {
		return nil, false
	}
	s, ok := n.series.Series(id)
	if !ok || s.Len() == 0 {
		return nil, false
	}
	return s, true
}

func (n *Navigator) clearMeasurements() {
	if n.measure != nil {
		n.measure.Clear()
	} else {
		n.state.ClearMeasurements()
	}
}

func (n *Navigator) abort() {
	if n.cancel != nil {
		n.cancel()
		n.cancel = nil
	}
}
