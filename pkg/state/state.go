// Package state holds the single mutable source of truth of a viewer
// session. One State is created at startup and handed to every component;
// it is only ever touched from the viewer's event loop.
package state

import (
	"mriviewer/internal/models"
	"mriviewer/pkg/transform"
)

// Mode is the measurement mode of the session.
type Mode int

const (
	// Idle: no measurement in progress and none on screen. Zoom is allowed.
	Idle Mode = iota
	// Measuring: measurement mode is on, clicks place points.
	Measuring
	// Annotated: measurement mode is off but saved measurements are shown.
	Annotated
)

func (m Mode) String() string {
	switch m {
	case Measuring:
		return "measuring"
	case Annotated:
		return "annotated"
	default:
		return "idle"
	}
}

// State is the application state of one viewer session.
type State struct {
	seriesID     string
	hasSeries    bool
	sliceIndex   int
	pixelSpacing transform.PixelSpacing

	measuring bool
	pending   []models.MeasurementPoint
	saved     []models.Measurement

	interactionEnabled bool
	loadGeneration     uint64
}

// New returns the state of a fresh session.
func New() *State {
	return &State{pixelSpacing: transform.DefaultPixelSpacing()}
}

// Reset returns the state to that of a fresh session.
func (s *State) Reset() {
	*s = State{pixelSpacing: transform.DefaultPixelSpacing()}
}

// CurrentSeries returns the selected series id, if any.
func (s *State) CurrentSeries() (string, bool) {
	return s.seriesID, s.hasSeries
}

// SetCurrentSeries selects a series and rewinds to its first slice.
func (s *State) SetCurrentSeries(id string) {
	s.seriesID = id
	s.hasSeries = true
	s.sliceIndex = 0
}

// ClearSeries forgets the selected series.
func (s *State) ClearSeries() {
	s.seriesID = ""
	s.hasSeries = false
	s.sliceIndex = 0
}

// CurrentSlice returns the index of the displayed slice.
func (s *State) CurrentSlice() int {
	return s.sliceIndex
}

// SetCurrentSlice records the displayed slice.
func (s *State) SetCurrentSlice(i int) {
	s.sliceIndex = i
}

// PixelSpacing returns the spacing of the displayed image.
func (s *State) PixelSpacing() transform.PixelSpacing {
	return s.pixelSpacing
}

// SetPixelSpacing records the spacing of the displayed image.
func (s *State) SetPixelSpacing(p transform.PixelSpacing) {
	s.pixelSpacing = p
}

// Mode derives the measurement mode from the measurement flag and the
// saved measurements.
func (s *State) Mode() Mode {
	switch {
	case s.measuring:
		return Measuring
	case len(s.saved) > 0:
		return Annotated
	default:
		return Idle
	}
}

// ZoomAllowed reports whether zoom transitions are legal, i.e. the session
// is Idle.
func (s *State) ZoomAllowed() bool {
	return s.Mode() == Idle
}

// MeasurementMode reports whether clicks are routed to the measurement
// engine.
func (s *State) MeasurementMode() bool {
	return s.measuring
}

// SetMeasurementMode switches measurement mode and drops any pending point.
func (s *State) SetMeasurementMode(on bool) {
	s.measuring = on
	s.pending = nil
}

// Pending returns the point of a measurement in progress.
func (s *State) Pending() (models.MeasurementPoint, bool) {
	if len(s.pending) == 0 {
		return models.MeasurementPoint{}, false
	}
	return s.pending[len(s.pending)-1], true
}

// AddPending appends a click and returns the number of pending points.
func (s *State) AddPending(p models.MeasurementPoint) int {
	s.pending = append(s.pending, p)
	return len(s.pending)
}

// PendingPoints returns a copy of the pending points.
func (s *State) PendingPoints() []models.MeasurementPoint {
	return append([]models.MeasurementPoint(nil), s.pending...)
}

// ClearPending drops the pending points.
func (s *State) ClearPending() {
	s.pending = nil
}

// SaveMeasurement appends a completed measurement.
func (s *State) SaveMeasurement(m models.Measurement) {
	s.saved = append(s.saved, m)
}

// Measurements returns a copy of the saved measurements, oldest first.
func (s *State) Measurements() []models.Measurement {
	return append([]models.Measurement(nil), s.saved...)
}

// LastMeasurement returns the most recently saved measurement.
func (s *State) LastMeasurement() (models.Measurement, bool) {
	if len(s.saved) == 0 {
		return models.Measurement{}, false
	}
	return s.saved[len(s.saved)-1], true
}

// ClearMeasurements drops pending and saved measurements.
func (s *State) ClearMeasurements() {
	s.pending = nil
	s.saved = nil
}

// InteractionEnabled reports whether the one-time interaction latch is set.
func (s *State) InteractionEnabled() bool {
	return s.interactionEnabled
}

// EnableInteraction sets the interaction latch. It returns true only on the
// call that flipped it.
func (s *State) EnableInteraction() bool {
	if s.interactionEnabled {
		return false
	}
	s.interactionEnabled = true
	return true
}

// NextLoad starts a new slice load and returns its generation token.
func (s *State) NextLoad() uint64 {
	s.loadGeneration++
	return s.loadGeneration
}

// IsCurrentLoad reports whether token belongs to the newest load request.
func (s *State) IsCurrentLoad(token uint64) bool {
	return token == s.loadGeneration
}
