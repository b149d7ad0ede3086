package state

import (
	"testing"

	"mriviewer/internal/models"
	"mriviewer/pkg/transform"
)

func TestNewState(t *testing.T) {
	s := New()
	if _, ok := s.CurrentSeries(); ok {
		t.Error("Fresh state should have no series")
	}
	if s.PixelSpacing() != transform.DefaultPixelSpacing() {
		t.Errorf("Expected default spacing, got %+v", s.PixelSpacing())
	}
	if s.Mode() != Idle || !s.ZoomAllowed() {
		t.Errorf("Fresh state should be idle, got %v", s.Mode())
	}
}

func TestModeTransitions(t *testing.T) {
	s := New()

	s.SetMeasurementMode(true)
	if s.Mode() != Measuring || s.ZoomAllowed() {
		t.Fatalf("Expected Measuring with zoom blocked, got %v", s.Mode())
	}

	s.AddPending(models.MeasurementPoint{Image: transform.Pt(1, 1)})
	s.SaveMeasurement(models.Measurement{P2: transform.Pt(3, 4), DistanceMM: 5})
	s.SetMeasurementMode(false)
	if s.Mode() != Annotated || s.ZoomAllowed() {
		t.Fatalf("Expected Annotated with zoom blocked, got %v", s.Mode())
	}
	if _, ok := s.Pending(); ok {
		t.Error("Leaving measurement mode should drop pending points")
	}

	s.ClearMeasurements()
	if s.Mode() != Idle {
		t.Errorf("Expected Idle after clearing, got %v", s.Mode())
	}
}

func TestMeasurementsAreCopies(t *testing.T) {
	s := New()
	s.SaveMeasurement(models.Measurement{DistanceMM: 1})
	s.SaveMeasurement(models.Measurement{DistanceMM: 2})

	ms := s.Measurements()
	ms[0].DistanceMM = 99
	if got := s.Measurements()[0].DistanceMM; got != 1 {
		t.Errorf("Saved measurement mutated through copy: %f", got)
	}
	last, ok := s.LastMeasurement()
	if !ok || last.DistanceMM != 2 {
		t.Errorf("Expected last measurement 2, got %+v", last)
	}
}

func TestInteractionLatch(t *testing.T) {
	s := New()
	if !s.EnableInteraction() {
		t.Error("First enable should flip the latch")
	}
	if s.EnableInteraction() {
		t.Error("Second enable should be a no-op")
	}
	if !s.InteractionEnabled() {
		t.Error("Latch should stay set")
	}
}

func TestLoadGeneration(t *testing.T) {
	s := New()
	first := s.NextLoad()
	second := s.NextLoad()
	if s.IsCurrentLoad(first) {
		t.Error("Older token should be stale")
	}
	if !s.IsCurrentLoad(second) {
		t.Error("Newest token should be current")
	}
}

func TestSetCurrentSeriesRewinds(t *testing.T) {
	s := New()
	s.SetCurrentSeries("a")
	s.SetCurrentSlice(4)
	s.SetCurrentSeries("b")
	if id, ok := s.CurrentSeries(); !ok || id != "b" {
		t.Errorf("Expected series b, got %q", id)
	}
	if s.CurrentSlice() != 0 {
		t.Errorf("Expected slice 0, got %d", s.CurrentSlice())
	}
}
