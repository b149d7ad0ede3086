package viewcontrol

import (
	"math"
	"testing"

	"mriviewer/internal/models"
	"mriviewer/pkg/state"
	"mriviewer/pkg/transform"
	"mriviewer/pkg/visualization"
)

type countingRedrawer struct {
	calls int
}

func (r *countingRedrawer) Redraw() { r.calls++ }

// newController shows a 100x100 image on a 100x100 canvas, so the default
// viewport has scale 1 and no translation
func newController(t *testing.T) (*Controller, *state.State, *visualization.Canvas, *countingRedrawer) {
	t.Helper()
	canvas := visualization.NewCanvas(100, 100)
	canvas.Display(&visualization.Image{
		Width:      100,
		Height:     100,
		Pixels:     make([]float64, 100*100),
		DefaultVOI: transform.VOI{WindowCenter: 40, WindowWidth: 80},
	})
	st := state.New()
	r := &countingRedrawer{}
	return New(st, canvas, r, DefaultSettings()), st, canvas, r
}

func scale(c *visualization.Canvas) float64 {
	vp, _ := c.Viewport()
	return vp.Scale
}

func TestZoomInFiveTimes(t *testing.T) {
	ctrl, _, canvas, _ := newController(t)
	for i := 0; i < 5; i++ {
		if !ctrl.ZoomIn() {
			t.Fatalf("Zoom %d was refused", i+1)
		}
	}
	if got := scale(canvas); math.Abs(got-2.0) > 1e-9 {
		t.Errorf("Expected scale 2.0, got %f", got)
	}
}

func TestZoomClamps(t *testing.T) {
	ctrl, _, canvas, _ := newController(t)
	for i := 0; i < 20; i++ {
		ctrl.ZoomOut()
	}
	if got := scale(canvas); got != transform.MinScale {
		t.Errorf("Expected scale %f, got %f", transform.MinScale, got)
	}
	for i := 0; i < 100; i++ {
		ctrl.ZoomIn()
	}
	if got := scale(canvas); got != transform.MaxScale {
		t.Errorf("Expected scale %f, got %f", transform.MaxScale, got)
	}
}

func TestZoomBlockedByMeasurement(t *testing.T) {
	tests := []struct {
		name  string
		setup func(st *state.State)
	}{
		{"measuring", func(st *state.State) { st.SetMeasurementMode(true) }},
		{"saved measurement", func(st *state.State) { st.SaveMeasurement(models.Measurement{DistanceMM: 3}) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl, st, canvas, _ := newController(t)
			tt.setup(st)
			if ctrl.ZoomIn() || ctrl.ZoomOut() || ctrl.Wheel(-1) {
				t.Error("Zoom should be refused")
			}
			if got := scale(canvas); got != 1 {
				t.Errorf("Expected scale to stay 1, got %f", got)
			}
		})
	}
}

func TestWheelDirection(t *testing.T) {
	ctrl, _, canvas, _ := newController(t)
	ctrl.Wheel(120)
	if got := scale(canvas); math.Abs(got-0.9) > 1e-9 {
		t.Errorf("Expected scroll down to zoom out to 0.9, got %f", got)
	}
	ctrl.Wheel(-120)
	ctrl.Wheel(-120)
	if got := scale(canvas); math.Abs(got-1.1) > 1e-9 {
		t.Errorf("Expected scroll up to zoom in to 1.1, got %f", got)
	}
}

func TestPanDividesByScale(t *testing.T) {
	ctrl, st, canvas, r := newController(t)
	ctrl.ZoomIn()
	ctrl.ZoomIn()
	ctrl.ZoomIn()
	ctrl.ZoomIn()
	ctrl.ZoomIn()
	st.SaveMeasurement(models.Measurement{})
	before := r.calls

	ctrl.Pan(10, -4)
	vp, _ := canvas.Viewport()
	if math.Abs(vp.Translation.X-5) > 1e-9 || math.Abs(vp.Translation.Y+2) > 1e-9 {
		t.Errorf("Expected translation (5, -2), got %v", vp.Translation)
	}
	if r.calls != before+1 {
		t.Error("Pan should redraw measurements")
	}
}

func TestWindowLevel(t *testing.T) {
	ctrl, _, canvas, _ := newController(t)
	ctrl.AdjustBrightness(50)
	ctrl.AdjustContrast(-2000)

	vp, _ := canvas.Viewport()
	if vp.VOI.WindowCenter != 45 {
		t.Errorf("Expected window center 45, got %f", vp.VOI.WindowCenter)
	}
	if vp.VOI.WindowWidth != 1 {
		t.Errorf("Expected window width clamped to 1, got %f", vp.VOI.WindowWidth)
	}
	if b, c := ctrl.Sliders(); b != 50 || c != -2000 {
		t.Errorf("Unexpected slider positions %f, %f", b, c)
	}
}

func TestResetIdempotent(t *testing.T) {
	ctrl, _, canvas, _ := newController(t)
	ctrl.ZoomIn()
	ctrl.Pan(7, 7)
	ctrl.AdjustBrightness(30)

	ctrl.Reset()
	once, _ := canvas.Viewport()
	ctrl.Reset()
	twice, _ := canvas.Viewport()

	if once != twice {
		t.Errorf("Reset not idempotent: %+v vs %+v", once, twice)
	}
	if once.Scale != 1 || once.VOI.WindowCenter != 40 {
		t.Errorf("Expected default viewport, got %+v", once)
	}
	if b, c := ctrl.Sliders(); b != 0 || c != 0 {
		t.Errorf("Expected sliders at 0, got %f, %f", b, c)
	}
}

func TestNoImage(t *testing.T) {
	ctrl := New(state.New(), visualization.NewCanvas(10, 10), nil, Settings{})
	if ctrl.ZoomIn() {
		t.Error("Zoom without an image should be refused")
	}
	ctrl.Pan(1, 1)
	ctrl.AdjustBrightness(1)
	ctrl.Reset()
}
