package server

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"mriviewer/pkg/interaction"
	"mriviewer/pkg/series"
	"mriviewer/pkg/viewer"
	"mriviewer/pkg/visualization"
)

// fakeViewer records calls and serves canned responses
type fakeViewer struct {
	folders []string
	files   []string
	events  []interaction.Event
	openErr error
	status  viewer.Status
	img     *image.RGBA
}

func (f *fakeViewer) OpenFolder(ctx context.Context, dir string) error {
	f.folders = append(f.folders, dir)
	return f.openErr
}

func (f *fakeViewer) OpenFile(ctx context.Context, path string) error {
	f.files = append(f.files, path)
	return f.openErr
}

func (f *fakeViewer) Push(ctx context.Context, ev interaction.Event) error {
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeViewer) Status(ctx context.Context) (viewer.Status, error) {
	return f.status, nil
}

func (f *fakeViewer) Render(ctx context.Context) (*image.RGBA, error) {
	if f.img == nil {
		return nil, visualization.ErrNoImage
	}
	return f.img, nil
}

func (f *fakeViewer) Export(ctx context.Context) (string, *image.RGBA, error) {
	img, err := f.Render(ctx)
	if err != nil {
		return "", nil, err
	}
	return "mri-series-1-slice-1_2024-05-01T08-30-00.png", img, nil
}

func (f *fakeViewer) ExportTo(ctx context.Context, dir string) (string, error) {
	name, _, err := f.Export(ctx)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

func newTestServer(fv *fakeViewer) *httptest.Server {
	return httptest.NewServer(New(fv, Options{}).Handler())
}

func TestIndexPage(t *testing.T) {
	ts := newTestServer(&fakeViewer{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET / failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Expected HTML, got %q", ct)
	}
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		openErr    error
		wantCode   int
		wantFolder bool
		wantFile   bool
	}{
		{"folder", `{"folder":"/data/study"}`, nil, http.StatusOK, true, false},
		{"file", `{"file":"/data/a.dcm"}`, nil, http.StatusOK, false, true},
		{"both", `{"folder":"/d","file":"/d/a.dcm"}`, nil, http.StatusBadRequest, false, false},
		{"neither", `{}`, nil, http.StatusBadRequest, false, false},
		{"malformed", `{`, nil, http.StatusBadRequest, false, false},
		{"empty folder", `{"folder":"/empty"}`, series.ErrNoDICOMFiles, http.StatusUnprocessableEntity, true, false},
		{"stopped", `{"folder":"/d"}`, viewer.ErrStopped, http.StatusServiceUnavailable, true, false},
		{"superseded", `{"file":"/d/a.dcm"}`, viewer.ErrSuperseded, http.StatusConflict, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fv := &fakeViewer{openErr: tt.openErr, status: viewer.Status{SliceInfo: "Slice 1 / 3"}}
			ts := newTestServer(fv)
			defer ts.Close()

			resp, err := http.Post(ts.URL+"/api/open", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("POST failed: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantCode {
				t.Errorf("Expected %d, got %d", tt.wantCode, resp.StatusCode)
			}
			if (len(fv.folders) == 1) != tt.wantFolder {
				t.Errorf("Unexpected OpenFolder calls %v", fv.folders)
			}
			if (len(fv.files) == 1) != tt.wantFile {
				t.Errorf("Unexpected OpenFile calls %v", fv.files)
			}
			if tt.wantCode == http.StatusOK {
				var st viewer.Status
				if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
					t.Fatalf("Failed to decode status: %v", err)
				}
				if st.SliceInfo != "Slice 1 / 3" {
					t.Errorf("Expected status in response, got %+v", st)
				}
			}
		})
	}
}

func TestEvents(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantCode  int
		wantCount int
	}{
		{"single", `{"type":"keydown","key":"ArrowRight"}`, http.StatusAccepted, 1},
		{"batch", `[{"type":"pointerdown","x":1,"y":2},{"type":"pointerup","x":1,"y":2}]`, http.StatusAccepted, 2},
		{"unknown type", `{"type":"shake"}`, http.StatusBadRequest, 0},
		{"invalid in batch", `[{"type":"wheel"},{"type":"control","control":"spin"}]`, http.StatusBadRequest, 0},
		{"malformed", `[{"type":`, http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fv := &fakeViewer{}
			ts := newTestServer(fv)
			defer ts.Close()

			resp, err := http.Post(ts.URL+"/api/events", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("POST failed: %v", err)
			}
			resp.Body.Close()

			if resp.StatusCode != tt.wantCode {
				t.Errorf("Expected %d, got %d", tt.wantCode, resp.StatusCode)
			}
			if len(fv.events) != tt.wantCount {
				t.Errorf("Expected %d events pushed, got %d", tt.wantCount, len(fv.events))
			}
		})
	}
}

func TestStatus(t *testing.T) {
	fv := &fakeViewer{status: viewer.Status{Mode: "idle", ZoomAllowed: true, Alerts: []string{"hello"}}}
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	New(fv, Options{}).Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if got["mode"] != "idle" || got["zoomAllowed"] != true {
		t.Errorf("Unexpected status %v", got)
	}
	if alerts, ok := got["alerts"].([]any); !ok || len(alerts) != 1 {
		t.Errorf("Expected one alert, got %v", got["alerts"])
	}
}

func TestViewAndExport(t *testing.T) {
	fv := &fakeViewer{}
	ts := newTestServer(fv)
	defer ts.Close()

	for _, path := range []string{"/api/view.png", "/api/export"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s failed: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s: expected 404 without an image, got %d", path, resp.StatusCode)
		}
	}

	fv.img = image.NewRGBA(image.Rect(0, 0, 8, 6))

	resp, err := http.Get(ts.URL + "/api/view.png")
	if err != nil {
		t.Fatalf("GET view failed: %v", err)
	}
	img, err := png.Decode(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("Failed to decode PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 6 {
		t.Errorf("Expected 8x6 image, got %v", b)
	}

	resp, err = http.Get(ts.URL + "/api/export")
	if err != nil {
		t.Fatalf("GET export failed: %v", err)
	}
	resp.Body.Close()
	want := fmt.Sprintf("attachment; filename=%q", "mri-series-1-slice-1_2024-05-01T08-30-00.png")
	if got := resp.Header.Get("Content-Disposition"); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Expected image/png, got %q", ct)
	}
}

func TestSaveExport(t *testing.T) {
	fv := &fakeViewer{img: image.NewRGBA(image.Rect(0, 0, 2, 2))}

	rec := httptest.NewRecorder()
	New(fv, Options{}).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/export", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 with export disabled, got %d", rec.Code)
	}

	dir := filepath.Join(t.TempDir(), "exports")
	rec = httptest.NewRecorder()
	New(fv, Options{ExportDir: dir}).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/export", nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var got map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if want := filepath.Join(dir, "mri-series-1-slice-1_2024-05-01T08-30-00.png"); got["path"] != want {
		t.Errorf("Expected %s, got %s", want, got["path"])
	}
}
