package dicomio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mriviewer/pkg/transform"
)

func TestTagParts(t *testing.T) {
	if TagSeriesInstanceUID.Group() != 0x0020 || TagSeriesInstanceUID.Element() != 0x000E {
		t.Errorf("Unexpected split of %v", TagSeriesInstanceUID)
	}
	if got := TagPixelSpacing.String(); got != "(0028,0030)" {
		t.Errorf("Expected (0028,0030), got %s", got)
	}
}

func TestPixelSpacing(t *testing.T) {
	tests := []struct {
		name string
		md   MapMetadata
		want transform.PixelSpacing
	}{
		{"row and column", MapMetadata{TagPixelSpacing: "0.5\\0.75"}, transform.PixelSpacing{Row: 0.5, Column: 0.75}},
		{"padded values", MapMetadata{TagPixelSpacing: " 0.9 \\ 0.9 "}, transform.PixelSpacing{Row: 0.9, Column: 0.9}},
		{"missing", MapMetadata{}, transform.DefaultPixelSpacing()},
		{"single value", MapMetadata{TagPixelSpacing: "0.5"}, transform.DefaultPixelSpacing()},
		{"malformed", MapMetadata{TagPixelSpacing: "a\\b"}, transform.DefaultPixelSpacing()},
		{"zero spacing", MapMetadata{TagPixelSpacing: "0\\1"}, transform.DefaultPixelSpacing()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PixelSpacing(tt.md); got != tt.want {
				t.Errorf("PixelSpacing = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestIntOr(t *testing.T) {
	md := MapMetadata{TagInstanceNumber: " 12 ", TagRows: "3.0", TagColumns: "x"}
	if got := IntOr(md, TagInstanceNumber, 0); got != 12 {
		t.Errorf("Expected 12, got %d", got)
	}
	if got := IntOr(md, TagRows, 0); got != 3 {
		t.Errorf("Expected 3, got %d", got)
	}
	if got := IntOr(md, TagColumns, -1); got != -1 {
		t.Errorf("Expected default for malformed value, got %d", got)
	}
	if got := IntOr(md, TagSliceLocation, 7); got != 7 {
		t.Errorf("Expected default for missing value, got %d", got)
	}
}

func TestWindowLevel(t *testing.T) {
	voi, ok := WindowLevel(MapMetadata{TagWindowCenter: "40\\60", TagWindowWidth: "400\\800"})
	if !ok || voi.WindowCenter != 40 || voi.WindowWidth != 400 {
		t.Errorf("Unexpected VOI %+v (ok=%v)", voi, ok)
	}
	if _, ok := WindowLevel(MapMetadata{TagWindowCenter: "40"}); ok {
		t.Error("Expected no VOI without a window width")
	}
}

func TestFormatImagePosition(t *testing.T) {
	if got := FormatImagePosition("-12.5\\3\\100.126"); got != "X: -12.50, Y: 3.00, Z: 100.13 mm" {
		t.Errorf("Unexpected format: %q", got)
	}
	if got := FormatImagePosition("1\\2"); got != "1\\2" {
		t.Errorf("Expected passthrough, got %q", got)
	}
}

func TestInterpretImagePosition(t *testing.T) {
	got := InterpretImagePosition("-20\\0.5\\30")
	want := "Patient's Left • Center (A/P) • Superior (Head)"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
	if got := InterpretImagePosition("nonsense"); got != "Unable to interpret" {
		t.Errorf("Unexpected interpretation %q", got)
	}
}

func TestImageInfo(t *testing.T) {
	md := MapMetadata{
		TagInstanceNumber:       "4",
		TagRows:                 "256",
		TagImagePositionPatient: "10\\-10\\0",
		TagSliceThickness:       "",
	}
	fields := ImageInfo(md)
	want := []Field{
		{"Instance Number", "4"},
		{"Rows", "256"},
		{"Slice Thickness", "N/A"},
		{"Image Position", "X: 10.00, Y: -10.00, Z: 0.00 mm"},
		{"Position Interpretation", "Patient's Right • Posterior (Back) • Center (H/F)"},
	}
	if len(fields) != len(want) {
		t.Fatalf("Expected %d fields, got %d: %+v", len(want), len(fields), fields)
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Errorf("Field %d: expected %+v, got %+v", i, want[i], fields[i])
		}
	}
}

func TestStudyInfoEmpty(t *testing.T) {
	if fields := StudyInfo(MapMetadata{}); len(fields) != 0 {
		t.Errorf("Expected no fields, got %+v", fields)
	}
}

func TestValueString(t *testing.T) {
	if s, ok := valueString([]string{"0.5 ", "0.5\x00"}); !ok || s != "0.5\\0.5" {
		t.Errorf("Unexpected join %q", s)
	}
	if s, ok := valueString([]int{512}); !ok || s != "512" {
		t.Errorf("Unexpected int value %q", s)
	}
	if _, ok := valueString([]byte{1, 2}); ok {
		t.Error("Byte values should not be rendered as text")
	}
}

func TestFileDecoderRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.dcm")
	if err := os.WriteFile(path, []byte("definitely not dicom"), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	_, err := NewFileDecoder().Decode(context.Background(), path)
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected ParseError, got %v", err)
	}
	if perr.Path != path {
		t.Errorf("Expected path %s in error, got %s", path, perr.Path)
	}
}
