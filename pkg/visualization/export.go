package visualization

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ExportFilename names an exported view:
// mri-series-<id>-slice-<n>_<timestamp>.png, with n counted from 1 and the
// timestamp in UTC without colons. Without a series the name starts with
// mri-image. The series id comes from file data, so anything outside
// [A-Za-z0-9._-] and every ".." becomes "_".
func ExportFilename(seriesID string, hasSeries bool, sliceIndex int, at time.Time) string {
	name := "image"
	if hasSeries {
		name = "series-" + safeName(seriesID)
	}
	stamp := at.UTC().Format("2006-01-02T15-04-05")
	return fmt.Sprintf("mri-%s-slice-%d_%s.png", name, sliceIndex+1, stamp)
}

func safeName(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '_', r == '-':
			return r
		}
		return '_'
	}, s)
	for strings.Contains(s, "..") {
		s = strings.ReplaceAll(s, "..", "_")
	}
	return s
}

// WritePNG encodes img as PNG
func WritePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return nil
}

// SavePNG writes img to filename, creating the directory if needed
func SavePNG(img image.Image, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}
	if err := WritePNG(file, img); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
