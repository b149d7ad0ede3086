// Package dicomio adapts a DICOM decoder to the viewer. It exposes parsed
// files as a queryable tag dictionary, extracts the attributes the viewer
// consumes and formats them for display.
package dicomio

import (
	"fmt"
	"strconv"
	"strings"

	"mriviewer/pkg/transform"
)

// Tag is a DICOM attribute tag packed as 0xGGGGEEEE.
type Tag uint32

// Group returns the group number of the tag.
func (t Tag) Group() uint16 { return uint16(t >> 16) }

// Element returns the element number of the tag.
func (t Tag) Element() uint16 { return uint16(t & 0xFFFF) }

func (t Tag) String() string {
	return fmt.Sprintf("(%04X,%04X)", t.Group(), t.Element())
}

// Attributes consumed by the viewer.
const (
	TagStudyDate            Tag = 0x00080020
	TagModality             Tag = 0x00080060
	TagInstitutionName      Tag = 0x00080080
	TagSeriesDescription    Tag = 0x0008103E
	TagPatientName          Tag = 0x00100010
	TagPatientID            Tag = 0x00100020
	TagSliceThickness       Tag = 0x00180050
	TagSeriesInstanceUID    Tag = 0x0020000E
	TagInstanceNumber       Tag = 0x00200013
	TagImagePositionPatient Tag = 0x00200032
	TagSliceLocation        Tag = 0x00201041
	TagRows                 Tag = 0x00280010
	TagColumns              Tag = 0x00280011
	TagPixelSpacing         Tag = 0x00280030
	TagWindowCenter         Tag = 0x00281050
	TagWindowWidth          Tag = 0x00281051
)

// Metadata is a parsed tag dictionary.
type Metadata interface {
	// Has reports whether the element is present.
	Has(t Tag) bool
	// String returns the element value as text. Multi-valued elements are
	// joined with a backslash.
	String(t Tag) (string, bool)
}

// MapMetadata is an in-memory Metadata, used for single values known ahead
// of time and in tests.
type MapMetadata map[Tag]string

func (m MapMetadata) Has(t Tag) bool {
	_, ok := m[t]
	return ok
}

func (m MapMetadata) String(t Tag) (string, bool) {
	v, ok := m[t]
	return v, ok
}

// StringOr returns the trimmed element value or def when missing or blank.
func StringOr(md Metadata, t Tag, def string) string {
	if md == nil {
		return def
	}
	v, ok := md.String(t)
	if !ok {
		return def
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	return v
}

// IntOr parses an integer element, returning def when missing or malformed.
func IntOr(md Metadata, t Tag, def int) int {
	v := StringOr(md, t, "")
	if v == "" {
		return def
	}
	// IS values may carry a fractional part written by some modalities.
	if i, err := strconv.Atoi(v); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return int(f)
	}
	return def
}

// Floats splits a backslash-delimited decimal string element.
func Floats(md Metadata, t Tag) ([]float64, error) {
	v := StringOr(md, t, "")
	if v == "" {
		return nil, fmt.Errorf("element %v not present", t)
	}
	parts := strings.Split(v, "\\")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("element %v: %w", t, err)
		}
		out = append(out, f)
	}
	return out, nil
}

// PixelSpacing reads the row\column spacing of an image. Anything other
// than two positive values falls back to the default spacing.
func PixelSpacing(md Metadata) transform.PixelSpacing {
	v, err := Floats(md, TagPixelSpacing)
	if err != nil || len(v) != 2 || v[0] <= 0 || v[1] <= 0 {
		return transform.DefaultPixelSpacing()
	}
	return transform.PixelSpacing{Row: v[0], Column: v[1]}
}

// WindowLevel reads the first window center/width pair, if present.
func WindowLevel(md Metadata) (transform.VOI, bool) {
	c, errC := Floats(md, TagWindowCenter)
	w, errW := Floats(md, TagWindowWidth)
	if errC != nil || errW != nil || len(c) == 0 || len(w) == 0 {
		return transform.VOI{}, false
	}
	return transform.VOI{WindowCenter: c[0], WindowWidth: transform.ClampWindowWidth(w[0])}, true
}
