package dicomio

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Field is one labelled metadata line shown next to the canvas.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type fieldSpec struct {
	label  string
	tag    Tag
	format func(string) string
}

var studyFields = []fieldSpec{
	{"Patient Name", TagPatientName, nil},
	{"Patient ID", TagPatientID, nil},
	{"Study Date", TagStudyDate, nil},
	{"Modality", TagModality, nil},
	{"Institution", TagInstitutionName, nil},
}

var imageFields = []fieldSpec{
	{"Instance Number", TagInstanceNumber, nil},
	{"Rows", TagRows, nil},
	{"Columns", TagColumns, nil},
	{"Slice Thickness", TagSliceThickness, nil},
	{"Slice Location", TagSliceLocation, nil},
	{"Image Position", TagImagePositionPatient, FormatImagePosition},
}

func describe(md Metadata, specs []fieldSpec) []Field {
	var out []Field
	if md == nil {
		return out
	}
	for _, s := range specs {
		if !md.Has(s.tag) {
			continue
		}
		v := StringOr(md, s.tag, "N/A")
		if s.format != nil && v != "N/A" {
			v = s.format(v)
		}
		out = append(out, Field{Label: s.label, Value: v})
	}
	return out
}

// StudyInfo lists the patient and study attributes present in md.
func StudyInfo(md Metadata) []Field {
	return describe(md, studyFields)
}

// ImageInfo lists the per-image attributes present in md, followed by an
// interpretation of the image position when one is available.
func ImageInfo(md Metadata) []Field {
	fields := describe(md, imageFields)
	if pos := StringOr(md, TagImagePositionPatient, ""); pos != "" {
		fields = append(fields, Field{Label: "Position Interpretation", Value: InterpretImagePosition(pos)})
	}
	return fields
}

func splitPosition(position string) ([3]float64, bool) {
	var xyz [3]float64
	coords := strings.Split(position, "\\")
	if len(coords) != 3 {
		return xyz, false
	}
	for i, c := range coords {
		f, err := strconv.ParseFloat(strings.TrimSpace(c), 64)
		if err != nil {
			return xyz, false
		}
		xyz[i] = f
	}
	return xyz, true
}

// FormatImagePosition renders an X\Y\Z patient position in millimetres.
// Values that are not three numbers are returned unchanged.
func FormatImagePosition(position string) string {
	xyz, ok := splitPosition(position)
	if !ok {
		return position
	}
	return fmt.Sprintf("X: %.2f, Y: %.2f, Z: %.2f mm", xyz[0], xyz[1], xyz[2])
}

// InterpretImagePosition describes which side of the patient an X\Y\Z
// position lies on. Offsets within 1 mm of an axis count as centred.
func InterpretImagePosition(position string) string {
	xyz, ok := splitPosition(position)
	if !ok {
		return "Unable to interpret"
	}
	side := func(v float64, neg, pos, centre string) string {
		if math.Abs(v) <= 1 {
			return centre
		}
		if v < 0 {
			return neg
		}
		return pos
	}
	return strings.Join([]string{
		side(xyz[0], "Patient's Left", "Patient's Right", "Center (L/R)"),
		side(xyz[1], "Posterior (Back)", "Anterior (Front)", "Center (A/P)"),
		side(xyz[2], "Inferior (Feet)", "Superior (Head)", "Center (H/F)"),
	}, " • ")
}
