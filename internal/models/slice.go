package models

import (
	"mriviewer/pkg/dicomio"
	"mriviewer/pkg/transform"
)

// ImageDescriptor describes one DICOM file of a series
type ImageDescriptor struct {
	// ID is the opaque handle passed to the display engine to decode pixels
	ID string

	// Metadata is the parsed tag dictionary of the file
	Metadata dicomio.Metadata

	// SeriesID groups images into series (Series Instance UID)
	SeriesID string

	// InstanceNumber orders the image within its series
	InstanceNumber int

	// SourcePath is where the file was read from
	SourcePath string
}

// Series is an ordered set of images sharing a series identifier
type Series struct {
	ID          string
	Description string

	// Images are sorted by ascending instance number, ties kept in
	// ingestion order. Never empty.
	Images []ImageDescriptor
}

// Len returns the number of slices in the series
func (s *Series) Len() int {
	return len(s.Images)
}

// MeasurementPoint is the first click of a measurement in progress
type MeasurementPoint struct {
	Image  transform.Point
	Canvas transform.Point
}

// Measurement is a completed two-point distance annotation stored in
// image coordinates
type Measurement struct {
	P1, P2     transform.Point
	DistanceMM float64
}
