package dicomio

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// ParseError reports a file that could not be decoded as DICOM.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ErrNoPixelData is returned when a file carries no decodable frame.
var ErrNoPixelData = errors.New("no pixel data")

// Decoder turns a file on disk into its tag dictionary.
type Decoder interface {
	Decode(ctx context.Context, path string) (Metadata, error)
}

// FileDecoder decodes files with github.com/suyashkumar/dicom.
// Metadata decoding skips pixel data; Frame decodes the first frame.
type FileDecoder struct{}

// NewFileDecoder returns the production decoder.
func NewFileDecoder() *FileDecoder {
	return &FileDecoder{}
}

// Decode parses the header of a DICOM file.
func (d *FileDecoder) Decode(ctx context.Context, path string) (Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ds, err := dicom.ParseFile(path, nil, dicom.SkipPixelData())
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &datasetMetadata{ds: &ds}, nil
}

// Frame parses a DICOM file fully and returns its metadata and the first
// pixel frame as an image.
func (d *FileDecoder) Frame(ctx context.Context, path string) (Metadata, image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	ds, err := dicom.ParseFile(path, nil)
	if err != nil {
		return nil, nil, &ParseError{Path: path, Err: err}
	}
	md := &datasetMetadata{ds: &ds}

	el, err := ds.FindElementByTag(tag.Tag{Group: 0x7FE0, Element: 0x0010})
	if err != nil {
		return md, nil, fmt.Errorf("%s: %w", path, ErrNoPixelData)
	}
	info, ok := el.Value.GetValue().(dicom.PixelDataInfo)
	if !ok || len(info.Frames) == 0 {
		return md, nil, fmt.Errorf("%s: %w", path, ErrNoPixelData)
	}
	fr := info.Frames[0]
	img, err := fr.GetImage()
	if err != nil {
		return md, nil, fmt.Errorf("decoding frame of %s: %w", path, err)
	}
	return md, img, nil
}

// datasetMetadata exposes a parsed dataset through the Metadata interface.
type datasetMetadata struct {
	ds *dicom.Dataset
}

func toDicomTag(t Tag) tag.Tag {
	return tag.Tag{Group: t.Group(), Element: t.Element()}
}

func (m *datasetMetadata) Has(t Tag) bool {
	_, err := m.ds.FindElementByTag(toDicomTag(t))
	return err == nil
}

func (m *datasetMetadata) String(t Tag) (string, bool) {
	el, err := m.ds.FindElementByTag(toDicomTag(t))
	if err != nil || el.Value == nil {
		return "", false
	}
	return valueString(el.Value.GetValue())
}

func valueString(v interface{}) (string, bool) {
	switch vals := v.(type) {
	case []string:
		out := make([]string, len(vals))
		for i, s := range vals {
			out[i] = strings.TrimRight(s, " \x00")
		}
		return strings.Join(out, "\\"), true
	case []int:
		out := make([]string, len(vals))
		for i, n := range vals {
			out[i] = strconv.Itoa(n)
		}
		return strings.Join(out, "\\"), true
	case []float64:
		out := make([]string, len(vals))
		for i, f := range vals {
			out[i] = strconv.FormatFloat(f, 'g', -1, 64)
		}
		return strings.Join(out, "\\"), true
	default:
		return "", false
	}
}
