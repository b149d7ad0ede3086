package visualization

import (
	"context"
	"fmt"
	"image"

	"gonum.org/v1/gonum/floats"

	"mriviewer/pkg/dicomio"
	"mriviewer/pkg/transform"
)

// Image is a decoded slice ready for display
type Image struct {
	// ID is the handle the image was loaded from
	ID string

	// Width and Height are the pixel dimensions of the image
	Width  int
	Height int

	// Pixels holds the stored pixel values in row-major order
	Pixels []float64

	// DefaultVOI is the window/level applied when the image is first shown
	DefaultVOI transform.VOI
}

// At returns the stored value of pixel (x, y)
func (img *Image) At(x, y int) float64 {
	if x < 0 || y < 0 || x >= img.Width || y >= img.Height {
		return 0
	}
	return img.Pixels[y*img.Width+x]
}

// Loader decodes the pixel data behind an image handle
type Loader interface {
	LoadImage(ctx context.Context, id string) (*Image, error)
}

// FrameDecoder is the part of the DICOM decoder used for pixel data
type FrameDecoder interface {
	Frame(ctx context.Context, path string) (dicomio.Metadata, image.Image, error)
}

// FileLoader loads images from DICOM files on disk
type FileLoader struct {
	dec FrameDecoder
}

// NewFileLoader creates a loader backed by dec
func NewFileLoader(dec FrameDecoder) *FileLoader {
	return &FileLoader{dec: dec}
}

// LoadImage decodes the first frame of the file named by id
func (l *FileLoader) LoadImage(ctx context.Context, id string) (*Image, error) {
	md, frame, err := l.dec.Frame(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewImage(id, frame, md)
}

// NewImage converts a decoded frame into an Image. The initial window is
// read from the metadata, falling back to the full pixel range.
func NewImage(id string, frame image.Image, md dicomio.Metadata) (*Image, error) {
	bounds := frame.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("image %s has no pixels", id)
	}
	img := &Image{
		ID:     id,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Pixels: imageToFloat(frame),
	}
	if voi, ok := dicomio.WindowLevel(md); ok {
		img.DefaultVOI = voi
	} else {
		img.DefaultVOI = rangeVOI(img.Pixels)
	}
	return img, nil
}

// rangeVOI spans the window over the full range of stored values
func rangeVOI(pixels []float64) transform.VOI {
	if len(pixels) == 0 {
		return transform.VOI{WindowCenter: 0.5, WindowWidth: transform.MinWindowWidth}
	}
	lo, hi := floats.Min(pixels), floats.Max(pixels)
	return transform.VOI{
		WindowCenter: (lo + hi) / 2,
		WindowWidth:  transform.ClampWindowWidth(hi - lo),
	}
}

// imageToFloat converts an image to its stored values. 16-bit grayscale
// frames keep their raw values; anything else is reduced to 16-bit luma.
func imageToFloat(img image.Image) []float64 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	result := make([]float64, width*height)

	if g, ok := img.(*image.Gray16); ok {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				result[y*width+x] = float64(g.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y)
			}
		}
		return result
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			result[y*width+x] = 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
		}
	}
	return result
}
