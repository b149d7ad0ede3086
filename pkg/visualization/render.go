package visualization

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/gogpu/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"mriviewer/pkg/transform"
)

const (
	markerRadius  = 4.0
	lineWidth     = 3.0
	labelInsetX   = 8
	labelBaseline = 10
)

// annotation colour: turquoise at 90% opacity
var annotationColor = color.NRGBA{R: 64, G: 224, B: 208, A: 230}

// Render composites the displayed image through the current viewport and
// draws the overlay on top.
func (c *Canvas) Render() (*image.RGBA, error) {
	if c.image == nil {
		return nil, ErrNoImage
	}

	dc := gg.NewContext(c.width, c.height)
	defer dc.Close()
	dc.ClearWithColor(c.background)

	vp := c.viewport
	frame := gg.ImageBufFromImage(ApplyWindow(c.image, vp.VOI))
	dc.DrawImageEx(frame, gg.DrawImageOptions{
		X:             vp.Translation.X,
		Y:             vp.Translation.Y,
		DstWidth:      float64(c.image.Width) * vp.Scale,
		DstHeight:     float64(c.image.Height) * vp.Scale,
		Interpolation: gg.InterpBilinear,
	})

	if err := drawOverlay(dc, c.overlay); err != nil {
		return nil, err
	}

	out := toRGBA(dc.Image())
	if c.overlay.ShowResult {
		drawLabel(out, c.overlay.Result)
	}
	return out, nil
}

func drawOverlay(dc *gg.Context, o *Overlay) error {
	dc.SetColor(annotationColor)
	dc.SetLineWidth(lineWidth)
	for _, l := range o.Lines {
		dc.DrawLine(l.From.X, l.From.Y, l.To.X, l.To.Y)
		if err := dc.Stroke(); err != nil {
			return err
		}
	}
	for _, m := range o.Markers {
		dc.DrawCircle(m.X, m.Y, markerRadius)
		if err := dc.Fill(); err != nil {
			return err
		}
	}
	return nil
}

func drawLabel(dst *image.RGBA, text string) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(annotationColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(labelInsetX, dst.Bounds().Dy()-labelBaseline),
	}
	d.DrawString(text)
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return rgba
}

// ApplyWindow maps stored values to 8-bit grey through a linear
// window/level transform.
func ApplyWindow(img *Image, voi transform.VOI) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, img.Width, img.Height))
	lo := voi.WindowCenter - 0.5
	span := math.Max(voi.WindowWidth-1, 1)
	for i, v := range img.Pixels {
		n := ((v-lo)/span + 0.5) * 255
		out.Pix[i] = uint8(math.Max(0, math.Min(255, math.Round(n))))
	}
	return out
}
