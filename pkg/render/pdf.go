package render

import (
	"bytes"
	"image"
	_ "image/png"

	"github.com/go-pdf/fpdf"

	"github.com/matzehuels/flowsketch/pkg/buildinfo"
	"github.com/matzehuels/flowsketch/pkg/errors"
)

// PageMargin is the PDF page margin in millimetres.
const PageMargin = 10.0

// Placement is where an image lands on a PDF page, in millimetres.
type Placement struct {
	Landscape bool
	X, Y      float64
	W, H      float64
}

// a4 page size in millimetres, portrait.
const (
	a4Width  = 210.0
	a4Height = 297.0
)

// Place fits an image of the given pixel size on an A4 page: landscape when
// the image is wider than tall, scaled to the area inside the margins with the
// aspect ratio preserved, and centred.
func Place(imgW, imgH int) Placement {
	p := Placement{Landscape: imgW > imgH}
	pageW, pageH := a4Width, a4Height
	if p.Landscape {
		pageW, pageH = pageH, pageW
	}
	availW := pageW - 2*PageMargin
	availH := pageH - 2*PageMargin

	ratio := min(availW/float64(imgW), availH/float64(imgH))
	p.W = float64(imgW) * ratio
	p.H = float64(imgH) * ratio
	p.X = (pageW - p.W) / 2
	p.Y = (pageH - p.H) / 2
	return p
}

// ToPDF places a PNG on a single A4 page (see [Place]).
func ToPDF(png []byte) ([]byte, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(png))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode image")
	}
	if format != "png" {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "pdf export needs a png image, got %s", format)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "image has no area")
	}

	place := Place(cfg.Width, cfg.Height)
	orientation := "P"
	if place.Landscape {
		orientation = "L"
	}

	pdf := fpdf.New(orientation, "mm", "A4", "")
	pdf.SetCreator("flowsketch "+buildinfo.Version, true)
	pdf.SetTitle("Diagram", true)
	pdf.AddPage()

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("diagram", opts, bytes.NewReader(png))
	pdf.ImageOptions("diagram", place.X, place.Y, place.W, place.H, false, opts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeRenderFailed, err, "write pdf")
	}
	return buf.Bytes(), nil
}
