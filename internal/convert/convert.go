// Package convert turns uploaded raster scans into single-page PDF
// documents so the text-detection service only ever sees one input format.
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"path"
	"strings"

	"github.com/wudi/pdfkit/builder"
	"github.com/wudi/pdfkit/ir/semantic"
	"github.com/wudi/pdfkit/writer"
)

// ErrUnsupportedFileType is returned for input extensions the pipeline
// cannot handle.
var ErrUnsupportedFileType = errors.New("input file type not supported")

// A4 in PDF points.
const (
	pageWidth  = 595.0
	pageHeight = 842.0
)

// ResolveKey decides how an input storage key enters the pipeline. PDF keys
// pass through unchanged; raster image keys get the ".pdf" suffix and need
// conversion; anything else is rejected.
func ResolveKey(key string) (resolved string, needsConversion bool, err error) {
	switch strings.ToLower(path.Ext(key)) {
	case ".pdf":
		return key, false, nil
	case ".jpg", ".jpeg", ".png":
		return strings.TrimSuffix(key, path.Ext(key)) + ".pdf", true, nil
	default:
		return "", false, fmt.Errorf("%w: %s", ErrUnsupportedFileType, strings.ToLower(path.Ext(key)))
	}
}

// ToPDF decodes a JPEG or PNG image and renders it as a single-page PDF,
// scaled to fit an A4 page.
func ToPDF(ctx context.Context, data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("image has zero dimension")
	}

	pdfImg := &semantic.Image{
		Width:            width,
		Height:           height,
		BitsPerComponent: 8,
		ColorSpace:       semantic.DeviceColorSpace{Name: "DeviceRGB"},
		Data:             imageToRGB(img),
	}

	scale := pageWidth / float64(width)
	if s := pageHeight / float64(height); s < scale {
		scale = s
	}
	targetWidth := float64(width) * scale
	targetHeight := float64(height) * scale

	b := builder.NewBuilder()
	b.NewPage(pageWidth, pageHeight).
		DrawImage(pdfImg, 0, pageHeight-targetHeight, targetWidth, targetHeight, builder.ImageOptions{}).
		Finish()

	doc, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build pdf: %w", err)
	}

	var buf bytes.Buffer
	w := writer.NewWriter()
	if err := w.Write(ctx, doc, &buf, writer.Config{}); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}

	return buf.Bytes(), nil
}

func imageToRGB(img image.Image) []byte {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	data := make([]byte, w*h*3)
	idx := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			data[idx] = byte(r >> 8)
			data[idx+1] = byte(g >> 8)
			data[idx+2] = byte(b >> 8)
			idx += 3
		}
	}
	return data
}
