package convert

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveKey(t *testing.T) {
	tests := []struct {
		name        string
		key         string
		want        string
		wantConvert bool
		wantErr     bool
	}{
		{"pdf passes through", "u1/scan.pdf", "u1/scan.pdf", false, false},
		{"jpg converts", "u1/photo.jpg", "u1/photo.pdf", true, false},
		{"jpeg converts", "u1/photo.jpeg", "u1/photo.pdf", true, false},
		{"png converts", "u1/page.png", "u1/page.pdf", true, false},
		{"uppercase extension", "u1/PHOTO.JPG", "u1/PHOTO.pdf", true, false},
		{"gif rejected", "u1/anim.gif", "", false, true},
		{"no extension rejected", "u1/readme", "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, needsConvert, err := ResolveKey(tt.key)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrUnsupportedFileType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantConvert, needsConvert)
		})
	}
}

func testImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 8, 12))
	for y := 0; y < 12; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 20), B: 128, A: 255})
		}
	}
	return img
}

func TestToPDFFromPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage()))

	out, err := ToPDF(context.Background(), buf.Bytes())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")), "output should be a PDF document")
}

func TestToPDFFromJPEG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(), nil))

	out, err := ToPDF(context.Background(), buf.Bytes())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestToPDFRejectsGarbage(t *testing.T) {
	_, err := ToPDF(context.Background(), []byte("not an image"))
	require.Error(t, err)
}
