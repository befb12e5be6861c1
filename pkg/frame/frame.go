// Package frame decodes uploaded images and normalizes them for recognition.
package frame

import (
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
)

// ErrDecode is returned when the payload is not a supported image.
var ErrDecode = errors.New("frame: cannot decode image")

// Decode reads a JPEG, PNG, GIF, BMP or TIFF image, applying EXIF orientation.
func Decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return img, nil
}

// Gray converts img to an 8-bit gray image anchored at (0,0).
// Nil or empty images yield nil.
func Gray(img image.Image) *image.Gray {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	if b.Empty() {
		return nil
	}
	if g, ok := img.(*image.Gray); ok && b.Min == (image.Point{}) {
		return g
	}
	return fromNRGBA(imaging.Grayscale(img))
}

// Scale resizes a gray image by factor. Factors outside (0,1) return g unchanged.
func Scale(g *image.Gray, factor float64) *image.Gray {
	if g == nil || factor <= 0 || factor >= 1 {
		return g
	}
	w := int(float64(g.Bounds().Dx()) * factor)
	h := int(float64(g.Bounds().Dy()) * factor)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return fromNRGBA(imaging.Resize(g, w, h, imaging.Box))
}

// fromNRGBA takes the red channel of an image whose channels all carry luma.
func fromNRGBA(src *image.NRGBA) *image.Gray {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		out := dst.Pix[y*dst.Stride : y*dst.Stride+w]
		for x := range out {
			out[x] = row[x*4]
		}
	}
	return dst
}
