// Package imaging applies right-angle rotations to page images.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// ErrInvalidAngle indicates a rotation that is not a multiple of 90 degrees.
var ErrInvalidAngle = errors.New("rotation must be a multiple of 90 degrees")

// Normalize folds degrees into 0, 90, 180 or 270.
func Normalize(degrees int) (int, error) {
	if degrees%90 != 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidAngle, degrees)
	}
	return ((degrees % 360) + 360) % 360, nil
}

// Rotate turns a PNG clockwise by degrees and re-encodes it.
// A zero rotation returns data unchanged.
func Rotate(data []byte, degrees int) ([]byte, error) {
	degrees, err := Normalize(degrees)
	if err != nil {
		return nil, err
	}
	if degrees == 0 {
		return data, nil
	}

	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}

	dst := RotateImage(src, degrees)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// RotateImage turns src clockwise by a normalized angle.
func RotateImage(src image.Image, degrees int) *image.RGBA {
	b := src.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	x0, y0 := float64(b.Min.X), float64(b.Min.Y)

	var (
		dst *image.RGBA
		s2d f64.Aff3
	)

	switch degrees {
	case 90:
		dst = image.NewRGBA(image.Rect(0, 0, b.Dy(), b.Dx()))
		s2d = f64.Aff3{0, -1, h + y0, 1, 0, -x0}
	case 180:
		dst = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		s2d = f64.Aff3{-1, 0, w + x0, 0, -1, h + y0}
	case 270:
		dst = image.NewRGBA(image.Rect(0, 0, b.Dy(), b.Dx()))
		s2d = f64.Aff3{0, 1, -y0, -1, 0, w + x0}
	default:
		dst = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
		return dst
	}

	draw.NearestNeighbor.Transform(dst, s2d, src, b, draw.Src, nil)
	return dst
}
