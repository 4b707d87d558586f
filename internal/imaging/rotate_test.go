package imaging_test

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/JaimeStill/tally/internal/imaging"
)

var marker = color.RGBA{R: 255, A: 255}

// 3x2 image with the top-left pixel marked.
func sample() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	for y := range 2 {
		for x := range 3 {
			img.Set(x, y, color.RGBA{A: 255})
		}
	}
	img.Set(0, 0, marker)
	return img
}

func TestRotateImage(t *testing.T) {
	tests := []struct {
		degrees int
		w, h    int
		mx, my  int
	}{
		{0, 3, 2, 0, 0},
		{90, 2, 3, 1, 0},
		{180, 3, 2, 2, 1},
		{270, 2, 3, 0, 2},
	}

	for _, tt := range tests {
		dst := imaging.RotateImage(sample(), tt.degrees)

		if dst.Bounds().Dx() != tt.w || dst.Bounds().Dy() != tt.h {
			t.Errorf("%d: size %v, want %dx%d", tt.degrees, dst.Bounds().Size(), tt.w, tt.h)
			continue
		}

		if got := dst.RGBAAt(tt.mx, tt.my); got != marker {
			t.Errorf("%d: marker not at (%d,%d), got %v", tt.degrees, tt.mx, tt.my, got)
		}
	}
}

func TestRotatePNG(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, sample()); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()

	same, err := imaging.Rotate(data, 360)
	if err != nil {
		t.Fatalf("rotate 360: %v", err)
	}
	if !bytes.Equal(same, data) {
		t.Error("full turn should return the input unchanged")
	}

	out, err := imaging.Rotate(data, 90)
	if err != nil {
		t.Fatalf("rotate 90: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode rotated: %v", err)
	}
	if img.Bounds().Dx() != 2 || img.Bounds().Dy() != 3 {
		t.Errorf("rotated size: got %v", img.Bounds().Size())
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   int
		want int
		err  bool
	}{
		{0, 0, false},
		{90, 90, false},
		{450, 90, false},
		{-90, 270, false},
		{45, 0, true},
	}

	for _, tt := range tests {
		got, err := imaging.Normalize(tt.in)
		if tt.err {
			if !errors.Is(err, imaging.ErrInvalidAngle) {
				t.Errorf("Normalize(%d): expected ErrInvalidAngle, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("Normalize(%d) = %d, %v; want %d", tt.in, got, err, tt.want)
		}
	}
}
