package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"campattend/internal/model"
)

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func TestProcessDownscalesLargeImage(t *testing.T) {
	out, err := Process(pngBytes(t, 1200, 600))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	decoded, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not JPEG: %v", err)
	}
	bounds := decoded.Bounds()
	if bounds.Dx() != 800 || bounds.Dy() != 400 {
		t.Errorf("output bounds = %dx%d, want 800x400", bounds.Dx(), bounds.Dy())
	}
}

func TestProcessKeepsSmallImage(t *testing.T) {
	out, err := Process(pngBytes(t, 320, 240))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	decoded, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not JPEG: %v", err)
	}
	bounds := decoded.Bounds()
	if bounds.Dx() != 320 || bounds.Dy() != 240 {
		t.Errorf("output bounds = %dx%d, want 320x240 unchanged", bounds.Dx(), bounds.Dy())
	}
}

func TestProcessRejectsGarbage(t *testing.T) {
	if _, err := Process([]byte("definitely not an image")); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if _, err := Process(nil); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("err for empty body = %v, want ErrValidation", err)
	}
}
