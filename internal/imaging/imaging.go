// Package imaging prepares uploaded evidence photos: decode, downscale, and
// re-encode before they leave the server.
package imaging

import (
	"bytes"
	"fmt"
	"image/jpeg"

	"github.com/disintegration/imaging"

	"campattend/internal/model"
)

const (
	// maxEdge bounds the longer edge after downscaling.
	maxEdge = 800
	// jpegQuality is the re-encode quality.
	jpegQuality = 70
)

// Process validates that data is a decodable still image, scales it down to
// maxEdge on the longer side when larger, and re-encodes it as JPEG. A body
// that does not decode fails with ErrValidation.
func Process(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: not a decodable image: %v", model.ErrValidation, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > maxEdge || bounds.Dy() > maxEdge {
		img = imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("re-encode image: %w", err)
	}
	return buf.Bytes(), nil
}
