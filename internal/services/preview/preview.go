package preview

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Encoder downsizes frames for the live view.
type Encoder struct {
	MaxWidth  int
	MaxHeight int
	Quality   int
}

// JPEG fits img inside MaxWidth x MaxHeight (never upscaling) and encodes it.
func (e Encoder) JPEG(img image.Image) ([]byte, error) {
	b := img.Bounds()
	if e.MaxWidth > 0 && e.MaxHeight > 0 && (b.Dx() > e.MaxWidth || b.Dy() > e.MaxHeight) {
		img = imaging.Fit(img, e.MaxWidth, e.MaxHeight, imaging.Lanczos)
	}

	quality := e.Quality
	if quality <= 0 {
		quality = 75
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("preview: %w", err)
	}
	return buf.Bytes(), nil
}

// Base64 returns the JPEG preview as standard base64 text.
func (e Encoder) Base64(img image.Image) (string, error) {
	data, err := e.JPEG(img)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
