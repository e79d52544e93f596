package capture

import (
	"fmt"
	"image"

	"camwatch/internal/services/poller"

	"gocv.io/x/gocv"
)

// Mat unwraps a frame produced by this package.
func Mat(frame poller.Frame) (*gocv.Mat, error) {
	mat, ok := frame.(*gocv.Mat)
	if !ok || mat == nil {
		return nil, fmt.Errorf("unsupported frame type %T", frame)
	}
	if mat.Empty() {
		return nil, fmt.Errorf("empty frame")
	}
	return mat, nil
}

// Codec converts frames for storage and preview.
type Codec struct {
	Quality int
}

// JPEG encodes the frame at the configured quality.
func (c Codec) JPEG(frame poller.Frame) ([]byte, error) {
	mat, err := Mat(frame)
	if err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, *mat, []int{gocv.IMWriteJpegQuality, c.Quality})
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}

// Image converts the frame into a Go image.
func (c Codec) Image(frame poller.Frame) (image.Image, error) {
	mat, err := Mat(frame)
	if err != nil {
		return nil, err
	}
	return mat.ToImage()
}
