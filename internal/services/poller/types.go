package poller

import (
	"context"
	"time"

	"camwatch/internal/models"
)

// Frame is an opaque decoded image owned by whoever holds it last.
type Frame interface {
	Close() error
}

// Device is an open capture handle. Grab buffers the next frame without
// decoding it; Retrieve decodes the last grabbed frame.
type Device interface {
	Grab() error
	Retrieve() (Frame, error)
	Resolution() (width, height int)
	FPS() float64
	Close() error
}

// Opener opens a source and applies its initial parameters. A non-nil error
// means the source never reached the connected state.
type Opener func(ctx context.Context, src models.Source) (Device, error)

// Result is what the detector returns for one frame.
type Result struct {
	Detections []models.Detection
	Annotated  Frame
}

// Detector runs inference on a frame. It must not close the input frame.
type Detector interface {
	Detect(ctx context.Context, frame Frame, confidence float64) (Result, error)
}

// AfterFunc schedules f after d and returns a function cancelling it.
type AfterFunc func(d time.Duration, f func()) (cancel func() bool)

func timeAfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}
