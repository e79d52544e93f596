package capture

import (
	"context"
	"fmt"
	"strings"

	"camwatch/internal/errs"
	"camwatch/internal/logger"
	"camwatch/internal/models"
	"camwatch/internal/services/poller"

	"gocv.io/x/gocv"
)

// Options are applied to every handle right after it opens.
type Options struct {
	Width      int
	Height     int
	BufferSize int
	ProbeRTSP  bool
}

// stream is the part of *gocv.VideoCapture a Device polls.
type stream interface {
	Grab(skip int) error
	Retrieve(m *gocv.Mat) bool
	IsOpened() bool
	Close() error
}

// Device wraps a gocv capture handle.
type Device struct {
	vc     stream
	width  int
	height int
	fps    float64
}

// NewOpener returns a poller.Opener backed by OpenCV.
func NewOpener(opts Options, log *logger.Logger) poller.Opener {
	return func(ctx context.Context, src models.Source) (poller.Device, error) {
		dev, err := Open(ctx, src, opts)
		if err != nil {
			return nil, err
		}
		log.Info("Opened %s: %dx%d @ %.1f fps", describe(src), dev.width, dev.height, dev.fps)
		return dev, nil
	}
}

// Open opens a local device (empty URL) or a stream URL and applies opts.
func Open(ctx context.Context, src models.Source, opts Options) (*Device, error) {
	const op = "capture.Open"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var (
		vc  *gocv.VideoCapture
		err error
	)
	if src.IsDevice() {
		vc, err = gocv.VideoCaptureDevice(src.ID)
	} else {
		if opts.ProbeRTSP && isRTSP(src.URL) {
			if err := probeRTSP(src.URL); err != nil {
				return nil, fmt.Errorf("%s: %s: %w", op, src.URL, err)
			}
		}
		vc, err = gocv.VideoCaptureFile(src.URL)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, describe(src), err)
	}

	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%s: %s not opened", op, describe(src))
	}

	if err := configure(vc, opts); err != nil {
		vc.Close()
		return nil, fmt.Errorf("%s: %s: %w", op, describe(src), err)
	}

	return &Device{
		vc:     vc,
		width:  int(vc.Get(gocv.VideoCaptureFrameWidth)),
		height: int(vc.Get(gocv.VideoCaptureFrameHeight)),
		fps:    vc.Get(gocv.VideoCaptureFPS),
	}, nil
}

func configure(vc *gocv.VideoCapture, opts Options) error {
	if opts.BufferSize > 0 {
		vc.Set(gocv.VideoCaptureBufferSize, float64(opts.BufferSize))
	}
	if opts.Width > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(opts.Width))
	}
	if opts.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameHeight, float64(opts.Height))
	}

	if !vc.IsOpened() {
		return fmt.Errorf("handle closed while applying parameters")
	}
	return nil
}

// Grab advances the stream by one frame without decoding it.
func (d *Device) Grab() error {
	if err := d.vc.Grab(1); err != nil {
		return fmt.Errorf("capture.Grab: %w", err)
	}
	if !d.vc.IsOpened() {
		return errs.ErrGrab
	}
	return nil
}

// Retrieve decodes the frame buffered by the last Grab. The returned
// *gocv.Mat is owned by the caller.
func (d *Device) Retrieve() (poller.Frame, error) {
	mat := gocv.NewMat()
	if ok := d.vc.Retrieve(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, errs.ErrRetrieve
	}
	return &mat, nil
}

func (d *Device) Resolution() (int, int) {
	return d.width, d.height
}

func (d *Device) FPS() float64 {
	return d.fps
}

func (d *Device) Close() error {
	return d.vc.Close()
}

func isRTSP(url string) bool {
	return strings.HasPrefix(strings.ToLower(url), "rtsp://")
}

func describe(src models.Source) string {
	if src.IsDevice() {
		return fmt.Sprintf("device %d", src.ID)
	}
	return src.URL
}
