package capture

import (
	"fmt"

	"camwatch/internal/services/poller"

	"gocv.io/x/gocv"
)

// Writer appends frames to a video file.
type Writer struct {
	vw *gocv.VideoWriter
}

// NewWriter opens a video file for writing with a four character codec.
func NewWriter(path, codec string, fps float64, width, height int) (*Writer, error) {
	const op = "capture.NewWriter"

	vw, err := gocv.VideoWriterFile(path, codec, fps, width, height, true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !vw.IsOpened() {
		vw.Close()
		return nil, fmt.Errorf("%s: %s not opened", op, path)
	}
	return &Writer{vw: vw}, nil
}

func (w *Writer) Write(frame poller.Frame) error {
	mat, err := Mat(frame)
	if err != nil {
		return err
	}
	return w.vw.Write(*mat)
}

func (w *Writer) Close() error {
	return w.vw.Close()
}

// NewWriterFor opens a writer sized after first.
func NewWriterFor(path, codec string, fps float64, first poller.Frame) (*Writer, error) {
	mat, err := Mat(first)
	if err != nil {
		return nil, fmt.Errorf("capture.NewWriterFor: %w", err)
	}
	return NewWriter(path, codec, fps, mat.Cols(), mat.Rows())
}
