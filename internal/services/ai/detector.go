package ai

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"sync"

	"camwatch/internal/errs"
	"camwatch/internal/logger"
	"camwatch/internal/models"
	"camwatch/internal/services/capture"
	"camwatch/internal/services/poller"

	"gocv.io/x/gocv"
)

type Config struct {
	ModelPath string
	NamesPath string
	InputSize int
	NMS       float64
	Backend   string // cpu, cuda or opencl
}

// Detector runs a YOLO ONNX model through the OpenCV DNN module.
type Detector struct {
	cfg     Config
	log     *logger.Logger
	palette *Palette
	labels  []string

	mu  sync.Mutex
	net gocv.Net
}

func NewDetector(cfg Config, palette *Palette, log *logger.Logger) (*Detector, error) {
	const op = "ai.NewDetector"

	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("%s: model file: %w", op, err)
	}

	labels, err := loadLabels(cfg.NamesPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: names file: %w", op, err)
		}
		log.Warning("Class names file %s not found, using numeric labels", cfg.NamesPath)
	}

	net := gocv.ReadNet(cfg.ModelPath, "")
	if net.Empty() {
		return nil, fmt.Errorf("%s: %w: %s", op, errs.ErrModelNotLoaded, cfg.ModelPath)
	}

	backend, target := backendFor(cfg.Backend)
	if err := net.SetPreferableBackend(backend); err != nil {
		net.Close()
		return nil, fmt.Errorf("%s: set backend: %w", op, err)
	}
	if err := net.SetPreferableTarget(target); err != nil {
		net.Close()
		return nil, fmt.Errorf("%s: set target: %w", op, err)
	}

	if palette == nil {
		palette = NewPalette()
	}

	log.Info("Detection network initialized: %s (%d classes, backend %s)", cfg.ModelPath, len(labels), cfg.Backend)

	return &Detector{
		cfg:     cfg,
		log:     log,
		palette: palette,
		labels:  labels,
		net:     net,
	}, nil
}

func backendFor(name string) (gocv.NetBackendType, gocv.NetTargetType) {
	switch name {
	case "cuda":
		return gocv.NetBackendCUDA, gocv.NetTargetCUDA
	case "opencl":
		return gocv.NetBackendOpenCV, gocv.NetTargetFP32
	default:
		return gocv.NetBackendDefault, gocv.NetTargetCPU
	}
}

// Detect runs inference on frame and returns the detections together with
// an annotated copy. The input frame is left untouched.
func (d *Detector) Detect(ctx context.Context, frame poller.Frame, confidence float64) (poller.Result, error) {
	if err := ctx.Err(); err != nil {
		return poller.Result{}, err
	}

	mat, err := capture.Mat(frame)
	if err != nil {
		return poller.Result{}, err
	}

	cands, err := d.infer(*mat, float32(confidence))
	if err != nil {
		return poller.Result{}, err
	}

	detections := d.suppress(cands, float32(confidence))

	annotated := mat.Clone()
	if err := d.draw(&annotated, detections); err != nil {
		annotated.Close()
		return poller.Result{}, err
	}

	return poller.Result{Detections: detections, Annotated: &annotated}, nil
}

func (d *Detector) infer(mat gocv.Mat, threshold float32) ([]candidate, error) {
	size := image.Pt(d.cfg.InputSize, d.cfg.InputSize)
	blob := gocv.BlobFromImage(mat, 1.0/255.0, size, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	layout, ok := layoutFromDims(output.Size())
	if !ok {
		return nil, fmt.Errorf("unexpected output shape %v", output.Size())
	}

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read output: %w", err)
	}

	return parseOutput(data, layout, d.cfg.InputSize, mat.Cols(), mat.Rows(), threshold), nil
}

func (d *Detector) suppress(cands []candidate, threshold float32) []models.Detection {
	if len(cands) == 0 {
		return nil
	}

	rects := make([]image.Rectangle, len(cands))
	scores := make([]float32, len(cands))
	for i, c := range cands {
		rects[i] = c.rect
		scores[i] = c.score
	}

	indices := gocv.NMSBoxes(rects, scores, threshold, float32(d.cfg.NMS))

	detections := make([]models.Detection, 0, len(indices))
	for _, i := range indices {
		c := cands[i]
		detections = append(detections, models.Detection{
			ClassID:    c.classID,
			Label:      label(d.labels, c.classID),
			X:          c.rect.Min.X,
			Y:          c.rect.Min.Y,
			Width:      c.rect.Dx(),
			Height:     c.rect.Dy(),
			Confidence: float64(c.score),
		})
	}
	return detections
}

func (d *Detector) draw(mat *gocv.Mat, detections []models.Detection) error {
	for _, det := range detections {
		clr := d.palette.Color(det.ClassID)
		rect := image.Rect(det.X, det.Y, det.X+det.Width, det.Y+det.Height)
		if err := gocv.Rectangle(mat, rect, clr, 2); err != nil {
			return fmt.Errorf("failed to draw rectangle: %w", err)
		}

		text := fmt.Sprintf("%s %.2f", det.Label, det.Confidence)
		pt := image.Pt(det.X, max(det.Y-5, 12))
		if err := gocv.PutText(mat, text, pt, gocv.FontHersheySimplex, 0.5, clr, 1); err != nil {
			return fmt.Errorf("failed to draw text: %w", err)
		}
	}
	return nil
}

// Labels returns the class names known to the model.
func (d *Detector) Labels() []string {
	return d.labels
}

func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}
