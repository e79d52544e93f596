package recorder

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"camwatch/internal/logger"
	"camwatch/internal/models"
	"camwatch/internal/repository"
	"camwatch/internal/services/poller"
)

// Writer appends frames to one video file.
type Writer interface {
	Write(frame poller.Frame) error
	Close() error
}

// WriterFactory opens a video file sized after the first frame.
type WriterFactory func(path string, fps float64, first poller.Frame) (Writer, error)

type Config struct {
	Directory       string
	SegmentDuration time.Duration
	FPS             float64
}

// Sidecar is written next to every finished segment.
type Sidecar struct {
	CameraID     int            `json:"camera_id"`
	Start        time.Time      `json:"start"`
	End          time.Time      `json:"end"`
	FPS          float64        `json:"fps"`
	Frames       int            `json:"frames"`
	ClassCounts  map[string]int `json:"class_counts"`
	VideoFile    string         `json:"video_file"`
	RawVideoFile string         `json:"raw_video_file"`
}

// Segment returns the stored form of a sidecar read from path. Video files
// are resolved next to the sidecar.
func (s *Sidecar) Segment(path string) *models.Segment {
	dir := filepath.Dir(path)
	return &models.Segment{
		CameraID:     s.CameraID,
		Start:        s.Start,
		End:          s.End,
		FPS:          s.FPS,
		Frames:       s.Frames,
		VideoFile:    filepath.Join(dir, s.VideoFile),
		RawVideoFile: filepath.Join(dir, s.RawVideoFile),
		SidecarFile:  path,
		ClassCounts:  s.ClassCounts,
	}
}

type segment struct {
	cameraID  int
	start     time.Time
	last      time.Time
	frames    int
	counts    map[string]int
	base      string
	video     Writer
	raw       Writer
	videoPath string
	rawPath   string
}

// Recorder cuts the processed frame stream of each camera into fixed-length
// segments of annotated and raw video.
type Recorder struct {
	cfg       Config
	newWriter WriterFactory
	segments  repository.SegmentRepository
	log       *logger.Logger

	mu   sync.Mutex
	open map[int]*segment
}

func New(cfg Config, newWriter WriterFactory, segments repository.SegmentRepository, log *logger.Logger) *Recorder {
	if cfg.SegmentDuration <= 0 {
		cfg.SegmentDuration = time.Minute
	}
	return &Recorder{
		cfg:       cfg,
		newWriter: newWriter,
		segments:  segments,
		log:       log,
		open:      make(map[int]*segment),
	}
}

// Record appends the event's frames to the camera's current segment, rolling
// over to a new segment when the current one is full. The event is not released.
func (r *Recorder) Record(ev poller.FrameEvent) error {
	const op = "recorder.Record"

	r.mu.Lock()
	defer r.mu.Unlock()

	seg := r.open[ev.CameraID]
	if seg != nil && ev.At.Sub(seg.start) >= r.cfg.SegmentDuration {
		if _, err := r.finish(seg); err != nil {
			r.log.Error("Failed to finish segment %s: %v", seg.base, err)
		}
		delete(r.open, ev.CameraID)
		seg = nil
	}

	if seg == nil {
		var err error
		if seg, err = r.begin(ev); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		r.open[ev.CameraID] = seg
	}

	annotated := ev.Annotated
	if annotated == nil {
		annotated = ev.Raw
	}
	if err := seg.video.Write(annotated); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := seg.raw.Write(ev.Raw); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	seg.frames++
	seg.last = ev.At
	for label, n := range models.CountByLabel(ev.Detections) {
		seg.counts[label] += n
	}
	return nil
}

func (r *Recorder) begin(ev poller.FrameEvent) (*segment, error) {
	if err := os.MkdirAll(r.cfg.Directory, 0755); err != nil {
		return nil, err
	}

	base := fmt.Sprintf("cam%d_%s", ev.CameraID, ev.At.Format("20060102_150405"))
	seg := &segment{
		cameraID:  ev.CameraID,
		start:     ev.At,
		last:      ev.At,
		counts:    make(map[string]int),
		base:      base,
		videoPath: filepath.Join(r.cfg.Directory, base+".mp4"),
		rawPath:   filepath.Join(r.cfg.Directory, base+"_raw.mp4"),
	}

	first := ev.Annotated
	if first == nil {
		first = ev.Raw
	}

	var err error
	if seg.video, err = r.newWriter(seg.videoPath, r.cfg.FPS, first); err != nil {
		return nil, fmt.Errorf("open %s: %w", seg.videoPath, err)
	}
	if seg.raw, err = r.newWriter(seg.rawPath, r.cfg.FPS, ev.Raw); err != nil {
		seg.video.Close()
		return nil, fmt.Errorf("open %s: %w", seg.rawPath, err)
	}

	r.log.Info("Recording camera %d to %s", ev.CameraID, seg.videoPath)
	return seg, nil
}

// finish closes the writers, writes the sidecar and stores the segment.
func (r *Recorder) finish(seg *segment) (*models.Segment, error) {
	closeErr := errors.Join(seg.video.Close(), seg.raw.Close())

	sidecar := Sidecar{
		CameraID:     seg.cameraID,
		Start:        seg.start,
		End:          seg.last,
		FPS:          r.cfg.FPS,
		Frames:       seg.frames,
		ClassCounts:  seg.counts,
		VideoFile:    filepath.Base(seg.videoPath),
		RawVideoFile: filepath.Base(seg.rawPath),
	}
	sidecarPath := filepath.Join(r.cfg.Directory, seg.base+".json")

	data, err := json.MarshalIndent(sidecar, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(sidecarPath, data, 0644); err != nil {
		return nil, errors.Join(closeErr, err)
	}

	model := sidecar.Segment(sidecarPath)
	if r.segments != nil {
		if _, err := r.segments.Insert(model); err != nil {
			return nil, errors.Join(closeErr, err)
		}
	}

	r.log.Info("Segment %s finished: %d frame(s), %v", seg.base, seg.frames, seg.last.Sub(seg.start))
	return model, closeErr
}

// Close finishes the open segment of one camera, if any.
func (r *Recorder) Close(cameraID int) (*models.Segment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seg, ok := r.open[cameraID]
	if !ok {
		return nil, nil
	}
	delete(r.open, cameraID)
	return r.finish(seg)
}

// CloseAll finishes every open segment.
func (r *Recorder) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for id, seg := range r.open {
		if _, err := r.finish(seg); err != nil {
			errs = append(errs, fmt.Errorf("camera %d: %w", id, err))
		}
		delete(r.open, id)
	}
	return errors.Join(errs...)
}

// ReadSidecar loads a sidecar written by the recorder.
func ReadSidecar(path string) (*Sidecar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Sidecar
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &s, nil
}
