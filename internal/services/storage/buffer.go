package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"camwatch/internal/logger"
	"camwatch/internal/models"
	"camwatch/internal/repository"

	"github.com/google/uuid"
)

const timestampLayout = "2006-01-02_15-04-05.000"

type Config struct {
	Directory     string
	BufferLimit   int // per camera, between flushes
	FlushInterval time.Duration
	MaxAge        time.Duration // 0 keeps snapshots forever
}

// BufferedSnapshot is an encoded frame waiting to be written to disk.
type BufferedSnapshot struct {
	CameraID   int
	Timestamp  time.Time
	TraceID    string
	Detections []models.Detection
	Data       []byte
}

// BufferService buffers snapshots in memory and periodically flushes them to
// disk and to the snapshot repository.
type BufferService struct {
	cfg       Config
	logger    *logger.Logger
	snapshots repository.SnapshotRepository
	now       func() time.Time

	mu          sync.Mutex
	images      []BufferedSnapshot
	bufferCount map[int]int
}

func NewBufferService(cfg Config, logger *logger.Logger, snapshots repository.SnapshotRepository) *BufferService {
	return &BufferService{
		cfg:         cfg,
		logger:      logger,
		snapshots:   snapshots,
		now:         time.Now,
		images:      make([]BufferedSnapshot, 0),
		bufferCount: make(map[int]int),
	}
}

// Run flushes on every tick until ctx is done, then flushes once more.
func (s *BufferService) Run(ctx context.Context) {
	interval := s.cfg.FlushInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Flush()
			return
		case <-ticker.C:
			s.Flush()
			s.Prune()
		}
	}
}

// AddSnapshot buffers an encoded frame. It returns false once the camera has
// reached its limit for the current flush interval.
func (s *BufferService) AddSnapshot(data []byte, cameraID int, detections []models.Detection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.BufferLimit > 0 && s.bufferCount[cameraID] >= s.cfg.BufferLimit {
		return false
	}

	s.images = append(s.images, BufferedSnapshot{
		CameraID:   cameraID,
		Timestamp:  s.now(),
		TraceID:    uuid.NewString(),
		Detections: append([]models.Detection(nil), detections...),
		Data:       data,
	})
	s.bufferCount[cameraID]++
	s.logger.Info("Buffer size for camera %d: %d/%d", cameraID, s.bufferCount[cameraID], s.cfg.BufferLimit)
	return true
}

// Len returns the number of buffered snapshots.
func (s *BufferService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.images)
}

// Flush writes buffered snapshots to disk and the repository and resets the
// per-camera counters. It returns how many were saved.
func (s *BufferService) Flush() int {
	s.mu.Lock()
	images := s.images
	s.images = make([]BufferedSnapshot, 0, len(images))
	s.bufferCount = make(map[int]int)
	s.mu.Unlock()

	if len(images) == 0 {
		return 0
	}

	if err := os.MkdirAll(s.cfg.Directory, 0755); err != nil {
		s.logger.Error("Error creating directory: %v", err)
		return 0
	}

	saved := 0
	for _, image := range images {
		filename := snapshotFilename(image)
		fullpath := filepath.Join(s.cfg.Directory, filename)

		if err := os.WriteFile(fullpath, image.Data, 0644); err != nil {
			s.logger.Error("Error saving image %s: %v", filename, err)
			continue
		}

		if s.snapshots != nil {
			snap := &models.Snapshot{
				Filename:   filename,
				CameraID:   image.CameraID,
				Timestamp:  image.Timestamp,
				FilePath:   fullpath,
				FileSize:   int64(len(image.Data)),
				TraceID:    image.TraceID,
				Detections: image.Detections,
			}
			if _, err := s.snapshots.Insert(snap); err != nil {
				s.logger.Error("Error saving snapshot to database %s: %v", filename, err)
				continue
			}
		}

		saved++
	}

	s.logger.Info("Flushed %d snapshot(s) to disk", saved)
	return saved
}

// Prune deletes snapshots older than MaxAge from the repository and disk.
func (s *BufferService) Prune() int {
	if s.cfg.MaxAge <= 0 || s.snapshots == nil {
		return 0
	}

	old, err := s.snapshots.DeleteOlderThan(s.now().Add(-s.cfg.MaxAge))
	if err != nil {
		s.logger.Error("Error pruning snapshots: %v", err)
		return 0
	}

	for _, snap := range old {
		if err := os.Remove(snap.FilePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warning("Error removing %s: %v", snap.FilePath, err)
		}
	}
	if len(old) > 0 {
		s.logger.Info("Pruned %d snapshot(s) older than %v", len(old), s.cfg.MaxAge)
	}
	return len(old)
}

func snapshotFilename(image BufferedSnapshot) string {
	labels := make(map[string]bool)
	for _, d := range image.Detections {
		labels[d.Label] = true
	}
	names := make([]string, 0, len(labels))
	for l := range labels {
		names = append(names, escapeLabel(l))
	}
	sort.Strings(names)

	trace := image.TraceID
	if len(trace) > 8 {
		trace = trace[:8]
	}

	name := fmt.Sprintf("%s_cam%d", image.Timestamp.Format(timestampLayout), image.CameraID)
	if len(names) > 0 {
		name += "_" + strings.Join(names, "_")
	}
	return name + "_" + trace + ".jpg"
}
