package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"camwatch/internal/logger"
	"camwatch/internal/models"
)

type fakeSnapshots struct {
	mu       sync.Mutex
	inserted []*models.Snapshot
	failFor  int
	old      []models.Snapshot
	cutoff   time.Time
}

func (f *fakeSnapshots) Insert(s *models.Snapshot) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.CameraID == f.failFor {
		return 0, errors.New("disk full")
	}
	f.inserted = append(f.inserted, s)
	s.ID = int64(len(f.inserted))
	return s.ID, nil
}

func (f *fakeSnapshots) GetByID(id int64) (*models.Snapshot, error) { return nil, nil }
func (f *fakeSnapshots) List(*models.SnapshotFilter) ([]models.Snapshot, error) { return nil, nil }
func (f *fakeSnapshots) Count(*models.SnapshotFilter) (int, error) { return 0, nil }
func (f *fakeSnapshots) Stats() (*models.SnapshotStats, error) { return nil, nil }
func (f *fakeSnapshots) Delete(id int64) error                                    { return nil }
func (f *fakeSnapshots) DeleteOlderThan(cutoff time.Time) ([]models.Snapshot, error) {
	f.cutoff = cutoff
	return f.old, nil
}

func TestBuffer_PerCameraLimit(t *testing.T) {
	s := NewBufferService(Config{Directory: t.TempDir(), BufferLimit: 2}, logger.NewDiscard(), &fakeSnapshots{failFor: -1})

	accepted := 0
	for i := 0; i < 5; i++ {
		if s.AddSnapshot([]byte("jpeg"), 0, nil) {
			accepted++
		}
	}
	if accepted != 2 {
		t.Errorf("Expected 2 accepted for camera 0, got %d", accepted)
	}
	if !s.AddSnapshot([]byte("jpeg"), 1, nil) {
		t.Error("Camera 1 has its own limit")
	}
	if s.Len() != 3 {
		t.Errorf("Expected 3 buffered, got %d", s.Len())
	}

	s.Flush()
	if !s.AddSnapshot([]byte("jpeg"), 0, nil) {
		t.Error("Limit should reset after flush")
	}
}

func TestBuffer_FlushWritesFilesAndRows(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "images")
	repo := &fakeSnapshots{failFor: -1}
	s := NewBufferService(Config{Directory: dir, BufferLimit: 10}, logger.NewDiscard(), repo)
	s.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

	dets := []models.Detection{{Label: "person"}, {Label: "traffic light"}, {Label: "person"}}
	s.AddSnapshot([]byte("first"), 0, dets)
	s.AddSnapshot([]byte("second"), 1, nil)

	if saved := s.Flush(); saved != 2 {
		t.Fatalf("Expected 2 saved, got %d", saved)
	}
	if s.Len() != 0 {
		t.Error("Buffer should be empty after flush")
	}

	if len(repo.inserted) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(repo.inserted))
	}
	first := repo.inserted[0]
	if !strings.HasPrefix(first.Filename, "2025-03-01_12-00-00.000_cam0_person_traffic-light_") {
		t.Errorf("Unexpected filename %s", first.Filename)
	}
	if first.TraceID == "" || first.FileSize != 5 || len(first.Detections) != 3 {
		t.Errorf("Unexpected snapshot %+v", first)
	}

	data, err := os.ReadFile(first.FilePath)
	if err != nil || string(data) != "first" {
		t.Errorf("Expected file contents, got %q (%v)", data, err)
	}
}

func TestBuffer_FlushContinuesAfterRepositoryError(t *testing.T) {
	repo := &fakeSnapshots{failFor: 0}
	s := NewBufferService(Config{Directory: t.TempDir(), BufferLimit: 10}, logger.NewDiscard(), repo)

	s.AddSnapshot([]byte("a"), 0, nil)
	s.AddSnapshot([]byte("b"), 1, nil)

	if saved := s.Flush(); saved != 1 {
		t.Errorf("Expected 1 saved, got %d", saved)
	}
	if len(repo.inserted) != 1 || repo.inserted[0].CameraID != 1 {
		t.Errorf("Unexpected rows %+v", repo.inserted)
	}
}

func TestBuffer_Prune(t *testing.T) {
	dir := t.TempDir()
	oldFile := filepath.Join(dir, "old.jpg")
	if err := os.WriteFile(oldFile, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	now := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	repo := &fakeSnapshots{old: []models.Snapshot{
		{FilePath: oldFile},
		{FilePath: filepath.Join(dir, "already-gone.jpg")},
	}}
	s := NewBufferService(Config{Directory: dir, MaxAge: 24 * time.Hour}, logger.NewDiscard(), repo)
	s.now = func() time.Time { return now }

	if n := s.Prune(); n != 2 {
		t.Errorf("Expected 2 pruned, got %d", n)
	}
	if !repo.cutoff.Equal(now.Add(-24 * time.Hour)) {
		t.Errorf("Unexpected cutoff %v", repo.cutoff)
	}
	if _, err := os.Stat(oldFile); !os.IsNotExist(err) {
		t.Error("Expected old file removed")
	}

	s.cfg.MaxAge = 0
	if n := s.Prune(); n != 0 {
		t.Error("MaxAge 0 disables pruning")
	}
}
