package repository

import (
	"time"

	"camwatch/internal/models"
)

// SnapshotRepository defines the interface for snapshot data operations.
type SnapshotRepository interface {
	// Create operations
	Insert(s *models.Snapshot) (int64, error)

	// Read operations
	GetByID(id int64) (*models.Snapshot, error)
	List(filter *models.SnapshotFilter) ([]models.Snapshot, error)
	Count(filter *models.SnapshotFilter) (int, error)
	Stats() (*models.SnapshotStats, error)

	// Delete operations
	Delete(id int64) error
	DeleteOlderThan(cutoff time.Time) ([]models.Snapshot, error)
}

// DetectionRepository defines the interface for detection data operations.
type DetectionRepository interface {
	GetBySnapshotID(snapshotID int64) ([]models.Detection, error)
	Labels() ([]string, error)
}

// SegmentRepository stores recorded segment summaries.
type SegmentRepository interface {
	Insert(seg *models.Segment) (int64, error)
	GetByID(id int64) (*models.Segment, error)
	List(cameraID *int, limit int) ([]models.Segment, error)
}

// ClipRepository stores exported clips.
type ClipRepository interface {
	InsertBatch(clips []models.Clip) error
	ListByVideo(video string, limit int) ([]models.Clip, error)
	ListByExport(exportID string) ([]models.Clip, error)
}
