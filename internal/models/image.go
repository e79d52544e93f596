package models

import "time"

// Snapshot represents an annotated frame stored on disk.
type Snapshot struct {
	ID        int64     `json:"id" db:"id"`
	Filename  string    `json:"filename" db:"filename"`
	CameraID  int       `json:"camera_id" db:"camera_id"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	FilePath  string    `json:"filepath" db:"filepath"`
	FileSize  int64     `json:"filesize" db:"filesize"`
	TraceID   string    `json:"trace_id" db:"trace_id"`

	Detections []Detection `json:"detections,omitempty" db:"-"`
}

// SnapshotFilter contains filtering options for querying snapshots.
type SnapshotFilter struct {
	CameraID *int
	Label    string
	After    time.Time
	Before   time.Time
	Limit    int
	Offset   int
}

// SnapshotStats contains statistics about stored snapshots.
type SnapshotStats struct {
	TotalSnapshots int            `json:"total_snapshots"`
	TotalSizeBytes int64          `json:"total_size_bytes"`
	PerCamera      map[int]int    `json:"per_camera"`
	LabelCounts    map[string]int `json:"label_counts"`
}
