package models

import "time"

// Segment is a recorded stretch of one camera with its sidecar summary.
type Segment struct {
	ID           int64          `json:"id" db:"id"`
	CameraID     int            `json:"camera_id" db:"camera_id"`
	Start        time.Time      `json:"start" db:"start_time"`
	End          time.Time      `json:"end" db:"end_time"`
	FPS          float64        `json:"fps" db:"fps"`
	Frames       int            `json:"frames" db:"frames"`
	VideoFile    string         `json:"video_file" db:"video_file"`
	RawVideoFile string         `json:"raw_video_file" db:"raw_video_file"`
	SidecarFile  string         `json:"sidecar_file" db:"sidecar_file"`
	ClassCounts  map[string]int `json:"class_counts" db:"-"`
}
