package models

import "time"

// Clip is one exported window around a mark.
type Clip struct {
	ID         int64     `json:"id" db:"id"`
	ExportID   string    `json:"export_id" db:"export_id"`
	Video      string    `json:"video" db:"video"`
	OutputFile string    `json:"output_file" db:"output_file"`
	MarkOffset float64   `json:"mark_offset" db:"mark_offset"`
	FrameIndex int       `json:"frame_index" db:"frame_index"`
	Start      float64   `json:"start" db:"start_seconds"`
	Duration   float64   `json:"duration" db:"duration_seconds"`
	Strategy   string    `json:"strategy" db:"strategy"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
