package dto

import (
	"time"

	"camwatch/internal/models"
)

// FrameMessage is pushed to viewers for every processed frame.
type FrameMessage struct {
	Camera     int                `json:"camera"`
	Image      string             `json:"image"`
	Detections []models.Detection `json:"detections"`
	Colors     map[int]string     `json:"colors,omitempty"`
	LatencyMs  int64              `json:"latency_ms"`
	Timestamp  time.Time          `json:"timestamp"`
}

// StatusMessage is pushed when a camera changes state.
type StatusMessage struct {
	Type   string        `json:"type"`
	Camera models.Camera `json:"camera"`
}
