package dto

import (
	"encoding/json"
	"time"

	"camwatch/internal/models"
)

// SnapshotInfo is a stored snapshot as shown in the gallery.
type SnapshotInfo struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Camera    int       `json:"camera"`
	Timestamp time.Time `json:"timestamp"`
	Objects   []string  `json:"objects"`
	Size      int64     `json:"size"`
}

// MarshalJSON adds the date and time-of-day fields the gallery groups by.
func (s SnapshotInfo) MarshalJSON() ([]byte, error) {
	type Alias SnapshotInfo
	return json.Marshal(&struct {
		Date      string `json:"date"`
		TimeOfDay string `json:"timeOfDay"`
		Alias
	}{
		Date:      s.Timestamp.Local().Format("02-01-2006"),
		TimeOfDay: s.Timestamp.Local().Format("15:04"),
		Alias:     (Alias)(s),
	})
}

func NewSnapshotInfo(s models.Snapshot) SnapshotInfo {
	seen := make(map[string]bool)
	objects := make([]string, 0, len(s.Detections))
	for _, d := range s.Detections {
		if !seen[d.Label] {
			seen[d.Label] = true
			objects = append(objects, d.Label)
		}
	}

	return SnapshotInfo{
		ID:        s.ID,
		Name:      s.Filename,
		Camera:    s.CameraID,
		Timestamp: s.Timestamp,
		Objects:   objects,
		Size:      s.FileSize,
	}
}

// SnapshotPage is a paginated response payload for the snapshot gallery.
type SnapshotPage struct {
	Snapshots   []SnapshotInfo `json:"snapshots"`
	Length      int            `json:"length"`
	TotalPages  int            `json:"totalPages"`
	CurrentPage int            `json:"currentPage"`
	Limit       int            `json:"pageSize"`
}
