package models

// Detection represents a detected object in a frame.
type Detection struct {
	ID         int64   `json:"id,omitempty" db:"id"`
	SnapshotID int64   `json:"snapshot_id,omitempty" db:"snapshot_id"`
	ClassID    int     `json:"class_id" db:"class_id"`
	Label      string  `json:"label" db:"label"`
	X          int     `json:"x" db:"x"`
	Y          int     `json:"y" db:"y"`
	Width      int     `json:"width" db:"width"`
	Height     int     `json:"height" db:"height"`
	Confidence float64 `json:"confidence" db:"confidence"`
}

// CountByLabel returns how many detections carry each label.
func CountByLabel(detections []Detection) map[string]int {
	counts := make(map[string]int, len(detections))
	for _, d := range detections {
		counts[d.Label]++
	}
	return counts
}
