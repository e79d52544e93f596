package sqlite

import (
	"fmt"

	"camwatch/internal/models"
)

// DetectionRepository reads detections stored alongside snapshots.
type DetectionRepository struct {
	db *DB
}

func NewDetectionRepository(db *DB) *DetectionRepository {
	return &DetectionRepository{db: db}
}

// GetBySnapshotID retrieves all detections for a snapshot.
func (r *DetectionRepository) GetBySnapshotID(snapshotID int64) ([]models.Detection, error) {
	const op = "storage.sqlite.detections.GetBySnapshotID"

	r.db.RLock()
	defer r.db.RUnlock()

	var detections []models.Detection
	if err := r.db.Conn().Select(&detections, fmt.Sprintf(`
		SELECT id, snapshot_id, class_id, label, x, y, width, height, confidence
		FROM %s WHERE snapshot_id = ? ORDER BY id
	`, DetectionsTable), snapshotID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return detections, nil
}

// Labels returns every distinct label ever detected, sorted.
func (r *DetectionRepository) Labels() ([]string, error) {
	const op = "storage.sqlite.detections.Labels"

	r.db.RLock()
	defer r.db.RUnlock()

	var labels []string
	if err := r.db.Conn().Select(&labels, fmt.Sprintf(`SELECT DISTINCT label FROM %s ORDER BY label`, DetectionsTable)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return labels, nil
}
