package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"camwatch/internal/errs"
	"camwatch/internal/models"
)

const segmentColumns = "id, camera_id, start_time, end_time, fps, frames, video_file, raw_video_file, sidecar_file, class_counts"

// segmentRow carries class counts as JSON text.
type segmentRow struct {
	models.Segment
	ClassCounts string `db:"class_counts"`
}

func (row segmentRow) model() (models.Segment, error) {
	seg := row.Segment
	seg.ClassCounts = make(map[string]int)
	if row.ClassCounts != "" {
		if err := json.Unmarshal([]byte(row.ClassCounts), &seg.ClassCounts); err != nil {
			return seg, fmt.Errorf("segment %d: class counts: %w", seg.ID, err)
		}
	}
	return seg, nil
}

type SegmentRepository struct {
	db *DB
}

func NewSegmentRepository(db *DB) *SegmentRepository {
	return &SegmentRepository{db: db}
}

func (r *SegmentRepository) Insert(seg *models.Segment) (int64, error) {
	const op = "storage.sqlite.segments.Insert"

	counts, err := json.Marshal(seg.ClassCounts)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	row := segmentRow{Segment: *seg, ClassCounts: string(counts)}
	row.Start = seg.Start.UTC()
	row.End = seg.End.UTC()

	r.db.Lock()
	defer r.db.Unlock()

	res, err := r.db.Conn().NamedExec(fmt.Sprintf(`
		INSERT INTO %s (camera_id, start_time, end_time, fps, frames, video_file, raw_video_file, sidecar_file, class_counts)
		VALUES (:camera_id, :start_time, :end_time, :fps, :frames, :video_file, :raw_video_file, :sidecar_file, :class_counts)
	`, SegmentsTable), row)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	seg.ID = id
	return id, nil
}

func (r *SegmentRepository) GetByID(id int64) (*models.Segment, error) {
	const op = "storage.sqlite.segments.GetByID"

	r.db.RLock()
	defer r.db.RUnlock()

	var row segmentRow
	err := r.db.Conn().Get(&row, fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, segmentColumns, SegmentsTable), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrSegmentNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	seg, err := row.model()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &seg, nil
}

// List returns segments newest first. A nil cameraID lists all cameras.
func (r *SegmentRepository) List(cameraID *int, limit int) ([]models.Segment, error) {
	const op = "storage.sqlite.segments.List"

	r.db.RLock()
	defer r.db.RUnlock()

	query := fmt.Sprintf(`SELECT %s FROM %s`, segmentColumns, SegmentsTable)
	var args []interface{}
	if cameraID != nil {
		query += " WHERE camera_id = ?"
		args = append(args, *cameraID)
	}
	query += " ORDER BY start_time DESC, id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows []segmentRow
	if err := r.db.Conn().Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	segments := make([]models.Segment, 0, len(rows))
	for _, row := range rows {
		seg, err := row.model()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		segments = append(segments, seg)
	}
	return segments, nil
}
