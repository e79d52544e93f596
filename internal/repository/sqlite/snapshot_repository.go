package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"camwatch/internal/errs"
	"camwatch/internal/models"

	"github.com/jmoiron/sqlx"
)

const snapshotColumns = "s.id, s.filename, s.camera_id, s.timestamp, s.filepath, s.filesize, s.trace_id"

// SnapshotRepository stores snapshots together with their detections.
type SnapshotRepository struct {
	db *DB
}

func NewSnapshotRepository(db *DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Insert stores the snapshot and its detections in one transaction and sets
// the generated ids.
func (r *SnapshotRepository) Insert(s *models.Snapshot) (int64, error) {
	const op = "storage.sqlite.snapshots.Insert"

	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Beginx()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	row := *s
	row.Timestamp = s.Timestamp.UTC()

	res, err := tx.NamedExec(fmt.Sprintf(`
		INSERT INTO %s (filename, camera_id, timestamp, filepath, filesize, trace_id)
		VALUES (:filename, :camera_id, :timestamp, :filepath, :filesize, :trace_id)
	`, SnapshotsTable), row)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	for i := range s.Detections {
		s.Detections[i].SnapshotID = id
		res, err := tx.NamedExec(fmt.Sprintf(`
			INSERT INTO %s (snapshot_id, class_id, label, x, y, width, height, confidence)
			VALUES (:snapshot_id, :class_id, :label, :x, :y, :width, :height, :confidence)
		`, DetectionsTable), s.Detections[i])
		if err != nil {
			return 0, fmt.Errorf("%s: detection: %w", op, err)
		}
		if s.Detections[i].ID, err = res.LastInsertId(); err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	s.ID = id
	return id, nil
}

// GetByID returns the snapshot with its detections.
func (r *SnapshotRepository) GetByID(id int64) (*models.Snapshot, error) {
	const op = "storage.sqlite.snapshots.GetByID"

	r.db.RLock()
	defer r.db.RUnlock()

	var s models.Snapshot
	err := r.db.Conn().Get(&s, fmt.Sprintf(`SELECT %s FROM %s s WHERE s.id = ?`, snapshotColumns, SnapshotsTable), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrSnapshotNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := r.db.Conn().Select(&s.Detections, fmt.Sprintf(`
		SELECT id, snapshot_id, class_id, label, x, y, width, height, confidence
		FROM %s WHERE snapshot_id = ? ORDER BY id
	`, DetectionsTable), id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &s, nil
}

func whereFilter(filter *models.SnapshotFilter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	if filter == nil {
		return "", nil
	}

	if filter.CameraID != nil {
		conds = append(conds, "s.camera_id = ?")
		args = append(args, *filter.CameraID)
	}
	if filter.Label != "" {
		conds = append(conds, fmt.Sprintf("EXISTS (SELECT 1 FROM %s d WHERE d.snapshot_id = s.id AND d.label = ?)", DetectionsTable))
		args = append(args, filter.Label)
	}
	if !filter.After.IsZero() {
		conds = append(conds, "s.timestamp >= ?")
		args = append(args, filter.After.UTC())
	}
	if !filter.Before.IsZero() {
		conds = append(conds, "s.timestamp <= ?")
		args = append(args, filter.Before.UTC())
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns snapshots matching filter, newest first, with detections attached.
func (r *SnapshotRepository) List(filter *models.SnapshotFilter) ([]models.Snapshot, error) {
	const op = "storage.sqlite.snapshots.List"

	r.db.RLock()
	defer r.db.RUnlock()

	where, args := whereFilter(filter)
	query := fmt.Sprintf(`SELECT %s FROM %s s%s ORDER BY s.timestamp DESC, s.id DESC`, snapshotColumns, SnapshotsTable, where)

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	var snapshots []models.Snapshot
	if err := r.db.Conn().Select(&snapshots, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := r.attachDetections(snapshots); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return snapshots, nil
}

func (r *SnapshotRepository) attachDetections(snapshots []models.Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	ids := make([]int64, len(snapshots))
	index := make(map[int64]int, len(snapshots))
	for i, s := range snapshots {
		ids[i] = s.ID
		index[s.ID] = i
	}

	query, args, err := sqlx.In(fmt.Sprintf(`
		SELECT id, snapshot_id, class_id, label, x, y, width, height, confidence
		FROM %s WHERE snapshot_id IN (?) ORDER BY id
	`, DetectionsTable), ids)
	if err != nil {
		return err
	}

	var detections []models.Detection
	if err := r.db.Conn().Select(&detections, r.db.Conn().Rebind(query), args...); err != nil {
		return err
	}

	for _, d := range detections {
		i := index[d.SnapshotID]
		snapshots[i].Detections = append(snapshots[i].Detections, d)
	}
	return nil
}

// Count returns how many snapshots match filter, ignoring Limit and Offset.
func (r *SnapshotRepository) Count(filter *models.SnapshotFilter) (int, error) {
	const op = "storage.sqlite.snapshots.Count"

	r.db.RLock()
	defer r.db.RUnlock()

	where, args := whereFilter(filter)

	var count int
	if err := r.db.Conn().Get(&count, fmt.Sprintf(`SELECT COUNT(*) FROM %s s%s`, SnapshotsTable, where), args...); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// Stats returns totals per camera and the ten most frequent labels.
func (r *SnapshotRepository) Stats() (*models.SnapshotStats, error) {
	const op = "storage.sqlite.snapshots.Stats"

	r.db.RLock()
	defer r.db.RUnlock()

	stats := &models.SnapshotStats{
		PerCamera:   make(map[int]int),
		LabelCounts: make(map[string]int),
	}

	conn := r.db.Conn()
	if err := conn.Get(&stats.TotalSnapshots, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, SnapshotsTable)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := conn.Get(&stats.TotalSizeBytes, fmt.Sprintf(`SELECT COALESCE(SUM(filesize), 0) FROM %s`, SnapshotsTable)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var perCamera []struct {
		CameraID int `db:"camera_id"`
		Count    int `db:"cnt"`
	}
	if err := conn.Select(&perCamera, fmt.Sprintf(`SELECT camera_id, COUNT(*) AS cnt FROM %s GROUP BY camera_id`, SnapshotsTable)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for _, row := range perCamera {
		stats.PerCamera[row.CameraID] = row.Count
	}

	var labels []struct {
		Label string `db:"label"`
		Count int    `db:"cnt"`
	}
	if err := conn.Select(&labels, fmt.Sprintf(`
		SELECT label, COUNT(*) AS cnt FROM %s
		GROUP BY label ORDER BY cnt DESC LIMIT 10
	`, DetectionsTable)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for _, row := range labels {
		stats.LabelCounts[row.Label] = row.Count
	}

	return stats, nil
}

// Delete removes a snapshot; its detections cascade.
func (r *SnapshotRepository) Delete(id int64) error {
	const op = "storage.sqlite.snapshots.Delete"

	r.db.Lock()
	defer r.db.Unlock()

	res, err := r.db.Conn().Exec(fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, SnapshotsTable), id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, errs.ErrSnapshotNotFound)
	}
	return nil
}

// DeleteOlderThan removes snapshots taken before cutoff and returns them so
// the caller can remove the files.
func (r *SnapshotRepository) DeleteOlderThan(cutoff time.Time) ([]models.Snapshot, error) {
	const op = "storage.sqlite.snapshots.DeleteOlderThan"

	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Beginx()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	var old []models.Snapshot
	if err := tx.Select(&old, fmt.Sprintf(`SELECT %s FROM %s s WHERE s.timestamp < ?`, snapshotColumns, SnapshotsTable), cutoff.UTC()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := tx.Exec(fmt.Sprintf(`DELETE FROM %s WHERE timestamp < ?`, SnapshotsTable), cutoff.UTC()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return old, nil
}
