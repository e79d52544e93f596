package sqlite

import (
	"fmt"

	"camwatch/internal/models"
)

const clipColumns = "id, export_id, video, output_file, mark_offset, frame_index, start_seconds, duration_seconds, strategy, created_at"

type ClipRepository struct {
	db *DB
}

func NewClipRepository(db *DB) *ClipRepository {
	return &ClipRepository{db: db}
}

// InsertBatch stores clips in a single transaction and sets their ids.
func (r *ClipRepository) InsertBatch(clips []models.Clip) error {
	const op = "storage.sqlite.clips.InsertBatch"

	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Beginx()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamed(fmt.Sprintf(`
		INSERT INTO %s (export_id, video, output_file, mark_offset, frame_index, start_seconds, duration_seconds, strategy, created_at)
		VALUES (:export_id, :video, :output_file, :mark_offset, :frame_index, :start_seconds, :duration_seconds, :strategy, :created_at)
	`, ClipsTable))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	for i := range clips {
		row := clips[i]
		row.CreatedAt = row.CreatedAt.UTC()

		res, err := stmt.Exec(row)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if clips[i].ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListByVideo returns the clips cut from video, newest first.
func (r *ClipRepository) ListByVideo(video string, limit int) ([]models.Clip, error) {
	const op = "storage.sqlite.clips.ListByVideo"

	r.db.RLock()
	defer r.db.RUnlock()

	query := fmt.Sprintf(`SELECT %s FROM %s`, clipColumns, ClipsTable)
	var args []interface{}
	if video != "" {
		query += " WHERE video = ?"
		args = append(args, video)
	}
	query += " ORDER BY created_at DESC, id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var clips []models.Clip
	if err := r.db.Conn().Select(&clips, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return clips, nil
}

func (r *ClipRepository) ListByExport(exportID string) ([]models.Clip, error) {
	const op = "storage.sqlite.clips.ListByExport"

	r.db.RLock()
	defer r.db.RUnlock()

	var clips []models.Clip
	if err := r.db.Conn().Select(&clips, fmt.Sprintf(`SELECT %s FROM %s WHERE export_id = ? ORDER BY mark_offset`, clipColumns, ClipsTable), exportID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return clips, nil
}
