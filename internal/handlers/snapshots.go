package handlers

import (
	"errors"
	"net/http"
	"os"
	"strconv"

	"camwatch/internal/dto"
	"camwatch/internal/errs"
	"camwatch/internal/lib/api/response"
	"camwatch/internal/logger"
	"camwatch/internal/models"
	"camwatch/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// ListSnapshotsHandler returns stored snapshots, newest first, filtered by
// camera, label and date and paginated with page/limit.
func ListSnapshotsHandler(snapshots repository.SnapshotRepository, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), 24)

		filter := &models.SnapshotFilter{
			CameraID: optionalInt(q.Get("camera")),
			Label:    q.Get("label"),
			After:    parseDate(q.Get("dateAfter")),
			Limit:    limit,
			Offset:   (page - 1) * limit,
		}
		if before := parseDate(q.Get("dateBefore")); !before.IsZero() {
			filter.Before = before.AddDate(0, 0, 1)
		}

		items, err := snapshots.List(filter)
		if err != nil {
			internalError(w, r, log, "failed to list snapshots", err)
			return
		}

		total, err := snapshots.Count(filter)
		if err != nil {
			log.Error("Failed to count snapshots: %v", err)
			total = len(items)
		}

		result := dto.SnapshotPage{
			Snapshots:   make([]dto.SnapshotInfo, 0, len(items)),
			Length:      total,
			TotalPages:  (total + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		}
		for _, s := range items {
			result.Snapshots = append(result.Snapshots, dto.NewSnapshotInfo(s))
		}

		render.JSON(w, r, result)
	}
}

func snapshotFromPath(w http.ResponseWriter, r *http.Request, snapshots repository.SnapshotRepository, log *logger.Logger) (*models.Snapshot, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.Write(w, r, http.StatusBadRequest, response.Error("invalid snapshot id", ""))
		return nil, false
	}

	s, err := snapshots.GetByID(id)
	if err != nil {
		if errors.Is(err, errs.ErrSnapshotNotFound) {
			response.Write(w, r, http.StatusNotFound, response.Error("snapshot not found", ""))
			return nil, false
		}
		internalError(w, r, log, "failed to get snapshot", err)
		return nil, false
	}
	return s, true
}

func GetSnapshotHandler(snapshots repository.SnapshotRepository, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s, ok := snapshotFromPath(w, r, snapshots, log); ok {
			render.JSON(w, r, s)
		}
	}
}

// SnapshotImageHandler serves the JPEG file of a snapshot.
func SnapshotImageHandler(snapshots repository.SnapshotRepository, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := snapshotFromPath(w, r, snapshots, log)
		if !ok {
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		http.ServeFile(w, r, s.FilePath)
	}
}

// DeleteSnapshotHandler removes a snapshot from disk and database.
func DeleteSnapshotHandler(snapshots repository.SnapshotRepository, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := snapshotFromPath(w, r, snapshots, log)
		if !ok {
			return
		}

		if err := snapshots.Delete(s.ID); err != nil {
			internalError(w, r, log, "failed to delete snapshot", err)
			return
		}
		if err := os.Remove(s.FilePath); err != nil && !os.IsNotExist(err) {
			log.Error("Failed to delete file %s: %v", s.FilePath, err)
		}

		log.Info("Deleted snapshot: %s", s.Filename)
		w.WriteHeader(http.StatusNoContent)
	}
}

func SnapshotStatsHandler(snapshots repository.SnapshotRepository, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := snapshots.Stats()
		if err != nil {
			internalError(w, r, log, "failed to get stats", err)
			return
		}
		render.JSON(w, r, stats)
	}
}

// LabelsHandler returns every label seen in stored detections.
func LabelsHandler(detections repository.DetectionRepository, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		labels, err := detections.Labels()
		if err != nil {
			internalError(w, r, log, "failed to get labels", err)
			return
		}
		if labels == nil {
			labels = []string{}
		}
		render.JSON(w, r, map[string][]string{"labels": labels})
	}
}
