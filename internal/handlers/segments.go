package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"camwatch/internal/errs"
	"camwatch/internal/lib/api/response"
	"camwatch/internal/logger"
	"camwatch/internal/models"
	"camwatch/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

func ListSegmentsHandler(segments repository.SegmentRepository, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		items, err := segments.List(optionalInt(q.Get("camera")), atoiDefault(q.Get("limit"), 50))
		if err != nil {
			internalError(w, r, log, "failed to list segments", err)
			return
		}
		if items == nil {
			items = []models.Segment{}
		}
		render.JSON(w, r, items)
	}
}

func GetSegmentHandler(segments repository.SegmentRepository, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			response.Write(w, r, http.StatusBadRequest, response.Error("invalid segment id", ""))
			return
		}

		seg, err := segments.GetByID(id)
		if err != nil {
			if errors.Is(err, errs.ErrSegmentNotFound) {
				response.Write(w, r, http.StatusNotFound, response.Error("segment not found", ""))
				return
			}
			internalError(w, r, log, "failed to get segment", err)
			return
		}
		render.JSON(w, r, seg)
	}
}
