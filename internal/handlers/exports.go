package handlers

import (
	"errors"
	"net/http"

	"camwatch/internal/dto"
	"camwatch/internal/errs"
	"camwatch/internal/lib/api/response"
	"camwatch/internal/logger"
	"camwatch/internal/models"
	"camwatch/internal/repository"
	"camwatch/internal/services/cutter"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type ExportService interface {
	Start(video string, w cutter.Window) (dto.ExportJob, error)
	Get(id string) (dto.ExportJob, error)
	List() []dto.ExportJob
	Window() cutter.Window
}

// StartExportHandler launches an export of every mark of a video. The
// configured window is used unless the request overrides pre or post.
func StartExportHandler(exports ExportService, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.ExportRequest
		if !decode(w, r, log, &req) {
			return
		}

		window := exports.Window()
		if req.Pre != nil {
			window.Pre = *req.Pre
		}
		if req.Post != nil {
			window.Post = *req.Post
		}

		job, err := exports.Start(req.Video, window)
		if err != nil {
			var verrs validator.ValidationErrors
			switch {
			case errors.Is(err, errs.ErrNoMarks):
				response.Write(w, r, http.StatusBadRequest, response.Error("video has no marks", ""))
			case errors.Is(err, errs.ErrVideoNotFound):
				response.Write(w, r, http.StatusNotFound, response.Error("video not found", ""))
			case errors.As(err, &verrs):
				response.Write(w, r, http.StatusBadRequest, response.ValidationError(verrs))
			default:
				internalError(w, r, log, "failed to start export", err)
			}
			return
		}

		render.Status(r, http.StatusAccepted)
		render.JSON(w, r, job)
	}
}

func GetExportHandler(exports ExportService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := exports.Get(chi.URLParam(r, "id"))
		if err != nil {
			if errors.Is(err, errs.ErrExportNotFound) {
				response.Write(w, r, http.StatusNotFound, response.Error("export not found", ""))
				return
			}
			response.Write(w, r, http.StatusInternalServerError, response.Error("failed to get export", requestID(r)))
			return
		}
		render.JSON(w, r, job)
	}
}

func ListExportsHandler(exports ExportService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, exports.List())
	}
}

// ListClipsHandler returns stored clips by ?export= or ?video=.
func ListClipsHandler(clips repository.ClipRepository, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var (
			items []models.Clip
			err   error
		)
		switch {
		case q.Get("export") != "":
			items, err = clips.ListByExport(q.Get("export"))
		case q.Get("video") != "":
			items, err = clips.ListByVideo(q.Get("video"), atoiDefault(q.Get("limit"), 100))
		default:
			response.Write(w, r, http.StatusBadRequest, response.Error("export or video is required", ""))
			return
		}
		if err != nil {
			internalError(w, r, log, "failed to list clips", err)
			return
		}
		if items == nil {
			items = []models.Clip{}
		}
		render.JSON(w, r, items)
	}
}
