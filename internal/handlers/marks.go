package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"camwatch/internal/dto"
	"camwatch/internal/errs"
	"camwatch/internal/lib/api/response"
	"camwatch/internal/logger"
	"camwatch/internal/services/cutter"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

type marksResponse struct {
	Video string        `json:"video"`
	Marks []cutter.Mark `json:"marks"`
}

// ListMarksHandler returns the marks of ?video=, or the marked videos when
// no video is given.
func ListMarksHandler(book *cutter.MarkBook) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		video := r.URL.Query().Get("video")
		if video == "" {
			render.JSON(w, r, map[string][]string{"videos": book.Videos()})
			return
		}

		marks := book.Marks(video)
		if marks == nil {
			marks = []cutter.Mark{}
		}
		render.JSON(w, r, marksResponse{Video: video, Marks: marks})
	}
}

func AddMarkHandler(book *cutter.MarkBook, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.MarkRequest
		if !decode(w, r, log, &req) {
			return
		}

		mark := book.Add(req.Video, req.FPS, req.Offset)
		log.Info("Mark added to %s at %.3fs", req.Video, mark.Offset)

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, mark)
	}
}

// DeleteMarkHandler removes the mark at position {index} of ?video=.
func DeleteMarkHandler(book *cutter.MarkBook) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		video := r.URL.Query().Get("video")
		index, err := strconv.Atoi(chi.URLParam(r, "index"))
		if video == "" || err != nil {
			response.Write(w, r, http.StatusBadRequest, response.Error("video and index are required", ""))
			return
		}

		if err := book.Remove(video, index); err != nil {
			if errors.Is(err, errs.ErrMarkNotFound) {
				response.Write(w, r, http.StatusNotFound, response.Error("mark not found", ""))
				return
			}
			response.Write(w, r, http.StatusInternalServerError, response.Error("failed to remove mark", requestID(r)))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func ClearMarksHandler(book *cutter.MarkBook) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		video := r.URL.Query().Get("video")
		if video == "" {
			response.Write(w, r, http.StatusBadRequest, response.Error("video is required", ""))
			return
		}
		book.Clear(video)
		w.WriteHeader(http.StatusNoContent)
	}
}
