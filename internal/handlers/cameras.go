package handlers

import (
	"net/http"

	"camwatch/internal/models"
	"camwatch/internal/services/poller"

	"github.com/go-chi/render"
)

type PollerControl interface {
	Cameras() []models.Camera
	Stats() poller.Stats
	Pause()
	Resume()
	Paused() bool
}

func CamerasHandler(p PollerControl) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cams := p.Cameras()
		if cams == nil {
			cams = []models.Camera{}
		}
		render.JSON(w, r, cams)
	}
}

// PollerStatsHandler reports processed, discarded and dropped counters.
func PollerStatsHandler(p PollerControl) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, p.Stats())
	}
}

func PauseHandler(p PollerControl) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p.Pause()
		render.JSON(w, r, map[string]bool{"paused": p.Paused()})
	}
}

func ResumeHandler(p PollerControl) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p.Resume()
		render.JSON(w, r, map[string]bool{"paused": p.Paused()})
	}
}
