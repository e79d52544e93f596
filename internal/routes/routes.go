package routes

import (
	"net/http"
	"os"
	"path/filepath"

	"camwatch/internal/handlers"
	"camwatch/internal/logger"
	authmiddleware "camwatch/internal/middleware"
	"camwatch/internal/repository"
	"camwatch/internal/services/cutter"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Auth interface {
	handlers.Authenticator
	authmiddleware.TokenVerifier
}

// Deps are the services the HTTP surface is built on.
type Deps struct {
	Auth       Auth
	Poller     handlers.PollerControl
	Viewers    handlers.Viewers
	Marks      *cutter.MarkBook
	Exports    handlers.ExportService
	Snapshots  repository.SnapshotRepository
	Detections repository.DetectionRepository
	Segments   repository.SegmentRepository
	Clips      repository.ClipRepository
	LogDir     string
	StaticDir  string
}

// pageHandler serves /path as <static>/path.html if the file exists; otherwise 404.
func pageHandler(staticDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "/" {
			path = "/index"
		}

		filePath := filepath.Join(staticDir, filepath.Clean("/"+path)+".html")
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}

		http.ServeFile(w, r, filePath)
	}
}

// SetupRoutes registers static pages, the auth endpoints and the JWT
// protected API.
func SetupRoutes(d Deps, log *logger.Logger) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(d.StaticDir))))
	router.Get("/login", pageHandler(d.StaticDir))

	router.Post("/auth/login", handlers.LoginHandler(d.Auth, log))
	router.Post("/auth/logout", handlers.LogoutHandler)

	router.Group(func(r chi.Router) {
		r.Use(authmiddleware.JWTAuth(d.Auth))

		r.Route("/api", func(r chi.Router) {
			r.Get("/view", handlers.ViewWebsocketHandler(d.Viewers, log))

			r.Get("/cameras", handlers.CamerasHandler(d.Poller))
			r.Get("/stats", handlers.PollerStatsHandler(d.Poller))
			r.Post("/poller/pause", handlers.PauseHandler(d.Poller))
			r.Post("/poller/resume", handlers.ResumeHandler(d.Poller))

			r.Route("/snapshots", func(r chi.Router) {
				r.Get("/", handlers.ListSnapshotsHandler(d.Snapshots, log))
				r.Get("/stats", handlers.SnapshotStatsHandler(d.Snapshots, log))
				r.Get("/labels", handlers.LabelsHandler(d.Detections, log))
				r.Get("/{id}", handlers.GetSnapshotHandler(d.Snapshots, log))
				r.Get("/{id}/image", handlers.SnapshotImageHandler(d.Snapshots, log))
				r.Delete("/{id}", handlers.DeleteSnapshotHandler(d.Snapshots, log))
			})

			r.Get("/segments", handlers.ListSegmentsHandler(d.Segments, log))
			r.Get("/segments/{id}", handlers.GetSegmentHandler(d.Segments, log))

			r.Get("/marks", handlers.ListMarksHandler(d.Marks))
			r.Post("/marks", handlers.AddMarkHandler(d.Marks, log))
			r.Delete("/marks", handlers.ClearMarksHandler(d.Marks))
			r.Delete("/marks/{index}", handlers.DeleteMarkHandler(d.Marks))

			r.Get("/exports", handlers.ListExportsHandler(d.Exports))
			r.Post("/exports", handlers.StartExportHandler(d.Exports, log))
			r.Get("/exports/{id}", handlers.GetExportHandler(d.Exports))
			r.Get("/clips", handlers.ListClipsHandler(d.Clips, log))
		})

		r.Get("/logs/{level}", handlers.ShowLogsHandler(d.LogDir))
		r.Post("/logs/{level}/clear", handlers.ClearLogsHandler(log))

		r.Get("/*", pageHandler(d.StaticDir))
	})

	return router
}
