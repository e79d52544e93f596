package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"camwatch/internal/lib/api/response"
	"camwatch/internal/logger"

	"github.com/go-chi/chi/v5"
)

var logFiles = map[string]string{
	"info":    "info.log",
	"warning": "warning.log",
	"error":   "error.log",
}

// ShowLogsHandler serves the log file of the {level} path parameter.
func ShowLogsHandler(logDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename, ok := logFiles[chi.URLParam(r, "level")]
		if !ok {
			response.Write(w, r, http.StatusNotFound, response.Error("unknown log level", ""))
			return
		}

		filePath := filepath.Join(logDir, filename)
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			response.Write(w, r, http.StatusNotFound, response.Error("log file not found: "+filename, ""))
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFile(w, r, filePath)
	}
}

func ClearLogsHandler(log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename, ok := logFiles[chi.URLParam(r, "level")]
		if !ok {
			response.Write(w, r, http.StatusNotFound, response.Error("unknown log level", ""))
			return
		}
		if err := log.CleanLogs(filename); err != nil {
			response.Write(w, r, http.StatusInternalServerError, response.Error("failed to clear log", requestID(r)))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
