package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"camwatch/internal/lib/api/response"
	"camwatch/internal/logger"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// decode reads a JSON body into req and validates it. On failure the error
// response is already written.
func decode(w http.ResponseWriter, r *http.Request, log *logger.Logger, req any) bool {
	if err := render.DecodeJSON(r.Body, req); err != nil {
		if errors.Is(err, io.EOF) {
			response.Write(w, r, http.StatusBadRequest, response.Error("empty request", ""))
			return false
		}
		log.Error("Failed to decode request body: %v", err)
		response.Write(w, r, http.StatusBadRequest, response.Error("failed to decode request", requestID(r)))
		return false
	}

	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			response.Write(w, r, http.StatusBadRequest, response.ValidationError(verrs))
			return false
		}
		response.Write(w, r, http.StatusBadRequest, response.Error(err.Error(), ""))
		return false
	}
	return true
}

func internalError(w http.ResponseWriter, r *http.Request, log *logger.Logger, msg string, err error) {
	log.Error("%s: %v", msg, err)
	response.Write(w, r, http.StatusInternalServerError, response.Error(msg, requestID(r)))
}

func requestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// optionalInt returns nil for an empty or invalid value.
func optionalInt(s string) *int {
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return &v
	}
	return nil
}

// parseDate parses a date string in the format "2006-01-02" from the request (HTML input format).
func parseDate(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation("2006-01-02", v, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}
