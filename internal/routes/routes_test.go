package routes

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"camwatch/internal/logger"
	"camwatch/internal/models"
	"camwatch/internal/services/cutter"
	"camwatch/internal/services/poller"
)

type fakeAuth struct{}

func (fakeAuth) Login(password string) (string, error) {
	if password != "hunter2" {
		return "", errors.New("invalid")
	}
	return "good", nil
}
func (fakeAuth) TokenTTL() time.Duration { return time.Hour }
func (fakeAuth) Verify(token string) (string, error) {
	if token != "good" {
		return "", errors.New("invalid")
	}
	return "operator", nil
}

type fakePoller struct{}

func (fakePoller) Cameras() []models.Camera { return []models.Camera{{ID: 0}} }
func (fakePoller) Stats() poller.Stats { return poller.Stats{} }
func (fakePoller) Pause() {}
func (fakePoller) Resume() {}
func (fakePoller) Paused() bool { return false }

func newRouter(t *testing.T) http.Handler {
	t.Helper()

	static := t.TempDir()
	os.WriteFile(filepath.Join(static, "login.html"), []byte("<form>login</form>"), 0644)
	os.WriteFile(filepath.Join(static, "index.html"), []byte("<h1>cameras</h1>"), 0644)

	return SetupRoutes(Deps{
		Auth:      fakeAuth{},
		Poller:    fakePoller{},
		Marks:     cutter.NewMarkBook(),
		LogDir:    t.TempDir(),
		StaticDir: static,
	}, logger.NewDiscard())
}

func TestRoutes_AuthGate(t *testing.T) {
	router := newRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		header map[string]string
		status int
	}{
		{"api without token", http.MethodGet, "/api/cameras", "", nil, http.StatusUnauthorized},
		{"api with token", http.MethodGet, "/api/cameras", "", map[string]string{"Authorization": "Bearer good"}, http.StatusOK},
		{"api with bad token", http.MethodGet, "/api/marks", "", map[string]string{"Authorization": "Bearer bad"}, http.StatusUnauthorized},
		{"login page is public", http.MethodGet, "/login", "", nil, http.StatusOK},
		{"login endpoint is public", http.MethodPost, "/auth/login", `{"password":"hunter2"}`, nil, http.StatusOK},
		{"index redirects browsers", http.MethodGet, "/", "", map[string]string{"Accept": "text/html"}, http.StatusSeeOther},
		{"index with cookie", http.MethodGet, "/", "", map[string]string{"Cookie": "token=good"}, http.StatusOK},
		{"unknown page", http.MethodGet, "/nope", "", map[string]string{"Cookie": "token=good"}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Errorf("Expected %d, got %d: %s", tt.status, rec.Code, rec.Body)
			}
		})
	}
}

func TestRoutes_ErrorsCarryRequestID(t *testing.T) {
	router := newRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/cameras", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if !strings.Contains(rec.Body.String(), `"request_id"`) {
		t.Errorf("Expected request id in error body, got %s", rec.Body)
	}
}
