package middleware

import (
	"context"
	"net/http"
	"strings"

	"camwatch/internal/lib/api/response"

	"github.com/go-chi/chi/v5/middleware"
)

type contextKey string

const (
	SubjectContextKey contextKey = "subject"

	// TokenCookie carries the session token for browser clients.
	TokenCookie = "token"
)

// TokenVerifier returns the subject of a valid token.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// JWTAuth accepts a bearer token or the session cookie. Browsers without a
// token are redirected to the login page, API clients get 401.
func JWTAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)
			if token == "" {
				unauthorized(w, r)
				return
			}

			subject, err := verifier.Verify(token)
			if err != nil {
				unauthorized(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), SubjectContextKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if cookie, err := r.Cookie(TokenCookie); err == nil {
		return cookie.Value
	}
	// Browsers cannot set headers on a websocket handshake.
	return r.URL.Query().Get("token")
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	if strings.Contains(r.Header.Get("Accept"), "text/html") {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	response.Write(w, r, http.StatusUnauthorized, response.Error("unauthorized", middleware.GetReqID(r.Context())))
}

// Subject returns the authenticated subject stored by JWTAuth.
func Subject(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(SubjectContextKey).(string)
	return subject, ok
}
