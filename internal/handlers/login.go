package handlers

import (
	"errors"
	"net/http"
	"time"

	"camwatch/internal/dto"
	"camwatch/internal/errs"
	"camwatch/internal/lib/api/response"
	"camwatch/internal/logger"
	"camwatch/internal/middleware"

	"github.com/go-chi/render"
)

type Authenticator interface {
	Login(password string) (string, error)
	TokenTTL() time.Duration
}

// LoginHandler checks the password and returns a token, also set as cookie
// for the browser.
func LoginHandler(auth Authenticator, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.LoginRequest
		if !decode(w, r, log, &req) {
			return
		}

		token, err := auth.Login(req.Password)
		if err != nil {
			if errors.Is(err, errs.ErrInvalidCredentials) {
				response.Write(w, r, http.StatusUnauthorized, response.Error("invalid password", ""))
				return
			}
			internalError(w, r, log, "failed to login", err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     middleware.TokenCookie,
			Value:    token,
			Path:     "/",
			MaxAge:   int(auth.TokenTTL().Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
		})

		render.JSON(w, r, dto.LoginResponse{Token: token})
	}
}
