package auth

import (
	"fmt"
	"time"

	"camwatch/internal/errs"
	"camwatch/internal/lib/jwt"
	"camwatch/internal/logger"

	"golang.org/x/crypto/bcrypt"
)

const subject = "operator"

// AuthService checks the station password and issues session tokens.
type AuthService struct {
	passHash []byte
	secret   string
	tokenTTL time.Duration
	log      *logger.Logger
}

// New hashes password once so the plain text is not kept in memory.
func New(password, secret string, tokenTTL time.Duration, log *logger.Logger) (*AuthService, error) {
	const op = "service.auth.New"

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &AuthService{
		passHash: passHash,
		secret:   secret,
		tokenTTL: tokenTTL,
		log:      log,
	}, nil
}

func (s *AuthService) Login(password string) (string, error) {
	const op = "service.auth.Login"

	if err := bcrypt.CompareHashAndPassword(s.passHash, []byte(password)); err != nil {
		s.log.Warning("Invalid login attempt")
		return "", fmt.Errorf("%s: %w", op, errs.ErrInvalidCredentials)
	}

	token, err := jwt.NewToken(subject, s.tokenTTL, s.secret)
	if err != nil {
		s.log.Error("Failed to generate token: %v", err)
		return "", fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("Operator logged in")
	return token, nil
}

// Verify returns the subject of a valid token.
func (s *AuthService) Verify(token string) (string, error) {
	return jwt.Parse(token, s.secret)
}

func (s *AuthService) TokenTTL() time.Duration {
	return s.tokenTTL
}
