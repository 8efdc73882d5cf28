// Package auth issues and validates employee session tokens. Accounts are
// static configuration; the office has a single admin login plus whatever
// employee accounts are provisioned at deploy time.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"meldeamt/internal/platform/middleware"
	dErrors "meldeamt/pkg/domain-errors"
)

const roleAdmin = "admin"

// Service authenticates employees and mints session JWTs.
type Service struct {
	signingKey []byte
	adminEmail string
	adminHash  string
	ttl        time.Duration
	logger     *slog.Logger
}

func NewService(signingKey []byte, adminEmail, adminPasswordHash string, ttl time.Duration, logger *slog.Logger) *Service {
	return &Service{
		signingKey: signingKey,
		adminEmail: adminEmail,
		adminHash:  adminPasswordHash,
		ttl:        ttl,
		logger:     logger,
	}
}

// Login verifies credentials and returns a signed session token.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	if email != s.adminEmail {
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.adminHash), []byte(password)); err != nil {
		s.logger.WarnContext(ctx, "failed login attempt", slog.String("email", email))
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  email,
		"role": roleAdmin,
		"iat":  now.Unix(),
		"exp":  now.Add(s.ttl).Unix(),
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies a session token. Satisfies the
// middleware's TokenValidator.
func (s *Service) ValidateToken(tokenString string) (*middleware.SessionClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.signingKey, nil
	})
	if err != nil || !token.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid session token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid session token")
	}
	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if sub == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid session token")
	}
	return &middleware.SessionClaims{Employee: sub, Role: role}, nil
}
