package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	adminSubject = "admin"
	tokenIssuer  = "homevisit"
)

// PasswordVerifier compares a stored hash with a candidate password.
type PasswordVerifier func(hashedPassword, password string) error

// Principal is the authenticated caller of an admin operation.
type Principal struct {
	Subject   string
	ExpiresAt time.Time
}

// AdminAuthService exchanges the admin password for signed bearer tokens and
// validates them.
type AdminAuthService struct {
	passwordHash   string
	secret         []byte
	ttl            time.Duration
	verifyPassword PasswordVerifier
	now            func() time.Time
	logger         *slog.Logger
}

// NewAdminAuthService constructs an AdminAuthService.
func NewAdminAuthService(passwordHash string, secret []byte, ttl time.Duration, verify PasswordVerifier, now func() time.Time) *AdminAuthService {
	return NewAdminAuthServiceWithLogger(passwordHash, secret, ttl, verify, now, nil)
}

// NewAdminAuthServiceWithLogger constructs an AdminAuthService with a specified logger.
func NewAdminAuthServiceWithLogger(passwordHash string, secret []byte, ttl time.Duration, verify PasswordVerifier, now func() time.Time, logger *slog.Logger) *AdminAuthService {
	if verify == nil {
		verify = VerifyPassword
	}
	if now == nil {
		now = time.Now
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &AdminAuthService{
		passwordHash:   strings.TrimSpace(passwordHash),
		secret:         secret,
		ttl:            ttl,
		verifyPassword: verify,
		now:            now,
		logger:         defaultLogger(logger),
	}
}

func (s *AdminAuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AdminAuthService", operation, attrs...)
}

// Authenticate verifies password and issues a token valid for the configured TTL.
func (s *AdminAuthService) Authenticate(ctx context.Context, password string) (token AdminToken, err error) {
	if s == nil {
		err = fmt.Errorf("AdminAuthService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Authenticate")
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "authentication failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "authentication succeeded", "expires_at", token.ExpiresAt)
	}()

	if password == "" || s.passwordHash == "" || len(s.secret) == 0 {
		err = ErrInvalidCredentials
		return
	}
	if verifyErr := s.verifyPassword(s.passwordHash, password); verifyErr != nil {
		if !errors.Is(verifyErr, ErrInvalidCredentials) {
			logger.ErrorContext(ctx, "stored admin password hash is unusable", "error", verifyErr)
		}
		err = ErrInvalidCredentials
		return
	}

	now := s.now()
	expires := now.Add(s.ttl).Truncate(time.Second)
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   adminSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, signErr := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if signErr != nil {
		err = fmt.Errorf("sign admin token: %w", signErr)
		return
	}
	return AdminToken{Token: signed, ExpiresAt: expires}, nil
}

// ValidateToken checks the signature, issuer, subject and expiry of raw.
func (s *AdminAuthService) ValidateToken(ctx context.Context, raw string) (Principal, error) {
	if s == nil {
		return Principal{}, fmt.Errorf("AdminAuthService is nil")
	}
	raw = strings.TrimSpace(raw)
	if raw == "" || len(s.secret) == 0 {
		return Principal{}, ErrUnauthorized
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithSubject(adminSubject),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		s.loggerWith(ctx, "ValidateToken").DebugContext(ctx, "rejected admin token", "error", err)
		return Principal{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return Principal{Subject: claims.Subject, ExpiresAt: claims.ExpiresAt.Time}, nil
}
