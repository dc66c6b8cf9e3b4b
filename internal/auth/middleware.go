package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/moverap/backend/internal/models"
	pkghttp "github.com/moverap/backend/pkg/http"
)

// Realm is advertised in WWW-Authenticate challenges
const Realm = "MoveRap"

// contextKey is a custom type for context keys
type contextKey string

const (
	// AccountContextKey is the key for the authenticated account summary
	AccountContextKey contextKey = "account"
)

// Authenticator verifies a login identifier and password
type Authenticator interface {
	Authenticate(ctx context.Context, identifier, password string) (*models.AccountSummary, error)
}

// BasicAuth authenticates every request from its Authorization: Basic header.
// Credentials go through the same lockout as the login endpoint.
func BasicAuth(authenticator Authenticator, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identifier, password, ok := r.BasicAuth()
			if !ok || strings.TrimSpace(identifier) == "" || password == "" {
				Challenge(w, "authentication required")
				return
			}

			account, err := authenticator.Authenticate(r.Context(), identifier, password)
			if err != nil {
				WriteAuthError(w, r, err, logger)
				return
			}

			ctx := context.WithValue(r.Context(), AccountContextKey, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Challenge writes a 401 asking the client for Basic credentials
func Challenge(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", `Basic realm="`+Realm+`", charset="UTF-8"`)
	pkghttp.WriteUnauthorized(w, message)
}

// WriteAuthError maps an Authenticate error onto the response
func WriteAuthError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	var rle *models.RateLimitedError
	switch {
	case errors.As(err, &rle):
		pkghttp.WriteAccountLocked(w, rle.MinutesRemaining)
	case errors.Is(err, models.ErrInvalidCredentials):
		Challenge(w, "invalid credentials")
	case errors.Is(err, models.ErrUnavailable):
		logger.Error("authentication unavailable",
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
		pkghttp.WriteServiceUnavailable(w, "authentication is temporarily unavailable")
	default:
		logger.Error("authentication failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		pkghttp.WriteInternalError(w, "internal server error")
	}
}

// GetAccountFromContext returns the account set by BasicAuth, or nil
func GetAccountFromContext(r *http.Request) *models.AccountSummary {
	account, ok := r.Context().Value(AccountContextKey).(*models.AccountSummary)
	if !ok {
		return nil
	}
	return account
}
