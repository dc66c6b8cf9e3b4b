package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/moverap/backend/internal/auth"
	"github.com/moverap/backend/internal/models"
	"github.com/moverap/backend/internal/services"
	pkghttp "github.com/moverap/backend/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Authenticate(ctx context.Context, identifier, password string) (*models.AccountSummary, error)
	Register(ctx context.Context, input services.RegisterInput) (*models.AccountSummary, error)
	GetAccount(ctx context.Context, id int64) (*models.AccountSummary, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service AuthServiceInterface
	logger  *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger,
	}
}

// Request DTOs

// LoginRequest represents the request body for login. Email carries the
// login identifier, which may be an email address or a username.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,max=255"`
	Password string `json:"password" validate:"required,max=1024"`
}

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required"`
}

// Register handles account registration
// @Summary Register a new account
// @Accept json
// @Param request body RegisterRequest true "Registration request"
// @Produce json
// @Success 201 {object} models.AccountSummary
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 409 {object} pkghttp.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	account, err := h.service.Register(r.Context(), services.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, account)
}

// Login checks credentials through the login guard
// @Summary Log in
// @Accept json
// @Param request body LoginRequest true "Login request"
// @Produce json
// @Success 200 {object} models.AccountSummary
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 429 {object} pkghttp.ErrorResponse
// @Failure 503 {object} pkghttp.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	// The identifier is passed through untouched; lockout keys are raw
	if strings.TrimSpace(req.Email) == "" {
		pkghttp.WriteBadRequest(w, "Email and password are required")
		return
	}

	account, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeLoginError(w, r, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, account)
}

// writeLoginError differs from auth.WriteAuthError only in not sending a
// WWW-Authenticate challenge, which would make browsers prompt.
func (h *AuthHandler) writeLoginError(w http.ResponseWriter, r *http.Request, err error) {
	var rle *models.RateLimitedError
	switch {
	case errors.As(err, &rle):
		pkghttp.WriteAccountLocked(w, rle.MinutesRemaining)
	case errors.Is(err, models.ErrInvalidCredentials):
		pkghttp.WriteUnauthorized(w, "Invalid credentials")
	case errors.Is(err, models.ErrUnavailable):
		h.logger.Error("login unavailable", slog.Any("error", err))
		pkghttp.WriteServiceUnavailable(w, "Authentication is temporarily unavailable")
	default:
		writeServiceError(w, r, h.logger, err)
	}
}

// Me returns the account authenticated by the Basic middleware
// @Summary Current account
// @Produce json
// @Success 200 {object} models.AccountSummary
// @Failure 401 {object} pkghttp.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	current := auth.GetAccountFromContext(r)
	if current == nil {
		auth.Challenge(w, "Authentication required")
		return
	}

	account, err := h.service.GetAccount(r.Context(), current.ID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, account)
}
