package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/moverap/backend/internal/auth"
	"github.com/moverap/backend/internal/models"
	pkghttp "github.com/moverap/backend/pkg/http"
)

// UserPageServiceInterface defines the user page operations used by the handler
type UserPageServiceInterface interface {
	GetByUserID(ctx context.Context, userID int64) (*models.UserPage, error)
	GetPublic(ctx context.Context, username string) (*models.PublicUserPage, error)
	Create(ctx context.Context, userID int64, input models.UserPageInput) (*models.UserPage, error)
	Update(ctx context.Context, userID int64, input models.UserPageInput) (*models.UserPage, error)
	UpdateImages(ctx context.Context, userID int64, profile, background *string) (*models.UserPage, error)
	Delete(ctx context.Context, userID int64) error
	DeleteImages(ctx context.Context, userID int64, profile, background bool) (*models.UserPage, error)
}

// UserPageHandler handles user page HTTP requests
type UserPageHandler struct {
	service UserPageServiceInterface
	logger  *slog.Logger
}

// NewUserPageHandler creates a new UserPageHandler
func NewUserPageHandler(service UserPageServiceInterface, logger *slog.Logger) *UserPageHandler {
	return &UserPageHandler{
		service: service,
		logger:  logger,
	}
}

// UserPageRequest is the editable part of a page. MusicURLs is the older
// comma-separated form and is only read when MusicURLsList is empty.
type UserPageRequest struct {
	Biography          string   `json:"biography" validate:"max=20000"`
	ProfileImageURL    string   `json:"profileImageUrl" validate:"max=2048"`
	BackgroundImageURL string   `json:"backgroundImageUrl" validate:"max=2048"`
	MusicURLs          string   `json:"musicUrls"`
	MusicURLsList      []string `json:"musicUrlsList" validate:"max=20"`
}

// UpdateImageRequest carries the image URLs to change; omitted fields are kept
type UpdateImageRequest struct {
	ProfileImageURL    *string `json:"profileImageUrl"`
	BackgroundImageURL *string `json:"backgroundImageUrl"`
}

// UserPageResponse is the JSON shape the front end reads
type UserPageResponse struct {
	ID                 int64     `json:"id"`
	UserID             int64     `json:"userId"`
	Username           string    `json:"username,omitempty"`
	Biography          string    `json:"biography"`
	ProfileImageURL    string    `json:"profileImageUrl"`
	BackgroundImageURL string    `json:"backgroundImageUrl"`
	MusicURLs          string    `json:"musicUrls"`
	MusicURLsList      []string  `json:"musicUrlsList"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// MessageResponse is a plain confirmation body
type MessageResponse struct {
	Message string `json:"message"`
}

func userPageToResponse(page *models.UserPage) *UserPageResponse {
	music := page.MusicURLs
	if music == nil {
		music = []string{}
	}
	return &UserPageResponse{
		ID:                 page.ID,
		UserID:             page.UserID,
		Biography:          page.Biography,
		ProfileImageURL:    page.ProfileImageURL,
		BackgroundImageURL: page.BackgroundImageURL,
		MusicURLs:          strings.Join(music, ","),
		MusicURLsList:      music,
		CreatedAt:          page.CreatedAt,
		UpdatedAt:          page.UpdatedAt,
	}
}

func (req *UserPageRequest) toInput() models.UserPageInput {
	music := req.MusicURLsList
	if len(music) == 0 && strings.TrimSpace(req.MusicURLs) != "" {
		music = strings.Split(req.MusicURLs, ",")
	}
	return models.UserPageInput{
		Biography:          req.Biography,
		ProfileImageURL:    req.ProfileImageURL,
		BackgroundImageURL: req.BackgroundImageURL,
		MusicURLs:          music,
	}
}

// owner returns the authenticated account id. A userId query parameter is
// accepted for older clients but must name the caller.
func (h *UserPageHandler) owner(w http.ResponseWriter, r *http.Request) (int64, bool) {
	account := auth.GetAccountFromContext(r)
	if account == nil {
		auth.Challenge(w, "Authentication required")
		return 0, false
	}

	if raw := r.URL.Query().Get("userId"); raw != "" {
		requested, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			pkghttp.WriteBadRequest(w, "Invalid userId")
			return 0, false
		}
		if requested != account.ID {
			pkghttp.WriteForbidden(w, "Access denied")
			return 0, false
		}
	}

	return account.ID, true
}

// Mine returns the caller's page
func (h *UserPageHandler) Mine(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.owner(w, r)
	if !ok {
		return
	}

	page, err := h.service.GetByUserID(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, userPageToResponse(page))
}

// Public returns the page of the account named in the path
func (h *UserPageHandler) Public(w http.ResponseWriter, r *http.Request) {
	public, err := h.service.GetPublic(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	resp := userPageToResponse(public.Page)
	resp.Username = public.Username
	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// Create adds the caller's page
func (h *UserPageHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.owner(w, r)
	if !ok {
		return
	}

	var req UserPageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	page, err := h.service.Create(r.Context(), userID, req.toInput())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, userPageToResponse(page))
}

// Update replaces the caller's page, creating it when missing
func (h *UserPageHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.owner(w, r)
	if !ok {
		return
	}

	var req UserPageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	page, err := h.service.Update(r.Context(), userID, req.toInput())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, userPageToResponse(page))
}

// UpdateImage changes one or both image URLs. Values come from the JSON body
// or, when there is none, from the profileImageUrl and backgroundImageUrl
// query parameters.
func (h *UserPageHandler) UpdateImage(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.owner(w, r)
	if !ok {
		return
	}

	var req UpdateImageRequest
	if r.ContentLength != 0 && strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			pkghttp.WriteBadRequest(w, "Invalid request body")
			return
		}
	} else {
		query := r.URL.Query()
		if query.Has("profileImageUrl") {
			v := query.Get("profileImageUrl")
			req.ProfileImageURL = &v
		}
		if query.Has("backgroundImageUrl") {
			v := query.Get("backgroundImageUrl")
			req.BackgroundImageURL = &v
		}
	}

	page, err := h.service.UpdateImages(r.Context(), userID, req.ProfileImageURL, req.BackgroundImageURL)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, userPageToResponse(page))
}

// Delete removes the caller's page
func (h *UserPageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.owner(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{Message: "User page deleted"})
}

// DeleteImage clears the images selected by the deleteProfileImage and
// deleteBackgroundImage query flags.
func (h *UserPageHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.owner(w, r)
	if !ok {
		return
	}

	profile, err := queryBool(r, "deleteProfileImage")
	if err != nil {
		pkghttp.WriteBadRequest(w, "Invalid deleteProfileImage")
		return
	}
	background, err := queryBool(r, "deleteBackgroundImage")
	if err != nil {
		pkghttp.WriteBadRequest(w, "Invalid deleteBackgroundImage")
		return
	}

	page, err := h.service.DeleteImages(r.Context(), userID, profile, background)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, userPageToResponse(page))
}

func queryBool(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}
