package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/moverap/backend/internal/models"
)

const (
	MaxBiographyLength = 1000
	MaxMusicURLs       = 20
	MaxURLLength       = 2048
	uploadsPathPrefix  = "/uploads/"
)

// UserPageRepository persists user pages
type UserPageRepository interface {
	GetByUserID(ctx context.Context, userID int64) (*models.UserPage, error)
	GetByUsername(ctx context.Context, username string) (*models.PublicUserPage, error)
	Create(ctx context.Context, page *models.UserPage) (*models.UserPage, error)
	Upsert(ctx context.Context, page *models.UserPage) (*models.UserPage, error)
	UpdateImages(ctx context.Context, userID int64, profile, background *string) (previous, updated *models.UserPage, err error)
	Delete(ctx context.Context, userID int64) error
}

// ImageRemover deletes a stored upload by file name on behalf of its owner
type ImageRemover interface {
	DeleteImage(ctx context.Context, ownerID int64, filename string) error
}

// UserPageService manages the profile page of each account
type UserPageService struct {
	repo      UserPageRepository
	images    ImageRemover
	sanitizer *bluemonday.Policy
	logger    *slog.Logger
}

// NewUserPageService creates a new UserPageService. images may be nil, in
// which case DeleteImages leaves stored files in place.
func NewUserPageService(repo UserPageRepository, images ImageRemover, logger *slog.Logger) *UserPageService {
	return &UserPageService{
		repo:      repo,
		images:    images,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger,
	}
}

func (s *UserPageService) GetByUserID(ctx context.Context, userID int64) (*models.UserPage, error) {
	return s.repo.GetByUserID(ctx, userID)
}

// GetPublic returns the page of the account with the given username
func (s *UserPageService) GetPublic(ctx context.Context, username string) (*models.PublicUserPage, error) {
	if strings.TrimSpace(username) == "" {
		return nil, models.ErrNotFound
	}
	return s.repo.GetByUsername(ctx, username)
}

// Create adds a page for userID; a second page is models.ErrPageExists
func (s *UserPageService) Create(ctx context.Context, userID int64, input models.UserPageInput) (*models.UserPage, error) {
	page, err := s.buildPage(userID, input)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, page)
	if err != nil {
		if !errors.Is(err, models.ErrConflict) {
			s.logger.Error("failed to create user page", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		return nil, err
	}

	s.logger.Info("user page created", slog.Int64("user_id", userID))
	return created, nil
}

// Update replaces the page for userID, creating it if missing
func (s *UserPageService) Update(ctx context.Context, userID int64, input models.UserPageInput) (*models.UserPage, error) {
	page, err := s.buildPage(userID, input)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.Upsert(ctx, page)
	if err != nil {
		s.logger.Error("failed to update user page", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, err
	}

	return updated, nil
}

// UpdateImages changes the image URLs that are non-nil
func (s *UserPageService) UpdateImages(ctx context.Context, userID int64, profile, background *string) (*models.UserPage, error) {
	if profile == nil && background == nil {
		return nil, &models.ValidationError{Message: "at least one of profileImageUrl or backgroundImageUrl is required"}
	}

	if profile != nil {
		v := strings.TrimSpace(*profile)
		if err := validateImageURL("profileImageUrl", v); err != nil {
			return nil, err
		}
		profile = &v
	}
	if background != nil {
		v := strings.TrimSpace(*background)
		if err := validateImageURL("backgroundImageUrl", v); err != nil {
			return nil, err
		}
		background = &v
	}

	_, updated, err := s.repo.UpdateImages(ctx, userID, profile, background)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the page for userID
func (s *UserPageService) Delete(ctx context.Context, userID int64) error {
	if err := s.repo.Delete(ctx, userID); err != nil {
		return err
	}
	s.logger.Info("user page deleted", slog.Int64("user_id", userID))
	return nil
}

// DeleteImages clears the selected image URLs and removes their files when
// they point at uploads.
func (s *UserPageService) DeleteImages(ctx context.Context, userID int64, profile, background bool) (*models.UserPage, error) {
	if !profile && !background {
		return nil, &models.ValidationError{Message: "select profile, background, or both"}
	}

	empty := ""
	var profileArg, backgroundArg *string
	if profile {
		profileArg = &empty
	}
	if background {
		backgroundArg = &empty
	}

	previous, updated, err := s.repo.UpdateImages(ctx, userID, profileArg, backgroundArg)
	if err != nil {
		return nil, err
	}

	if profile {
		s.removeUpload(ctx, userID, previous.ProfileImageURL)
	}
	if background {
		s.removeUpload(ctx, userID, previous.BackgroundImageURL)
	}

	return updated, nil
}

// removeUpload deletes the file behind imageURL when userID stored it.
// Pages may reference another account's upload; that file is left alone.
func (s *UserPageService) removeUpload(ctx context.Context, userID int64, imageURL string) {
	name, ok := UploadNameFromURL(imageURL)
	if !ok || s.images == nil {
		return
	}
	err := s.images.DeleteImage(ctx, userID, name)
	if err == nil || errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrForbidden) {
		return
	}
	s.logger.Warn("failed to remove uploaded image",
		slog.String("filename", name),
		slog.Any("error", err))
}

func (s *UserPageService) buildPage(userID int64, input models.UserPageInput) (*models.UserPage, error) {
	bio := strings.TrimSpace(s.sanitizer.Sanitize(input.Biography))
	if utf8.RuneCountInString(bio) > MaxBiographyLength {
		return nil, &models.ValidationError{
			Field:   "biography",
			Message: fmt.Sprintf("must be at most %d characters", MaxBiographyLength),
		}
	}

	profile := strings.TrimSpace(input.ProfileImageURL)
	if err := validateImageURL("profileImageUrl", profile); err != nil {
		return nil, err
	}
	background := strings.TrimSpace(input.BackgroundImageURL)
	if err := validateImageURL("backgroundImageUrl", background); err != nil {
		return nil, err
	}

	music := make([]string, 0, len(input.MusicURLs))
	for _, raw := range input.MusicURLs {
		u := strings.TrimSpace(raw)
		if u == "" {
			continue
		}
		if !isHTTPURL(u) {
			return nil, &models.ValidationError{Field: "musicUrls", Message: "must be http or https URLs"}
		}
		music = append(music, u)
	}
	if len(music) > MaxMusicURLs {
		return nil, &models.ValidationError{
			Field:   "musicUrls",
			Message: fmt.Sprintf("at most %d entries allowed", MaxMusicURLs),
		}
	}

	return &models.UserPage{
		UserID:             userID,
		Biography:          bio,
		ProfileImageURL:    profile,
		BackgroundImageURL: background,
		MusicURLs:          music,
	}, nil
}

// validateImageURL accepts an empty value, an uploads path, or an absolute http(s) URL
func validateImageURL(field, value string) error {
	if value == "" {
		return nil
	}
	if name, ok := UploadNameFromURL(value); ok {
		if ValidImageName(name) {
			return nil
		}
	} else if isHTTPURL(value) {
		return nil
	}
	return &models.ValidationError{Field: field, Message: "must be an uploaded image or an http(s) URL"}
}

func isHTTPURL(raw string) bool {
	if len(raw) > MaxURLLength {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// UploadNameFromURL extracts the file name from an /uploads/<name> URL
func UploadNameFromURL(imageURL string) (string, bool) {
	if !strings.HasPrefix(imageURL, uploadsPathPrefix) {
		return "", false
	}
	name := strings.TrimPrefix(imageURL, uploadsPathPrefix)
	if name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return name, true
}
