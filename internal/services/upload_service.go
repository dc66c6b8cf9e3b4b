package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/moverap/backend/internal/models"
	"github.com/moverap/backend/internal/storage"
)

// MaxUploadSize is the largest accepted image in bytes
const MaxUploadSize = 5 << 20

var allowedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

var imageNamePattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.(jpg|jpeg|png|gif|webp)$`)

// ImageStore persists uploaded images by name
type ImageStore interface {
	Put(ctx context.Context, name, contentType string, r io.Reader, size int64) error
	Get(ctx context.Context, name string) (*storage.Object, error)
	Delete(ctx context.Context, name string) error
}

// UploadRepository records who stored each image
type UploadRepository interface {
	Create(ctx context.Context, upload *models.Upload) error
	GetByFilename(ctx context.Context, filename string) (*models.Upload, error)
	Delete(ctx context.Context, filename string) error
}

// UploadResult is returned after a successful upload
type UploadResult struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// UploadService validates and stores profile images
type UploadService struct {
	store   ImageStore
	uploads UploadRepository
	logger  *slog.Logger
}

func NewUploadService(store ImageStore, uploads UploadRepository, logger *slog.Logger) *UploadService {
	return &UploadService{store: store, uploads: uploads, logger: logger}
}

// ValidImageName reports whether name looks like a file produced by SaveImage
func ValidImageName(name string) bool {
	return imageNamePattern.MatchString(name)
}

// SaveImage checks size, extension and content type, then stores the image
// under a generated name owned by ownerID.
func (s *UploadService) SaveImage(ctx context.Context, ownerID int64, originalName string, size int64, r io.Reader) (*UploadResult, error) {
	if size == 0 {
		return nil, &models.ValidationError{Field: "file", Message: "file is empty"}
	}
	if size > MaxUploadSize {
		return nil, &models.ValidationError{Field: "file", Message: "file exceeds the 5MB limit"}
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedImageExtensions[ext] {
		return nil, &models.ValidationError{Field: "file", Message: "only jpg, jpeg, png, gif and webp images are allowed"}
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, &models.ValidationError{Field: "file", Message: "file is empty"}
	}
	if len(data) > MaxUploadSize {
		return nil, &models.ValidationError{Field: "file", Message: "file exceeds the 5MB limit"}
	}

	detected := mimetype.Detect(data)
	if !allowedImageTypes[detected.String()] {
		return nil, &models.ValidationError{Field: "file", Message: "file content is not a supported image"}
	}

	name := uuid.NewString() + ext
	if err := s.store.Put(ctx, name, detected.String(), bytes.NewReader(data), int64(len(data))); err != nil {
		s.logger.Error("failed to store image", slog.String("filename", name), slog.Any("error", err))
		return nil, err
	}

	err = s.uploads.Create(ctx, &models.Upload{
		Filename:    name,
		UserID:      ownerID,
		ContentType: detected.String(),
		Size:        int64(len(data)),
	})
	if err != nil {
		s.logger.Error("failed to record upload owner", slog.String("filename", name), slog.Any("error", err))
		if delErr := s.store.Delete(ctx, name); delErr != nil {
			s.logger.Warn("failed to remove unrecorded image", slog.String("filename", name), slog.Any("error", delErr))
		}
		return nil, err
	}

	s.logger.Info("image uploaded",
		slog.Int64("user_id", ownerID),
		slog.String("filename", name),
		slog.String("content_type", detected.String()),
		slog.Int("size", len(data)))

	return &UploadResult{URL: uploadsPathPrefix + name, Filename: name}, nil
}

// DeleteImage removes an image stored by ownerID. Names not produced by
// SaveImage are rejected, and images recorded for another account return
// models.ErrForbidden. An image whose file is already gone still has its
// record dropped.
func (s *UploadService) DeleteImage(ctx context.Context, ownerID int64, filename string) error {
	if !ValidImageName(filename) {
		return &models.ValidationError{Field: "filename", Message: "invalid file name"}
	}

	upload, err := s.uploads.GetByFilename(ctx, filename)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to look up upload owner", slog.String("filename", filename), slog.Any("error", err))
		}
		return err
	}
	if upload.UserID != ownerID {
		s.logger.Warn("refused to delete image owned by another account",
			slog.Int64("user_id", ownerID),
			slog.String("filename", filename))
		return models.ErrForbidden
	}

	if err := s.store.Delete(ctx, filename); err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to delete image", slog.String("filename", filename), slog.Any("error", err))
		return err
	}

	if err := s.uploads.Delete(ctx, filename); err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to drop upload record", slog.String("filename", filename), slog.Any("error", err))
		}
		return err
	}

	s.logger.Info("image deleted", slog.Int64("user_id", ownerID), slog.String("filename", filename))
	return nil
}

// OpenImage returns a stored image for serving
func (s *UploadService) OpenImage(ctx context.Context, filename string) (*storage.Object, error) {
	if !ValidImageName(filename) {
		return nil, models.ErrNotFound
	}
	return s.store.Get(ctx, filename)
}
