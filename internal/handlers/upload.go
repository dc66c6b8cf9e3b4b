package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/moverap/backend/internal/auth"
	"github.com/moverap/backend/internal/models"
	"github.com/moverap/backend/internal/services"
	"github.com/moverap/backend/internal/storage"
	pkghttp "github.com/moverap/backend/pkg/http"
)

// multipartOverhead is the allowance for form boundaries and headers on top
// of the file itself.
const multipartOverhead = 1 << 20

// UploadServiceInterface defines the image operations used by the handler
type UploadServiceInterface interface {
	SaveImage(ctx context.Context, ownerID int64, originalName string, size int64, r io.Reader) (*services.UploadResult, error)
	DeleteImage(ctx context.Context, ownerID int64, filename string) error
	OpenImage(ctx context.Context, filename string) (*storage.Object, error)
}

// UploadHandler handles image upload, deletion and serving
type UploadHandler struct {
	service UploadServiceInterface
	logger  *slog.Logger
}

// NewUploadHandler creates a new UploadHandler
func NewUploadHandler(service UploadServiceInterface, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{
		service: service,
		logger:  logger,
	}
}

// UploadImage stores the multipart "file" field
// @Summary Upload an image
// @Accept multipart/form-data
// @Produce json
// @Success 200 {object} services.UploadResult
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Router /api/upload/image [post]
func (h *UploadHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	account := auth.GetAccountFromContext(r)
	if account == nil {
		auth.Challenge(w, "Authentication required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, services.MaxUploadSize+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			pkghttp.WriteBadRequest(w, "file exceeds the 5MB limit")
			return
		}
		pkghttp.WriteBadRequest(w, "A file field is required")
		return
	}
	defer file.Close()

	result, err := h.service.SaveImage(r.Context(), account.ID, header.Filename, header.Size, file)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, result)
}

// DeleteImage removes an image the caller uploaded
// @Summary Delete an uploaded image
// @Produce json
// @Success 200 {object} MessageResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 403 {object} pkghttp.ErrorResponse
// @Failure 404 {object} pkghttp.ErrorResponse
// @Router /api/upload/image/{filename} [delete]
func (h *UploadHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	account := auth.GetAccountFromContext(r)
	if account == nil {
		auth.Challenge(w, "Authentication required")
		return
	}

	if err := h.service.DeleteImage(r.Context(), account.ID, chi.URLParam(r, "filename")); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "File not found")
			return
		}
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{Message: "File deleted"})
}

// ServeImage streams a stored image to the client
func (h *UploadHandler) ServeImage(w http.ResponseWriter, r *http.Request) {
	obj, err := h.service.OpenImage(r.Context(), chi.URLParam(r, "filename"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "File not found")
			return
		}
		writeServiceError(w, r, h.logger, err)
		return
	}
	defer obj.Body.Close()

	header := w.Header()
	header.Set("Content-Type", obj.ContentType)
	header.Set("Cache-Control", "public, max-age=86400")
	if obj.Size > 0 {
		header.Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	if !obj.ModTime.IsZero() {
		header.Set("Last-Modified", obj.ModTime.UTC().Format(http.TimeFormat))
	}
	w.WriteHeader(http.StatusOK)

	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, obj.Body); err != nil {
		h.logger.Warn("failed to stream image", slog.Any("error", err))
	}
}
