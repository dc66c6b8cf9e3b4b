package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/moverap/backend/internal/auth"
	"github.com/moverap/backend/internal/models"
	"github.com/moverap/backend/internal/services"
	"github.com/moverap/backend/internal/storage"
	pkghttp "github.com/moverap/backend/pkg/http"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAccount adds an authenticated account to the request context
func WithAccount(req *http.Request, id int64, username string) *http.Request {
	account := &models.AccountSummary{
		ID:       id,
		Username: username,
		Email:    username + "@example.com",
	}
	ctx := context.WithValue(req.Context(), auth.AccountContextKey, account)
	return req.WithContext(ctx)
}

// DiscardLogger returns a logger that drops everything
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	AuthenticateFunc func(ctx context.Context, identifier, password string) (*models.AccountSummary, error)
	RegisterFunc     func(ctx context.Context, input services.RegisterInput) (*models.AccountSummary, error)
	GetAccountFunc   func(ctx context.Context, id int64) (*models.AccountSummary, error)
}

func (m *MockAuthService) Authenticate(ctx context.Context, identifier, password string) (*models.AccountSummary, error) {
	if m.AuthenticateFunc == nil {
		return nil, models.ErrInvalidCredentials
	}
	return m.AuthenticateFunc(ctx, identifier, password)
}

func (m *MockAuthService) Register(ctx context.Context, input services.RegisterInput) (*models.AccountSummary, error) {
	if m.RegisterFunc == nil {
		return nil, models.ErrConflict
	}
	return m.RegisterFunc(ctx, input)
}

func (m *MockAuthService) GetAccount(ctx context.Context, id int64) (*models.AccountSummary, error) {
	if m.GetAccountFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetAccountFunc(ctx, id)
}

// MockUserPageService implements UserPageServiceInterface for testing
type MockUserPageService struct {
	GetByUserIDFunc  func(ctx context.Context, userID int64) (*models.UserPage, error)
	GetPublicFunc    func(ctx context.Context, username string) (*models.PublicUserPage, error)
	CreateFunc       func(ctx context.Context, userID int64, input models.UserPageInput) (*models.UserPage, error)
	UpdateFunc       func(ctx context.Context, userID int64, input models.UserPageInput) (*models.UserPage, error)
	UpdateImagesFunc func(ctx context.Context, userID int64, profile, background *string) (*models.UserPage, error)
	DeleteFunc       func(ctx context.Context, userID int64) error
	DeleteImagesFunc func(ctx context.Context, userID int64, profile, background bool) (*models.UserPage, error)
}

func (m *MockUserPageService) GetByUserID(ctx context.Context, userID int64) (*models.UserPage, error) {
	if m.GetByUserIDFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetByUserIDFunc(ctx, userID)
}

func (m *MockUserPageService) GetPublic(ctx context.Context, username string) (*models.PublicUserPage, error) {
	if m.GetPublicFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetPublicFunc(ctx, username)
}

func (m *MockUserPageService) Create(ctx context.Context, userID int64, input models.UserPageInput) (*models.UserPage, error) {
	if m.CreateFunc == nil {
		return nil, models.ErrPageExists
	}
	return m.CreateFunc(ctx, userID, input)
}

func (m *MockUserPageService) Update(ctx context.Context, userID int64, input models.UserPageInput) (*models.UserPage, error) {
	if m.UpdateFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UpdateFunc(ctx, userID, input)
}

func (m *MockUserPageService) UpdateImages(ctx context.Context, userID int64, profile, background *string) (*models.UserPage, error) {
	if m.UpdateImagesFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UpdateImagesFunc(ctx, userID, profile, background)
}

func (m *MockUserPageService) Delete(ctx context.Context, userID int64) error {
	if m.DeleteFunc == nil {
		return models.ErrNotFound
	}
	return m.DeleteFunc(ctx, userID)
}

func (m *MockUserPageService) DeleteImages(ctx context.Context, userID int64, profile, background bool) (*models.UserPage, error) {
	if m.DeleteImagesFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.DeleteImagesFunc(ctx, userID, profile, background)
}

// MockUploadService implements UploadServiceInterface for testing
type MockUploadService struct {
	SaveImageFunc   func(ctx context.Context, ownerID int64, originalName string, size int64, r io.Reader) (*services.UploadResult, error)
	DeleteImageFunc func(ctx context.Context, ownerID int64, filename string) error
	OpenImageFunc   func(ctx context.Context, filename string) (*storage.Object, error)
}

func (m *MockUploadService) SaveImage(ctx context.Context, ownerID int64, originalName string, size int64, r io.Reader) (*services.UploadResult, error) {
	if m.SaveImageFunc == nil {
		return nil, &models.ValidationError{Field: "file", Message: "file is empty"}
	}
	return m.SaveImageFunc(ctx, ownerID, originalName, size, r)
}

func (m *MockUploadService) DeleteImage(ctx context.Context, ownerID int64, filename string) error {
	if m.DeleteImageFunc == nil {
		return models.ErrNotFound
	}
	return m.DeleteImageFunc(ctx, ownerID, filename)
}

func (m *MockUploadService) OpenImage(ctx context.Context, filename string) (*storage.Object, error) {
	if m.OpenImageFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.OpenImageFunc(ctx, filename)
}

// MockHealthChecker implements HealthChecker for testing
type MockHealthChecker struct {
	Err error
}

func (m *MockHealthChecker) HealthCheck(context.Context) error {
	return m.Err
}
