package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/moverap/backend/internal/lockout"
	"github.com/moverap/backend/internal/models"
	"github.com/moverap/backend/internal/storage"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc       func(ctx context.Context, id int64) (*models.Account, error)
	GetByEmailFunc    func(ctx context.Context, email string) (*models.Account, error)
	GetByUsernameFunc func(ctx context.Context, username string) (*models.Account, error)
	CreateFunc        func(ctx context.Context, account *models.Account) (*models.Account, error)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	if m.GetByUsernameFunc != nil {
		return m.GetByUsernameFunc(ctx, username)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	return nil, models.ErrInternalServer
}

// NewAccountRepository returns a MockUserRepository holding the given accounts
func NewAccountRepository(accounts ...*models.Account) *MockUserRepository {
	return &MockUserRepository{
		GetByIDFunc: func(_ context.Context, id int64) (*models.Account, error) {
			for _, a := range accounts {
				if a.ID == id {
					return a, nil
				}
			}
			return nil, models.ErrNotFound
		},
		GetByEmailFunc: func(_ context.Context, email string) (*models.Account, error) {
			for _, a := range accounts {
				if a.Email == email {
					return a, nil
				}
			}
			return nil, models.ErrNotFound
		},
		GetByUsernameFunc: func(_ context.Context, username string) (*models.Account, error) {
			for _, a := range accounts {
				if a.Username == username {
					return a, nil
				}
			}
			return nil, models.ErrNotFound
		},
	}
}

// FakeHasher stores passwords as "hashed:<password>" and counts Verify calls
type FakeHasher struct {
	Verifies  atomic.Int32
	VerifyErr error
}

func (h *FakeHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	return "hashed:" + password, nil
}

func (h *FakeHasher) Verify(password, hash string) (bool, error) {
	h.Verifies.Add(1)
	if h.VerifyErr != nil {
		return false, h.VerifyErr
	}
	if !strings.HasPrefix(hash, "hashed:") {
		return false, errors.New("malformed hash")
	}
	return hash == "hashed:"+password, nil
}

// NewTestAccount builds an account whose password is accepted by FakeHasher
func NewTestAccount(id int64, username, email, password string) *models.Account {
	return &models.Account{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: "hashed:" + password,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
}

// MockAttemptStore implements lockout.Store with overridable behavior
type MockAttemptStore struct {
	StatusFunc        func(ctx context.Context, key string, now time.Time) (lockout.Record, error)
	RecordFailureFunc func(ctx context.Context, key string, now time.Time) (lockout.Record, bool, error)
	ResetFunc         func(ctx context.Context, key string) error
	PolicyFunc        func() lockout.Policy
}

func (m *MockAttemptStore) Status(ctx context.Context, key string, now time.Time) (lockout.Record, error) {
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx, key, now)
	}
	return lockout.Record{}, nil
}

func (m *MockAttemptStore) RecordFailure(ctx context.Context, key string, now time.Time) (lockout.Record, bool, error) {
	if m.RecordFailureFunc != nil {
		return m.RecordFailureFunc(ctx, key, now)
	}
	return lockout.Record{FailureCount: 1}, false, nil
}

func (m *MockAttemptStore) Reset(ctx context.Context, key string) error {
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, key)
	}
	return nil
}

func (m *MockAttemptStore) Policy() lockout.Policy {
	if m.PolicyFunc != nil {
		return m.PolicyFunc()
	}
	return lockout.DefaultPolicy()
}

// RecordingObserver collects AccountLocked notifications
type RecordingObserver struct {
	mu       sync.Mutex
	Attempts []int
}

func (o *RecordingObserver) AccountLocked(_ context.Context, attempts int) {
	o.mu.Lock()
	o.Attempts = append(o.Attempts, attempts)
	o.mu.Unlock()
}

func (o *RecordingObserver) Calls() []int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]int(nil), o.Attempts...)
}

// MockUserPageRepository implements UserPageRepository for testing
type MockUserPageRepository struct {
	GetByUserIDFunc   func(ctx context.Context, userID int64) (*models.UserPage, error)
	GetByUsernameFunc func(ctx context.Context, username string) (*models.PublicUserPage, error)
	CreateFunc        func(ctx context.Context, page *models.UserPage) (*models.UserPage, error)
	UpsertFunc        func(ctx context.Context, page *models.UserPage) (*models.UserPage, error)
	UpdateImagesFunc  func(ctx context.Context, userID int64, profile, background *string) (*models.UserPage, *models.UserPage, error)
	DeleteFunc        func(ctx context.Context, userID int64) error
}

func (m *MockUserPageRepository) GetByUserID(ctx context.Context, userID int64) (*models.UserPage, error) {
	if m.GetByUserIDFunc != nil {
		return m.GetByUserIDFunc(ctx, userID)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserPageRepository) GetByUsername(ctx context.Context, username string) (*models.PublicUserPage, error) {
	if m.GetByUsernameFunc != nil {
		return m.GetByUsernameFunc(ctx, username)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserPageRepository) Create(ctx context.Context, page *models.UserPage) (*models.UserPage, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, page)
	}
	return page, nil
}

func (m *MockUserPageRepository) Upsert(ctx context.Context, page *models.UserPage) (*models.UserPage, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, page)
	}
	return page, nil
}

func (m *MockUserPageRepository) UpdateImages(ctx context.Context, userID int64, profile, background *string) (*models.UserPage, *models.UserPage, error) {
	if m.UpdateImagesFunc != nil {
		return m.UpdateImagesFunc(ctx, userID, profile, background)
	}
	return nil, nil, models.ErrNotFound
}

func (m *MockUserPageRepository) Delete(ctx context.Context, userID int64) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, userID)
	}
	return nil
}

// MockImageStore implements ImageStore in memory
type MockImageStore struct {
	mu      sync.Mutex
	Objects map[string][]byte
	PutErr  error
}

func NewMockImageStore() *MockImageStore {
	return &MockImageStore{Objects: map[string][]byte{}}
}

func (m *MockImageStore) Put(_ context.Context, name, _ string, r io.Reader, _ int64) error {
	if m.PutErr != nil {
		return m.PutErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.Objects[name] = data
	m.mu.Unlock()
	return nil
}

func (m *MockImageStore) Get(_ context.Context, name string) (*storage.Object, error) {
	m.mu.Lock()
	data, ok := m.Objects[name]
	m.mu.Unlock()
	if !ok {
		return nil, models.ErrNotFound
	}
	return &storage.Object{
		Body: io.NopCloser(bytes.NewReader(data)),
		Size: int64(len(data)),
	}, nil
}

func (m *MockImageStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Objects[name]; !ok {
		return models.ErrNotFound
	}
	delete(m.Objects, name)
	return nil
}

func (m *MockImageStore) Has(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Objects[name]
	return ok
}

// MockUploadRepository implements UploadRepository in memory
type MockUploadRepository struct {
	mu        sync.Mutex
	Uploads   map[string]*models.Upload
	CreateErr error
	GetErr    error
}

func NewMockUploadRepository() *MockUploadRepository {
	return &MockUploadRepository{Uploads: map[string]*models.Upload{}}
}

func (m *MockUploadRepository) Create(_ context.Context, upload *models.Upload) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Uploads[upload.Filename]; ok {
		return models.ErrConflict
	}
	stored := *upload
	m.Uploads[upload.Filename] = &stored
	return nil
}

func (m *MockUploadRepository) GetByFilename(_ context.Context, filename string) (*models.Upload, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	upload, ok := m.Uploads[filename]
	if !ok {
		return nil, models.ErrNotFound
	}
	found := *upload
	return &found, nil
}

func (m *MockUploadRepository) Delete(_ context.Context, filename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Uploads[filename]; !ok {
		return models.ErrNotFound
	}
	delete(m.Uploads, filename)
	return nil
}

// Owned seeds an upload record for ownerID
func (m *MockUploadRepository) Owned(filename string, ownerID int64) {
	m.mu.Lock()
	m.Uploads[filename] = &models.Upload{Filename: filename, UserID: ownerID}
	m.mu.Unlock()
}
