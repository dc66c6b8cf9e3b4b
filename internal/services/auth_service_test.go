package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/moverap/backend/internal/lockout"
	"github.com/moverap/backend/internal/models"
	pkglogger "github.com/moverap/backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Fixtures
// ============================================================================

type guardFixture struct {
	service  *AuthService
	hasher   *FakeHasher
	store    *lockout.MemoryStore
	observer *RecordingObserver
	now      time.Time
}

func (f *guardFixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func newGuardFixture(t *testing.T, accounts ...*models.Account) *guardFixture {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	f := &guardFixture{
		hasher:   &FakeHasher{},
		store:    lockout.NewMemoryStore(lockout.DefaultPolicy(), 4),
		observer: &RecordingObserver{},
		now:      time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC),
	}

	f.service = NewAuthService(NewAccountRepository(accounts...), f.hasher, f.store, logger, pkglogger.NewAuditLogger(logger))
	f.service.AddLockoutObserver(f.observer)
	f.service.SetClock(func() time.Time { return f.now })

	return f
}

func alice() *models.Account {
	return NewTestAccount(1, "alice", "alice@example.com", "correct-horse")
}

func bob() *models.Account {
	return NewTestAccount(2, "bob", "bob@example.com", "hunter22")
}

// ============================================================================
// Authenticate
// ============================================================================

func TestAuthService_Authenticate_ByEmail(t *testing.T) {
	f := newGuardFixture(t, alice())

	summary, err := f.service.Authenticate(context.Background(), "alice@example.com", "correct-horse")

	require.NoError(t, err)
	assert.Equal(t, &models.AccountSummary{ID: 1, Username: "alice", Email: "alice@example.com"}, summary)
}

func TestAuthService_Authenticate_ByUsername(t *testing.T) {
	f := newGuardFixture(t, alice())

	summary, err := f.service.Authenticate(context.Background(), "alice", "correct-horse")

	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.ID)
}

func TestAuthService_Authenticate_EmailTakesPrecedence(t *testing.T) {
	// "carol" is both one account's username and another's email
	byEmail := NewTestAccount(10, "someone", "carol", "pw-email")
	byUsername := NewTestAccount(11, "carol", "carol@example.com", "pw-username")
	f := newGuardFixture(t, byEmail, byUsername)

	summary, err := f.service.Authenticate(context.Background(), "carol", "pw-email")
	require.NoError(t, err)
	assert.Equal(t, int64(10), summary.ID)

	_, err = f.service.Authenticate(context.Background(), "carol", "pw-username")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestAuthService_Authenticate_UnknownAndWrongPasswordLookTheSame(t *testing.T) {
	f := newGuardFixture(t, alice())
	ctx := context.Background()

	_, errUnknown := f.service.Authenticate(ctx, "nobody@example.com", "whatever")
	_, errWrong := f.service.Authenticate(ctx, "alice@example.com", "wrong")

	assert.ErrorIs(t, errUnknown, models.ErrInvalidCredentials)
	assert.ErrorIs(t, errWrong, models.ErrInvalidCredentials)
	assert.Equal(t, errUnknown, errWrong)
	assert.Equal(t, int32(2), f.hasher.Verifies.Load(), "both paths must run the hasher")

	rec, err := f.store.Status(ctx, "nobody@example.com", f.now)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.FailureCount)
}

func TestAuthService_Authenticate_FifthFailureLocksEvenCorrectPassword(t *testing.T) {
	f := newGuardFixture(t, bob())
	ctx := context.Background()

	for i := 0; i < lockout.MaxAttempts; i++ {
		_, err := f.service.Authenticate(ctx, "bob", "wrong")
		assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	}

	verifiesBefore := f.hasher.Verifies.Load()

	_, err := f.service.Authenticate(ctx, "bob", "hunter22")
	var rle *models.RateLimitedError
	require.ErrorAs(t, err, &rle)
	assert.ErrorIs(t, err, models.ErrRateLimited)
	assert.Equal(t, 15, rle.MinutesRemaining)
	assert.Equal(t, verifiesBefore, f.hasher.Verifies.Load(), "locked calls must not reach the hasher")

	assert.Equal(t, []int{lockout.MaxAttempts}, f.observer.Calls())
}

func TestAuthService_Authenticate_SuccessResetsCount(t *testing.T) {
	f := newGuardFixture(t, alice())
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := f.service.Authenticate(ctx, "alice", "wrong")
		require.ErrorIs(t, err, models.ErrInvalidCredentials)
	}

	_, err := f.service.Authenticate(ctx, "alice", "correct-horse")
	require.NoError(t, err)

	_, err = f.service.Authenticate(ctx, "alice", "wrong")
	require.ErrorIs(t, err, models.ErrInvalidCredentials)

	rec, err := f.store.Status(ctx, "alice", f.now)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.FailureCount)
	assert.False(t, rec.Locked())
}

func TestAuthService_Authenticate_MinutesRemainingCountsDown(t *testing.T) {
	f := newGuardFixture(t, bob())
	ctx := context.Background()

	for i := 0; i < lockout.MaxAttempts; i++ {
		_, _ = f.service.Authenticate(ctx, "bob", "wrong")
	}

	steps := []struct {
		advance time.Duration
		want    int
	}{
		{0, 15},
		{30 * time.Second, 15},
		{4*time.Minute + 30*time.Second, 10},
		{9*time.Minute + 59*time.Second, 1},
	}

	previous := 16
	for _, step := range steps {
		f.advance(step.advance)
		_, err := f.service.Authenticate(ctx, "bob", "hunter22")
		var rle *models.RateLimitedError
		require.ErrorAs(t, err, &rle)
		assert.Equal(t, step.want, rle.MinutesRemaining)
		assert.LessOrEqual(t, rle.MinutesRemaining, previous)
		previous = rle.MinutesRemaining
	}

	// 15 minutes after the lock engaged
	f.advance(time.Second)
	summary, err := f.service.Authenticate(ctx, "bob", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "bob", summary.Username)
}

func TestAuthService_Authenticate_FailuresWhileLockedDoNotExtend(t *testing.T) {
	f := newGuardFixture(t, bob())
	ctx := context.Background()

	for i := 0; i < lockout.MaxAttempts; i++ {
		_, _ = f.service.Authenticate(ctx, "bob", "wrong")
	}

	f.advance(10 * time.Minute)
	for i := 0; i < 3; i++ {
		_, err := f.service.Authenticate(ctx, "bob", "wrong")
		assert.ErrorIs(t, err, models.ErrRateLimited)
	}

	f.advance(5 * time.Minute)
	_, err := f.service.Authenticate(ctx, "bob", "hunter22")
	assert.NoError(t, err)
}

func TestAuthService_Authenticate_KeysAreRawIdentifiers(t *testing.T) {
	f := newGuardFixture(t, bob())
	ctx := context.Background()

	for i := 0; i < lockout.MaxAttempts; i++ {
		_, _ = f.service.Authenticate(ctx, "bob", "wrong")
	}

	// Same account, different identifier: not locked
	summary, err := f.service.Authenticate(ctx, "bob@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.ID)

	// Different case is a different key and a different (unknown) identifier
	_, err = f.service.Authenticate(ctx, "BOB", "hunter22")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestAuthService_Authenticate_LockAppliesToUnknownIdentifiers(t *testing.T) {
	f := newGuardFixture(t)
	ctx := context.Background()

	for i := 0; i < lockout.MaxAttempts; i++ {
		_, err := f.service.Authenticate(ctx, "ghost", "x")
		assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	}

	_, err := f.service.Authenticate(ctx, "ghost", "x")
	assert.ErrorIs(t, err, models.ErrRateLimited)
	assert.Len(t, f.observer.Calls(), 1)
}

func TestAuthService_Authenticate_ConcurrentFailures(t *testing.T) {
	f := newGuardFixture(t, alice())
	ctx := context.Background()

	const workers = 40
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Authenticate(ctx, "alice", "wrong")
			assert.Error(t, err)
		}()
	}
	wg.Wait()

	// Calls that saw the lock before recording do not count, so the total
	// is between MaxAttempts and workers; exactly one observer call fires.
	rec, err := f.store.Status(ctx, "alice", f.now)
	require.NoError(t, err)
	assert.True(t, rec.Locked())
	assert.GreaterOrEqual(t, rec.FailureCount, lockout.MaxAttempts)
	assert.LessOrEqual(t, rec.FailureCount, workers)
	assert.Len(t, f.observer.Calls(), 1)
}

func TestAuthService_Authenticate_UsesStoreWindow(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	store := lockout.NewMemoryStore(lockout.Policy{MaxAttempts: 3, Window: 5 * time.Minute}, 1)
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	service := NewAuthService(NewAccountRepository(alice()), &FakeHasher{}, store, logger, nil)
	service.SetClock(func() time.Time { return now })

	for i := 0; i < 3; i++ {
		_, err := service.Authenticate(context.Background(), "alice", "wrong")
		require.ErrorIs(t, err, models.ErrInvalidCredentials)
	}

	_, err := service.Authenticate(context.Background(), "alice", "correct-horse")
	var limited *models.RateLimitedError
	require.ErrorAs(t, err, &limited)
	assert.Equal(t, 5, limited.MinutesRemaining)

	now = now.Add(5 * time.Minute)
	_, err = service.Authenticate(context.Background(), "alice", "correct-horse")
	assert.NoError(t, err)
}

// ============================================================================
// Collaborator failures
// ============================================================================

func TestAuthService_Authenticate_StoreUnavailable(t *testing.T) {
	cause := errors.New("redis: connection refused")
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	hasher := &FakeHasher{}
	store := &MockAttemptStore{
		StatusFunc: func(context.Context, string, time.Time) (lockout.Record, error) {
			return lockout.Record{}, cause
		},
	}

	service := NewAuthService(NewAccountRepository(alice()), hasher, store, logger, nil)

	_, err := service.Authenticate(context.Background(), "alice", "correct-horse")

	assert.ErrorIs(t, err, models.ErrUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, int32(0), hasher.Verifies.Load())
}

func TestAuthService_Authenticate_RecordFailureUnavailable(t *testing.T) {
	cause := errors.New("write failed")
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	store := &MockAttemptStore{
		RecordFailureFunc: func(context.Context, string, time.Time) (lockout.Record, bool, error) {
			return lockout.Record{}, false, cause
		},
	}

	service := NewAuthService(NewAccountRepository(alice()), &FakeHasher{}, store, logger, nil)

	_, err := service.Authenticate(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, models.ErrUnavailable)
	assert.ErrorIs(t, err, cause)
}

func TestAuthService_Authenticate_RepositoryUnavailable(t *testing.T) {
	cause := errors.New("pool closed")
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	repo := &MockUserRepository{
		GetByEmailFunc: func(context.Context, string) (*models.Account, error) {
			return nil, cause
		},
	}
	store := lockout.NewMemoryStore(lockout.DefaultPolicy(), 1)

	service := NewAuthService(repo, &FakeHasher{}, store, logger, nil)

	_, err := service.Authenticate(context.Background(), "alice", "x")
	assert.ErrorIs(t, err, models.ErrUnavailable)
	assert.ErrorIs(t, err, cause)

	rec, _ := store.Status(context.Background(), "alice", time.Now())
	assert.Equal(t, 0, rec.FailureCount, "collaborator failures are not counted")
}

func TestAuthService_Authenticate_HasherError(t *testing.T) {
	cause := errors.New("bcrypt: malformed")
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	hasher := &FakeHasher{VerifyErr: cause}

	service := NewAuthService(NewAccountRepository(alice()), hasher, lockout.NewMemoryStore(lockout.DefaultPolicy(), 1), logger, nil)

	_, err := service.Authenticate(context.Background(), "alice", "x")
	assert.ErrorIs(t, err, models.ErrUnavailable)
	assert.ErrorIs(t, err, cause)
}

// ============================================================================
// Register / GetAccount
// ============================================================================

func TestAuthService_Register_Success(t *testing.T) {
	var stored *models.Account
	repo := &MockUserRepository{
		CreateFunc: func(_ context.Context, account *models.Account) (*models.Account, error) {
			stored = account
			created := *account
			created.ID = 42
			return &created, nil
		},
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	service := NewAuthService(repo, &FakeHasher{}, lockout.NewMemoryStore(lockout.DefaultPolicy(), 1), logger, pkglogger.NewAuditLogger(logger))

	summary, err := service.Register(context.Background(), RegisterInput{
		Username: " dj_move ",
		Email:    "dj@example.com",
		Password: "long enough pass",
	})

	require.NoError(t, err)
	assert.Equal(t, &models.AccountSummary{ID: 42, Username: "dj_move", Email: "dj@example.com"}, summary)
	assert.Equal(t, "hashed:long enough pass", stored.PasswordHash)
}

func TestAuthService_Register_Validation(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	service := NewAuthService(&MockUserRepository{}, &FakeHasher{}, lockout.NewMemoryStore(lockout.DefaultPolicy(), 1), logger, nil)

	tests := []struct {
		name  string
		input RegisterInput
		field string
	}{
		{"short username", RegisterInput{Username: "ab", Email: "a@b.co", Password: "long enough pass"}, "username"},
		{"bad username chars", RegisterInput{Username: "dj move", Email: "a@b.co", Password: "long enough pass"}, "username"},
		{"missing email", RegisterInput{Username: "djmove", Email: " ", Password: "long enough pass"}, "email"},
		{"short password", RegisterInput{Username: "djmove", Email: "a@b.co", Password: "short"}, "password"},
		{"common password", RegisterInput{Username: "djmove", Email: "a@b.co", Password: "password123"}, "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Register(context.Background(), tt.input)
			var ve *models.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.ErrorIs(t, err, models.ErrBadRequest)
		})
	}
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	for _, dup := range []error{models.ErrEmailTaken, models.ErrUsernameTaken} {
		t.Run(dup.Error(), func(t *testing.T) {
			repo := &MockUserRepository{
				CreateFunc: func(context.Context, *models.Account) (*models.Account, error) {
					return nil, dup
				},
			}
			logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
			service := NewAuthService(repo, &FakeHasher{}, lockout.NewMemoryStore(lockout.DefaultPolicy(), 1), logger, nil)

			_, err := service.Register(context.Background(), RegisterInput{Username: "djmove", Email: "a@b.co", Password: "long enough pass"})
			assert.ErrorIs(t, err, dup)
			assert.ErrorIs(t, err, models.ErrConflict)
		})
	}
}

func TestAuthService_GetAccount(t *testing.T) {
	f := newGuardFixture(t, alice())

	summary, err := f.service.GetAccount(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "alice", summary.Username)

	_, err = f.service.GetAccount(context.Background(), 99)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func ExampleAuthService_Authenticate() {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	service := NewAuthService(
		NewAccountRepository(NewTestAccount(1, "bob", "bob@example.com", "hunter22")),
		&FakeHasher{},
		lockout.NewMemoryStore(lockout.DefaultPolicy(), 1),
		logger,
		nil,
	)

	for i := 0; i < lockout.MaxAttempts; i++ {
		_, _ = service.Authenticate(context.Background(), "bob", "wrong")
	}

	_, err := service.Authenticate(context.Background(), "bob", "hunter22")
	var rle *models.RateLimitedError
	if errors.As(err, &rle) {
		fmt.Println("locked for", rle.MinutesRemaining, "minutes")
	}
	// Output: locked for 15 minutes
}
