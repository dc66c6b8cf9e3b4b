package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/moverap/backend/internal/lockout"
	"github.com/moverap/backend/internal/models"
	pkgauth "github.com/moverap/backend/pkg/auth"
	pkglogger "github.com/moverap/backend/pkg/logger"
)

// UserRepository is the credential store used by AuthService
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
}

// PasswordHasher hashes and verifies passwords. Verify returns (false, nil) on
// a mismatch and an error only when the hash cannot be checked at all.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) (bool, error)
}

// LockoutObserver is notified once each time a lock is engaged
type LockoutObserver interface {
	AccountLocked(ctx context.Context, attempts int)
}

// decoyPassword is hashed once; the hash stands in for a missing account
// so that unknown identifiers still pay for one verification.
const decoyPassword = "moverap-decoy-password"

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,50}$`)

// AuthService verifies credentials and throttles repeated failures per identifier
type AuthService struct {
	repo        UserRepository
	hasher      PasswordHasher
	attempts    lockout.Store
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger

	mu        sync.RWMutex
	observers []LockoutObserver
	now       func() time.Time

	decoyOnce sync.Once
	decoyHash string
}

// NewAuthService creates a new AuthService. The audit logger, when non-nil, is
// registered as the first lockout observer.
func NewAuthService(repo UserRepository, hasher PasswordHasher, attempts lockout.Store, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *AuthService {
	s := &AuthService{
		repo:        repo,
		hasher:      hasher,
		attempts:    attempts,
		logger:      logger,
		auditLogger: auditLogger,
		now:         time.Now,
	}
	if auditLogger != nil {
		s.observers = append(s.observers, auditLogger)
	}
	return s
}

// AddLockoutObserver registers o to receive lock notifications
func (s *AuthService) AddLockoutObserver(o LockoutObserver) {
	s.mu.Lock()
	s.observers = append(s.observers, o)
	s.mu.Unlock()
}

// SetClock replaces the time source
func (s *AuthService) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *AuthService) clock() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.now()
}

// Authenticate checks identifier and password. identifier is matched against
// email first and username second, and is used verbatim as the lockout key.
//
// Errors: *models.RateLimitedError while locked, models.ErrInvalidCredentials
// for unknown identifiers and wrong passwords alike, and an error matching
// models.ErrUnavailable when a collaborator fails.
func (s *AuthService) Authenticate(ctx context.Context, identifier, password string) (*models.AccountSummary, error) {
	now := s.clock()

	rec, err := s.attempts.Status(ctx, identifier, now)
	if err != nil {
		s.logger.Error("failed to read attempt record", slog.Any("error", err))
		return nil, models.Unavailable(err)
	}

	if rec.Locked() {
		minutes := rec.MinutesRemaining(now, s.attempts.Policy().Window)
		s.audit(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventLoginBlocked,
			Identifier:    identifier,
			FailureReason: "locked",
		})
		return nil, &models.RateLimitedError{MinutesRemaining: minutes}
	}

	account, err := s.lookup(ctx, identifier)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to look up account", slog.Any("error", err))
		return nil, models.Unavailable(err)
	}

	if account == nil {
		s.verifyDecoy(password)
		if err := s.recordFailure(ctx, identifier, now); err != nil {
			return nil, err
		}
		s.audit(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventLoginFailure,
			Identifier:    identifier,
			FailureReason: "invalid_credentials",
		})
		return nil, models.ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(password, account.PasswordHash)
	if err != nil {
		s.logger.Error("failed to verify password",
			slog.Int64("user_id", account.ID),
			slog.Any("error", err))
		return nil, models.Unavailable(err)
	}

	if !ok {
		if err := s.recordFailure(ctx, identifier, now); err != nil {
			return nil, err
		}
		s.audit(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventLoginFailure,
			UserID:        strconv.FormatInt(account.ID, 10),
			Identifier:    identifier,
			FailureReason: "invalid_credentials",
		})
		return nil, models.ErrInvalidCredentials
	}

	if err := s.attempts.Reset(ctx, identifier); err != nil {
		s.logger.Error("failed to reset attempt record", slog.Any("error", err))
		return nil, models.Unavailable(err)
	}

	s.audit(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventLoginSuccess,
		UserID:    strconv.FormatInt(account.ID, 10),
		Success:   true,
	})

	return account.Summary(), nil
}

// lookup tries email first and falls back to username only when no email matches.
// A miss on both returns (nil, models.ErrNotFound).
func (s *AuthService) lookup(ctx context.Context, identifier string) (*models.Account, error) {
	account, err := s.repo.GetByEmail(ctx, identifier)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	return s.repo.GetByUsername(ctx, identifier)
}

func (s *AuthService) recordFailure(ctx context.Context, identifier string, now time.Time) error {
	rec, newlyLocked, err := s.attempts.RecordFailure(ctx, identifier, now)
	if err != nil {
		s.logger.Error("failed to record failed attempt", slog.Any("error", err))
		return models.Unavailable(err)
	}

	if newlyLocked {
		s.mu.RLock()
		observers := append([]LockoutObserver(nil), s.observers...)
		s.mu.RUnlock()

		for _, o := range observers {
			o.AccountLocked(ctx, rec.FailureCount)
		}
	}

	return nil
}

func (s *AuthService) verifyDecoy(password string) {
	s.decoyOnce.Do(func() {
		hash, err := s.hasher.Hash(decoyPassword)
		if err != nil {
			s.logger.Error("failed to prepare decoy hash", slog.Any("error", err))
			return
		}
		s.decoyHash = hash
	})

	if s.decoyHash == "" {
		return
	}
	_, _ = s.hasher.Verify(password, s.decoyHash)
}

func (s *AuthService) audit(ctx context.Context, event pkglogger.AuditEvent) {
	if s.auditLogger != nil {
		s.auditLogger.LogAuthAttempt(ctx, event)
	}
}

// RegisterInput carries the fields of a new account
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Register creates an account after checking the username format and password policy
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.AccountSummary, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(input.Email)

	if !usernamePattern.MatchString(username) {
		return nil, &models.ValidationError{
			Field:   "username",
			Message: "must be 3-50 characters of letters, digits, '_', '.' or '-'",
		}
	}
	if email == "" {
		return nil, &models.ValidationError{Field: "email", Message: "is required"}
	}
	if err := pkgauth.ValidatePassword(input.Password); err != nil {
		return nil, &models.ValidationError{Field: "password", Message: passwordMessage(err)}
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account, err := s.repo.Create(ctx, &models.Account{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			s.logger.Info("registration rejected: duplicate account")
			return nil, err
		}
		s.logger.Error("failed to create account", slog.Any("error", err))
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.logger.Info("account registered", slog.Int64("user_id", account.ID))
	if s.auditLogger != nil {
		s.auditLogger.LogAccountAction(ctx, pkglogger.EventRegistration, strconv.FormatInt(account.ID, 10), nil)
	}

	return account.Summary(), nil
}

// GetAccount returns the summary of the account with the given id
func (s *AuthService) GetAccount(ctx context.Context, id int64) (*models.AccountSummary, error) {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return account.Summary(), nil
}

func passwordMessage(err error) string {
	var pve *pkgauth.PasswordValidationError
	if errors.As(err, &pve) && len(pve.Errors) > 0 {
		return strings.Join(pve.Errors, "; ")
	}
	return "is invalid"
}
