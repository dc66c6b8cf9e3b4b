package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/moverap/backend/internal/database"
	"github.com/moverap/backend/internal/models"
)

const accountColumns = `id, username, email, password_hash, created_at, updated_at`

// UserRepository is the credential store backed by the users table
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{pool: db.Pool}
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccountRow(scanner rowScanner) (*models.Account, error) {
	var account models.Account

	err := scanner.Scan(
		&account.ID, &account.Username, &account.Email, &account.PasswordHash,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &account, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM users WHERE id = $1`
	return scanAccountRow(r.pool.QueryRow(ctx, query, id))
}

// GetByEmail matches the stored email exactly
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM users WHERE email = $1`
	return scanAccountRow(r.pool.QueryRow(ctx, query, email))
}

// GetByUsername matches the stored username exactly
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM users WHERE username = $1`
	return scanAccountRow(r.pool.QueryRow(ctx, query, username))
}

// Create inserts a new account. Duplicate emails and usernames surface as
// models.ErrEmailTaken and models.ErrUsernameTaken.
func (r *UserRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	now := time.Now().UTC()

	query := `
		INSERT INTO users (username, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING ` + accountColumns

	created, err := scanAccountRow(r.pool.QueryRow(ctx, query,
		account.Username, account.Email, account.PasswordHash, now,
	))
	if err != nil {
		return nil, err
	}

	return created, nil
}
