package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/moverap/backend/internal/database"
	"github.com/moverap/backend/internal/models"
)

const userPageColumns = `id, user_id, biography, profile_image_url, background_image_url, music_urls, created_at, updated_at`

// UserPageRepository stores one profile page per account
type UserPageRepository struct {
	db *database.DB
}

func NewUserPageRepository(db *database.DB) *UserPageRepository {
	return &UserPageRepository{db: db}
}

func scanUserPageRow(scanner rowScanner) (*models.UserPage, error) {
	var page models.UserPage

	err := scanner.Scan(
		&page.ID, &page.UserID, &page.Biography,
		&page.ProfileImageURL, &page.BackgroundImageURL, &page.MusicURLs,
		&page.CreatedAt, &page.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if page.MusicURLs == nil {
		page.MusicURLs = []string{}
	}

	return &page, nil
}

func (r *UserPageRepository) pool() *pgxpool.Pool {
	return r.db.Pool
}

func (r *UserPageRepository) GetByUserID(ctx context.Context, userID int64) (*models.UserPage, error) {
	query := `SELECT ` + userPageColumns + ` FROM user_pages WHERE user_id = $1`
	return scanUserPageRow(r.pool().QueryRow(ctx, query, userID))
}

// GetByUsername joins the owner so public pages can be looked up by name
func (r *UserPageRepository) GetByUsername(ctx context.Context, username string) (*models.PublicUserPage, error) {
	query := `
		SELECT u.username, p.id, p.user_id, p.biography, p.profile_image_url, p.background_image_url, p.music_urls, p.created_at, p.updated_at
		FROM user_pages p
		JOIN users u ON u.id = p.user_id
		WHERE u.username = $1
	`

	var public models.PublicUserPage
	var page models.UserPage
	err := r.pool().QueryRow(ctx, query, username).Scan(
		&public.Username,
		&page.ID, &page.UserID, &page.Biography,
		&page.ProfileImageURL, &page.BackgroundImageURL, &page.MusicURLs,
		&page.CreatedAt, &page.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	if page.MusicURLs == nil {
		page.MusicURLs = []string{}
	}

	public.Page = &page
	return &public, nil
}

// Create inserts a page. A second page for the same user is models.ErrPageExists.
func (r *UserPageRepository) Create(ctx context.Context, page *models.UserPage) (*models.UserPage, error) {
	now := time.Now().UTC()

	query := `
		INSERT INTO user_pages (user_id, biography, profile_image_url, background_image_url, music_urls, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING ` + userPageColumns

	return scanUserPageRow(r.pool().QueryRow(ctx, query,
		page.UserID, page.Biography, page.ProfileImageURL, page.BackgroundImageURL, musicURLs(page), now,
	))
}

// Upsert creates the page or replaces every editable field of an existing one
func (r *UserPageRepository) Upsert(ctx context.Context, page *models.UserPage) (*models.UserPage, error) {
	now := time.Now().UTC()

	query := `
		INSERT INTO user_pages (user_id, biography, profile_image_url, background_image_url, music_urls, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT ON CONSTRAINT user_pages_user_id_key DO UPDATE SET
			biography = EXCLUDED.biography,
			profile_image_url = EXCLUDED.profile_image_url,
			background_image_url = EXCLUDED.background_image_url,
			music_urls = EXCLUDED.music_urls,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + userPageColumns

	return scanUserPageRow(r.pool().QueryRow(ctx, query,
		page.UserID, page.Biography, page.ProfileImageURL, page.BackgroundImageURL, musicURLs(page), now,
	))
}

// UpdateImages sets the image URLs whose argument is non-nil and returns the
// page as it was before and after the change.
func (r *UserPageRepository) UpdateImages(ctx context.Context, userID int64, profile, background *string) (*models.UserPage, *models.UserPage, error) {
	var previous, updated *models.UserPage

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		var err error

		selectQuery := `SELECT ` + userPageColumns + ` FROM user_pages WHERE user_id = $1 FOR UPDATE`
		previous, err = scanUserPageRow(tx.QueryRow(ctx, selectQuery, userID))
		if err != nil {
			return err
		}

		updateQuery := `
			UPDATE user_pages SET
				profile_image_url = COALESCE($1, profile_image_url),
				background_image_url = COALESCE($2, background_image_url),
				updated_at = $3
			WHERE user_id = $4
			RETURNING ` + userPageColumns
		updated, err = scanUserPageRow(tx.QueryRow(ctx, updateQuery, profile, background, time.Now().UTC(), userID))
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	return previous, updated, nil
}

func (r *UserPageRepository) Delete(ctx context.Context, userID int64) error {
	result, err := r.pool().Exec(ctx, `DELETE FROM user_pages WHERE user_id = $1`, userID)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

func musicURLs(page *models.UserPage) []string {
	if page.MusicURLs == nil {
		return []string{}
	}
	return page.MusicURLs
}
