package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/moverap/backend/internal/database"
	"github.com/moverap/backend/internal/models"
)

const uploadColumns = `filename, user_id, content_type, size_bytes, created_at`

// UploadRepository tracks the owner of every stored image
type UploadRepository struct {
	pool *pgxpool.Pool
}

func NewUploadRepository(db *database.DB) *UploadRepository {
	return &UploadRepository{pool: db.Pool}
}

func (r *UploadRepository) Create(ctx context.Context, upload *models.Upload) error {
	query := `INSERT INTO uploads (` + uploadColumns + `) VALUES ($1, $2, $3, $4, $5)`

	_, err := r.pool.Exec(ctx, query,
		upload.Filename, upload.UserID, upload.ContentType, upload.Size, time.Now().UTC(),
	)
	return database.MapPostgresError(err)
}

func (r *UploadRepository) GetByFilename(ctx context.Context, filename string) (*models.Upload, error) {
	var upload models.Upload

	query := `SELECT ` + uploadColumns + ` FROM uploads WHERE filename = $1`
	err := r.pool.QueryRow(ctx, query, filename).Scan(
		&upload.Filename, &upload.UserID, &upload.ContentType, &upload.Size, &upload.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &upload, nil
}

// Delete removes the record; a missing row is models.ErrNotFound
func (r *UploadRepository) Delete(ctx context.Context, filename string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM uploads WHERE filename = $1`, filename)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
