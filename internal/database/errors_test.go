package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/moverap/backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestMapPostgresError(t *testing.T) {
	other := errors.New("connection reset")

	tests := []struct {
		name string
		in   error
		want error
	}{
		{name: "nil", in: nil, want: nil},
		{name: "no rows", in: pgx.ErrNoRows, want: models.ErrNotFound},
		{name: "wrapped no rows", in: fmt.Errorf("scan: %w", pgx.ErrNoRows), want: models.ErrNotFound},
		{name: "duplicate email", in: &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}, want: models.ErrEmailTaken},
		{name: "duplicate username", in: &pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"}, want: models.ErrUsernameTaken},
		{name: "duplicate page", in: &pgconn.PgError{Code: "23505", ConstraintName: "user_pages_user_id_key"}, want: models.ErrPageExists},
		{name: "other unique", in: &pgconn.PgError{Code: "23505", ConstraintName: "x_key"}, want: models.ErrConflict},
		{name: "foreign key", in: &pgconn.PgError{Code: "23503"}, want: models.ErrBadRequest},
		{name: "check", in: &pgconn.PgError{Code: "23514"}, want: models.ErrBadRequest},
		{name: "unrecognised", in: other, want: other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapPostgresError(tt.in)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

func TestMapPostgresError_TakenErrorsAreConflicts(t *testing.T) {
	err := MapPostgresError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})
	assert.ErrorIs(t, err, models.ErrConflict)
}
