package users

import (
	"context"
	"errors"
	"fmt"

	"bitewise/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type Store interface {
	GetByID(context.Context, int64) (*User, error)
	GetByEmail(context.Context, string) (*User, error)
	Create(context.Context, *User) error
}

type Repository struct {
	db dbx.Querier
}

func NewRepository(q dbx.Querier) Store {
	return &Repository{db: q}
}

func (r *Repository) GetByID(ctx context.Context, userID int64) (*User, error) {
	user, err := r.getOne(ctx, `WHERE id = $1`, userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	return user, err
}

// GetByEmail looks users up case-insensitively.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	user, err := r.getOne(ctx, `WHERE lower(email) = lower($1)`, email)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, err
}

func (r *Repository) getOne(ctx context.Context, where string, arg any) (*User, error) {
	query := `
		SELECT id, first_name, last_name, COALESCE(email, ''), password, profile_picture_url, created_at
		FROM users
	` + where

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	user := &User{}
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.Password.hash,
		&user.ProfilePictureURL,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

// Create stores user. An empty Email is stored as NULL so only real
// addresses take part in the uniqueness check.
func (r *Repository) Create(ctx context.Context, user *User) error {
	query := `
	  INSERT INTO users (first_name, last_name, email, password, profile_picture_url)
	  VALUES ($1, $2, NULLIF($3, ''), $4, $5)
	  RETURNING id, created_at
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	err := r.db.QueryRow(ctx, query, user.FirstName, user.LastName, user.Email, user.Password.hash, user.ProfilePictureURL).
		Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}
