package followers

import (
	"context"
	"errors"
	"fmt"

	"bitewise/internal/infra/dbx"

	"github.com/jackc/pgx/v5/pgconn"
)

type Store interface {
	Follow(ctx context.Context, followerID, userID int64) error
	Unfollow(ctx context.Context, followerID, userID int64) error
	// FollowerIDs lists the users following userID.
	FollowerIDs(ctx context.Context, userID int64) ([]int64, error)
}

type Repository struct {
	db dbx.Querier
}

func NewRepository(q dbx.Querier) Store {
	return &Repository{db: q}
}

func (r *Repository) Follow(ctx context.Context, followerID, userID int64) error {
	if followerID == userID {
		return ErrSelfFollow
	}

	query := `
           INSERT INTO followers (user_id, follower_id) VALUES ($1, $2)
           ON CONFLICT (user_id, follower_id) DO NOTHING
   `

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	_, err := r.db.Exec(ctx, query, userID, followerID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrUnknownUser
		}
		return fmt.Errorf("failed to follow user: %w", err)
	}
	return nil
}

func (r *Repository) Unfollow(ctx context.Context, followerID, userID int64) error {
	query := `
	   DELETE FROM followers
	   WHERE user_id = $1 AND follower_id = $2
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	_, err := r.db.Exec(ctx, query, userID, followerID)
	return err
}

func (r *Repository) FollowerIDs(ctx context.Context, userID int64) ([]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, `SELECT follower_id FROM followers WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list followers: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
