package storage

import (
	"context"
	"fmt"

	"bitewise/internal/domain/followers"
	"bitewise/internal/domain/pushtokens"
	"bitewise/internal/domain/reviews"
	"bitewise/internal/domain/users"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Container struct {
	pool       *pgxpool.Pool // nil for the in-memory container
	Users      users.Store
	Reviews    reviews.Store
	Followers  followers.Store
	PushTokens pushtokens.Store

	// memory-backed containers run units of work directly
	withTx func(ctx context.Context, fn func(s *ReviewsTx) error) error
}

func NewContainer(db *pgxpool.Pool) *Container {
	c := &Container{
		pool:       db,
		Users:      users.NewRepository(db),
		Reviews:    reviews.NewRepository(db),
		Followers:  followers.NewRepository(db),
		PushTokens: pushtokens.NewRepository(db),
	}
	c.withTx = c.pgxTx
	return c
}

// ReviewsTx is a tx-scoped set of repos for creating a review atomically.
type ReviewsTx struct {
	Reviews reviews.Store
}

// WithReviewsTx runs fn in one transaction: the restaurant upsert and the
// review insert either both land or neither does.
func (c *Container) WithReviewsTx(ctx context.Context, fn func(s *ReviewsTx) error) error {
	if c.withTx == nil {
		return fmt.Errorf("storage container has no transaction runner")
	}
	return c.withTx(ctx, fn)
}

func (c *Container) pgxTx(ctx context.Context, fn func(s *ReviewsTx) error) error {
	if c.pool == nil {
		return fmt.Errorf("storage container pool is nil (did you forget to set pool in NewContainer?)")
	}

	tx, err := c.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback(ctx) // safe even if already committed
	}()

	if err := fn(&ReviewsTx{Reviews: reviews.NewRepository(tx)}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
