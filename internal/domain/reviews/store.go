package reviews

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"bitewise/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const FeedLimit = 50

type Store interface {
	UpsertRestaurant(ctx context.Context, ref RestaurantRef) (int64, error)
	CreateReview(ctx context.Context, review *Review) error
	GetFeed(ctx context.Context, userID int64, limit int) ([]FeedReview, error)
	GetByID(ctx context.Context, reviewID int64) (*FeedReview, error)
}

type Repository struct {
	db dbx.Querier
}

func NewRepository(q dbx.Querier) Store {
	return &Repository{db: q}
}

// UpsertRestaurant returns the id of the restaurant known by (provider, provider_id),
// creating it on first sight and refreshing its display fields otherwise.
func (r *Repository) UpsertRestaurant(ctx context.Context, ref RestaurantRef) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
        INSERT INTO restaurants (provider, provider_id, name, address, lat, lng)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (provider, provider_id)
        DO UPDATE SET name = EXCLUDED.name,
                      address = EXCLUDED.address,
                      lat = COALESCE(EXCLUDED.lat, restaurants.lat),
                      lng = COALESCE(EXCLUDED.lng, restaurants.lng)
        RETURNING id
    `
	var id int64
	err := r.db.QueryRow(ctx, query,
		ref.Provider,
		ref.ProviderID,
		ref.Name,
		ref.Address,
		ref.Lat,
		ref.Lng,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert restaurant: %w", err)
	}
	return id, nil
}

func (r *Repository) CreateReview(ctx context.Context, review *Review) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
        INSERT INTO reviews (user_id, restaurant_id, rating, text, dishes, photo_urls)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at
    `
	photos := review.PhotoURLs
	if photos == nil {
		photos = []string{}
	}
	err := r.db.QueryRow(ctx, query,
		review.UserID,
		review.RestaurantID,
		review.Rating,
		review.Text,
		review.Dishes,
		photos,
	).Scan(&review.ID, &review.CreatedAt, &review.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("failed to insert review: %w", err)
	}
	return nil
}

const feedColumns = `
        SELECT rv.id, rv.user_id, u.first_name, u.profile_picture_url,
               rs.id, rs.name, rs.address,
               rv.rating, rv.text, rv.photo_urls, rv.dishes, rv.created_at
        FROM reviews rv
        JOIN users u ON u.id = rv.user_id
        JOIN restaurants rs ON rs.id = rv.restaurant_id
`

// GetFeed returns reviews written by the users userID follows, newest first.
func (r *Repository) GetFeed(ctx context.Context, userID int64, limit int) ([]FeedReview, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	if limit <= 0 || limit > FeedLimit {
		limit = FeedLimit
	}

	query := feedColumns + `
        JOIN followers f ON f.user_id = rv.user_id
        WHERE f.follower_id = $1
        ORDER BY rv.created_at DESC
        LIMIT $2
    `
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query feed: %w", err)
	}
	defer rows.Close()

	feed := make([]FeedReview, 0)
	for rows.Next() {
		fr, err := scanFeedReview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed row: %w", err)
		}
		feed = append(feed, *fr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return feed, nil
}

func (r *Repository) GetByID(ctx context.Context, reviewID int64) (*FeedReview, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	row := r.db.QueryRow(ctx, feedColumns+` WHERE rv.id = $1`, reviewID)
	fr, err := scanFeedReview(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return fr, nil
}

func scanFeedReview(row pgx.Row) (*FeedReview, error) {
	var (
		id, userID, restaurantID int64
		fr                       FeedReview
	)
	err := row.Scan(
		&id,
		&userID,
		&fr.UserName,
		&fr.UserAvatar,
		&restaurantID,
		&fr.RestaurantName,
		&fr.RestaurantAddress,
		&fr.Rating,
		&fr.Text,
		&fr.PhotoURLs,
		&fr.Items,
		&fr.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	fr.ID = strconv.FormatInt(id, 10)
	fr.UserID = strconv.FormatInt(userID, 10)
	fr.RestaurantID = strconv.FormatInt(restaurantID, 10)
	return &fr, nil
}
