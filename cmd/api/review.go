package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"bitewise/internal/domain/reviews"
	"bitewise/internal/domain/storage"
	"bitewise/internal/notifications"

	"github.com/go-chi/chi/v5"
)

// createReviewHandler resolves the restaurant and stores the review in one
// transaction, then tells the author's followers about it.
func (app *application) createReviewHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	if user == nil {
		app.unauthorizedErrorResponse(w, r, errors.New("please logout and login again"))
		return
	}

	var payload reviews.Payload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	// blank dishes are dropped client-side; anything left blank here is rejected
	if len(reviews.FilterDishes(payload.Dishes)) != len(payload.Dishes) {
		app.badRequestResponse(w, r, errors.New("dishes must not be blank"))
		return
	}

	review := &reviews.Review{
		UserID: user.ID,
		Rating: payload.Rating,
		Text:   payload.Text,
		Dishes: payload.Dishes,
	}
	err := app.store.WithReviewsTx(r.Context(), func(tx *storage.ReviewsTx) error {
		restaurantID, err := tx.Reviews.UpsertRestaurant(r.Context(), payload.Restaurant())
		if err != nil {
			return err
		}
		review.RestaurantID = restaurantID
		return tx.Reviews.CreateReview(r.Context(), review)
	})
	if err != nil {
		if errors.Is(err, reviews.ErrConflict) {
			app.conflictResponse(w, r, "Duplicate review")
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	app.logger.Infow("review created", "review_id", review.ID, "user_id", user.ID, "restaurant_id", review.RestaurantID)

	ev := notifications.ReviewEvent{
		ReviewID:       review.ID,
		AuthorID:       user.ID,
		AuthorName:     user.FirstName,
		RestaurantName: payload.Name,
		Rating:         review.Rating,
	}
	app.background(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		n, err := notifications.SendNewReviewNotification(ctx, app.push, app.store, ev)
		if err != nil {
			app.logger.Errorw("review notification failed", "review_id", ev.ReviewID, "error", err)
			return
		}
		app.logger.Infow("review notification sent", "review_id", ev.ReviewID, "messages", n)
	})

	if err := app.jsonResponse(w, http.StatusCreated, review); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getFeedHandler returns reviews by the users the caller follows as a bare JSON array.
func (app *application) getFeedHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	if user == nil {
		app.unauthorizedErrorResponse(w, r, errors.New("please logout and login again"))
		return
	}

	feed, err := app.store.Reviews.GetFeed(r.Context(), user.ID, reviews.FeedLimit)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, feed); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) getReviewHandler(w http.ResponseWriter, r *http.Request) {
	reviewID, err := strconv.ParseInt(chi.URLParam(r, "reviewID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("invalid review ID"))
		return
	}

	review, err := app.store.Reviews.GetByID(r.Context(), reviewID)
	if err != nil {
		if errors.Is(err, reviews.ErrNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusOK, review)
}
