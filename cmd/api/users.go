package main

import (
	"errors"
	"net/http"
	"strconv"

	"bitewise/internal/domain/followers"

	"github.com/go-chi/chi/v5"
)

// FollowUser godoc
//
//	@Summary		Follow a user
//	@Description	The caller starts seeing the user's reviews in their feed
//	@Tags			users
//	@Param			userID	path	int	true	"User ID"
//	@Success		204
//	@Failure		400	{object}	error
//	@Failure		404	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/users/{userID}/follow [put]
func (app *application) followUserHandler(w http.ResponseWriter, r *http.Request) {
	follower := getUserFromContext(r)
	followedID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("invalid user ID"))
		return
	}

	if err := app.store.Followers.Follow(r.Context(), follower.ID, followedID); err != nil {
		switch {
		case errors.Is(err, followers.ErrSelfFollow):
			app.badRequestResponse(w, r, err)
		case errors.Is(err, followers.ErrUnknownUser):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UnfollowUser godoc
//
//	@Summary		Unfollow a user
//	@Tags			users
//	@Param			userID	path	int	true	"User ID"
//	@Success		204
//	@Failure		400	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/users/{userID}/unfollow [put]
func (app *application) unfollowUserHandler(w http.ResponseWriter, r *http.Request) {
	follower := getUserFromContext(r)
	unfollowedID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("invalid user ID"))
		return
	}

	if err := app.store.Followers.Unfollow(r.Context(), follower.ID, unfollowedID); err != nil {
		app.internalServerError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
