package main

import (
	"encoding/json"
	"net/http"
)

type SavePushTokenRequest struct {
	Token      string          `json:"token" validate:"required"`
	DeviceInfo json.RawMessage `json:"device_info,omitempty"`
}

// SavePushToken godoc
//
//	@Summary		Save or update a push notification token
//	@Description	Registers the Expo token that review notifications are delivered to
//	@Tags			Notifications
//	@Accept			json
//	@Param			payload	body	SavePushTokenRequest	true	"Push token"
//	@Success		204
//	@Failure		400	{object}	error
//	@Failure		401	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/users/push-tokens [post]
func (app *application) savePushTokenHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	var payload SavePushTokenRequest
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := app.store.PushTokens.AddOrUpdatePushToken(r.Context(), user.ID, payload.Token, payload.DeviceInfo); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
