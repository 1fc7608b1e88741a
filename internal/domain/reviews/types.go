package reviews

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound          = errors.New("review not found")
	ErrConflict          = errors.New("review already exists")
	QueryTimeoutDuration = time.Second * 5
)

// RestaurantRef identifies the restaurant a review is written for. It comes
// from an external place provider (provider + providerId).
type RestaurantRef struct {
	Provider   string   `json:"provider" validate:"required"`
	ProviderID string   `json:"providerId" validate:"required"`
	Name       string   `json:"name" validate:"required"`
	Address    string   `json:"address"`
	Lat        *float64 `json:"lat,omitempty"`
	Lng        *float64 `json:"lng,omitempty"`
}

// Payload is the body of POST /reviews.
type Payload struct {
	Provider   string   `json:"provider" validate:"required"`
	ProviderID string   `json:"providerId" validate:"required"`
	Name       string   `json:"name" validate:"required"`
	Address    string   `json:"address"`
	Lat        *float64 `json:"lat,omitempty" validate:"omitempty,latitude"`
	Lng        *float64 `json:"lng,omitempty" validate:"omitempty,longitude"`
	Rating     int      `json:"rating" validate:"required,min=1,max=5"`
	Text       string   `json:"text" validate:"max=2000"`
	Dishes     []string `json:"dishes" validate:"required,min=1,dive,required"`
}

// FeedReview is a review as shown in a friend's feed.
type FeedReview struct {
	ID                string    `json:"id"`
	UserID            string    `json:"userId"`
	UserName          string    `json:"userName"`
	UserAvatar        *string   `json:"userAvatar,omitempty"`
	RestaurantID      string    `json:"restaurantId"`
	RestaurantName    string    `json:"restaurantName"`
	RestaurantAddress string    `json:"restaurantAddress"`
	Rating            int       `json:"rating"`
	Text              string    `json:"text"`
	PhotoURLs         []string  `json:"photoUrls,omitempty"`
	Items             []string  `json:"items,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

// Review is the stored row behind a FeedReview.
type Review struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	RestaurantID int64     `json:"restaurant_id"`
	Rating       int       `json:"rating"`
	Text         string    `json:"text"`
	Dishes       []string  `json:"dishes"`
	PhotoURLs    []string  `json:"photo_urls"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FilterDishes drops entries that are empty once trimmed. Surviving entries
// keep their original spelling and order.
func FilterDishes(dishes []string) []string {
	filled := make([]string, 0, len(dishes))
	for _, d := range dishes {
		if strings.TrimSpace(d) == "" {
			continue
		}
		filled = append(filled, d)
	}
	return filled
}

// NewPayload builds the wire payload for a draft. Text is reserved and always empty.
func NewPayload(ref RestaurantRef, rating int, dishes []string) Payload {
	return Payload{
		Provider:   ref.Provider,
		ProviderID: ref.ProviderID,
		Name:       ref.Name,
		Address:    ref.Address,
		Lat:        ref.Lat,
		Lng:        ref.Lng,
		Rating:     rating,
		Text:       "",
		Dishes:     FilterDishes(dishes),
	}
}

// Restaurant returns the restaurant half of the payload.
func (p Payload) Restaurant() RestaurantRef {
	return RestaurantRef{
		Provider:   p.Provider,
		ProviderID: p.ProviderID,
		Name:       p.Name,
		Address:    p.Address,
		Lat:        p.Lat,
		Lng:        p.Lng,
	}
}
