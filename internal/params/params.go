package params

import (
	"errors"
	"math"
	"net/url"
	"strconv"
	"strings"

	"bitewise/internal/domain/reviews"
)

var ErrMissingRestaurant = errors.New("restaurant provider and providerId are required")

// Keys used by the navigation layer when it opens the review editor, e.g.
// bitewise://review/new?provider=google&providerId=abc&name=...&lat=27.7&lng=85.3
const (
	KeyProvider   = "provider"
	KeyProviderID = "providerId"
	KeyName       = "name"
	KeyAddress    = "address"
	KeyLat        = "lat"
	KeyLng        = "lng"
)

// ParseRestaurantRef builds the restaurant reference from string-typed
// navigation parameters. lat/lng are optional: blank or unparseable values
// are left out rather than rejected.
func ParseRestaurantRef(q url.Values) (reviews.RestaurantRef, error) {
	ref := reviews.RestaurantRef{
		Provider:   strings.TrimSpace(q.Get(KeyProvider)),
		ProviderID: strings.TrimSpace(q.Get(KeyProviderID)),
		Name:       q.Get(KeyName),
		Address:    q.Get(KeyAddress),
		Lat:        parseCoord(q.Get(KeyLat)),
		Lng:        parseCoord(q.Get(KeyLng)),
	}
	if ref.Provider == "" || ref.ProviderID == "" {
		return reviews.RestaurantRef{}, ErrMissingRestaurant
	}
	return ref, nil
}

// Values is the inverse of ParseRestaurantRef.
func Values(ref reviews.RestaurantRef) url.Values {
	q := url.Values{}
	q.Set(KeyProvider, ref.Provider)
	q.Set(KeyProviderID, ref.ProviderID)
	q.Set(KeyName, ref.Name)
	q.Set(KeyAddress, ref.Address)
	if ref.Lat != nil {
		q.Set(KeyLat, strconv.FormatFloat(*ref.Lat, 'f', -1, 64))
	}
	if ref.Lng != nil {
		q.Set(KeyLng, strconv.FormatFloat(*ref.Lng, 'f', -1, 64))
	}
	return q
}

func parseCoord(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
