package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bitewise/internal/auth"
	"bitewise/internal/domain/reviews"
	"bitewise/internal/feed"
	"bitewise/internal/reviewapi"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var momoHouse = reviews.RestaurantRef{Provider: "google", ProviderID: "ChIJ-momo", Name: "Momo House"}

func TestSubmitReview(t *testing.T) {
	var (
		got       reviews.Payload
		decodeErr error
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decodeErr = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"id":7}}`))
	}))
	t.Cleanup(srv.Close)

	var out bytes.Buffer
	err := submitReview(context.Background(), &out, zap.NewNop().Sugar(), momoHouse,
		auth.NewTokenSession("opaque-token"), reviewapi.New(srv.URL),
		[]string{"Jhol momo", " ", "Thukpa"}, 4)
	require.NoError(t, err)
	require.NoError(t, decodeErr)

	require.Equal(t, []string{"Jhol momo", "Thukpa"}, got.Dishes)
	require.Equal(t, 4, got.Rating)
	require.Contains(t, out.String(), "Success: Your review has been posted!")
	require.Contains(t, out.String(), "review of Momo House is done")
}

func TestSubmitReviewValidation(t *testing.T) {
	var out bytes.Buffer
	err := submitReview(context.Background(), &out, zap.NewNop().Sugar(), momoHouse,
		auth.NewTokenSession("opaque-token"), reviewapi.New("http://127.0.0.1:0"),
		nil, 4)
	require.Error(t, err)
	require.Contains(t, out.String(), "Please add at least one dish you tried.")

	out.Reset()
	err = submitReview(context.Background(), &out, zap.NewNop().Sugar(), momoHouse,
		auth.NewTokenSession("opaque-token"), reviewapi.New("http://127.0.0.1:0"),
		[]string{"Thukpa"}, 0)
	require.Error(t, err)
	require.Contains(t, out.String(), "Please select a rating.")
}

func TestSubmitReviewServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"success":false,"message":"Duplicate review","status":409}`))
	}))
	t.Cleanup(srv.Close)

	var out bytes.Buffer
	err := submitReview(context.Background(), &out, zap.NewNop().Sugar(), momoHouse,
		auth.NewTokenSession("opaque-token"), reviewapi.New(srv.URL),
		[]string{"Thukpa"}, 2)
	require.Error(t, err)
	require.Contains(t, out.String(), "Error: Duplicate review")
	require.NotContains(t, out.String(), "is done")
}

func TestPrintFeed(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]reviews.FeedReview{{
			ID:                "1",
			UserName:          "Asha",
			RestaurantName:    "Momo House",
			RestaurantAddress: "Thamel",
			Rating:            4,
			Items:             []string{"Jhol momo", "Thukpa", "Sel roti", "Lassi"},
			CreatedAt:         now.Add(-time.Hour),
		}})
	}))
	t.Cleanup(srv.Close)

	loader := feed.NewLoader(auth.NewTokenSession(""), reviewapi.New(srv.URL))
	require.NoError(t, loader.Load(context.Background(), feed.Initial))

	var out bytes.Buffer
	printFeed(&out, loader, feed.Presenter{Layout: feed.DefaultDayLayout, Location: time.UTC}, now)

	require.Contains(t, out.String(), "Asha  ★★★★☆")
	require.Contains(t, out.String(), "Momo House, Thamel")
	require.Contains(t, out.String(), "Jhol momo | Thukpa | Sel roti | +1 more")
}

func TestPrintEmptyFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)

	loader := feed.NewLoader(auth.NewTokenSession(""), reviewapi.New(srv.URL))
	require.NoError(t, loader.Load(context.Background(), feed.Initial))

	var out bytes.Buffer
	printFeed(&out, loader, feed.DefaultPresenter, time.Now())
	require.Contains(t, out.String(), "No reviews yet.")
}
