package reviewapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"bitewise/internal/domain/reviews"

	"github.com/stretchr/testify/require"
)

func TestCreateReviewSendsPayload(t *testing.T) {
	var (
		gotHeaders http.Header
		gotBody    map[string]any
		gotMethod  string
		gotPath    string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		gotMethod, gotPath = r.Method, r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":9}}`))
	}))
	defer srv.Close()

	lat := 27.7
	c := New(srv.URL + "/v1/")
	out, err := c.CreateReview(context.Background(), "tok", reviews.Payload{
		Provider:   "google",
		ProviderID: "p1",
		Name:       "Momo House",
		Address:    "Thamel",
		Lat:        &lat,
		Rating:     4,
		Dishes:     []string{"Momo"},
	})
	require.NoError(t, err)
	require.JSONEq(t, `{"data":{"id":9}}`, string(out))

	require.Equal(t, http.MethodPost, gotMethod)
	require.Equal(t, "/v1/reviews", gotPath)
	require.Equal(t, "application/json", gotHeaders.Get("Content-Type"))
	require.Equal(t, "Bearer tok", gotHeaders.Get("Authorization"))
	require.NotEmpty(t, gotHeaders.Get("X-Request-ID"))

	require.Equal(t, "p1", gotBody["providerId"])
	require.Equal(t, 27.7, gotBody["lat"])
	require.NotContains(t, gotBody, "lng")
	require.Equal(t, "", gotBody["text"])
	require.Equal(t, []any{"Momo"}, gotBody["dishes"])
}

func TestCreateReviewErrorMessages(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"plain text body", 500, "Internal error", "Internal error"},
		{"json message", 400, `{"message":"Duplicate review"}`, "Duplicate review"},
		{"envelope", 409, `{"success":false,"message":"Duplicate review","status":409}`, "Duplicate review"},
		{"json without message", 422, `{"errors":["rating"]}`, "422 Unprocessable Entity"},
		{"json array", 400, `["nope"]`, "400 Bad Request"},
		{"empty body", 503, "", "503 Service Unavailable"},
		{"whitespace text body", 500, "   ", "   "},
		{"json blank message", 400, `{"message":"  "}`, "400 Bad Request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := New(srv.URL).CreateReview(context.Background(), "tok", reviews.Payload{Rating: 1, Dishes: []string{"x"}})
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			require.Equal(t, tt.status, apiErr.Status)
			require.Equal(t, tt.want, apiErr.Message)
		})
	}
}

func TestCreateReviewTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(url).CreateReview(context.Background(), "tok", reviews.Payload{})
	require.Error(t, err)
	var apiErr *APIError
	require.False(t, errors.As(err, &apiErr))
}

func TestFeed(t *testing.T) {
	var gotAuth, gotPaths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPaths = append(gotPaths, r.URL.Path)
		gotAuth = append(gotAuth, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[{"id":"1","userId":"2","userName":"Asha","restaurantId":"3","restaurantName":"R","restaurantAddress":"A","rating":4,"text":"","photoUrls":["a.jpg"],"createdAt":"2026-10-16T10:00:00Z"}]`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	items, err := c.Feed(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Asha", items[0].UserName)
	require.Equal(t, []string{"a.jpg"}, items[0].PhotoURLs)
	require.Nil(t, items[0].UserAvatar)

	_, err = c.Feed(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, []string{"Bearer tok", ""}, gotAuth)
	require.Equal(t, []string{"/reviews/feed", "/reviews/feed"}, gotPaths)
}

func TestFeedNullBodyIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`null`))
	}))
	defer srv.Close()

	items, err := New(srv.URL).Feed(context.Background(), "tok")
	require.NoError(t, err)
	require.NotNil(t, items)
	require.Empty(t, items)
}

func TestFeedMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Feed(context.Background(), "tok")
	require.ErrorIs(t, err, ErrMalformedBody)
}

func TestCreateReviewMalformedSuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`<html>created</html>`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).CreateReview(context.Background(), "tok", reviews.Payload{Rating: 1, Dishes: []string{"x"}})
	require.ErrorIs(t, err, ErrMalformedBody)
	var apiErr *APIError
	require.False(t, errors.As(err, &apiErr))
}
