package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"bitewise/internal/auth"
	"bitewise/internal/domain/reviews"
	"bitewise/internal/domain/storage"
	"bitewise/internal/domain/users"
	"bitewise/internal/editor"
	"bitewise/internal/feed"
	"bitewise/internal/ratelimiter"
	"bitewise/internal/reviewapi"

	"github.com/9ssi7/exponent"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type pushCapture struct {
	mu   sync.Mutex
	msgs []*exponent.Message
}

func (p *pushCapture) Publish(_ context.Context, msgs []*exponent.Message) ([]*exponent.MessageResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msgs...)
	return nil, nil
}

func (p *pushCapture) PublishSingle(ctx context.Context, msg *exponent.Message) ([]*exponent.MessageResponse, error) {
	return p.Publish(ctx, []*exponent.Message{msg})
}

func (p *pushCapture) Messages() []*exponent.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*exponent.Message(nil), p.msgs...)
}

type testApp struct {
	*application
	push *pushCapture
	jwt  *auth.JWTAuthenticator
}

func newTestApplication(t *testing.T, cfg config) *testApp {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	if cfg.rateLimiter.TimeFrame == 0 {
		cfg.rateLimiter = ratelimiter.Config{RequestsPerTimeFrame: 100, TimeFrame: time.Minute}
	}

	jwtAuth := auth.NewJWTAuthenticator("test-secret", "test-refresh", "bitewise", "bitewise")
	push := &pushCapture{}
	app := &application{
		config:        cfg,
		store:         storage.NewMemoryContainer(),
		logger:        zap.NewNop().Sugar(),
		authenticator: jwtAuth,
		push:          push,
		rateLimiter:   ratelimiter.NewFixedWindowLimiter(ctx, cfg.rateLimiter.RequestsPerTimeFrame, cfg.rateLimiter.TimeFrame),
	}
	return &testApp{application: app, push: push, jwt: jwtAuth}
}

func (a *testApp) newUser(t *testing.T, name string) (*users.User, string) {
	t.Helper()
	u := &users.User{FirstName: name}
	require.NoError(t, a.store.Users.Create(context.Background(), u))
	token, _, err := a.jwt.GenerateTokens(u.ID)
	require.NoError(t, err)
	return u, token
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	a.mount().ServeHTTP(rr, req)
	return rr
}

func errorBody(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env.Message
}

func samplePayload(dishes ...string) reviews.Payload {
	lat := 27.7172
	return reviews.Payload{
		Provider:   "google",
		ProviderID: "ChIJ-momo",
		Name:       "Momo House",
		Address:    "Thamel, Kathmandu",
		Lat:        &lat,
		Rating:     4,
		Dishes:     dishes,
	}
}

func TestHealth(t *testing.T) {
	app := newTestApplication(t, config{env: "test"})

	rr := app.do(t, http.MethodGet, "/v1/health", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"status":"ok"`)
}

func TestCreateReviewRequiresToken(t *testing.T) {
	app := newTestApplication(t, config{})

	rr := app.do(t, http.MethodPost, "/v1/reviews", "", samplePayload("Jhol momo"))
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = app.do(t, http.MethodPost, "/v1/reviews", "not-a-jwt", samplePayload("Jhol momo"))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestCreateReview(t *testing.T) {
	app := newTestApplication(t, config{})
	_, token := app.newUser(t, "Asha")

	rr := app.do(t, http.MethodPost, "/v1/reviews", token, samplePayload("Jhol momo", "Thukpa"))
	require.Equal(t, http.StatusCreated, rr.Code)

	var env struct {
		Data reviews.Review `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.NotZero(t, env.Data.ID)
	require.Equal(t, 4, env.Data.Rating)
	require.Equal(t, []string{"Jhol momo", "Thukpa"}, env.Data.Dishes)

	t.Run("duplicate review is a conflict", func(t *testing.T) {
		rr := app.do(t, http.MethodPost, "/v1/reviews", token, samplePayload("Sel roti"))
		require.Equal(t, http.StatusConflict, rr.Code)
		require.Equal(t, "Duplicate review", errorBody(t, rr))
	})
}

func TestCreateReviewValidation(t *testing.T) {
	app := newTestApplication(t, config{})
	_, token := app.newUser(t, "Asha")

	cases := map[string]reviews.Payload{
		"no dishes":     samplePayload(),
		"blank dish":    samplePayload("Jhol momo", "   "),
		"empty dish":    samplePayload(""),
		"no rating":     func() reviews.Payload { p := samplePayload("Thukpa"); p.Rating = 0; return p }(),
		"rating six":    func() reviews.Payload { p := samplePayload("Thukpa"); p.Rating = 6; return p }(),
		"no provider":   func() reviews.Payload { p := samplePayload("Thukpa"); p.Provider = ""; return p }(),
		"no restaurant": func() reviews.Payload { p := samplePayload("Thukpa"); p.Name = ""; return p }(),
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			rr := app.do(t, http.MethodPost, "/v1/reviews", token, payload)
			require.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestFeedShowsFollowedReviewers(t *testing.T) {
	app := newTestApplication(t, config{})
	author, authorToken := app.newUser(t, "Asha")
	_, friendToken := app.newUser(t, "Bikash")
	_, strangerToken := app.newUser(t, "Chandra")

	rr := app.do(t, http.MethodPut, "/v1/users/"+strconv.FormatInt(author.ID, 10)+"/follow", friendToken, nil)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = app.do(t, http.MethodPost, "/v1/users/push-tokens", friendToken, SavePushTokenRequest{Token: "ExponentPushToken[friend]"})
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = app.do(t, http.MethodPost, "/v1/reviews", authorToken, samplePayload("Jhol momo"))
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = app.do(t, http.MethodGet, "/v1/reviews/feed", friendToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var got []reviews.FeedReview
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got, 1)
	require.Equal(t, "Asha", got[0].UserName)
	require.Equal(t, "Momo House", got[0].RestaurantName)
	require.Equal(t, []string{"Jhol momo"}, got[0].Items)

	rr = app.do(t, http.MethodGet, "/v1/reviews/feed", strangerToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `[]`, rr.Body.String())

	rr = app.do(t, http.MethodGet, "/v1/reviews/"+got[0].ID, strangerToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	app.wg.Wait()
	msgs := app.push.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "Asha reviewed Momo House", msgs[0].Title)
	require.Equal(t, got[0].ID, msgs[0].Data["reviewId"])

	rr = app.do(t, http.MethodPut, "/v1/users/"+strconv.FormatInt(author.ID, 10)+"/unfollow", friendToken, nil)
	require.Equal(t, http.StatusNoContent, rr.Code)
	rr = app.do(t, http.MethodGet, "/v1/reviews/feed", friendToken, nil)
	require.JSONEq(t, `[]`, rr.Body.String())
}

func TestFollowErrors(t *testing.T) {
	app := newTestApplication(t, config{})
	me, token := app.newUser(t, "Asha")

	rr := app.do(t, http.MethodPut, "/v1/users/"+strconv.FormatInt(me.ID, 10)+"/follow", token, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = app.do(t, http.MethodPut, "/v1/users/9999/follow", token, nil)
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = app.do(t, http.MethodPut, "/v1/users/abc/follow", token, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetReviewNotFound(t *testing.T) {
	app := newTestApplication(t, config{})
	_, token := app.newUser(t, "Asha")

	rr := app.do(t, http.MethodGet, "/v1/reviews/42", token, nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRegisterAndRefresh(t *testing.T) {
	app := newTestApplication(t, config{})

	register := RegisterUserPayload{FirstName: "Asha", LastName: "Gurung", Email: "asha@example.com", Password: "momo-lover-42"}
	rr := app.do(t, http.MethodPost, "/v1/authentication/user", "", register)
	require.Equal(t, http.StatusCreated, rr.Code)

	var env struct {
		Data TokenResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.NotEmpty(t, env.Data.AccessToken)
	require.Equal(t, "1", env.Data.UserID)

	rr = app.do(t, http.MethodGet, "/v1/reviews/feed", env.Data.AccessToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = app.do(t, http.MethodPost, "/v1/authentication/refresh", "", map[string]string{"refresh_token": env.Data.RefreshToken})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = app.do(t, http.MethodPost, "/v1/authentication/refresh", "", map[string]string{"refresh_token": env.Data.AccessToken})
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = app.do(t, http.MethodPost, "/v1/authentication/user", "", RegisterUserPayload{FirstName: "Asha"})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = app.do(t, http.MethodPost, "/v1/authentication/user", "", register)
	require.Equal(t, http.StatusConflict, rr.Code)
}

func TestLogin(t *testing.T) {
	app := newTestApplication(t, config{})
	rr := app.do(t, http.MethodPost, "/v1/authentication/user", "",
		RegisterUserPayload{FirstName: "Asha", LastName: "Gurung", Email: "asha@example.com", Password: "momo-lover-42"})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = app.do(t, http.MethodPost, "/v1/authentication/token", "",
		CreateUserTokenPayload{Email: "ASHA@example.com", Password: "momo-lover-42"})
	require.Equal(t, http.StatusOK, rr.Code)
	var env struct {
		Data TokenResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.Equal(t, "1", env.Data.UserID)

	rr = app.do(t, http.MethodGet, "/v1/reviews/feed", env.Data.AccessToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = app.do(t, http.MethodPost, "/v1/authentication/token", "",
		CreateUserTokenPayload{Email: "asha@example.com", Password: "wrong-password"})
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = app.do(t, http.MethodPost, "/v1/authentication/token", "",
		CreateUserTokenPayload{Email: "nobody@example.com", Password: "momo-lover-42"})
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	// users created without a password cannot log in
	_, _ = app.newUser(t, "Bikash")
	u, err := app.store.Users.GetByID(context.Background(), 2)
	require.NoError(t, err)
	require.Error(t, u.Password.Compare(""))
}

func TestRateLimiter(t *testing.T) {
	app := newTestApplication(t, config{
		rateLimiter: ratelimiter.Config{RequestsPerTimeFrame: 2, TimeFrame: time.Minute, Enabled: true},
	})

	for i := 0; i < 2; i++ {
		rr := app.do(t, http.MethodGet, "/v1/health", "", nil)
		require.Equal(t, http.StatusOK, rr.Code)
	}
	rr := app.do(t, http.MethodGet, "/v1/health", "", nil)
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	require.NotEmpty(t, rr.Header().Get("Retry-After"))
}

// Drives the client-side submission and feed flows against the real router.
func TestEditorAndFeedAgainstServer(t *testing.T) {
	app := newTestApplication(t, config{})
	author, authorToken := app.newUser(t, "Asha")
	friend, friendToken := app.newUser(t, "Bikash")
	require.NoError(t, app.store.Followers.Follow(context.Background(), friend.ID, author.ID))

	srv := httptest.NewServer(app.mount())
	t.Cleanup(srv.Close)
	client := reviewapi.New(srv.URL + "/v1")

	var notices []editor.Notice
	backs := 0
	ed := editor.New(
		reviews.RestaurantRef{Provider: "google", ProviderID: "ChIJ-momo", Name: "Momo House"},
		auth.NewTokenSession(authorToken),
		client,
		editor.WithNotifier(editor.NotifierFunc(func(n editor.Notice) { notices = append(notices, n) })),
		editor.WithNavigator(navFunc(func() { backs++ })),
	)

	require.NoError(t, ed.UpdateDishSlot(0, "Jhol momo"))
	ed.AddDishSlot()
	ed.AddDishSlot()
	require.NoError(t, ed.UpdateDishSlot(2, "Thukpa"))
	require.NoError(t, ed.SetRating(5))
	require.NoError(t, ed.Submit(context.Background()))
	require.Equal(t, editor.Success, ed.State())
	require.True(t, ed.Acknowledge())
	require.Equal(t, 1, backs)

	t.Run("second review of the same restaurant is rejected", func(t *testing.T) {
		ed := editor.New(
			reviews.RestaurantRef{Provider: "google", ProviderID: "ChIJ-momo", Name: "Momo House"},
			auth.NewTokenSession(authorToken),
			client,
			editor.WithNotifier(editor.NotifierFunc(func(n editor.Notice) { notices = append(notices, n) })),
		)
		require.NoError(t, ed.UpdateDishSlot(0, "Sel roti"))
		require.NoError(t, ed.SetRating(3))
		err := ed.Submit(context.Background())

		var rejected *editor.ServerRejectedError
		require.ErrorAs(t, err, &rejected)
		require.Equal(t, http.StatusConflict, rejected.Status)
		require.Equal(t, editor.Editing, ed.State())
		require.Equal(t, "Duplicate review", notices[len(notices)-1].Message)
	})

	loader := feed.NewLoader(auth.NewTokenSession(friendToken), client)
	require.NoError(t, loader.Load(context.Background(), feed.Initial))
	require.Len(t, loader.Reviews(), 1)
	first := loader.Reviews()[0]
	card := feed.DefaultPresenter.Present(first, first.CreatedAt)
	require.Equal(t, "Momo House", card.Restaurant)
	require.Equal(t, "Today", card.Date)
	require.Equal(t, []string{"Jhol momo", "Thukpa"}, loader.Reviews()[0].Items)

	anon := feed.NewLoader(auth.NewTokenSession(""), client)
	err := anon.Load(context.Background(), feed.Initial)
	var apiErr *reviewapi.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)
	require.True(t, anon.IsEmpty())
}

type navFunc func()

func (f navFunc) GoBack() { f() }
