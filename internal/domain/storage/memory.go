package storage

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"bitewise/internal/domain/followers"
	"bitewise/internal/domain/reviews"
	"bitewise/internal/domain/users"
)

// NewMemoryContainer returns a Container backed by process memory. It is used
// when no DB_ADDR is configured and by handler tests.
func NewMemoryContainer() *Container {
	m := &memDB{
		users:       make(map[int64]*users.User),
		restaurants: make(map[string]*memRestaurant),
		following:   make(map[int64]map[int64]bool),
		pushTokens:  make(map[int64]map[string]json.RawMessage),
		now:         time.Now,
	}
	rs := &memReviews{m}
	c := &Container{
		Users:      &memUsers{m},
		Reviews:    rs,
		Followers:  &memFollowers{m},
		PushTokens: &memPushTokens{m},
	}
	c.withTx = func(_ context.Context, fn func(s *ReviewsTx) error) error {
		return fn(&ReviewsTx{Reviews: rs})
	}
	return c
}

type memRestaurant struct {
	id  int64
	ref reviews.RestaurantRef
}

type memDB struct {
	mu          sync.RWMutex
	users       map[int64]*users.User
	restaurants map[string]*memRestaurant
	reviews     []reviews.Review
	following   map[int64]map[int64]bool // user_id -> follower_id set
	pushTokens  map[int64]map[string]json.RawMessage
	lastUserID  int64
	lastRestID  int64
	lastRevID   int64
	now         func() time.Time
}

type memUsers struct{ *memDB }

func (m *memUsers) GetByID(_ context.Context, userID int64) (*users.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, users.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*users.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email != "" && strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, users.ErrNotFound
}

func (m *memUsers) Create(_ context.Context, user *users.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.Email != "" {
		for _, u := range m.users {
			if strings.EqualFold(u.Email, user.Email) {
				return users.ErrDuplicateEmail
			}
		}
	}
	m.lastUserID++
	user.ID = m.lastUserID
	user.CreatedAt = m.now()
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

type memFollowers struct{ *memDB }

func (m *memFollowers) Follow(_ context.Context, followerID, userID int64) error {
	if followerID == userID {
		return followers.ErrSelfFollow
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		return followers.ErrUnknownUser
	}
	set, ok := m.following[userID]
	if !ok {
		set = make(map[int64]bool)
		m.following[userID] = set
	}
	set[followerID] = true
	return nil
}

func (m *memFollowers) Unfollow(_ context.Context, followerID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.following[userID], followerID)
	return nil
}

func (m *memFollowers) FollowerIDs(_ context.Context, userID int64) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]int64, 0, len(m.following[userID]))
	for id := range m.following[userID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type memPushTokens struct{ *memDB }

func (m *memPushTokens) AddOrUpdatePushToken(_ context.Context, userID int64, token string, deviceInfo json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.pushTokens[userID]
	if !ok {
		set = make(map[string]json.RawMessage)
		m.pushTokens[userID] = set
	}
	set[token] = deviceInfo
	return nil
}

func (m *memPushTokens) RemoveTokensByTokenList(_ context.Context, tokens []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, set := range m.pushTokens {
		for _, t := range tokens {
			delete(set, t)
		}
	}
	return nil
}

func (m *memPushTokens) GetTokensByUserIDs(_ context.Context, userIDs []int64) (map[int64][]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[int64][]string)
	for _, id := range userIDs {
		for t := range m.pushTokens[id] {
			result[id] = append(result[id], t)
		}
		sort.Strings(result[id])
	}
	return result, nil
}

type memReviews struct{ *memDB }

func (m *memReviews) UpsertRestaurant(_ context.Context, ref reviews.RestaurantRef) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := ref.Provider + "\x00" + ref.ProviderID
	if r, ok := m.restaurants[key]; ok {
		if ref.Lat == nil {
			ref.Lat = r.ref.Lat
		}
		if ref.Lng == nil {
			ref.Lng = r.ref.Lng
		}
		r.ref = ref
		return r.id, nil
	}
	m.lastRestID++
	m.restaurants[key] = &memRestaurant{id: m.lastRestID, ref: ref}
	return m.lastRestID, nil
}

func (m *memReviews) CreateReview(_ context.Context, review *reviews.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reviews {
		if r.UserID == review.UserID && r.RestaurantID == review.RestaurantID {
			return reviews.ErrConflict
		}
	}
	m.lastRevID++
	review.ID = m.lastRevID
	review.CreatedAt = m.now()
	review.UpdatedAt = review.CreatedAt
	m.reviews = append(m.reviews, *review)
	return nil
}

func (m *memReviews) GetFeed(_ context.Context, userID int64, limit int) ([]reviews.FeedReview, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 || limit > reviews.FeedLimit {
		limit = reviews.FeedLimit
	}
	feed := make([]reviews.FeedReview, 0)
	for i := len(m.reviews) - 1; i >= 0 && len(feed) < limit; i-- {
		r := m.reviews[i]
		if !m.following[r.UserID][userID] {
			continue
		}
		feed = append(feed, m.feedReview(r))
	}
	sort.SliceStable(feed, func(i, j int) bool { return feed[i].CreatedAt.After(feed[j].CreatedAt) })
	return feed, nil
}

func (m *memReviews) GetByID(_ context.Context, reviewID int64) (*reviews.FeedReview, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.reviews {
		if r.ID == reviewID {
			fr := m.feedReview(r)
			return &fr, nil
		}
	}
	return nil, reviews.ErrNotFound
}

// feedReview joins a stored review with its author and restaurant; callers hold mu.
func (m *memDB) feedReview(r reviews.Review) reviews.FeedReview {
	fr := reviews.FeedReview{
		ID:           strconv.FormatInt(r.ID, 10),
		UserID:       strconv.FormatInt(r.UserID, 10),
		RestaurantID: strconv.FormatInt(r.RestaurantID, 10),
		Rating:       r.Rating,
		Text:         r.Text,
		PhotoURLs:    r.PhotoURLs,
		Items:        r.Dishes,
		CreatedAt:    r.CreatedAt,
	}
	if u, ok := m.users[r.UserID]; ok {
		fr.UserName = u.FirstName
		fr.UserAvatar = u.ProfilePictureURL
	}
	for _, rest := range m.restaurants {
		if rest.id == r.RestaurantID {
			fr.RestaurantName = rest.ref.Name
			fr.RestaurantAddress = rest.ref.Address
			break
		}
	}
	return fr
}
