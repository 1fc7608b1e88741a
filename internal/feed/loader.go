// Package feed keeps the friends-feed screen in sync with the Review Service.
package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"bitewise/internal/auth"
	"bitewise/internal/domain/reviews"

	"go.uber.org/zap"
)

var (
	ErrClosed       = errors.New("feed loader closed")
	ErrNoSuchReview = errors.New("no review at that position")
)

type Mode int

const (
	// Initial shows a blank list with a spinner while loading.
	Initial Mode = iota
	// Refresh keeps the current list on screen while reloading.
	Refresh
)

func (m Mode) slot() int {
	if m == Refresh {
		return 1
	}
	return 0
}

func (m Mode) String() string {
	if m == Refresh {
		return "refresh"
	}
	return "initial"
}

type Phase int

const (
	Idle Phase = iota
	Loading
	Refreshing
	Loaded
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Refreshing:
		return "refreshing"
	case Loaded:
		return "loaded"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Fetcher is the part of the Review Service the loader needs.
type Fetcher interface {
	Feed(ctx context.Context, token string) ([]reviews.FeedReview, error)
}

// Navigator opens the detail screen of a review.
type Navigator interface {
	OpenReview(id string)
}

type Loader struct {
	mu         sync.Mutex
	items      []reviews.FeedReview
	loading    bool
	refreshing bool
	loadedOnce bool
	lastErr    error
	closed     bool

	// seq numbers every Load; latest holds the newest per mode and applied
	// the newest whose outcome is on screen.
	seq     uint64
	latest  [2]uint64
	applied uint64

	ctx    context.Context
	cancel context.CancelFunc

	sessions  auth.SessionProvider
	api       Fetcher
	navigator Navigator
	logger    *zap.SugaredLogger
}

type Option func(*Loader)

func WithNavigator(n Navigator) Option {
	return func(l *Loader) { l.navigator = n }
}

func WithLogger(lg *zap.SugaredLogger) Option {
	return func(l *Loader) { l.logger = lg }
}

func NewLoader(sessions auth.SessionProvider, api Fetcher, opts ...Option) *Loader {
	ctx, cancel := context.WithCancel(context.Background())
	l := &Loader{
		items:     []reviews.FeedReview{},
		ctx:       ctx,
		cancel:    cancel,
		sessions:  sessions,
		api:       api,
		navigator: nopNavigator{},
		logger:    zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load fetches the feed and replaces the held list on success. On failure the
// previous list stays in place and the error is kept in LastError; it is also
// returned, but a screen is expected to ignore it and keep showing stale data.
//
// Loads may overlap. A load that finishes after a newer one has already been
// applied is dropped, and a mode's spinner flag is cleared only by the newest
// load of that mode.
func (l *Loader) Load(ctx context.Context, mode Mode) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.seq++
	id := l.seq
	l.latest[mode.slot()] = id
	l.setFlag(mode, true)
	l.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(l.ctx, cancel)
	defer stop()

	items, err := l.fetch(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.latest[mode.slot()] == id {
		l.setFlag(mode, false)
	}
	if l.closed {
		return ErrClosed
	}
	if id < l.applied {
		l.logger.Debugw("dropping superseded feed load", "mode", mode.String(), "load", id, "applied", l.applied)
		return nil
	}
	l.applied = id
	if err != nil {
		l.lastErr = err
		l.logger.Errorw("feed load failed", "mode", mode.String(), "error", err)
		return err
	}
	l.items = items
	l.lastErr = nil
	l.loadedOnce = true
	l.logger.Infow("feed loaded", "mode", mode.String(), "reviews", len(items))
	return nil
}

func (l *Loader) fetch(ctx context.Context) ([]reviews.FeedReview, error) {
	token := ""
	sess, err := l.sessions.Session(ctx)
	switch {
	case err != nil:
		// not fatal here: the service decides what an anonymous caller sees
		l.logger.Warnw("feed session lookup failed", "error", err)
	case sess != nil:
		token = sess.AccessToken
	}

	items, err := l.api.Feed(ctx, token)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []reviews.FeedReview{}
	}
	return items, nil
}

// setFlag flips the spinner flag that belongs to mode; l.mu must be held.
func (l *Loader) setFlag(mode Mode, on bool) {
	if mode == Refresh {
		l.refreshing = on
		return
	}
	l.loading = on
}

// Reviews returns a copy of the list currently on screen.
func (l *Loader) Reviews() []reviews.FeedReview {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]reviews.FeedReview(nil), l.items...)
}

func (l *Loader) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loading
}

func (l *Loader) Refreshing() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.refreshing
}

// LastError is the failure of the most recent load, or nil if it succeeded.
func (l *Loader) LastError() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

// IsEmpty reports whether the empty state should be shown: a load has
// finished and there is nothing to display.
func (l *Loader) IsEmpty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.loading && len(l.items) == 0 && (l.loadedOnce || l.lastErr != nil)
}

func (l *Loader) Phase() Phase {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case l.loading:
		return Loading
	case l.refreshing:
		return Refreshing
	case l.loadedOnce || l.lastErr != nil:
		return Loaded
	default:
		return Idle
	}
}

// Open navigates to the review at index in the current list.
func (l *Loader) Open(index int) error {
	l.mu.Lock()
	if index < 0 || index >= len(l.items) {
		l.mu.Unlock()
		return ErrNoSuchReview
	}
	id := l.items[index].ID
	l.mu.Unlock()
	l.navigator.OpenReview(id)
	return nil
}

// Close tears the loader down; pending loads are cancelled and their results dropped.
func (l *Loader) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.cancel()
}

type nopNavigator struct{}

func (nopNavigator) OpenReview(string) {}
