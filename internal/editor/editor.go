// Package editor holds the state of the review-creation screen: the dish
// list, the star rating and the submit flow that turns them into a POST
// /reviews call.
package editor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"bitewise/internal/auth"
	"bitewise/internal/domain/reviews"
	"bitewise/internal/reviewapi"

	"go.uber.org/zap"
)

type State int

const (
	Editing State = iota
	Validating
	Submitting
	Success
	Failed
)

func (s State) String() string {
	switch s {
	case Editing:
		return "editing"
	case Validating:
		return "validating"
	case Submitting:
		return "submitting"
	case Success:
		return "success"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ReviewCreator is the part of the Review Service the editor needs.
type ReviewCreator interface {
	CreateReview(ctx context.Context, token string, payload reviews.Payload) (json.RawMessage, error)
}

// Navigator receives the go-back signal once a successful submission is acknowledged.
type Navigator interface {
	GoBack()
}

type Editor struct {
	mu           sync.Mutex
	ref          reviews.RestaurantRef
	dishes       []string
	rating       int
	state        State
	submitting   bool
	acknowledged bool
	closed       bool
	pending      [][2]State

	ctx    context.Context
	cancel context.CancelFunc

	sessions  auth.SessionProvider
	api       ReviewCreator
	notifier  Notifier
	navigator Navigator
	observer  func(from, to State)
	logger    *zap.SugaredLogger
}

type Option func(*Editor)

func WithNotifier(n Notifier) Option {
	return func(e *Editor) { e.notifier = n }
}

func WithNavigator(n Navigator) Option {
	return func(e *Editor) { e.navigator = n }
}

// WithObserver registers a callback for every state transition. It runs
// outside the editor's lock.
func WithObserver(fn func(from, to State)) Option {
	return func(e *Editor) { e.observer = fn }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(e *Editor) { e.logger = l }
}

// New opens an editor for ref with a single empty dish slot and no rating.
func New(ref reviews.RestaurantRef, sessions auth.SessionProvider, api ReviewCreator, opts ...Option) *Editor {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Editor{
		ref:       ref,
		dishes:    []string{""},
		state:     Editing,
		ctx:       ctx,
		cancel:    cancel,
		sessions:  sessions,
		api:       api,
		notifier:  nopNotifier{},
		navigator: nopNavigator{},
		logger:    zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Editor) Restaurant() reviews.RestaurantRef {
	return e.ref
}

func (e *Editor) Dishes() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.dishes...)
}

func (e *Editor) Rating() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rating
}

func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Editor) IsSubmitting() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.submitting
}

// CanRemoveDish reports whether the remove control should be offered. It is
// hidden when exactly one slot remains.
func (e *Editor) CanRemoveDish() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.dishes) > 1
}

// AddDishSlot appends an empty slot. There is no upper bound.
func (e *Editor) AddDishSlot() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dishes = append(e.dishes, "")
}

// UpdateDishSlot stores text verbatim; trimming only happens on submit.
func (e *Editor) UpdateDishSlot(index int, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if index < 0 || index >= len(e.dishes) {
		return ErrSlotOutOfRange
	}
	e.dishes[index] = text
	return nil
}

// RemoveDishSlot deletes slot index. Removing the last slot is allowed here;
// keeping one row on screen is up to the caller (see CanRemoveDish).
func (e *Editor) RemoveDishSlot(index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if index < 0 || index >= len(e.dishes) {
		return ErrSlotOutOfRange
	}
	e.dishes = append(e.dishes[:index], e.dishes[index+1:]...)
	return nil
}

func (e *Editor) SetRating(value int) error {
	if value < 1 || value > 5 {
		return ErrRatingOutOfRange
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rating = value
	return nil
}

// Submit validates the draft and posts it. Every call that gets past the
// re-entrancy guard produces exactly one notice. On failure the draft is
// left untouched so the user can retry.
func (e *Editor) Submit(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if e.submitting {
		e.mu.Unlock()
		return ErrSubmitInProgress
	}
	if e.state == Success {
		e.mu.Unlock()
		return ErrAlreadySubmitted
	}

	e.transition(Validating)
	filled := reviews.FilterDishes(e.dishes)
	var invalid error
	switch {
	case len(filled) == 0:
		invalid = ErrEmptyDishList
	case e.rating == 0:
		invalid = ErrNoRating
	}
	if invalid != nil {
		e.transition(Editing)
		e.unlockAndFlush()
		e.notifier.Notify(validationNotice(invalid))
		return invalid
	}

	e.submitting = true
	e.transition(Submitting)
	payload := reviews.NewPayload(e.ref, e.rating, filled)
	e.unlockAndFlush()

	// the request dies with the caller's context or with the screen
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(e.ctx, cancel)
	defer stop()

	err := e.send(ctx, payload)

	e.mu.Lock()
	e.submitting = false
	if e.closed {
		e.mu.Unlock()
		e.logger.Infow("discarding review response after close", "restaurant", payload.ProviderID)
		return ErrClosed
	}
	if err != nil {
		e.transition(Failed)
		e.transition(Editing)
		e.unlockAndFlush()
		e.logger.Warnw("review submission failed", "restaurant", payload.ProviderID, "error", err)
		e.notifier.Notify(errorNotice(err))
		return err
	}
	e.acknowledged = false
	e.transition(Success)
	e.unlockAndFlush()
	e.logger.Infow("review submitted", "restaurant", payload.ProviderID, "dishes", len(payload.Dishes), "rating", payload.Rating)
	e.notifier.Notify(successNotice())
	return nil
}

func (e *Editor) send(ctx context.Context, payload reviews.Payload) error {
	sess, err := e.sessions.Session(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotAuthenticated, err)
	}
	if sess == nil || sess.AccessToken == "" {
		return ErrNotAuthenticated
	}

	// the created review is not needed; the feed picks it up on its next load
	if _, err := e.api.CreateReview(ctx, sess.AccessToken, payload); err != nil {
		var apiErr *reviewapi.APIError
		switch {
		case errors.As(err, &apiErr):
			return &ServerRejectedError{Status: apiErr.Status, Message: apiErr.Message}
		case errors.Is(err, reviewapi.ErrMalformedBody):
			// 2xx: the review exists even though the echoed body is unreadable
			e.logger.Warnw("review created with unreadable response", "restaurant", payload.ProviderID, "error", err)
			return nil
		}
		return &TransportError{Err: err}
	}
	return nil
}

// Acknowledge dismisses the success notice and navigates back. It reports
// whether the go-back signal was sent; only the first call after a
// successful submission sends it.
func (e *Editor) Acknowledge() bool {
	e.mu.Lock()
	if e.closed || e.state != Success || e.acknowledged {
		e.mu.Unlock()
		return false
	}
	e.acknowledged = true
	e.mu.Unlock()
	e.navigator.GoBack()
	return true
}

// Close tears the editor down. An in-flight submission is cancelled and its
// outcome is dropped.
func (e *Editor) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.cancel()
}

// transition records a state change; e.mu must be held.
func (e *Editor) transition(to State) {
	from := e.state
	e.state = to
	if e.observer != nil {
		e.pending = append(e.pending, [2]State{from, to})
	}
}

func (e *Editor) unlockAndFlush() {
	pending := e.pending
	e.pending = nil
	e.mu.Unlock()
	for _, t := range pending {
		e.observer(t[0], t[1])
	}
}

type nopNavigator struct{}

func (nopNavigator) GoBack() {}
