// Package reviewapi talks to the Review Service over HTTP.
package reviewapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bitewise/internal/domain/reviews"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxBodyBytes = 1_048_578 //1mb

// ErrMalformedBody marks a 2xx answer whose body could not be decoded.
var ErrMalformedBody = errors.New("malformed response body")

// APIError is a non-2xx answer from the Review Service.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("review service: %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.SugaredLogger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Client) { c.logger = l }
}

// New returns a client for the service rooted at baseURL, e.g. http://localhost:8080/v1.
// No per-request timeout is applied beyond the caller's context unless the
// supplied http.Client sets one.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateReview posts a review. The decoded response body is returned as-is.
func (c *Client) CreateReview(ctx context.Context, token string, payload reviews.Payload) (json.RawMessage, error) {
	if payload.Dishes == nil {
		payload.Dishes = []string{}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("reviewapi.CreateReview: encode: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/reviews", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("reviewapi.CreateReview: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	var out json.RawMessage
	if err := c.do(req, &out); err != nil {
		return nil, fmt.Errorf("reviewapi.CreateReview: %w", err)
	}
	return out, nil
}

// Feed fetches the caller's friends feed. The token is optional.
func (c *Client) Feed(ctx context.Context, token string) ([]reviews.FeedReview, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/reviews/feed", nil)
	if err != nil {
		return nil, fmt.Errorf("reviewapi.Feed: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	var out []reviews.FeedReview
	if err := c.do(req, &out); err != nil {
		return nil, fmt.Errorf("reviewapi.Feed: %w", err)
	}
	if out == nil {
		out = []reviews.FeedReview{}
	}
	return out, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	start := time.Now()
	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	c.logger.Debugw("review service call",
		"method", req.Method,
		"path", req.URL.Path,
		"status", res.StatusCode,
		"request_id", req.Header.Get("X-Request-ID"),
		"elapsed", time.Since(start),
	)

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &APIError{Status: res.StatusCode, Message: errorMessage(res.StatusCode, raw)}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}
	return nil
}

// errorMessage picks the message to show for a failed call. A JSON body
// yields its "message" field, falling back to "<code> <status text>" when that
// is missing or blank. Any other body is the message as-is; only an empty body
// falls back.
func errorMessage(status int, raw []byte) string {
	fallback := fmt.Sprintf("%d %s", status, http.StatusText(status))
	if !json.Valid(raw) {
		if len(raw) == 0 {
			return fallback
		}
		return string(raw)
	}

	var body struct {
		Message string `json:"message"`
	}
	// a JSON body that is not an object carries no message
	_ = json.Unmarshal(raw, &body)
	if strings.TrimSpace(body.Message) == "" {
		return fallback
	}
	return body.Message
}
