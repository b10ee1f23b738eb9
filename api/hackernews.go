package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/withexxa/hn-whoshiring/models"
)

const (
	DefaultBaseURL = "https://hacker-news.firebaseio.com/v0"
	defaultTimeout = 60 * time.Second
)

// FetchError is returned when a single item or user request fails
type FetchError struct {
	ID         int
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Options configures a HackerNewsAPI client
type Options struct {
	BaseURL           string
	Timeout           time.Duration
	MaxInFlight       int     // <= 0 means one goroutine per id
	RequestsPerSecond float64 // <= 0 disables client-side limiting
}

// HackerNewsAPI represents a Hacker News API client
type HackerNewsAPI struct {
	baseURL     string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxInFlight int
	log         *logrus.Logger
}

// NewHackerNewsAPI creates a new Hacker News API client
func NewHackerNewsAPI(opts Options, log *logrus.Logger) *HackerNewsAPI {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &HackerNewsAPI{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		httpClient:  &http.Client{Timeout: opts.Timeout},
		limiter:     limiter,
		maxInFlight: opts.MaxInFlight,
		log:         log,
	}
}

// FetchItem fetches a single thread or comment by id
func (h *HackerNewsAPI) FetchItem(ctx context.Context, id int) (*models.Item, error) {
	endpoint := fmt.Sprintf("%s/item/%d.json", h.baseURL, id)

	body, err := h.get(ctx, id, endpoint)
	if err != nil {
		return nil, err
	}

	// the API answers "null" for ids that do not exist
	if bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		h.log.WithField("id", id).Warn("Item not found, recording it as deleted")
		return &models.Item{ID: id, Deleted: true}, nil
	}

	var item models.Item
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, &FetchError{ID: id, URL: endpoint, Err: fmt.Errorf("failed to decode item: %w", err)}
	}

	return &item, nil
}

// FetchUser fetches a user profile, including the ids of everything they submitted
func (h *HackerNewsAPI) FetchUser(ctx context.Context, name string) (*models.User, error) {
	endpoint := fmt.Sprintf("%s/user/%s.json", h.baseURL, name)

	body, err := h.get(ctx, 0, endpoint)
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, &FetchError{URL: endpoint, Err: fmt.Errorf("failed to decode user: %w", err)}
	}
	if user.ID == "" {
		return nil, &FetchError{URL: endpoint, Err: fmt.Errorf("user %s not found", name)}
	}

	h.log.WithFields(logrus.Fields{
		"user":      name,
		"submitted": len(user.Submitted),
	}).Info("Fetched user from Hacker News API")

	return &user, nil
}

func (h *HackerNewsAPI) get(ctx context.Context, id int, endpoint string) ([]byte, error) {
	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			return nil, &FetchError{ID: id, URL: endpoint, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &FetchError{ID: id, URL: endpoint, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{ID: id, URL: endpoint, Err: fmt.Errorf("failed to execute request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{ID: id, URL: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		h.log.WithFields(logrus.Fields{
			"url":           endpoint,
			"response_body": string(body),
			"status_code":   resp.StatusCode,
		}).Error("Hacker News API error response")
		return nil, &FetchError{ID: id, URL: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status")}
	}

	return body, nil
}
