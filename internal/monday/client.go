package monday

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the monday.com GraphQL endpoint.
const DefaultBaseURL = "https://api.monday.com/v2"

const apiVersion = "2024-01"

// Client is a thin GraphQL client for the monday.com v2 API. It handles
// token authentication, JSON marshaling, transient-error classification,
// and automatic retry with exponential backoff.
type Client struct {
	baseURL        string
	token          string
	httpClient     *http.Client
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, used in tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMaxRetries sets the number of retries after the first attempt.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithBackoff sets the initial and maximum backoff delays.
func WithBackoff(initial, max time.Duration) Option {
	return func(c *Client) {
		c.initialBackoff = initial
		c.maxBackoff = max
	}
}

// NewClient creates a monday.com API client authenticated with the given
// token.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries:     3,
		initialBackoff: time.Second,
		maxBackoff:     30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Query executes a GraphQL query and unmarshals the data payload into
// result. Transient failures are retried with exponential backoff; fatal
// failures return immediately.
func (c *Client) Query(
	ctx context.Context,
	query string,
	variables map[string]interface{},
	result interface{},
) error {
	payload := map[string]interface{}{"query": query}
	if len(variables) > 0 {
		payload["variables"] = variables
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling query: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := c.wait(ctx, c.backoffDelay(attempt, lastErr)); err != nil {
				return err
			}
		}

		data, err := c.post(ctx, body)
		if err == nil {
			if result == nil {
				return nil
			}
			if err := json.Unmarshal(data, result); err != nil {
				return &FatalError{
					Message: "unmarshaling response: " + err.Error(),
					Err:     err,
				}
			}
			return nil
		}

		if !IsTransient(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

// retryAfterError carries a server-requested wait alongside a transient
// error.
type retryAfterError struct {
	*TransientError
	wait time.Duration
}

func (e *retryAfterError) Unwrap() error { return e.TransientError }

// post performs a single request attempt and classifies any failure.
func (c *Client) post(ctx context.Context, body []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL, bytes.NewReader(body),
	)
	if err != nil {
		return nil, &FatalError{Message: "creating request: " + err.Error(), Err: err}
	}

	req.Header.Set("Authorization", c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("API-Version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransientError{Message: err.Error(), Err: err}
	}

	respBody, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return nil, &TransientError{Message: "reading response: " + readErr.Error(), Err: readErr}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(respBody))
		if len(msg) > 200 {
			msg = msg[:200]
		}
		if resp.StatusCode == http.StatusUnauthorized ||
			resp.StatusCode == http.StatusForbidden {
			return nil, &FatalError{
				StatusCode: resp.StatusCode,
				Message:    "authentication failed: check the API token",
			}
		}
		if Classify(nil, resp.StatusCode, msg) == KindTransient {
			te := &TransientError{StatusCode: resp.StatusCode, Message: msg}
			if wait := retryAfterHeader(resp); wait > 0 {
				return nil, &retryAfterError{TransientError: te, wait: wait}
			}
			return nil, te
		}
		return nil, &FatalError{StatusCode: resp.StatusCode, Message: msg}
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, &FatalError{Message: "unmarshaling envelope: " + err.Error(), Err: err}
	}

	if env.ErrorMessage != "" {
		return nil, classifyPayloadError(env.ErrorMessage)
	}
	if len(env.Errors) > 0 {
		msgs := make([]string, 0, len(env.Errors))
		for _, e := range env.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, classifyPayloadError(strings.Join(msgs, "; "))
	}

	return env.Data, nil
}

// classifyPayloadError maps an error reported inside a 200 response onto
// the retry taxonomy. Rate-limit text is transient; everything else (bad
// query, unknown field) is fatal.
func classifyPayloadError(msg string) error {
	if Classify(nil, 0, msg) == KindTransient {
		return &TransientError{Message: msg}
	}
	return &FatalError{Message: msg}
}

// backoffDelay computes the wait before the given attempt, honoring a
// server-requested Retry-After when present on the last error.
func (c *Client) backoffDelay(attempt int, lastErr error) time.Duration {
	if rae, ok := lastErr.(*retryAfterError); ok && rae.wait > 0 {
		return rae.wait
	}

	delay := c.initialBackoff
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	if delay > c.maxBackoff {
		delay = c.maxBackoff
	}
	return delay
}

// wait sleeps for d, aborting early if ctx is canceled.
func (c *Client) wait(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// retryAfterHeader reads the Retry-After header in seconds.
func retryAfterHeader(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// CollectPages repeatedly invokes fetch with the cursor returned by the
// previous page until the server returns no cursor, accumulating all
// items. The first call passes an empty cursor.
func CollectPages(
	ctx context.Context,
	fetch func(ctx context.Context, cursor string) (*ItemsPage, error),
) ([]Item, error) {
	var all []Item
	cursor := ""

	for {
		page, err := fetch(ctx, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Items...)

		if page.Cursor == "" {
			return all, nil
		}
		cursor = page.Cursor
	}
}
