package monday

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
)

// Kind classifies a failed API call for retry purposes.
type Kind int

const (
	// KindTransient marks failures worth retrying: timeouts, connection
	// resets, rate limits, and server-side errors.
	KindTransient Kind = iota

	// KindFatal marks failures that will not succeed on retry: auth
	// errors, malformed queries, and other client errors.
	KindFatal
)

// TransientError is a retryable API failure.
type TransientError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("transient API error (%d): %s", e.StatusCode, e.Message)
	}
	return "transient API error: " + e.Message
}

func (e *TransientError) Unwrap() error { return e.Err }

// FatalError is a non-retryable API failure.
type FatalError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *FatalError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fatal API error (%d): %s", e.StatusCode, e.Message)
	}
	return "fatal API error: " + e.Message
}

func (e *FatalError) Unwrap() error { return e.Err }

// IsTransient reports whether err is classified as retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// rateLimitMarkers are substrings in response payloads that indicate
// server-side throttling even when the HTTP status is 200.
var rateLimitMarkers = []string{
	"rate limit",
	"ratelimited",
	"complexity budget exhausted",
	"too many requests",
}

// Classify maps a transport error, HTTP status, and response body onto the
// retry taxonomy. It is a pure function so the retry policy can be tested
// without a transport.
func Classify(err error, statusCode int, body string) Kind {
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
			return KindTransient
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return KindTransient
		}
		// Connection resets and other transport failures are retryable.
		return KindTransient
	}

	switch {
	case statusCode == http.StatusRequestTimeout,
		statusCode == http.StatusTooManyRequests,
		statusCode >= 500:
		return KindTransient
	case statusCode >= 400:
		return KindFatal
	}

	lowered := strings.ToLower(body)
	for _, marker := range rateLimitMarkers {
		if strings.Contains(lowered, marker) {
			return KindTransient
		}
	}

	return KindFatal
}
