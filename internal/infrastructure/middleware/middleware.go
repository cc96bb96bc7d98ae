// internal/infrastructure/middleware/middleware.go
package middleware

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/damon-houk/rates/internal/infrastructure/logger"
	"github.com/google/uuid"
)

// Keys for context values
type contextKey string

const (
	runIDKey contextKey = "run_id"

	// RequestIDHeader carries the run ID on outgoing requests
	RequestIDHeader = "X-Request-ID"
)

// NewRunID generates an identifier for one invocation
func NewRunID() string {
	return uuid.New().String()
}

// WithRunID stores the run ID in ctx
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// GetRunID retrieves the run ID from context
func GetRunID(ctx context.Context) string {
	runID, ok := ctx.Value(runIDKey).(string)
	if !ok || runID == "" {
		return "unknown"
	}
	return runID
}

// LoggingTransport logs outgoing requests and tags them with the run ID
type LoggingTransport struct {
	next   http.RoundTripper
	logger logger.Logger
}

// NewLoggingTransport wraps next, defaulting to http.DefaultTransport
func NewLoggingTransport(next http.RoundTripper, log logger.Logger) *LoggingTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &LoggingTransport{
		next:   next,
		logger: log,
	}
}

// RoundTrip implements http.RoundTripper
func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	startTime := time.Now()

	// RoundTrippers must not modify the caller's request
	out := req.Clone(req.Context())

	runID, ok := req.Context().Value(runIDKey).(string)
	if !ok || runID == "" {
		runID = NewRunID()
	}
	if out.Header.Get(RequestIDHeader) == "" {
		out.Header.Set(RequestIDHeader, runID)
	}

	t.logger.Debug("Request sent", map[string]interface{}{
		"run_id": runID,
		"method": out.Method,
		"url":    RedactURL(out.URL),
	})

	resp, err := t.next.RoundTrip(out)
	duration := time.Since(startTime)

	if err != nil {
		t.logger.Error("Request failed", map[string]interface{}{
			"run_id":      runID,
			"method":      out.Method,
			"url":         RedactURL(out.URL),
			"duration_ms": duration.Milliseconds(),
			"error":       err.Error(),
		})
		return nil, err
	}

	t.logger.Debug("Response received", map[string]interface{}{
		"run_id":         runID,
		"method":         out.Method,
		"url":            RedactURL(out.URL),
		"status":         resp.StatusCode,
		"duration_ms":    duration.Milliseconds(),
		"content_type":   resp.Header.Get("Content-Type"),
		"content_length": resp.ContentLength,
	})

	return resp, nil
}

// RedactURL hides credentials carried in the query string
func RedactURL(u *url.URL) string {
	if u == nil {
		return ""
	}

	query := u.Query()
	if query.Get("access_key") == "" {
		return u.String()
	}

	query.Set("access_key", "REDACTED")
	redacted := *u
	redacted.RawQuery = query.Encode()
	return redacted.String()
}
