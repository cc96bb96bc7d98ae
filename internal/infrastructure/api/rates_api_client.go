package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/damon-houk/rates/internal/domain/entity"
	"github.com/damon-houk/rates/internal/infrastructure/logger"
	"github.com/damon-houk/rates/internal/infrastructure/middleware"
)

const (
	// DefaultBaseURL is the public rate-quote endpoint
	DefaultBaseURL = "https://api.exchangeratesapi.io"
	// DefaultTimeout bounds a single quote request
	DefaultTimeout = 10 * time.Second

	maxResponseSize = 1 << 20
)

// RatesAPIClient fetches daily quotes from an exchangeratesapi-compatible service
type RatesAPIClient struct {
	baseURL    string
	accessKey  string
	httpClient *http.Client
	logger     logger.Logger
}

// NewRatesAPIClient creates a new rate service client. A nil httpClient gets
// a default one with a 10s timeout and request logging.
func NewRatesAPIClient(baseURL, accessKey string, httpClient *http.Client, log logger.Logger) *RatesAPIClient {
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   DefaultTimeout,
			Transport: middleware.NewLoggingTransport(nil, log),
		}
	}

	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &RatesAPIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		accessKey:  accessKey,
		httpClient: httpClient,
		logger:     log,
	}
}

// ratesResponse represents the success body of the rate service
type ratesResponse struct {
	Base  string             `json:"base"`
	Date  string             `json:"date"`
	Rates map[string]float64 `json:"rates"`
}

// serviceError represents the object form of the "error" key
type serviceError struct {
	Code    interface{} `json:"code"`
	Type    string      `json:"type"`
	Info    string      `json:"info"`
	Message string      `json:"message"`
}

// requestURL builds {baseURL}/{date}?base=..&symbols=..
func (c *RatesAPIClient) requestURL(base, target, date string) string {
	query := url.Values{}
	query.Set("base", base)
	query.Set("symbols", target)
	if c.accessKey != "" {
		query.Set("access_key", c.accessKey)
	}

	return fmt.Sprintf("%s/%s?%s", c.baseURL, url.PathEscape(date), query.Encode())
}

// FetchRates retrieves the rate of target against base on date
func (c *RatesAPIClient) FetchRates(ctx context.Context, base, target, date string) (*entity.RateRecord, error) {
	reqURL := c.requestURL(base, target, date)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &entity.TransportError{Op: "create rate request", Err: err}
	}

	// Add Accept header to ensure JSON response
	req.Header.Add("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &entity.TransportError{Op: "rate service request", Err: err}
	}

	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("Error closing response body", map[string]interface{}{
				"error": closeErr.Error(),
			})
		}
	}()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &entity.TransportError{Op: "read rate response", Err: err}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(bodyBytes, &fields); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, &entity.TransportError{
				Op:  "rate service request",
				Err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(bodyBytes), 200)),
			}
		}
		return nil, &entity.TransportError{Op: "decode rate response", Err: err}
	}

	// An error body wins over the status code
	if raw, ok := fields["error"]; ok {
		message := errorMessage(raw)
		c.logger.Warn("Rate service reported an error", map[string]interface{}{
			"base":    base,
			"target":  target,
			"date":    date,
			"status":  resp.StatusCode,
			"message": message,
		})
		return nil, &entity.RemoteServiceError{Message: message}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &entity.TransportError{
			Op:  "rate service request",
			Err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(bodyBytes), 200)),
		}
	}

	var ratesResp ratesResponse
	if err := json.Unmarshal(bodyBytes, &ratesResp); err != nil {
		return nil, &entity.TransportError{Op: "decode rate response", Err: err}
	}

	record, err := toRecord(&ratesResp, base, target, date)
	if err != nil {
		return nil, &entity.TransportError{Op: "decode rate response", Err: err}
	}

	if ratesResp.Date != date {
		c.logger.Info("Rate service answered with a different quote date", map[string]interface{}{
			"requested_date": date,
			"quote_date":     ratesResp.Date,
			"base":           base,
			"target":         target,
		})
	}

	return record, nil
}

// toRecord validates the success body. The record is keyed to the requested
// date so the next lookup for the same day hits the cache.
func toRecord(resp *ratesResponse, base, target, date string) (*entity.RateRecord, error) {
	if resp.Base != "" && !strings.EqualFold(resp.Base, base) {
		return nil, fmt.Errorf("response base %q does not match requested base %q", resp.Base, base)
	}

	rate, ok := resp.Rates[target]
	if !ok {
		return nil, fmt.Errorf("response carries no rate for %s", target)
	}

	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate <= 0 {
		return nil, fmt.Errorf("invalid exchange rate value for %s: %v", target, rate)
	}

	return &entity.RateRecord{
		Base:  base,
		Date:  date,
		Rates: resp.Rates,
	}, nil
}

// errorMessage extracts a human-readable message from the "error" value,
// which is a plain string on some deployments and an object on others
func errorMessage(raw json.RawMessage) string {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}

	var obj serviceError
	if err := json.Unmarshal(raw, &obj); err == nil {
		switch {
		case obj.Info != "":
			return obj.Info
		case obj.Message != "":
			return obj.Message
		case obj.Type != "":
			return obj.Type
		case obj.Code != nil:
			return fmt.Sprint(obj.Code)
		}
	}

	return string(raw)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
