// internal/infrastructure/api/rates_api_client_test.go
package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/damon-houk/rates/internal/domain/entity"
	"github.com/damon-houk/rates/internal/infrastructure/api/apitest"
	"github.com/damon-houk/rates/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL, accessKey string) *RatesAPIClient {
	return NewRatesAPIClient(baseURL, accessKey, nil, logger.NewJSONLogger(nil, logger.ErrorLevel))
}

func TestFetchRates(t *testing.T) {
	server := apitest.NewQuoteServer()
	defer server.Close()
	server.SetRate("EUR", "2021-06-01", "USD", 1.2)

	client := newTestClient(server.URL, "")
	ctx := context.Background()

	record, err := client.FetchRates(ctx, "EUR", "USD", "2021-06-01")
	require.NoError(t, err)

	assert.Equal(t, &entity.RateRecord{
		Base:  "EUR",
		Date:  "2021-06-01",
		Rates: map[string]float64{"USD": 1.2},
	}, record)
	assert.Equal(t, 1, server.Calls())
}

func TestFetchRatesRequestShape(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2020-01-01", r.URL.Path)
		assert.Equal(t, "EUR", r.URL.Query().Get("base"))
		assert.Equal(t, "USD", r.URL.Query().Get("symbols"))
		assert.Equal(t, "k3y", r.URL.Query().Get("access_key"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"base":"EUR","date":"2020-01-01","rates":{"USD":1.1}}`))
	}))
	defer mockServer.Close()

	client := newTestClient(mockServer.URL+"/", "k3y")
	record, err := client.FetchRates(context.Background(), "EUR", "USD", "2020-01-01")
	require.NoError(t, err)
	assert.Equal(t, 1.1, record.Rates["USD"])
}

func TestFetchRatesServiceErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("String error body", func(t *testing.T) {
		server := apitest.NewQuoteServer()
		defer server.Close()

		_, err := newTestClient(server.URL, "").FetchRates(ctx, "EUR", "XYZ", "2020-01-01")

		var rErr *entity.RemoteServiceError
		require.True(t, errors.As(err, &rErr))
		assert.Equal(t, "Symbols 'XYZ' are invalid for date 2020-01-01.", rErr.Message)
	})

	t.Run("Object error body", func(t *testing.T) {
		server := apitest.NewQuoteServer()
		defer server.Close()
		server.SetRate("EUR", "2020-01-01", "USD", 1.1)
		server.RequireAccessKey("right")

		_, err := newTestClient(server.URL, "wrong").FetchRates(ctx, "EUR", "USD", "2020-01-01")

		var rErr *entity.RemoteServiceError
		require.True(t, errors.As(err, &rErr))
		assert.Equal(t, "You have not supplied a valid API Access Key.", rErr.Message)

		record, err := newTestClient(server.URL, "right").FetchRates(ctx, "EUR", "USD", "2020-01-01")
		require.NoError(t, err)
		assert.Equal(t, 1.1, record.Rates["USD"])
	})

	t.Run("Error body with 200 status", func(t *testing.T) {
		server := apitest.NewQuoteServer()
		defer server.Close()
		server.FailWith(http.StatusOK, "base 'ABC' is not supported.")

		_, err := newTestClient(server.URL, "").FetchRates(ctx, "ABC", "USD", "2020-01-01")

		var rErr *entity.RemoteServiceError
		require.True(t, errors.As(err, &rErr))
		assert.EqualError(t, err, "rate service error: base 'ABC' is not supported.")
	})
}

func TestFetchRatesTransportErrors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"Server error without body", http.StatusBadGateway, "bad gateway", "unexpected status 502"},
		{"Undecodable success body", http.StatusOK, "<html>", "decode rate response"},
		{"Missing target", http.StatusOK, `{"base":"EUR","date":"2020-01-01","rates":{"GBP":0.9}}`, "no rate for USD"},
		{"Non-positive rate", http.StatusOK, `{"base":"EUR","date":"2020-01-01","rates":{"USD":0}}`, "invalid exchange rate"},
		{"Wrong base", http.StatusOK, `{"base":"USD","date":"2020-01-01","rates":{"USD":1}}`, "does not match"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer mockServer.Close()

			_, err := newTestClient(mockServer.URL, "").FetchRates(ctx, "EUR", "USD", "2020-01-01")

			var tErr *entity.TransportError
			require.True(t, errors.As(err, &tErr), "expected TransportError, got %v", err)
			assert.Contains(t, err.Error(), tc.message)
		})
	}

	t.Run("Connection failure", func(t *testing.T) {
		mockServer := httptest.NewServer(http.NotFoundHandler())
		url := mockServer.URL
		mockServer.Close()

		_, err := newTestClient(url, "").FetchRates(ctx, "EUR", "USD", "2020-01-01")

		var tErr *entity.TransportError
		require.True(t, errors.As(err, &tErr))
		assert.Equal(t, "rate service request", tErr.Op)
	})

	t.Run("Timeout", func(t *testing.T) {
		mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer mockServer.Close()

		client := NewRatesAPIClient(mockServer.URL, "", &http.Client{Timeout: 20 * time.Millisecond}, nil)
		_, err := client.FetchRates(ctx, "EUR", "USD", "2020-01-01")

		var tErr *entity.TransportError
		assert.True(t, errors.As(err, &tErr))
	})
}

func TestFetchRatesKeysRecordToRequestedDate(t *testing.T) {
	server := apitest.NewQuoteServer()
	defer server.Close()
	server.SetRate("EUR", "2020-01-04", "USD", 1.1147)
	server.AnswerDate("2020-01-04", "2020-01-03")

	record, err := newTestClient(server.URL, "").FetchRates(context.Background(), "EUR", "USD", "2020-01-04")
	require.NoError(t, err)
	assert.Equal(t, "2020-01-04", record.Date)
}
