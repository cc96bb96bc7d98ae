// Package apitest provides an in-process fake of the rate-quote service.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gorilla/mux"
)

// QuoteServer serves GET /{date}?base=..&symbols=.. from canned rates
type QuoteServer struct {
	*httptest.Server

	mu          sync.Mutex
	calls       int
	rates       map[string]map[string]map[string]float64
	answerDates map[string]string
	failure     interface{}
	failStatus  int
	accessKey   string
}

// NewQuoteServer starts a fake quote service. Close it when done.
func NewQuoteServer() *QuoteServer {
	s := &QuoteServer{
		rates:       make(map[string]map[string]map[string]float64),
		answerDates: make(map[string]string),
	}

	router := mux.NewRouter()
	router.HandleFunc("/{date}", s.handleRates).
		Methods(http.MethodGet).
		Queries("base", "{base}", "symbols", "{symbols}")

	s.Server = httptest.NewServer(router)
	return s
}

// SetRate registers the rate of target against base on date
func (s *QuoteServer) SetRate(base, date, target string, rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rates[base] == nil {
		s.rates[base] = make(map[string]map[string]float64)
	}
	if s.rates[base][date] == nil {
		s.rates[base][date] = make(map[string]float64)
	}
	s.rates[base][date][target] = rate
}

// AnswerDate makes the server report quoteDate when asked for requested, the
// way the real service reports the last business day for weekends
func (s *QuoteServer) AnswerDate(requested, quoteDate string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.answerDates[requested] = quoteDate
}

// FailWith makes every request return status with {"error": payload}
func (s *QuoteServer) FailWith(status int, payload interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failStatus = status
	s.failure = payload
}

// RequireAccessKey rejects requests without access_key=key
func (s *QuoteServer) RequireAccessKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accessKey = key
}

// Calls returns the number of rate requests served
func (s *QuoteServer) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls
}

func (s *QuoteServer) handleRates(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++

	vars := mux.Vars(r)
	date, base, symbol := vars["date"], vars["base"], vars["symbols"]

	if s.failure != nil {
		writeJSON(w, s.failStatus, map[string]interface{}{"error": s.failure})
		return
	}

	if s.accessKey != "" && r.URL.Query().Get("access_key") != s.accessKey {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
			"error": map[string]interface{}{
				"code": 101,
				"type": "invalid_access_key",
				"info": "You have not supplied a valid API Access Key.",
			},
		})
		return
	}

	rate, ok := s.rates[base][date][symbol]
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": "Symbols '" + symbol + "' are invalid for date " + date + ".",
		})
		return
	}

	quoteDate := date
	if answer, ok := s.answerDates[date]; ok {
		quoteDate = answer
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"base":  base,
		"date":  quoteDate,
		"rates": map[string]float64{symbol: rate},
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
