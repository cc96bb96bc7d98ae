package entity

// DateLayout is the only accepted date format for rates and requests
const DateLayout = "2006-01-02"

// RateRecord is one daily quote for a base currency, as returned by the rate
// service and stored in the cache
type RateRecord struct {
	Base  string             `json:"base"`
	Date  string             `json:"date"`
	Rates map[string]float64 `json:"rates"`
}

// RateFor returns the rate for target if the record carries it
func (r *RateRecord) RateFor(target string) (float64, bool) {
	if r == nil || r.Rates == nil {
		return 0, false
	}
	rate, ok := r.Rates[target]
	return rate, ok
}

// Matches reports whether the record answers a (base, target, date) lookup
func (r *RateRecord) Matches(base, target, date string) bool {
	if r == nil || r.Base != base || r.Date != date {
		return false
	}
	_, ok := r.Rates[target]
	return ok
}
