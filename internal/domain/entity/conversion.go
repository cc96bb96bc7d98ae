package entity

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Pair is one target currency with the amount to convert into it
type Pair struct {
	Currency string
	Amount   float64
}

// ConversionRequest is a validated, normalised conversion job
type ConversionRequest struct {
	Base  string
	Date  string
	Pairs []Pair
}

// NewConversionRequest validates raw input and builds a request. Codes are
// upper-cased and an empty date resolves to now's calendar day.
func NewConversionRequest(base string, currencies []string, amounts []float64, date string, now time.Time) (*ConversionRequest, error) {
	base = strings.ToUpper(strings.TrimSpace(base))
	if err := validateCode("base currency", base); err != nil {
		return nil, err
	}

	if date == "" {
		date = now.Format(DateLayout)
	} else if _, err := time.Parse(DateLayout, date); err != nil {
		return nil, &ValidationError{
			Field:  "date",
			Value:  date,
			Reason: "incorrect date format, should be YYYY-MM-DD",
		}
	}

	if len(currencies) == 0 {
		return nil, &ValidationError{Field: "currency", Reason: "at least one target currency is required"}
	}

	if len(currencies) > len(amounts) {
		return nil, &ValidationError{
			Field:  "amounts",
			Reason: fmt.Sprintf("more currencies supplied than amounts to convert (%d currencies, %d amounts)", len(currencies), len(amounts)),
		}
	}
	if len(amounts) > len(currencies) {
		return nil, &ValidationError{
			Field:  "amounts",
			Reason: fmt.Sprintf("more amounts supplied than currencies (%d currencies, %d amounts)", len(currencies), len(amounts)),
		}
	}

	pairs := make([]Pair, 0, len(currencies))
	for i, currency := range currencies {
		amount := amounts[i]
		if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
			return nil, &ValidationError{
				Field:  "amount",
				Value:  strconv.FormatFloat(amount, 'g', -1, 64),
				Reason: "a positive value was expected",
			}
		}

		currency = strings.ToUpper(strings.TrimSpace(currency))
		if err := validateCode("currency", currency); err != nil {
			return nil, err
		}

		pairs = append(pairs, Pair{Currency: currency, Amount: amount})
	}

	return &ConversionRequest{
		Base:  base,
		Date:  date,
		Pairs: pairs,
	}, nil
}

func validateCode(field, code string) error {
	if len(code) != 3 {
		return &ValidationError{Field: field, Value: code, Reason: "expected a 3-letter currency code"}
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return &ValidationError{Field: field, Value: code, Reason: "expected a 3-letter currency code"}
		}
	}
	return nil
}

// Conversion is the result of converting one pair
type Conversion struct {
	Amount    float64
	Base      string
	Currency  string
	Date      string
	Rate      float64
	Converted decimal.Decimal
	FromCache bool
}

// NewConversion multiplies amount by rate in decimal so results such as
// 10 x 1.1 come out as 11 rather than 11.000000000000002
func NewConversion(pair Pair, base, date string, rate float64, fromCache bool) Conversion {
	converted := decimal.NewFromFloat(pair.Amount).Mul(decimal.NewFromFloat(rate))

	return Conversion{
		Amount:    pair.Amount,
		Base:      base,
		Currency:  pair.Currency,
		Date:      date,
		Rate:      rate,
		Converted: converted,
		FromCache: fromCache,
	}
}

// String renders "{amount} {BASE} is {converted} {TARGET}"
func (c Conversion) String() string {
	return fmt.Sprintf("%s %s is %s %s",
		FormatNumber(decimal.NewFromFloat(c.Amount)),
		c.Base,
		FormatNumber(c.Converted),
		c.Currency)
}

// FormatNumber prints d in plain notation, keeping a ".0" on integral values
func FormatNumber(d decimal.Decimal) string {
	s := d.String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
