package service

import (
	"context"

	"github.com/damon-houk/rates/internal/domain/entity"
)

// RateProvider defines the interface for the remote rate-quote service
type RateProvider interface {
	// FetchRates retrieves the rate of target against base on date. The
	// returned record carries at least the requested target.
	FetchRates(ctx context.Context, base, target, date string) (*entity.RateRecord, error)
}
