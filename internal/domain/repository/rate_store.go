// Package repository internal/domain/repository/rate_store.go
package repository

import (
	"context"

	"github.com/damon-houk/rates/internal/domain/entity"
)

// RateStore defines the append-only cache of rate records
type RateStore interface {
	// Scan returns every stored record in the order it was appended
	Scan(ctx context.Context) ([]*entity.RateRecord, error)

	// Append adds a record to the end of the store
	Append(ctx context.Context, record *entity.RateRecord) error
}

// RateFinder is implemented by stores that can answer a lookup without a full
// scan. Find must return the same record a first-match scan would, or nil
// when there is none.
type RateFinder interface {
	Find(ctx context.Context, base, target, date string) (*entity.RateRecord, error)
}

// FindFirst performs the reference lookup: the first record in append order
// that carries the (base, target, date) triple
func FindFirst(records []*entity.RateRecord, base, target, date string) *entity.RateRecord {
	for _, record := range records {
		if record.Matches(base, target, date) {
			return record
		}
	}
	return nil
}
