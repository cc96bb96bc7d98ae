// Package db internal/infrastructure/db/logging_rate_store.go
package db

import (
	"context"
	"fmt"

	"github.com/damon-houk/rates/internal/domain/entity"
	"github.com/damon-houk/rates/internal/domain/repository"
	"github.com/damon-houk/rates/internal/infrastructure/logger"
)

// LoggingRateStore wraps a rate store and logs each operation
type LoggingRateStore struct {
	store  repository.RateStore
	logger logger.Logger
}

// NewLoggingRateStore creates a logging decorator around store
func NewLoggingRateStore(store repository.RateStore, log logger.Logger) *LoggingRateStore {
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &LoggingRateStore{
		store:  store,
		logger: log,
	}
}

// Scan delegates to the wrapped store
func (s *LoggingRateStore) Scan(ctx context.Context) ([]*entity.RateRecord, error) {
	records, err := s.store.Scan(ctx)
	if err != nil {
		s.logger.Error("Failed to scan rate cache", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, fmt.Errorf("failed to scan rate cache: %w", err)
	}

	s.logger.Debug("Scanned rate cache", map[string]interface{}{
		"records": len(records),
	})

	return records, nil
}

// Append delegates to the wrapped store
func (s *LoggingRateStore) Append(ctx context.Context, record *entity.RateRecord) error {
	s.logger.Debug("Appending rate record", map[string]interface{}{
		"base":  record.Base,
		"date":  record.Date,
		"rates": record.Rates,
	})

	if err := s.store.Append(ctx, record); err != nil {
		s.logger.Error("Failed to append rate record", map[string]interface{}{
			"base":  record.Base,
			"date":  record.Date,
			"error": err.Error(),
		})
		return fmt.Errorf("failed to append to rate cache: %w", err)
	}

	return nil
}

// Find uses the wrapped store's index when it has one and falls back to a
// first-match scan otherwise
func (s *LoggingRateStore) Find(ctx context.Context, base, target, date string) (*entity.RateRecord, error) {
	finder, ok := s.store.(repository.RateFinder)
	if !ok {
		records, err := s.Scan(ctx)
		if err != nil {
			return nil, err
		}
		return repository.FindFirst(records, base, target, date), nil
	}

	record, err := finder.Find(ctx, base, target, date)
	if err != nil {
		s.logger.Error("Failed to look up rate record", map[string]interface{}{
			"base":   base,
			"target": target,
			"date":   date,
			"error":  err.Error(),
		})
		return nil, fmt.Errorf("failed to look up rate cache: %w", err)
	}

	return record, nil
}
