// Package service internal/application/service/conversion_service.go
package service

import (
	"context"
	"fmt"
	"io"

	"github.com/damon-houk/rates/internal/domain/entity"
	"github.com/damon-houk/rates/internal/domain/repository"
	domainservice "github.com/damon-houk/rates/internal/domain/service"
	"github.com/damon-houk/rates/internal/infrastructure/logger"
	"github.com/damon-houk/rates/internal/infrastructure/middleware"
)

// ConversionService converts amounts using cached or freshly fetched rates
type ConversionService struct {
	store    repository.RateStore
	provider domainservice.RateProvider
	logger   logger.Logger
}

// NewConversionService creates a new conversion service
func NewConversionService(store repository.RateStore, provider domainservice.RateProvider, log logger.Logger) *ConversionService {
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &ConversionService{
		store:    store,
		provider: provider,
		logger:   log,
	}
}

// Convert resolves each pair in order and writes one result line per pair to
// out. The first error stops the run; lines already written stay written and
// the conversions completed so far are returned with the error.
func (s *ConversionService) Convert(ctx context.Context, req *entity.ConversionRequest, out io.Writer) ([]entity.Conversion, error) {
	runID := middleware.GetRunID(ctx)

	s.logger.Debug("Converting amounts", map[string]interface{}{
		"run_id": runID,
		"base":   req.Base,
		"date":   req.Date,
		"pairs":  len(req.Pairs),
	})

	conversions := make([]entity.Conversion, 0, len(req.Pairs))

	for _, pair := range req.Pairs {
		rate, fromCache, err := s.ResolveRate(ctx, req.Base, pair.Currency, req.Date)
		if err != nil {
			return conversions, err
		}

		conversion := entity.NewConversion(pair, req.Base, req.Date, rate, fromCache)

		if out != nil {
			if _, err := fmt.Fprintln(out, conversion.String()); err != nil {
				return conversions, fmt.Errorf("failed to write result: %w", err)
			}
		}

		s.logger.Debug("Conversion completed", map[string]interface{}{
			"run_id":           runID,
			"base":             req.Base,
			"currency":         pair.Currency,
			"original_amount":  pair.Amount,
			"exchange_rate":    rate,
			"converted_amount": conversion.Converted.String(),
			"from_cache":       fromCache,
		})

		conversions = append(conversions, conversion)
	}

	return conversions, nil
}

// ResolveRate returns the rate of target against base on date, reporting
// whether it came from the cache. A miss fetches the rate and appends the
// fetched record to the cache.
func (s *ConversionService) ResolveRate(ctx context.Context, base, target, date string) (float64, bool, error) {
	runID := middleware.GetRunID(ctx)

	record, err := s.lookup(ctx, base, target, date)
	if err != nil {
		return 0, false, fmt.Errorf("failed to read rate cache: %w", err)
	}

	if record != nil {
		rate, _ := record.RateFor(target)
		s.logger.Info("Found in cache", map[string]interface{}{
			"run_id": runID,
			"base":   base,
			"target": target,
			"date":   date,
			"rate":   rate,
		})
		return rate, true, nil
	}

	s.logger.Debug("Cache miss, fetching rate", map[string]interface{}{
		"run_id": runID,
		"base":   base,
		"target": target,
		"date":   date,
	})

	record, err = s.provider.FetchRates(ctx, base, target, date)
	if err != nil {
		s.logger.Error("Failed to get exchange rate", map[string]interface{}{
			"run_id": runID,
			"base":   base,
			"target": target,
			"date":   date,
			"error":  err.Error(),
		})
		return 0, false, fmt.Errorf("failed to get exchange rate for %s/%s on %s: %w", base, target, date, err)
	}

	rate, ok := record.RateFor(target)
	if !ok {
		return 0, false, &entity.TransportError{
			Op:  "decode rate response",
			Err: fmt.Errorf("response carries no rate for %s", target),
		}
	}

	if err := s.store.Append(ctx, record); err != nil {
		return 0, false, fmt.Errorf("failed to write rate cache: %w", err)
	}

	return rate, false, nil
}

// lookup prefers an indexed store and otherwise scans from the first record
func (s *ConversionService) lookup(ctx context.Context, base, target, date string) (*entity.RateRecord, error) {
	if finder, ok := s.store.(repository.RateFinder); ok {
		return finder.Find(ctx, base, target, date)
	}

	records, err := s.store.Scan(ctx)
	if err != nil {
		return nil, err
	}

	return repository.FindFirst(records, base, target, date), nil
}
