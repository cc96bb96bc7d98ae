package cache

import (
	"context"
	"sync"

	"github.com/damon-houk/rates/internal/domain/entity"
)

// MemoryRateStore provides a thread-safe in-memory rate store
type MemoryRateStore struct {
	records []*entity.RateRecord
	appends int
	mutex   sync.RWMutex
}

// NewMemoryRateStore creates a store preloaded with records
func NewMemoryRateStore(records ...*entity.RateRecord) *MemoryRateStore {
	return &MemoryRateStore{
		records: append([]*entity.RateRecord(nil), records...),
	}
}

// Scan returns a snapshot of the stored records
func (s *MemoryRateStore) Scan(ctx context.Context) ([]*entity.RateRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return append([]*entity.RateRecord(nil), s.records...), nil
}

// Append stores a record at the end
func (s *MemoryRateStore) Append(ctx context.Context, record *entity.RateRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.records = append(s.records, record)
	s.appends++
	return nil
}

// Size returns the number of records in the store
func (s *MemoryRateStore) Size() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.records)
}

// Appends returns how many records were appended since creation or the last Clear
func (s *MemoryRateStore) Appends() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.appends
}

// Clear removes all records and resets the append count
func (s *MemoryRateStore) Clear() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.records = nil
	s.appends = 0
}
