package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/damon-houk/rates/internal/domain/entity"
	"github.com/dgraph-io/badger/v3"
)

const (
	recordPrefix = "rec:"
	indexPrefix  = "idx:"
	sequenceKey  = "meta:seq"

	sequenceBandwidth = 64
)

// BadgerRateStore implements the rate store interface using BadgerDB.
// Records live under zero-padded sequence keys so iteration follows append
// order; index keys point each (base, date, target) triple at the first record
// that carried it.
type BadgerRateStore struct {
	db     *badger.DB
	seq    *badger.Sequence
	ownsDB bool
}

// NewBadgerRateStore creates a rate store on an already open database
func NewBadgerRateStore(db *badger.DB) (*BadgerRateStore, error) {
	seq, err := db.GetSequence([]byte(sequenceKey), sequenceBandwidth)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire record sequence: %w", err)
	}

	return &BadgerRateStore{db: db, seq: seq}, nil
}

// OpenBadgerRateStore opens (or creates) a database in dir and returns a store
// that closes it on Close
func OpenBadgerRateStore(dir string) (*BadgerRateStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	badgerOpts := badger.DefaultOptions(dir)
	badgerOpts.Logger = nil // Disable Badger's default logger

	badgerDB, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store, err := NewBadgerRateStore(badgerDB)
	if err != nil {
		badgerDB.Close()
		return nil, err
	}
	store.ownsDB = true

	return store, nil
}

// Close releases the sequence lease and, when the store opened the database
// itself, closes it
func (s *BadgerRateStore) Close() error {
	err := s.seq.Release()
	if s.ownsDB {
		if closeErr := s.db.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}

func recordKey(n uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", recordPrefix, n))
}

func indexKey(base, date, target string) []byte {
	return []byte(indexPrefix + base + ":" + date + ":" + target)
}

// Append stores the record and indexes any triple not already indexed
func (s *BadgerRateStore) Append(ctx context.Context, record *entity.RateRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal rate record: %w", err)
	}

	n, err := s.seq.Next()
	if err != nil {
		return fmt.Errorf("failed to allocate record key: %w", err)
	}
	key := recordKey(n)

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, data); err != nil {
			return err
		}

		for target := range record.Rates {
			ik := indexKey(record.Base, record.Date, target)
			_, err := txn.Get(ik)
			if errors.Is(err, badger.ErrKeyNotFound) {
				if err := txn.Set(ik, key); err != nil {
					return err
				}
				continue
			}
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return fmt.Errorf("failed to store rate record: %w", err)
	}

	return nil
}

// Scan returns every record in append order
func (s *BadgerRateStore) Scan(ctx context.Context) ([]*entity.RateRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var records []*entity.RateRecord

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(recordPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var record entity.RateRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			})
			if err != nil {
				return err
			}
			records = append(records, &record)
		}
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to scan rate records: %w", err)
	}

	return records, nil
}

// Find resolves a triple through the index. A miss returns nil, nil.
func (s *BadgerRateStore) Find(ctx context.Context, base, target, date string) (*entity.RateRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var record *entity.RateRecord

	err := s.db.View(func(txn *badger.Txn) error {
		idx, err := txn.Get(indexKey(base, date, target))
		if err != nil {
			return err
		}

		key, err := idx.ValueCopy(nil)
		if err != nil {
			return err
		}

		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			record = &entity.RateRecord{}
			return json.Unmarshal(val, record)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to look up rate record: %w", err)
	}

	return record, nil
}
