package cache

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/damon-houk/rates/internal/domain/entity"
)

const maxLineSize = 1 << 20

// FileRateStore keeps rate records in a plain text file, one JSON object per
// line. The file is opened for each operation, so concurrent processes sharing
// it are not coordinated.
type FileRateStore struct {
	path  string
	mutex sync.Mutex
}

// NewFileRateStore creates a store backed by the file at path. The file is
// created on first use.
func NewFileRateStore(path string) *FileRateStore {
	return &FileRateStore{path: path}
}

// Scan reads every record from the start of the file
func (s *FileRateStore) Scan(ctx context.Context) ([]*entity.RateRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	f, err := os.OpenFile(s.path, os.O_RDONLY|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache file: %w", err)
	}
	defer f.Close()

	var records []*entity.RateRecord

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var record entity.RateRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, fmt.Errorf("failed to parse cache file %s line %d: %w", s.path, lineNo, err)
		}
		records = append(records, &record)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	return records, nil
}

// Append writes the record as a new line at the end of the file
func (s *FileRateStore) Append(ctx context.Context, record *entity.RateRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal rate record: %w", err)
	}
	data = append(data, '\n')

	s.mutex.Lock()
	defer s.mutex.Unlock()

	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open cache file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to append to cache file: %w", err)
	}

	return f.Close()
}
