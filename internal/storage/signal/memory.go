package signal

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/sigma/internal/core"
)

// MemoryStore is an in-memory signal store that keeps the newest maxSize records.
type MemoryStore struct {
	records []Record
	maxSize int
	mu      sync.RWMutex
	now     func() time.Time
}

// NewMemoryStore creates a new in-memory store with max capacity.
func NewMemoryStore(maxSize int) *MemoryStore {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &MemoryStore{
		records: make([]Record, 0, min(maxSize, 1024)),
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Save adds a result to the store.
func (m *MemoryStore) Save(_ context.Context, result core.SignalResult) (Record, error) {
	rec := Record{
		ID:           uuid.NewString(),
		RecordedAt:   m.now(),
		SignalResult: result,
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = append(m.records, rec)

	// Trim if over capacity (remove oldest)
	if len(m.records) > m.maxSize {
		m.records = m.records[len(m.records)-m.maxSize:]
	}

	return rec, nil
}

// Record saves result, discarding the stored record.
func (m *MemoryStore) Record(ctx context.Context, result core.SignalResult) error {
	_, err := m.Save(ctx, result)
	return err
}

// GetByID retrieves a record by ID.
func (m *MemoryStore) GetByID(_ context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := range m.records {
		if m.records[i].ID == id {
			rec := m.records[i]
			return &rec, nil
		}
	}
	return nil, core.WrapError(core.ErrNoData, fmt.Errorf("signal %s not found", id))
}

// List returns records matching the filter, newest first.
func (m *MemoryStore) List(_ context.Context, filter ListFilter) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []Record{}
	skipped := 0
	for i := len(m.records) - 1; i >= 0; i-- {
		rec := m.records[i]
		if !m.matches(rec, filter) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		result = append(result, rec)
		if filter.Limit > 0 && len(result) == filter.Limit {
			break
		}
	}

	return result, nil
}

// Count returns the count of matching records.
func (m *MemoryStore) Count(_ context.Context, filter ListFilter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, rec := range m.records {
		if m.matches(rec, filter) {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) matches(rec Record, filter ListFilter) bool {
	if filter.Symbol != "" && !strings.EqualFold(rec.Symbol, filter.Symbol) {
		return false
	}
	if filter.Signal != "" && rec.Signal != filter.Signal {
		return false
	}
	if filter.Timeframe != "" && rec.Timeframe != filter.Timeframe {
		return false
	}
	if !filter.From.IsZero() && rec.GeneratedAt.Before(filter.From) {
		return false
	}
	if !filter.To.IsZero() && rec.GeneratedAt.After(filter.To) {
		return false
	}
	return true
}
