// Package signal keeps a bounded history of generated signals.
package signal

import (
	"context"
	"time"

	"github.com/newthinker/sigma/internal/core"
)

// Record is a stored signal result.
type Record struct {
	ID         string    `json:"id"`
	RecordedAt time.Time `json:"recorded_at"`
	core.SignalResult
}

// Store defines the interface for signal persistence.
type Store interface {
	// Save persists a result and returns the stored record with its ID.
	Save(ctx context.Context, result core.SignalResult) (Record, error)

	// GetByID retrieves a record by its ID.
	GetByID(ctx context.Context, id string) (*Record, error)

	// List retrieves records matching the filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]Record, error)

	// Count returns the number of records matching the filter.
	Count(ctx context.Context, filter ListFilter) (int, error)
}

// ListFilter defines criteria for listing signals.
type ListFilter struct {
	Symbol    string
	Signal    core.SignalClass
	Timeframe string
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}
