package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/iliyamo/rental-analytics/internal/dataset"
	"github.com/iliyamo/rental-analytics/internal/model"
)

// Source produces the dataset for an entity.
type Source interface {
	LoadTable(ctx context.Context, e model.Entity) (*dataset.Dataset, error)
}

// MemorySource serves datasets held in memory. It is safe for concurrent
// use.
type MemorySource struct {
	mu     sync.RWMutex
	tables map[model.Entity]*dataset.Dataset
}

// NewMemorySource returns a MemorySource preloaded with tables.
func NewMemorySource(tables map[model.Entity]*dataset.Dataset) *MemorySource {
	m := &MemorySource{tables: make(map[model.Entity]*dataset.Dataset, len(tables))}
	for e, d := range tables {
		m.tables[e] = d
	}
	return m
}

// Put registers or replaces the dataset for e.
func (m *MemorySource) Put(e model.Entity, d *dataset.Dataset) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[e] = d
}

// LoadTable returns the dataset registered for e, or a
// SourceUnavailableError when none is.
func (m *MemorySource) LoadTable(ctx context.Context, e model.Entity) (*dataset.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, &SourceUnavailableError{Table: string(e), Err: err}
	}
	if !e.Valid() {
		return nil, &SourceUnavailableError{Table: string(e), Err: ErrUnknownEntity}
	}
	m.mu.RLock()
	d, ok := m.tables[e]
	m.mu.RUnlock()
	if !ok {
		return nil, &SourceUnavailableError{Table: string(e), Err: errNoFixture}
	}
	return d, nil
}

var errNoFixture = errors.New("no dataset registered")
