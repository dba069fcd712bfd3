package recordstore

import (
	"context"
	"fmt"
	"sync"

	apperrors "github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/errors"
)

// MemoryStore is an in-memory Store. Failure hooks let tests simulate a degraded store.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]Record

	down        bool
	listErrors  map[string]error
	writeFilter func(collection string, rec Record) error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string][]Record),
		listErrors:  make(map[string]error),
	}
}

// Seed replaces the contents of a collection.
func (m *MemoryStore) Seed(collection string, recs ...Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]Record, len(recs))
	for i, r := range recs {
		cp[i] = r.Clone()
	}
	m.collections[collection] = cp
}

// SetDown makes every call fail with a connectivity error.
func (m *MemoryStore) SetDown(down bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.down = down
}

// FailList makes List on collection return err. A nil err clears the failure.
func (m *MemoryStore) FailList(collection string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.listErrors, collection)
		return
	}
	m.listErrors[collection] = err
}

// FailWrites installs a filter consulted before every Insert and Update.
func (m *MemoryStore) FailWrites(filter func(collection string, rec Record) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeFilter = filter
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrConnectivity, err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.down {
		return apperrors.ErrConnectivity
	}
	return nil
}

func (m *MemoryStore) List(ctx context.Context, collection string) ([]Record, error) {
	if err := m.Ping(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.listErrors[collection]; err != nil {
		return nil, err
	}
	src := m.collections[collection]
	out := make([]Record, len(src))
	for i, r := range src {
		out[i] = r.Clone()
	}
	return out, nil
}

func (m *MemoryStore) Find(ctx context.Context, collection string, key Key) (Record, error) {
	if err := m.Ping(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i := m.indexOf(collection, key); i >= 0 {
		return m.collections[collection][i].Clone(), nil
	}
	return nil, apperrors.ErrRecordNotFound
}

func (m *MemoryStore) Insert(ctx context.Context, collection string, rec Record) error {
	if err := m.Ping(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeFilter != nil {
		if err := m.writeFilter(collection, rec); err != nil {
			return err
		}
	}
	m.collections[collection] = append(m.collections[collection], rec.Clone())
	return nil
}

func (m *MemoryStore) Update(ctx context.Context, collection string, key Key, rec Record) error {
	if err := m.Ping(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeFilter != nil {
		if err := m.writeFilter(collection, rec); err != nil {
			return err
		}
	}
	i := m.indexOf(collection, key)
	if i < 0 {
		return apperrors.ErrRecordNotFound
	}
	m.collections[collection][i] = rec.Clone()
	return nil
}

// Count returns the number of records in a collection.
func (m *MemoryStore) Count(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.collections[collection])
}

func (m *MemoryStore) indexOf(collection string, key Key) int {
	for i, r := range m.collections[collection] {
		if FieldString(r, key.Field) == key.Value {
			return i
		}
	}
	return -1
}
