package storage

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/errors"
)

// MemoryBackend keeps blobs in memory. Used in tests and for dry runs.
type MemoryBackend struct {
	mu      sync.RWMutex
	name    string
	objects map[string]memoryObject
	putErr  error
}

type memoryObject struct {
	data    []byte
	written time.Time
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend(name string) *MemoryBackend {
	return &MemoryBackend{name: name, objects: make(map[string]memoryObject)}
}

// FailPuts makes every Put return err (nil clears it).
func (m *MemoryBackend) FailPuts(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putErr = err
}

func (m *MemoryBackend) Describe() string { return "memory:" + m.name }

func (m *MemoryBackend) Ensure(context.Context) error { return nil }

func (m *MemoryBackend) Put(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.objects[key] = memoryObject{data: append([]byte(nil), data...), written: time.Now()}
	return nil
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return append([]byte(nil), obj.data...), nil
}

func (m *MemoryBackend) List(context.Context) ([]Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Object, 0, len(m.objects))
	for k, o := range m.objects {
		out = append(out, Object{
			Key:      k,
			Size:     int64(len(o.data)),
			Created:  CreatedFromName(k, o.written),
			Modified: o.written,
		})
	}
	sortNewestFirst(out)
	return out, nil
}
