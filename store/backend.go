// ABOUTME: Backend interface for raw record persistence keyed by kind and id
// ABOUTME: Includes the in-memory backend used by default and in tests
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Record kinds.
const (
	KindContact = "contact"
	KindDeal    = "deal"
	KindTask    = "task"
	KindInquiry = "inquiry"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrRecordExists   = errors.New("record already exists")
)

// Mutator receives the stored bytes of a record and returns the replacement.
// Returning an error aborts the update without writing.
type Mutator func(current []byte) ([]byte, error)

// Backend stores opaque JSON documents. Update must apply the mutator
// atomically with respect to other updates of the same record.
type Backend interface {
	Insert(ctx context.Context, kind string, id uuid.UUID, data []byte) error
	Update(ctx context.Context, kind string, id uuid.UUID, fn Mutator) error
	Get(ctx context.Context, kind string, id uuid.UUID) ([]byte, error)
	List(ctx context.Context, kind string) ([][]byte, error)
	Close() error
}

// MemoryBackend keeps records in process memory. Contents are lost on exit.
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[string]map[uuid.UUID][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: make(map[string]map[uuid.UUID][]byte)}
}

func (m *MemoryBackend) Insert(ctx context.Context, kind string, id uuid.UUID, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	bucket, ok := m.records[kind]
	if !ok {
		bucket = make(map[uuid.UUID][]byte)
		m.records[kind] = bucket
	}
	if _, exists := bucket[id]; exists {
		return fmt.Errorf("%s %s: %w", kind, id, ErrRecordExists)
	}
	bucket[id] = clone(data)
	return nil
}

func (m *MemoryBackend) Update(ctx context.Context, kind string, id uuid.UUID, fn Mutator) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.records[kind][id]
	if !ok {
		return ErrRecordNotFound
	}
	next, err := fn(clone(current))
	if err != nil {
		return err
	}
	m.records[kind][id] = clone(next)
	return nil
}

func (m *MemoryBackend) Get(ctx context.Context, kind string, id uuid.UUID) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.records[kind][id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return clone(data), nil
}

func (m *MemoryBackend) List(ctx context.Context, kind string) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([][]byte, 0, len(m.records[kind]))
	for _, data := range m.records[kind] {
		out = append(out, clone(data))
	}
	return out, nil
}

func (m *MemoryBackend) Close() error { return nil }

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
