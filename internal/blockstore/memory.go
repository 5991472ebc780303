package blockstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"orbit-go/internal/storage"
)

// MemoryStore is an in-memory implementation of storage.Blockstore.
// It keeps every block in memory, making it useful for testing.
// This implementation is safe for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	blocks map[string][]byte
}

// NewMemoryStore creates an empty in-memory block store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blocks: make(map[string][]byte)}
}

// Put stores the block read from r under key.
func (m *MemoryStore) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read block: %w", err)
	}

	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks[key] = data
	return nil
}

// Get writes the block stored under key to w.
func (m *MemoryStore) Get(ctx context.Context, key string, w io.Writer) error {
	m.mu.RLock()
	data, ok := m.blocks[key]
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", storage.ErrBlockNotFound, key)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write block: %w", err)
	}
	return nil
}

// Has reports whether key is stored.
func (m *MemoryStore) Has(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.blocks[key]
	return ok, nil
}

// Len returns the number of stored blocks.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blocks)
}

var _ storage.Blockstore = (*MemoryStore)(nil)
