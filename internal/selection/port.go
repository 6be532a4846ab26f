package selection

import (
	"context"
	"sync"

	"github.com/terra-clan/projecthub/internal/kv"
)

// StorageKey is the well-known key the wishlist is stored under
const StorageKey = "selectedTopics"

// Port persists the serialized wishlist
type Port interface {
	// Load returns the stored value and whether one exists
	Load(ctx context.Context) ([]byte, bool, error)

	// Save replaces the stored value
	Save(ctx context.Context, data []byte) error

	// Clear removes the stored value
	Clear(ctx context.Context) error
}

// KVPort stores the wishlist under StorageKey in a key-value store
type KVPort struct {
	store kv.Store
}

// NewKVPort creates a port over store, usually a per-session namespace
func NewKVPort(store kv.Store) *KVPort {
	return &KVPort{store: store}
}

// Load implements Port
func (p *KVPort) Load(ctx context.Context) ([]byte, bool, error) {
	val, ok, err := p.store.Get(ctx, StorageKey)
	if err != nil || !ok {
		return nil, false, err
	}
	return []byte(val), true, nil
}

// Save implements Port
func (p *KVPort) Save(ctx context.Context, data []byte) error {
	return p.store.Set(ctx, StorageKey, string(data))
}

// Clear implements Port
func (p *KVPort) Clear(ctx context.Context) error {
	return p.store.Delete(ctx, StorageKey)
}

// MemoryPort keeps the value in memory and counts writes
type MemoryPort struct {
	mu     sync.Mutex
	data   []byte
	exists bool
	writes int
}

// NewMemoryPort returns an empty in-memory port
func NewMemoryPort() *MemoryPort {
	return &MemoryPort{}
}

// Load implements Port
func (p *MemoryPort) Load(_ context.Context) ([]byte, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.exists {
		return nil, false, nil
	}
	return append([]byte(nil), p.data...), true, nil
}

// Save implements Port
func (p *MemoryPort) Save(_ context.Context, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data = append([]byte(nil), data...)
	p.exists = true
	p.writes++
	return nil
}

// Clear implements Port
func (p *MemoryPort) Clear(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data = nil
	p.exists = false
	p.writes++
	return nil
}

// Writes returns how many Save and Clear calls were made
func (p *MemoryPort) Writes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writes
}
