// Package kv provides the durable key-value storage that backs per-visitor
// state (wishlist and login mirror).
package kv

import "context"

// Store is a string key-value store
type Store interface {
	// Get returns the value and whether the key exists
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores a value, replacing any previous one
	Set(ctx context.Context, key, value string) error

	// Delete removes keys; missing keys are ignored
	Delete(ctx context.Context, keys ...string) error

	// Ping checks the store is reachable
	Ping(ctx context.Context) error
}

// Namespaced prefixes every key of an underlying store
type Namespaced struct {
	store  Store
	prefix string
}

// Namespace returns a view of store where every key is prefixed
func Namespace(store Store, prefix string) *Namespaced {
	return &Namespaced{store: store, prefix: prefix}
}

func (n *Namespaced) key(k string) string {
	return n.prefix + k
}

// Get implements Store
func (n *Namespaced) Get(ctx context.Context, key string) (string, bool, error) {
	return n.store.Get(ctx, n.key(key))
}

// Set implements Store
func (n *Namespaced) Set(ctx context.Context, key, value string) error {
	return n.store.Set(ctx, n.key(key), value)
}

// Delete implements Store
func (n *Namespaced) Delete(ctx context.Context, keys ...string) error {
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = n.key(k)
	}
	return n.store.Delete(ctx, prefixed...)
}

// Ping implements Store
func (n *Namespaced) Ping(ctx context.Context) error {
	return n.store.Ping(ctx)
}
