// Package com has small concurrency helpers shared by client components.
package com

import "sync"

// Map defines a concurrent-safe map structure.
type Map[K comparable, V any] struct {
	m  map[K]V
	mu sync.Mutex
}

func NewMap[K comparable, V any]() *Map[K, V] { return &Map[K, V]{m: make(map[K]V)} }

func (m *Map[K, V]) Put(key K, v V)     { m.mu.Lock(); m.m[key] = v; m.mu.Unlock() }
func (m *Map[K, _]) RemoveByKey(key K) { m.mu.Lock(); delete(m.m, key); m.mu.Unlock() }
func (m *Map[_, _]) Len() int          { m.mu.Lock(); defer m.mu.Unlock(); return len(m.m) }

func (m *Map[K, V]) Find(key K) (v V, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok = m.m[key]
	return v, ok
}

// RemoveIf deletes key only while pred holds for its current value.
func (m *Map[K, V]) RemoveIf(key K, pred func(V) bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.m[key]; ok && pred(v) {
		delete(m.m, key)
		return true
	}
	return false
}

// Snapshot returns a copy that callers may range over without holding the lock.
func (m *Map[K, V]) Snapshot() map[K]V {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[K]V, len(m.m))
	for k, v := range m.m {
		out[k] = v
	}
	return out
}

// Clear drops every element.
func (m *Map[K, V]) Clear() { m.mu.Lock(); m.m = make(map[K]V); m.mu.Unlock() }
