// Package overrides - In-memory and chained providers
package overrides

import (
	"sort"
	"sync"

	"vat-calculator/core/types"
)

// MapProvider is a Provider backed by a map. It is safe for concurrent use.
type MapProvider struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewMapProvider creates a provider holding a copy of values
func NewMapProvider(values map[string]any) *MapProvider {
	m := &MapProvider{values: make(map[string]any, len(values))}
	for k, v := range values {
		m.values[k] = v
	}
	return m
}

// Has reports whether key is set
func (m *MapProvider) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.values[key]
	return ok
}

// Get returns the value of key or fallback
func (m *MapProvider) Get(key string, fallback any) any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.values[key]; ok {
		return v
	}
	return fallback
}

// Set stores a value
func (m *MapProvider) Set(key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

// SetRule stores the rule of a country
func (m *MapProvider) SetRule(country types.CountryCode, rule Rule) {
	m.Set(RuleKey(country), rule)
}

// Delete removes a key
func (m *MapProvider) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
}

// Keys returns every key in sorted order
func (m *MapProvider) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Chain consults providers in order; the first one that has a key wins
type Chain []Provider

// Has reports whether any provider has key
func (c Chain) Has(key string) bool {
	for _, p := range c {
		if p != nil && p.Has(key) {
			return true
		}
	}
	return false
}

// Get returns the value from the first provider that has key and can
// read it
func (c Chain) Get(key string, fallback any) any {
	for _, p := range c {
		if p == nil || !p.Has(key) {
			continue
		}
		if v := p.Get(key, nil); v != nil {
			return v
		}
	}
	return fallback
}
