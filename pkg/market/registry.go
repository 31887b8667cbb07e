// Package market keeps the metadata of the markets the client trades on.
package market

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/uhyunpark/decibel-kit/pkg/formatting"
)

var (
	ErrMarketNotFound = errors.New("market not found")
	ErrMarketExists   = errors.New("market already registered")
)

// Registry manages market configurations in a thread-safe manner.
// It stores copies, so callers may keep or modify what they pass in and
// what they get back.
type Registry struct {
	mu      sync.RWMutex
	markets map[string]formatting.MarketConfig // name -> market
}

// NewRegistry creates an empty market registry
func NewRegistry() *Registry {
	return &Registry{
		markets: make(map[string]formatting.MarketConfig),
	}
}

// Register adds a new market to the registry
// Returns error if the market is invalid or already registered
func (r *Registry) Register(m *formatting.MarketConfig) error {
	if err := check(m); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.markets[m.MarketName]; exists {
		return fmt.Errorf("%w: %s", ErrMarketExists, m.MarketName)
	}
	r.markets[m.MarketName] = clone(m)
	return nil
}

// Put adds or replaces a market. Used when refreshing from the exchange.
func (r *Registry) Put(m *formatting.MarketConfig) error {
	if err := check(m); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.markets[m.MarketName] = clone(m)
	return nil
}

// Get retrieves a market by name
func (r *Registry) Get(name string) (*formatting.MarketConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, exists := r.markets[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrMarketNotFound, name)
	}
	out := clone(&m)
	return &out, nil
}

// List returns all registered markets ordered by name
func (r *Registry) List() []*formatting.MarketConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	markets := make([]*formatting.MarketConfig, 0, len(r.markets))
	for _, m := range r.markets {
		c := clone(&m)
		markets = append(markets, &c)
	}
	sort.Slice(markets, func(i, j int) bool { return markets[i].MarketName < markets[j].MarketName })
	return markets
}

// Remove deletes a market from the registry
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.markets[name]; !exists {
		return fmt.Errorf("%w: %s", ErrMarketNotFound, name)
	}
	delete(r.markets, name)
	return nil
}

// Count returns the total number of registered markets
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.markets)
}

// Exists checks if a market is registered
func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.markets[name]
	return exists
}

// check validates m and requires a name, which is the registry key.
func check(m *formatting.MarketConfig) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if m.MarketName == "" {
		return fmt.Errorf("%w: missing market name", formatting.ErrInvalidMarketConfig)
	}
	return nil
}

func clone(m *formatting.MarketConfig) formatting.MarketConfig {
	c := *m
	if m.MaxLeverage != nil {
		lev := *m.MaxLeverage
		c.MaxLeverage = &lev
	}
	return c
}
