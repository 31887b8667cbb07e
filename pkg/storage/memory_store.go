package storage

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/uhyunpark/decibel-kit/pkg/formatting"
)

// MemoryStore is the MarketStore used when no cache directory is configured.
type MemoryStore struct {
	mu       sync.Mutex
	markets  map[string]formatting.MarketConfig
	syncedAt *time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{markets: make(map[string]formatting.MarketConfig)}
}

func (s *MemoryStore) SaveMarket(m *formatting.MarketConfig) error {
	if m == nil || m.MarketName == "" {
		return fmt.Errorf("save market: %w: missing name", formatting.ErrInvalidMarketConfig)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markets[m.MarketName] = copyMarket(m)
	return nil
}

func (s *MemoryStore) GetMarket(name string) (*formatting.MarketConfig, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.markets[name]
	if !ok {
		return nil, false, nil
	}
	out := copyMarket(&m)
	return &out, true, nil
}

func (s *MemoryStore) ListMarkets() ([]*formatting.MarketConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*formatting.MarketConfig, 0, len(s.markets))
	for _, m := range s.markets {
		c := copyMarket(&m)
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MarketName < out[j].MarketName })
	return out, nil
}

func (s *MemoryStore) DeleteMarket(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.markets, name)
	return nil
}

func (s *MemoryStore) SetSyncedAt(t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t = t.Truncate(time.Second)
	s.syncedAt = &t
	return nil
}

func (s *MemoryStore) SyncedAt() (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.syncedAt == nil {
		return time.Time{}, false, nil
	}
	return *s.syncedAt, true, nil
}

func (s *MemoryStore) Close() error { return nil }

// copyMarket detaches MaxLeverage so callers cannot mutate stored state.
func copyMarket(m *formatting.MarketConfig) formatting.MarketConfig {
	c := *m
	if m.MaxLeverage != nil {
		lev := *m.MaxLeverage
		c.MaxLeverage = &lev
	}
	return c
}

var _ MarketStore = (*MemoryStore)(nil)
