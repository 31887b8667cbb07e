package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/uhyunpark/decibel-kit/pkg/formatting"
)

type PebbleStore struct {
	db *pebble.DB
}

func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &PebbleStore{db: db}, nil
}

func (s *PebbleStore) Close() error { return s.db.Close() }

// SaveMarket persists a market under its name
func (s *PebbleStore) SaveMarket(m *formatting.MarketConfig) error {
	if m == nil || m.MarketName == "" {
		return fmt.Errorf("save market: %w: missing name", formatting.ErrInvalidMarketConfig)
	}
	data, err := encodeMarket(m)
	if err != nil {
		return err
	}
	if err := s.db.Set(marketKey(m.MarketName), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to save market: %w", err)
	}
	return nil
}

// GetMarket loads a market from Pebble
func (s *PebbleStore) GetMarket(name string) (*formatting.MarketConfig, bool, error) {
	data, closer, err := s.db.Get(marketKey(name))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get market: %w", err)
	}
	defer closer.Close()

	m, err := decodeMarket(data)
	if err != nil {
		return nil, false, err
	}
	return m, true, nil
}

// ListMarkets scans the market prefix; keys sort by name
func (s *PebbleStore) ListMarkets() ([]*formatting.MarketConfig, error) {
	prefix := []byte(prefixMarket)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open iterator: %w", err)
	}
	defer iter.Close()

	var markets []*formatting.MarketConfig
	for iter.First(); iter.Valid(); iter.Next() {
		m, err := decodeMarket(iter.Value())
		if err != nil {
			continue // Skip invalid entries
		}
		markets = append(markets, m)
	}
	return markets, iter.Error()
}

func (s *PebbleStore) DeleteMarket(name string) error {
	if err := s.db.Delete(marketKey(name), pebble.Sync); err != nil {
		return fmt.Errorf("failed to delete market: %w", err)
	}
	return nil
}

func (s *PebbleStore) SetSyncedAt(t time.Time) error {
	if err := s.db.Set([]byte(keySyncedAt), encodeUnix(t.Unix()), pebble.Sync); err != nil {
		return fmt.Errorf("failed to save sync time: %w", err)
	}
	return nil
}

func (s *PebbleStore) SyncedAt() (time.Time, bool, error) {
	data, closer, err := s.db.Get([]byte(keySyncedAt))
	if errors.Is(err, pebble.ErrNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to get sync time: %w", err)
	}
	defer closer.Close()
	return time.Unix(decodeUnix(data), 0), true, nil
}

var _ MarketStore = (*PebbleStore)(nil)
