// Package storage caches market metadata between runs.
package storage

import (
	"time"

	"github.com/uhyunpark/decibel-kit/pkg/formatting"
)

// MarketStore persists market configurations by name.
type MarketStore interface {
	SaveMarket(m *formatting.MarketConfig) error
	// GetMarket returns false when the market is not stored.
	GetMarket(name string) (*formatting.MarketConfig, bool, error)
	// ListMarkets returns every stored market ordered by name.
	ListMarkets() ([]*formatting.MarketConfig, error)
	// DeleteMarket is a no-op for a market that is not stored.
	DeleteMarket(name string) error
	SetSyncedAt(t time.Time) error
	// SyncedAt returns false when no sync was ever recorded.
	SyncedAt() (time.Time, bool, error)
	Close() error
}
