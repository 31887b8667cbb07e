package market

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/uhyunpark/decibel-kit/pkg/formatting"
	"github.com/uhyunpark/decibel-kit/pkg/storage"
)

// MarketsPath is the REST endpoint listing every market.
const MarketsPath = "/api/v1/markets"

// Fetcher is the part of the REST client the loader needs.
type Fetcher interface {
	GetJSON(ctx context.Context, path string, out any) error
}

// LoadResult summarises one Load call.
type LoadResult struct {
	Loaded    int
	Skipped   int
	Removed   int
	FromCache bool
}

// Loader fills a Registry from the exchange, keeping a copy in a
// MarketStore so the client can start when the exchange is unreachable.
type Loader struct {
	fetcher  Fetcher
	store    storage.MarketStore
	registry *Registry
	logger   *zap.SugaredLogger
	now      func() time.Time
}

func NewLoader(fetcher Fetcher, store storage.MarketStore, registry *Registry, logger *zap.SugaredLogger) *Loader {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Loader{
		fetcher:  fetcher,
		store:    store,
		registry: registry,
		logger:   logger,
		now:      time.Now,
	}
}

// Load fetches the market list. Invalid markets are skipped and logged.
// After a successful fetch the registry and the cache hold exactly the valid
// markets of that list: markets that were delisted or now carry invalid
// metadata are removed. When the fetch fails the cached markets are registered instead; the fetch
// error is returned only if the cache is empty too.
func (l *Loader) Load(ctx context.Context) (LoadResult, error) {
	var markets []*formatting.MarketConfig
	if err := l.fetcher.GetJSON(ctx, MarketsPath, &markets); err != nil {
		l.logger.Warnw("market_fetch_failed", "error", err)
		res, cacheErr := l.loadFromStore()
		if cacheErr != nil {
			return res, fmt.Errorf("fetch markets: %w (cache: %v)", err, cacheErr)
		}
		if res.Loaded == 0 {
			return res, fmt.Errorf("fetch markets: %w", err)
		}
		return res, nil
	}

	var res LoadResult
	valid := make(map[string]bool, len(markets))
	for _, m := range markets {
		if !l.register(m) {
			res.Skipped++
			continue
		}
		valid[m.MarketName] = true
		if err := l.store.SaveMarket(m); err != nil {
			l.logger.Warnw("market_cache_write_failed", "market", m.MarketName, "error", err)
		}
		res.Loaded++
	}
	res.Removed = l.prune(valid)
	if err := l.store.SetSyncedAt(l.now()); err != nil {
		l.logger.Warnw("market_cache_write_failed", "error", err)
	}

	l.logger.Infow("markets_loaded", "loaded", res.Loaded, "skipped", res.Skipped, "removed", res.Removed)
	return res, nil
}

func (l *Loader) loadFromStore() (LoadResult, error) {
	res := LoadResult{FromCache: true}
	markets, err := l.store.ListMarkets()
	if err != nil {
		return res, err
	}
	for _, m := range markets {
		if l.register(m) {
			res.Loaded++
		} else {
			res.Skipped++
		}
	}
	syncedAt, _, _ := l.store.SyncedAt()
	l.logger.Infow("markets_loaded_from_cache", "loaded", res.Loaded, "skipped", res.Skipped, "synced_at", syncedAt)
	return res, nil
}

// prune drops every registered or cached market not in valid and returns how
// many registered markets were removed.
func (l *Loader) prune(valid map[string]bool) int {
	removed := 0
	for _, m := range l.registry.List() {
		if valid[m.MarketName] {
			continue
		}
		if err := l.registry.Remove(m.MarketName); err == nil {
			removed++
			l.logger.Warnw("market_removed", "market", m.MarketName)
		}
	}

	cached, err := l.store.ListMarkets()
	if err != nil {
		l.logger.Warnw("market_cache_read_failed", "error", err)
		return removed
	}
	for _, m := range cached {
		if valid[m.MarketName] {
			continue
		}
		if err := l.store.DeleteMarket(m.MarketName); err != nil {
			l.logger.Warnw("market_cache_write_failed", "market", m.MarketName, "error", err)
		}
	}
	return removed
}

func (l *Loader) register(m *formatting.MarketConfig) bool {
	if err := l.registry.Put(m); err != nil {
		name := ""
		if m != nil {
			name = m.MarketName
		}
		l.logger.Warnw("market_skipped", "market", name, "error", err)
		return false
	}
	return true
}

// Run reloads every interval until ctx is cancelled.
func (l *Loader) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := l.Load(ctx); err != nil {
				l.logger.Warnw("market_refresh_failed", "error", err)
			}
		}
	}
}
