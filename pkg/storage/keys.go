package storage

import "fmt"

// Key schema for Pebble storage
//
//   mkt:<market name> → MarketConfig (JSON)
//   meta:synced_at    → unix seconds of the last full market sync

// Key prefixes
const (
	prefixMarket = "mkt:"
	keySyncedAt  = "meta:synced_at"
)

// marketKey returns the key for a market
// Format: "mkt:{name}"
func marketKey(name string) []byte {
	return []byte(fmt.Sprintf("%s%s", prefixMarket, name))
}

// keyUpperBound returns the exclusive upper bound for a prefix scan
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
