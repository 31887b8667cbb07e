package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/uhyunpark/decibel-kit/pkg/formatting"
)

func encodeMarket(m *formatting.MarketConfig) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal market: %w", err)
	}
	return data, nil
}

func decodeMarket(b []byte) (*formatting.MarketConfig, error) {
	var m formatting.MarketConfig
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal market: %w", err)
	}
	return &m, nil
}

func encodeUnix(sec int64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], uint64(sec))
	return k[:]
}

func decodeUnix(b []byte) int64 {
	if len(b) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(b))
}
