package formatting

import "fmt"

// MaxDecimals is the largest decimal count whose power of ten fits in a uint64.
const MaxDecimals = 19

// MarketConfig describes one tradeable market as published by the exchange.
// Tick, lot and minimum sizes are expressed in chain units.
type MarketConfig struct {
	MarketName  string  `json:"market_name"`
	MarketAddr  string  `json:"market_addr"`
	PxDecimals  uint32  `json:"px_decimals"` // usually 9
	SzDecimals  uint32  `json:"sz_decimals"` // usually 9
	TickSize    uint64  `json:"tick_size"`
	LotSize     uint64  `json:"lot_size"`
	MinSize     uint64  `json:"min_size"`
	MaxLeverage *uint32 `json:"max_leverage,omitempty"`
}

// Validate checks the invariants every conversion relies on.
func (m *MarketConfig) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: nil market", ErrInvalidMarketConfig)
	}
	if m.TickSize == 0 {
		return fmt.Errorf("%w: market %q has zero tick size", ErrInvalidMarketConfig, m.MarketName)
	}
	if m.LotSize == 0 {
		return fmt.Errorf("%w: market %q has zero lot size", ErrInvalidMarketConfig, m.MarketName)
	}
	if m.MinSize < m.LotSize {
		return fmt.Errorf("%w: market %q min size %d below lot size %d",
			ErrInvalidMarketConfig, m.MarketName, m.MinSize, m.LotSize)
	}
	if m.PxDecimals > MaxDecimals {
		return fmt.Errorf("%w: market %q px_decimals %d exceeds %d",
			ErrInvalidMarketConfig, m.MarketName, m.PxDecimals, MaxDecimals)
	}
	if m.SzDecimals > MaxDecimals {
		return fmt.Errorf("%w: market %q sz_decimals %d exceeds %d",
			ErrInvalidMarketConfig, m.MarketName, m.SzDecimals, MaxDecimals)
	}
	return nil
}

// TickSizeHuman returns the tick size in human units, e.g. 0.001.
func (m *MarketConfig) TickSizeHuman() float64 {
	return ChainUnitsToHuman(m.TickSize, m.PxDecimals)
}

// LotSizeHuman returns the lot size in human units.
func (m *MarketConfig) LotSizeHuman() float64 {
	return ChainUnitsToHuman(m.LotSize, m.SzDecimals)
}

// MinSizeHuman returns the minimum order size in human units.
func (m *MarketConfig) MinSizeHuman() float64 {
	return ChainUnitsToHuman(m.MinSize, m.SzDecimals)
}
