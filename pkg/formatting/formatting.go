// Package formatting converts between human-readable prices and sizes and the
// integer chain units the exchange contracts expect.
//
// Key concepts:
//   - The chain stores integers, not decimals: value * 10^decimals.
//   - Prices snap to the market tick size, sizes snap to the lot size.
//   - Snapping rounds half up and happens once, on the exact decimal value of
//     the input, so float representation error never accumulates.
//
// Every function is pure and safe for concurrent use.
package formatting

import (
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// USDCDecimals is the fixed precision of USDC amounts on chain.
const USDCDecimals = 6

var maxChainUnits = fromUint64(math.MaxUint64)

// OrderParams holds one order in both human and chain representation.
// Both sides always describe the same tick/lot aligned values.
type OrderParams struct {
	HumanPrice float64 `json:"human_price"`
	HumanSize  float64 `json:"human_size"`
	ChainPrice uint64  `json:"chain_price"`
	ChainSize  uint64  `json:"chain_size"`
}

// RoundToValidPrice snaps price to the nearest multiple of the market tick size.
// Ties round up. A price that snaps to zero is rejected, since no order can be
// placed at it.
func RoundToValidPrice(price float64, market *MarketConfig) (float64, error) {
	if err := market.Validate(); err != nil {
		return 0, err
	}
	units, err := snapPrice(price, market)
	if err != nil {
		return 0, err
	}
	return toHuman(units, market.PxDecimals), nil
}

// RoundToValidOrderSize snaps size to the nearest multiple of the market lot
// size and raises a positive result below the minimum up to the minimum.
// A size that snaps to zero is rejected rather than bumped to the minimum.
func RoundToValidOrderSize(size float64, market *MarketConfig) (float64, error) {
	if err := market.Validate(); err != nil {
		return 0, err
	}
	units, err := snapSize(size, market)
	if err != nil {
		return 0, err
	}
	return toHuman(units, market.SzDecimals), nil
}

// PriceToChainUnits scales an already rounded price by 10^decimals.
// It does not re-round to the tick grid.
func PriceToChainUnits(price float64, decimals uint32) (uint64, error) {
	return toChainUnits("price", price, decimals)
}

// SizeToChainUnits scales an already rounded size by 10^decimals.
func SizeToChainUnits(size float64, decimals uint32) (uint64, error) {
	return toChainUnits("size", size, decimals)
}

// USDCToChainUnits converts a USDC amount to its 6-decimal chain representation,
// e.g. 250 -> 250_000000.
func USDCToChainUnits(usdcAmount float64) (uint64, error) {
	return toChainUnits("usdc amount", usdcAmount, USDCDecimals)
}

// ChainUnitsToHuman divides amount by 10^decimals.
//
// The result is the float nearest to the exact decimal value; only values on
// the tick/lot grid are guaranteed to survive a human -> chain -> human trip.
// A scale above MaxDecimals has no chain representation and yields 0.
func ChainUnitsToHuman(amount uint64, decimals uint32) float64 {
	if decimals > MaxDecimals {
		return 0
	}
	return toHuman(fromUint64(amount), decimals)
}

// FormatOrderParams is the full pipeline from user input to chain units.
// Price is checked before size; the first error is returned and nothing else.
func FormatOrderParams(price, size float64, market *MarketConfig) (OrderParams, error) {
	if err := market.Validate(); err != nil {
		return OrderParams{}, err
	}
	priceUnits, err := snapPrice(price, market)
	if err != nil {
		return OrderParams{}, err
	}
	chainPrice, err := unitsToUint64("price", priceUnits)
	if err != nil {
		return OrderParams{}, err
	}
	sizeUnits, err := snapSize(size, market)
	if err != nil {
		return OrderParams{}, err
	}
	chainSize, err := unitsToUint64("size", sizeUnits)
	if err != nil {
		return OrderParams{}, err
	}
	return OrderParams{
		HumanPrice: toHuman(priceUnits, market.PxDecimals),
		HumanSize:  toHuman(sizeUnits, market.SzDecimals),
		ChainPrice: chainPrice,
		ChainSize:  chainSize,
	}, nil
}

// snapPrice returns the tick-aligned price in chain units.
func snapPrice(price float64, market *MarketConfig) (decimal.Decimal, error) {
	d, err := fromFloat("price", price)
	if err != nil {
		return decimal.Zero, err
	}
	units := snap(d, market.PxDecimals, market.TickSize)
	if units.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: price %v rounds to zero at tick size %d",
			ErrInvalidInput, price, market.TickSize)
	}
	return units, nil
}

// snapSize returns the lot-aligned, minimum-enforced size in chain units.
func snapSize(size float64, market *MarketConfig) (decimal.Decimal, error) {
	d, err := fromFloat("size", size)
	if err != nil {
		return decimal.Zero, err
	}
	if d.Sign() == 0 {
		return decimal.Zero, fmt.Errorf("%w: size must be positive", ErrInvalidInput)
	}
	units := snap(d, market.SzDecimals, market.LotSize)
	if units.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: size %v rounds to zero at lot size %d",
			ErrInvalidInput, size, market.LotSize)
	}
	// The floor is the smallest lot multiple >= MinSize, so a clamped size
	// snaps back to itself.
	if minUnits := alignUp(market.MinSize, market.LotSize); units.LessThan(minUnits) {
		units = minUnits
	}
	return units, nil
}

// snap scales d to chain units and rounds it to the nearest multiple of step,
// ties up. The division is exact, so there is exactly one rounding.
func snap(d decimal.Decimal, decimals uint32, step uint64) decimal.Decimal {
	stepDec := fromUint64(step)
	return d.Shift(int32(decimals)).DivRound(stepDec, 0).Mul(stepDec)
}

func alignUp(v, step uint64) decimal.Decimal {
	q, r := new(big.Int).QuoRem(new(big.Int).SetUint64(v), new(big.Int).SetUint64(step), new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return decimal.NewFromBigInt(q.Mul(q, new(big.Int).SetUint64(step)), 0)
}

func toChainUnits(what string, v float64, decimals uint32) (uint64, error) {
	if decimals > MaxDecimals {
		return 0, fmt.Errorf("%w: %d decimals exceeds %d", ErrInvalidInput, decimals, MaxDecimals)
	}
	d, err := fromFloat(what, v)
	if err != nil {
		return 0, err
	}
	// Round, never truncate: 0.3 * 10^9 must not come out one unit short.
	return unitsToUint64(what, d.Shift(int32(decimals)).Round(0))
}

func unitsToUint64(what string, units decimal.Decimal) (uint64, error) {
	if units.GreaterThan(maxChainUnits) {
		return 0, fmt.Errorf("%w: %s %s exceeds uint64", ErrOverflow, what, units.String())
	}
	return units.BigInt().Uint64(), nil
}

// fromFloat converts v to its shortest exact decimal and rejects values no
// order can carry.
func fromFloat(what string, v float64) (decimal.Decimal, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero, fmt.Errorf("%w: %s is not finite", ErrInvalidInput, what)
	}
	if v < 0 {
		return decimal.Zero, fmt.Errorf("%w: %s %v is negative", ErrInvalidInput, what, v)
	}
	return decimal.NewFromFloat(v), nil
}

func fromUint64(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}

func toHuman(units decimal.Decimal, decimals uint32) float64 {
	f, _ := units.Shift(-int32(decimals)).Float64()
	return f
}
