package formatting

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// PrintOrderParams logs one order in both representations for debugging.
func PrintOrderParams(logger *zap.SugaredLogger, params OrderParams, market *MarketConfig) {
	logger.Infow("order_params",
		"market", market.MarketName,
		"human_price", humanString(params.ChainPrice, market.PxDecimals, market.TickSize),
		"chain_price", params.ChainPrice,
		"human_size", humanString(params.ChainSize, market.SzDecimals, market.LotSize),
		"chain_size", params.ChainSize,
	)
}

// Format renders params as a short multi-line text block for terminals.
func (p OrderParams) Format(market *MarketConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order params for %s\n", market.MarketName)
	fmt.Fprintf(&b, "  price: %s (chain units: %d)\n",
		humanString(p.ChainPrice, market.PxDecimals, market.TickSize), p.ChainPrice)
	fmt.Fprintf(&b, "  size:  %s (chain units: %d)\n",
		humanString(p.ChainSize, market.SzDecimals, market.LotSize), p.ChainSize)
	return b.String()
}

// humanString prints chain units with as many places as the step size needs,
// so a 0.001 tick shows 50000.500 rather than 50000.5.
func humanString(units uint64, decimals uint32, step uint64) string {
	places := int32(decimals)
	for step > 0 && step%10 == 0 && places > 0 {
		step /= 10
		places--
	}
	return fromUint64(units).Shift(-int32(decimals)).StringFixed(places)
}
