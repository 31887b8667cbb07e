package api

import "github.com/uhyunpark/decibel-kit/pkg/formatting"

// ==============================
// REST Types
// ==============================

// MarketInfo is a market's configuration with the grid in human units
type MarketInfo struct {
	formatting.MarketConfig
	TickSizeHuman float64 `json:"tick_size_human"` // e.g. 0.001
	LotSizeHuman  float64 `json:"lot_size_human"`
	MinSizeHuman  float64 `json:"min_size_human"`
}

// FormatOrderRequest is the payload for POST /api/v1/orders/format
type FormatOrderRequest struct {
	Market string  `json:"market"` // market name, e.g. "BTC/USD"
	Price  float64 `json:"price"`  // human units
	Size   float64 `json:"size"`   // human units
}

// FormatOrderResponse carries the converted order
type FormatOrderResponse struct {
	Market string `json:"market"`
	formatting.OrderParams
	Display string `json:"display"` // same data as text
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status  string `json:"status"`
	Markets int    `json:"markets"`
	Clients int    `json:"ws_clients"`
}

// ErrorResponse is returned for all errors
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable code
	Message string `json:"message"` // detail
}

// Error codes
const (
	CodeInvalidRequest      = "invalid_request"
	CodeInvalidInput        = "invalid_input"
	CodeOverflow            = "overflow"
	CodeInvalidMarketConfig = "invalid_market_config"
	CodeMarketNotFound      = "market_not_found"
)

// ==============================
// WebSocket Message Types
// ==============================

// WSMessage relays one exchange push to local clients
type WSMessage struct {
	Channel string `json:"channel"` // exchange topic, e.g. "depth:0x..."
	Data    any    `json:"data"`
}

// WSSubscribeRequest is sent by client to subscribe to channels
type WSSubscribeRequest struct {
	Op       string   `json:"op"`       // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"` // e.g. ["depth:0x...", "trades:0x..."]
}
