package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/uhyunpark/decibel-kit/pkg/formatting"
	"github.com/uhyunpark/decibel-kit/pkg/market"
	"github.com/uhyunpark/decibel-kit/pkg/stream"
)

func testServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	reg := market.NewRegistry()
	err := reg.Register(&formatting.MarketConfig{
		MarketName: "BTC/USD",
		MarketAddr: "0xb",
		PxDecimals: 9,
		SzDecimals: 9,
		TickSize:   1_000_000,
		LotSize:    10_000_000,
		MinSize:    10_000_000,
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	s := NewServer(ctx, reg, nil)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, srv
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func TestHealth(t *testing.T) {
	_, srv := testServer(t)
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	got := decode[HealthResponse](t, resp)
	if got.Status != "ok" || got.Markets != 1 || got.Clients != 0 {
		t.Errorf("health = %+v", got)
	}
}

func TestGetMarkets(t *testing.T) {
	_, srv := testServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/markets")
	if err != nil {
		t.Fatal(err)
	}
	list := decode[[]MarketInfo](t, resp)
	if len(list) != 1 || list[0].MarketName != "BTC/USD" {
		t.Fatalf("markets = %+v", list)
	}
	if list[0].TickSizeHuman != 0.001 || list[0].LotSizeHuman != 0.01 || list[0].TickSize != 1_000_000 {
		t.Errorf("market = %+v", list[0])
	}

	resp, err = http.Get(srv.URL + "/api/v1/markets/BTC/USD")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	one := decode[MarketInfo](t, resp)
	if one.MarketAddr != "0xb" {
		t.Errorf("market = %+v", one)
	}

	resp, err = http.Get(srv.URL + "/api/v1/markets/DOGE/USD")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown market status = %d", resp.StatusCode)
	}
	if e := decode[ErrorResponse](t, resp); e.Error != CodeMarketNotFound {
		t.Errorf("error = %+v", e)
	}
}

func postFormat(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/v1/orders/format", "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestFormatOrder(t *testing.T) {
	_, srv := testServer(t)

	resp := postFormat(t, srv, `{"market":"BTC/USD","price":45123.4567,"size":1.23456}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	got := decode[FormatOrderResponse](t, resp)
	if got.ChainPrice != 45_123_457_000_000 || got.ChainSize != 1_230_000_000 {
		t.Errorf("chain units = %d / %d", got.ChainPrice, got.ChainSize)
	}
	if got.HumanPrice != 45123.457 || got.HumanSize != 1.23 {
		t.Errorf("human = %v / %v", got.HumanPrice, got.HumanSize)
	}
	if got.Market != "BTC/USD" || got.Display == "" {
		t.Errorf("response = %+v", got)
	}
}

func TestFormatOrderErrors(t *testing.T) {
	_, srv := testServer(t)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"malformed json", `{"market":`, http.StatusBadRequest, CodeInvalidRequest},
		{"unknown field", `{"market":"BTC/USD","price":1,"size":1,"side":"buy"}`, http.StatusBadRequest, CodeInvalidRequest},
		{"missing market", `{"price":1,"size":1}`, http.StatusBadRequest, CodeInvalidRequest},
		{"unknown market", `{"market":"DOGE/USD","price":1,"size":1}`, http.StatusNotFound, CodeMarketNotFound},
		{"negative price", `{"market":"BTC/USD","price":-1,"size":1}`, http.StatusBadRequest, CodeInvalidInput},
		{"zero size", `{"market":"BTC/USD","price":100,"size":0}`, http.StatusBadRequest, CodeInvalidInput},
		{"overflow", `{"market":"BTC/USD","price":1e11,"size":1}`, http.StatusBadRequest, CodeOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postFormat(t, srv, tt.body)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if e := decode[ErrorResponse](t, resp); e.Error != tt.code {
				t.Errorf("code = %q, want %q (%s)", e.Error, tt.code, e.Message)
			}
		})
	}
}

func TestErrorCode(t *testing.T) {
	bad := &formatting.MarketConfig{MarketName: "X"}
	_, err := formatting.FormatOrderParams(1, 1, bad)
	if got := errorCode(err); got != CodeInvalidMarketConfig {
		t.Errorf("errorCode = %q", got)
	}
}

func TestCORS(t *testing.T) {
	_, srv := testServer(t)
	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/v1/orders/format", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.Header.Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Errorf("allow origin = %q", resp.Header.Get("Access-Control-Allow-Origin"))
	}
}

func TestWebSocketRelay(t *testing.T) {
	s, srv := testServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	sub := WSSubscribeRequest{Op: "subscribe", Channels: []string{"depth:0xb"}}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatal(err)
	}

	// Relay until the subscription has been processed.
	received := make(chan WSMessage, 1)
	go func() {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err == nil {
			received <- msg
		}
	}()

	deadline := time.After(3 * time.Second)
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case msg := <-received:
			if msg.Channel != "depth:0xb" {
				t.Errorf("channel = %q", msg.Channel)
			}
			data, _ := json.Marshal(msg.Data)
			if string(data) != `{"bids":[]}` {
				t.Errorf("data = %s", data)
			}
			return
		case <-tick.C:
			s.Relay(stream.Message{Channel: "trades:0xb", Data: json.RawMessage(`{"ignored":true}`)})
			s.Relay(stream.Message{Channel: "depth:0xb", Data: json.RawMessage(`{"bids":[]}`)})
		case <-deadline:
			t.Fatal("no relayed message")
		}
	}
}
