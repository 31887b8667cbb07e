// Package stream subscribes to the Decibel market-data WebSocket.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Message is one market-data push. Frames without a channel (acks, errors)
// are not delivered to handlers.
type Message struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

type Handler func(Message)

type subscribeRequest struct {
	Method       string       `json:"method"`
	Subscription subscription `json:"subscription"`
}

type subscription struct {
	Topic string `json:"topic"`
}

// Conn is one WebSocket connection. Writes are serialized; Run must be
// called from a single goroutine.
type Conn struct {
	id     string
	conn   *websocket.Conn
	logger *zap.SugaredLogger

	writeMu sync.Mutex
	topics  []string
}

// Dial connects to url, sending token as a bearer token when non-empty.
func Dial(ctx context.Context, url, token string, logger *zap.SugaredLogger) (*Conn, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	c := &Conn{
		id:     uuid.NewString(),
		conn:   ws,
		logger: logger,
	}
	c.logger.Infow("ws_connected", "conn", c.id, "url", url)
	return c, nil
}

func (c *Conn) ID() string { return c.id }

// Topics returns the topics subscribed on this connection so far.
func (c *Conn) Topics() []string {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return append([]string(nil), c.topics...)
}

// Subscribe sends one subscribe request per topic, e.g. "depth:<market addr>".
func (c *Conn) Subscribe(topics ...string) error {
	return c.send("subscribe", topics)
}

func (c *Conn) Unsubscribe(topics ...string) error {
	return c.send("unsubscribe", topics)
}

func (c *Conn) send(method string, topics []string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	for _, topic := range topics {
		req := subscribeRequest{Method: method, Subscription: subscription{Topic: topic}}
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(req); err != nil {
			return fmt.Errorf("%s %s: %w", method, topic, err)
		}
		switch method {
		case "subscribe":
			c.topics = append(c.topics, topic)
		case "unsubscribe":
			c.topics = removeTopic(c.topics, topic)
		}
		c.logger.Debugw("ws_"+method, "conn", c.id, "topic", topic)
	}
	return nil
}

// Run reads messages and passes them to handler until ctx is cancelled or
// the connection fails. It returns nil after a cancel.
func (c *Conn) Run(ctx context.Context, handler Handler) error {
	done := make(chan struct{})
	defer close(done)

	go c.keepalive(ctx, done)

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	c.conn.SetPingHandler(func(data string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.writeMu.Lock()
		defer c.writeMu.Unlock()
		err := c.conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				c.logger.Infow("ws_closed", "conn", c.id)
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warnw("ws_invalid_message", "conn", c.id, "error", err)
			continue
		}
		if msg.Channel == "" {
			c.logger.Debugw("ws_control_message", "conn", c.id, "body", string(data))
			continue
		}
		handler(msg)
	}
}

// keepalive pings the server and closes the connection when ctx ends, which
// unblocks the read loop.
func (c *Conn) keepalive(ctx context.Context, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			c.Close()
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.writeMu.Unlock()
			if err != nil {
				c.logger.Debugw("ws_ping_failed", "conn", c.id, "error", err)
			}
		}
	}
}

// Close sends a close frame and closes the connection.
func (c *Conn) Close() error {
	c.writeMu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	c.writeMu.Unlock()
	return c.conn.Close()
}

func removeTopic(topics []string, topic string) []string {
	out := topics[:0]
	for _, t := range topics {
		if t != topic {
			out = append(out, t)
		}
	}
	return out
}
