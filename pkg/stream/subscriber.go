package stream

import (
	"context"
	"errors"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"go.uber.org/zap"
)

// Subscriber keeps a subscription alive across disconnects.
type Subscriber struct {
	URL    string
	Token  string
	Topics []string

	// Reconnect backoff bounds
	MinDelay time.Duration
	MaxDelay time.Duration

	Logger *zap.SugaredLogger
}

// Run dials, subscribes and reads until ctx is cancelled, redialing with
// exponential backoff whenever the connection drops.
func (s *Subscriber) Run(ctx context.Context, handler Handler) error {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	minDelay, maxDelay := s.MinDelay, s.MaxDelay
	if minDelay <= 0 {
		minDelay = time.Second
	}
	if maxDelay < minDelay {
		maxDelay = 30 * time.Second
		if maxDelay < minDelay {
			maxDelay = minDelay
		}
	}

	dialPolicy := retrypolicy.NewBuilder[*Conn]().
		HandleIf(func(_ *Conn, err error) bool {
			return err != nil && !errors.Is(err, context.Canceled)
		}).
		WithBackoff(minDelay, maxDelay).
		WithMaxRetries(-1).
		OnRetry(func(e failsafe.ExecutionEvent[*Conn]) {
			logger.Warnw("ws_redial", "attempt", e.Attempts(), "error", e.LastError())
		}).
		Build()
	dialer := failsafe.With[*Conn](dialPolicy)

	for {
		conn, err := dialer.WithContext(ctx).Get(func() (*Conn, error) {
			c, err := Dial(ctx, s.URL, s.Token, logger)
			if err != nil {
				return nil, err
			}
			if err := c.Subscribe(s.Topics...); err != nil {
				c.Close()
				return nil, err
			}
			return c, nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		err = conn.Run(ctx, handler)
		conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		logger.Warnw("ws_disconnected", "conn", conn.ID(), "error", err)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(minDelay):
		}
	}
}
