package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const pendingTransaction = "pending_transaction"

var ErrTransactionFailed = errors.New("transaction failed")

type Event struct {
	Type           string          `json:"type"`
	SequenceNumber string          `json:"sequence_number"`
	Data           json.RawMessage `json:"data"`
}

// Transaction is the subset of the fullnode transaction view the kit reads.
type Transaction struct {
	Type     string  `json:"type"`
	Hash     string  `json:"hash"`
	Version  string  `json:"version"`
	Success  bool    `json:"success"`
	VMStatus string  `json:"vm_status"`
	GasUsed  string  `json:"gas_used"`
	Sender   string  `json:"sender"`
	Events   []Event `json:"events"`
}

func (t *Transaction) Pending() bool { return t.Type == pendingTransaction }

// EventsOfType returns the events whose type ends with suffix, e.g.
// "::market::OrderPlaced".
func (t *Transaction) EventsOfType(suffix string) []Event {
	var out []Event
	for _, e := range t.Events {
		if strings.HasSuffix(e.Type, suffix) {
			out = append(out, e)
		}
	}
	return out
}

// TransactionByHash fetches a transaction. A 404 means the fullnode has not
// seen it yet.
func (c *Client) TransactionByHash(ctx context.Context, hash string) (*Transaction, error) {
	u := resolve(c.opts.FullnodeURL, "/transactions/by_hash/"+url.PathEscape(hash))
	data, err := c.fetch(ctx, http.MethodGet, u, nil, nil)
	if err != nil {
		return nil, err
	}
	var tx Transaction
	if err := json.Unmarshal(data, &tx); err != nil {
		return nil, fmt.Errorf("decode transaction %s: %w", hash, err)
	}
	return &tx, nil
}

// WaitForTransaction polls until the transaction is committed. It returns the
// committed transaction, wrapping ErrTransactionFailed when it aborted, or
// context.DeadlineExceeded after the configured wait timeout.
func (c *Client) WaitForTransaction(ctx context.Context, hash string) (*Transaction, error) {
	clock := c.opts.Clock
	deadline := clock.Now().Add(c.opts.WaitTimeout)

	for attempt := 1; ; attempt++ {
		tx, err := c.TransactionByHash(ctx, hash)
		switch {
		case err == nil && !tx.Pending():
			if !tx.Success {
				c.logger.Warnw("transaction_failed", "hash", hash, "vm_status", tx.VMStatus)
				return tx, fmt.Errorf("%w: %s: %s", ErrTransactionFailed, hash, tx.VMStatus)
			}
			c.logger.Infow("transaction_committed", "hash", hash, "version", tx.Version, "attempts", attempt)
			return tx, nil
		case err != nil && !IsNotFound(err):
			return nil, err
		}

		if !clock.Now().Before(deadline) {
			return nil, fmt.Errorf("waiting for transaction %s: %w", hash, context.DeadlineExceeded)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-clock.After(c.opts.PollInterval):
		}
	}
}
