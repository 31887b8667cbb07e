package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/uhyunpark/decibel-kit/pkg/crypto"
)

// DefaultFundAmount is 100 APT in octas.
const DefaultFundAmount uint64 = 10_000_000_000

// FundAccount mints amount octas to addr through the faucet and waits for the
// faucet transactions to commit. Zero amount means DefaultFundAmount.
func (c *Client) FundAccount(ctx context.Context, addr crypto.Address, amount uint64) ([]string, error) {
	if amount == 0 {
		amount = DefaultFundAmount
	}
	q := url.Values{}
	q.Set("amount", strconv.FormatUint(amount, 10))
	q.Set("address", addr.Hex())

	data, err := c.fetch(ctx, http.MethodPost, resolve(c.opts.FaucetURL, "/mint")+"?"+q.Encode(), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("faucet mint: %w", err)
	}

	var hashes []string
	if err := json.Unmarshal(data, &hashes); err != nil {
		return nil, fmt.Errorf("decode faucet response: %w", err)
	}
	c.logger.Infow("faucet_minted", "address", addr.Hex(), "amount", amount, "txns", len(hashes))

	for _, h := range hashes {
		if _, err := c.WaitForTransaction(ctx, h); err != nil {
			return hashes, err
		}
	}
	return hashes, nil
}
