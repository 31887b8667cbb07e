// Package client talks to the fullnode, the faucet and the Decibel REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/uhyunpark/decibel-kit/params"
	"github.com/uhyunpark/decibel-kit/pkg/util"
)

// APIError represents an HTTP error response
type APIError struct {
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: status=%d body=%s", e.StatusCode, string(e.Body))
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

type Options struct {
	RESTBaseURL string
	FullnodeURL string
	FaucetURL   string
	BearerToken string

	// Per-request timeout
	Timeout time.Duration
	// Requests per second across the client. Zero disables limiting.
	RateLimit float64
	RateBurst int

	MaxRetries int
	RetryDelay time.Duration
	RetryMax   time.Duration

	// Transaction confirmation
	PollInterval time.Duration
	WaitTimeout  time.Duration
	Clock        util.Clock

	HTTPClient *http.Client
}

func DefaultOptions() Options {
	return Options{
		RESTBaseURL:  params.DefaultRESTAPIBaseURL,
		FullnodeURL:  params.DefaultFullnodeURL,
		FaucetURL:    params.DefaultFaucetURL,
		Timeout:      10 * time.Second,
		RateLimit:    10,
		RateBurst:    20,
		MaxRetries:   3,
		RetryDelay:   100 * time.Millisecond,
		RetryMax:     2 * time.Second,
		PollInterval: 500 * time.Millisecond,
		WaitTimeout:  30 * time.Second,
		Clock:        util.RealClock{},
	}
}

// OptionsFromConfig fills the endpoints and token from cfg and keeps the
// remaining defaults.
func OptionsFromConfig(cfg params.Config) Options {
	opts := DefaultOptions()
	opts.RESTBaseURL = cfg.RESTAPIBaseURL
	opts.FullnodeURL = cfg.FullnodeURL
	opts.FaucetURL = cfg.FaucetURL
	opts.BearerToken = cfg.APIBearerToken.Reveal()
	return opts
}

// Client is safe for concurrent use.
type Client struct {
	opts     Options
	http     *http.Client
	limiter  *rate.Limiter
	pipeline failsafe.Executor[*http.Response]
	logger   *zap.SugaredLogger
}

func New(opts Options, logger *zap.SugaredLogger) *Client {
	def := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = def.RetryDelay
	}
	if opts.RetryMax < opts.RetryDelay {
		opts.RetryMax = opts.RetryDelay
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = def.PollInterval
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = def.WaitTimeout
	}
	if opts.Clock == nil {
		opts.Clock = util.RealClock{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	// Retry on network errors, 429 and 5xx
	retryPolicy := retrypolicy.NewBuilder[*http.Response]().
		HandleIf(func(resp *http.Response, err error) bool {
			if err != nil {
				return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
			}
			return resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		}).
		WithBackoff(opts.RetryDelay, opts.RetryMax).
		WithMaxRetries(opts.MaxRetries).
		ReturnLastFailure().
		OnRetry(func(e failsafe.ExecutionEvent[*http.Response]) {
			if resp := e.LastResult(); resp != nil {
				resp.Body.Close()
			}
			logger.Debugw("http_retry", "attempt", e.Attempts(), "error", e.LastError())
		}).
		Build()

	// Open on repeated server failures
	breaker := circuitbreaker.NewBuilder[*http.Response]().
		HandleIf(func(resp *http.Response, err error) bool {
			if err != nil {
				return !errors.Is(err, context.Canceled)
			}
			return resp.StatusCode >= 500
		}).
		WithFailureThresholdRatio(5, 10).
		WithDelay(10 * time.Second).
		Build()

	return &Client{
		opts:     opts,
		http:     httpClient,
		limiter:  limiter,
		pipeline: failsafe.With[*http.Response](retryPolicy, breaker),
		logger:   logger,
	}
}

func (c *Client) Options() Options { return c.opts }

// AuthenticatedFetch sends a request with the bearer token. A relative url is
// resolved against the REST base URL. A non-nil body is sent as JSON.
func (c *Client) AuthenticatedFetch(ctx context.Context, method, url string, body any, headers map[string]string) ([]byte, error) {
	h := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		h[k] = v
	}
	if c.opts.BearerToken != "" {
		h["Authorization"] = "Bearer " + c.opts.BearerToken
	}
	return c.fetch(ctx, method, resolve(c.opts.RESTBaseURL, url), body, h)
}

// GetJSON fetches path with AuthenticatedFetch and decodes the response into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	data, err := c.AuthenticatedFetch(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// LedgerInfo is the fullnode index response.
type LedgerInfo struct {
	ChainID         uint8  `json:"chain_id"`
	Epoch           string `json:"epoch"`
	LedgerVersion   string `json:"ledger_version"`
	BlockHeight     string `json:"block_height"`
	LedgerTimestamp string `json:"ledger_timestamp"`
	NodeRole        string `json:"node_role"`
}

// LedgerInfo checks fullnode connectivity.
func (c *Client) LedgerInfo(ctx context.Context) (*LedgerInfo, error) {
	data, err := c.fetch(ctx, http.MethodGet, resolve(c.opts.FullnodeURL, "/"), nil, nil)
	if err != nil {
		return nil, err
	}
	var info LedgerInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("decode ledger info: %w", err)
	}
	return &info, nil
}

func (c *Client) fetch(ctx context.Context, method, url string, body any, headers map[string]string) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
	}

	start := time.Now()
	resp, err := c.pipeline.WithContext(ctx).GetWithExecution(func(exec failsafe.Execution[*http.Response]) (*http.Response, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return c.http.Do(req)
	})
	if err != nil {
		c.logger.Debugw("http_request_failed", "method", method, "url", url, "error", err)
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.Debugw("http_request", "method", method, "url", url,
		"status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: data}
	}
	return data, nil
}

func resolve(base, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
