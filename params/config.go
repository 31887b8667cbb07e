// Package params holds the trading client configuration.
//
// All values come from the process environment and an optional .env file,
// with fallbacks to documented defaults.
package params

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/uhyunpark/decibel-kit/pkg/crypto"
)

// Blockchain configuration
const (
	DefaultPackageAddress = "0xb8a5788314451ce4d2fbbad32e1bad88d4184b73943b7fe5166eab93cf1a5a95"
	DefaultFullnodeURL    = "https://api.netna.staging.aptoslabs.com/v1"
	DefaultFaucetURL      = "https://faucet-dev-netna-us-central1-410192433417.us-central1.run.app"
)

// API configuration
const (
	DefaultRESTAPIBaseURL = "https://api.netna.aptoslabs.com/decibel"
	DefaultWebsocketURL   = "wss://api.netna.aptoslabs.com/decibel/ws"
)

// Local runtime
const (
	DefaultLogLevel = "info"
	DefaultAPIAddr  = ":8080"
)

var (
	ErrMissingEnv = errors.New("environment variable not defined")
	ErrEmptyEnv   = errors.New("environment variable is defined but is empty")
)

type Config struct {
	// Defaults to DefaultPackageAddress
	PackageAddress crypto.Address
	// Defaults to DefaultFullnodeURL
	FullnodeURL string
	// Must be user-defined
	APIWalletAddress crypto.Address
	// Must be user-defined
	APIWalletPrivateKey Secret
	// Defaults to DefaultRESTAPIBaseURL
	RESTAPIBaseURL string
	// Defaults to DefaultWebsocketURL
	WebsocketURL string
	// Must be user-defined
	APIBearerToken Secret
	// nil when unset or not a valid address
	SubaccountAddress *crypto.Address
	// nil when unset or not a valid address
	MarketAddress *crypto.Address
	MarketName    string

	FaucetURL      string
	LogLevel       string
	LogFile        string
	APIAddr        string
	MarketCacheDir string
}

// Default returns a Config with every optional value at its default and the
// required values empty.
func Default() Config {
	return Config{
		PackageAddress: crypto.MustParseAddress(DefaultPackageAddress),
		FullnodeURL:    DefaultFullnodeURL,
		RESTAPIBaseURL: DefaultRESTAPIBaseURL,
		WebsocketURL:   DefaultWebsocketURL,
		FaucetURL:      DefaultFaucetURL,
		LogLevel:       DefaultLogLevel,
		APIAddr:        DefaultAPIAddr,
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
//
// An empty envPath reads ./.env when present. A non-empty envPath must name a
// readable file.
//
// It fails when API_WALLET_ADDRESS, API_WALLET_PRIVATE_KEY or API_BEARER_TOKEN
// is missing or malformed, or when an optional value is provided but malformed.
// SUBACCOUNT_ADDRESS and MARKET_ADDRESS are the exception: a malformed value
// is treated as unset.
func LoadFromEnv(envPath string) (Config, error) {
	// An explicit path must exist; the default ./.env is optional
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			return Config{}, fmt.Errorf("load env file %s: %w", envPath, err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg := Default()
	var err error

	if v, ok := optionalEnv("PACKAGE_ADDRESS"); ok {
		if cfg.PackageAddress, err = crypto.ParseAddress(v); err != nil {
			return Config{}, fmt.Errorf("PACKAGE_ADDRESS: %w", err)
		}
	}
	if v, ok := optionalEnv("FULLNODE_URL"); ok {
		cfg.FullnodeURL = v
	}

	wallet, err := requiredEnv("API_WALLET_ADDRESS")
	if err != nil {
		return Config{}, err
	}
	if cfg.APIWalletAddress, err = crypto.ParseAddress(wallet); err != nil {
		return Config{}, fmt.Errorf("API_WALLET_ADDRESS: %w", err)
	}
	key, err := requiredEnv("API_WALLET_PRIVATE_KEY")
	if err != nil {
		return Config{}, err
	}
	cfg.APIWalletPrivateKey = Secret(key)

	if v, ok := optionalEnv("REST_API_BASE_URL"); ok {
		cfg.RESTAPIBaseURL = v
	}
	if v, ok := optionalEnv("WEBSOCKET_URL"); ok {
		cfg.WebsocketURL = v
	}

	token, err := requiredEnv("API_BEARER_TOKEN")
	if err != nil {
		return Config{}, err
	}
	cfg.APIBearerToken = Secret(token)

	cfg.SubaccountAddress = lenientAddress("SUBACCOUNT_ADDRESS")
	cfg.MarketAddress = lenientAddress("MARKET_ADDRESS")
	cfg.MarketName, _ = optionalEnv("MARKET_NAME")

	if v, ok := optionalEnv("FAUCET_URL"); ok {
		cfg.FaucetURL = v
	}
	if v, ok := optionalEnv("LOG_LEVEL"); ok {
		cfg.LogLevel = strings.ToLower(v)
	}
	cfg.LogFile, _ = optionalEnv("LOG_FILE")
	if v, ok := optionalEnv("API_ADDR"); ok {
		cfg.APIAddr = v
	}
	cfg.MarketCacheDir, _ = optionalEnv("MARKET_CACHE_DIR")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that all required values are present and that every URL is
// absolute with a scheme the client can use.
func (c Config) Validate() error {
	if c.APIWalletAddress.IsZero() {
		return fmt.Errorf("API_WALLET_ADDRESS: %w", ErrMissingEnv)
	}
	if c.APIWalletPrivateKey == "" {
		return fmt.Errorf("API_WALLET_PRIVATE_KEY: %w", ErrMissingEnv)
	}
	if c.APIBearerToken == "" {
		return fmt.Errorf("API_BEARER_TOKEN: %w", ErrMissingEnv)
	}
	urls := []struct {
		name, value string
		schemes     []string
	}{
		{"FULLNODE_URL", c.FullnodeURL, []string{"http", "https"}},
		{"REST_API_BASE_URL", c.RESTAPIBaseURL, []string{"http", "https"}},
		{"WEBSOCKET_URL", c.WebsocketURL, []string{"ws", "wss"}},
		{"FAUCET_URL", c.FaucetURL, []string{"http", "https"}},
	}
	for _, u := range urls {
		if err := checkURL(u.value, u.schemes); err != nil {
			return fmt.Errorf("%s: %w", u.name, err)
		}
	}
	return nil
}

// String prints the configuration with secrets masked.
func (c Config) String() string {
	var b strings.Builder
	b.WriteString("Config:\n")
	row := func(k string, v any) { fmt.Fprintf(&b, "  %-22s %v\n", k, v) }
	row("package_address", c.PackageAddress)
	row("fullnode_url", c.FullnodeURL)
	row("api_wallet_address", c.APIWalletAddress)
	row("api_wallet_private_key", c.APIWalletPrivateKey)
	row("rest_api_base_url", c.RESTAPIBaseURL)
	row("websocket_url", c.WebsocketURL)
	row("api_bearer_token", c.APIBearerToken)
	row("subaccount_address", optionalAddress(c.SubaccountAddress))
	row("market_address", optionalAddress(c.MarketAddress))
	row("market_name", orNone(c.MarketName))
	row("faucet_url", c.FaucetURL)
	row("log_level", c.LogLevel)
	row("log_file", orNone(c.LogFile))
	row("api_addr", c.APIAddr)
	row("market_cache_dir", orNone(c.MarketCacheDir))
	return b.String()
}

// Subaccount returns the configured subaccount, or the primary subaccount of
// the API wallet when none is configured.
func (c Config) Subaccount() crypto.Address {
	if c.SubaccountAddress != nil {
		return *c.SubaccountAddress
	}
	return crypto.PrimarySubaccountAddress(c.APIWalletAddress)
}

func requiredEnv(key string) (string, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return "", fmt.Errorf("%s: %w", key, ErrMissingEnv)
	}
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", fmt.Errorf("%s: %w", key, ErrEmptyEnv)
	}
	return v, nil
}

// optionalEnv treats a defined but blank variable as unset.
func optionalEnv(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

func lenientAddress(key string) *crypto.Address {
	v, ok := optionalEnv(key)
	if !ok {
		return nil
	}
	a, err := crypto.ParseAddress(v)
	if err != nil {
		return nil
	}
	return &a
}

func checkURL(raw string, schemes []string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Host == "" {
		return fmt.Errorf("%q is not an absolute URL", raw)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("%q: scheme %q not one of %v", raw, u.Scheme, schemes)
}

func optionalAddress(a *crypto.Address) string {
	if a == nil {
		return "None"
	}
	return a.Hex()
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}

// Account loads the API wallet key. matches is false when the key does not
// authenticate APIWalletAddress, which is expected after a key rotation.
func (c Config) Account() (acc *crypto.Account, matches bool, err error) {
	acc, err = crypto.AccountFromPrivateKeyHex(c.APIWalletPrivateKey.Reveal())
	if err != nil {
		return nil, false, fmt.Errorf("API_WALLET_PRIVATE_KEY: %w", err)
	}
	return acc, acc.Matches(c.APIWalletAddress), nil
}
