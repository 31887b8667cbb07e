package params

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const (
	testWallet = "0x00000000000000000000000000000000000000000000000000000000000000aa"
	testKey    = "0x9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60"
	testToken  = "bearer-token-123"
)

var allKeys = []string{
	"PACKAGE_ADDRESS", "FULLNODE_URL", "API_WALLET_ADDRESS", "API_WALLET_PRIVATE_KEY",
	"REST_API_BASE_URL", "WEBSOCKET_URL", "API_BEARER_TOKEN", "SUBACCOUNT_ADDRESS",
	"MARKET_ADDRESS", "MARKET_NAME", "FAUCET_URL", "LOG_LEVEL", "LOG_FILE", "API_ADDR",
	"MARKET_CACHE_DIR",
}

// isolate clears every variable the loader reads and returns an empty .env
// file so a developer's .env cannot leak in.
func isolate(t *testing.T) string {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func setRequired(t *testing.T) {
	t.Setenv("API_WALLET_ADDRESS", testWallet)
	t.Setenv("API_WALLET_PRIVATE_KEY", testKey)
	t.Setenv("API_BEARER_TOKEN", testToken)
}

func TestLoadFromEnvDefaults(t *testing.T) {
	envPath := isolate(t)
	setRequired(t)

	cfg, err := LoadFromEnv(envPath)
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}

	if cfg.PackageAddress.Hex() != DefaultPackageAddress {
		t.Errorf("PackageAddress = %s", cfg.PackageAddress)
	}
	if cfg.FullnodeURL != DefaultFullnodeURL {
		t.Errorf("FullnodeURL = %s", cfg.FullnodeURL)
	}
	if cfg.RESTAPIBaseURL != DefaultRESTAPIBaseURL {
		t.Errorf("RESTAPIBaseURL = %s", cfg.RESTAPIBaseURL)
	}
	if cfg.WebsocketURL != DefaultWebsocketURL {
		t.Errorf("WebsocketURL = %s", cfg.WebsocketURL)
	}
	if cfg.APIWalletAddress.Hex() != testWallet {
		t.Errorf("APIWalletAddress = %s", cfg.APIWalletAddress)
	}
	if cfg.APIWalletPrivateKey.Reveal() != testKey {
		t.Errorf("APIWalletPrivateKey not loaded")
	}
	if cfg.APIBearerToken.Reveal() != testToken {
		t.Errorf("APIBearerToken not loaded")
	}
	if cfg.SubaccountAddress != nil || cfg.MarketAddress != nil || cfg.MarketName != "" {
		t.Errorf("optional values should be unset: %+v", cfg)
	}
	if cfg.LogLevel != DefaultLogLevel || cfg.APIAddr != DefaultAPIAddr {
		t.Errorf("runtime defaults wrong: level %q addr %q", cfg.LogLevel, cfg.APIAddr)
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	envPath := isolate(t)
	setRequired(t)
	t.Setenv("PACKAGE_ADDRESS", "0x1")
	t.Setenv("FULLNODE_URL", "http://localhost:8081/v1")
	t.Setenv("REST_API_BASE_URL", " http://localhost:9000 ")
	t.Setenv("WEBSOCKET_URL", "ws://localhost:9000/ws")
	t.Setenv("SUBACCOUNT_ADDRESS", "0x2")
	t.Setenv("MARKET_ADDRESS", "0x3")
	t.Setenv("MARKET_NAME", "BTC/USD")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := LoadFromEnv(envPath)
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.PackageAddress.Hex() != "0x"+strings.Repeat("0", 63)+"1" {
		t.Errorf("PackageAddress = %s", cfg.PackageAddress)
	}
	if cfg.RESTAPIBaseURL != "http://localhost:9000" {
		t.Errorf("value not trimmed: %q", cfg.RESTAPIBaseURL)
	}
	if cfg.SubaccountAddress == nil || cfg.SubaccountAddress.Hex() != "0x"+strings.Repeat("0", 63)+"2" {
		t.Errorf("SubaccountAddress = %v", cfg.SubaccountAddress)
	}
	if cfg.MarketAddress == nil {
		t.Error("MarketAddress not loaded")
	}
	if cfg.MarketName != "BTC/USD" {
		t.Errorf("MarketName = %q", cfg.MarketName)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestLoadFromEnvFile(t *testing.T) {
	envPath := isolate(t)
	content := fmt.Sprintf("API_WALLET_ADDRESS=%s\nAPI_WALLET_PRIVATE_KEY=%s\nAPI_BEARER_TOKEN=%s\nMARKET_NAME=ETH/USD\n",
		testWallet, testKey, testToken)
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	// Process env wins over the file.
	t.Setenv("MARKET_NAME", "SOL/USD")

	cfg, err := LoadFromEnv(envPath)
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.APIWalletAddress.Hex() != testWallet {
		t.Errorf("APIWalletAddress = %s", cfg.APIWalletAddress)
	}
	if cfg.MarketName != "SOL/USD" {
		t.Errorf("MarketName = %q, want process env value", cfg.MarketName)
	}
}

func TestLoadFromEnvMissingFile(t *testing.T) {
	envPath := isolate(t)
	setRequired(t)

	missing := filepath.Join(filepath.Dir(envPath), "missing.env")
	if _, err := LoadFromEnv(missing); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("error = %v, want fs.ErrNotExist", err)
	}

	// Without an explicit path a missing ./.env is fine.
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(filepath.Dir(envPath)); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	os.Remove(envPath)
	if _, err := LoadFromEnv(""); err != nil {
		t.Fatalf("LoadFromEnv(\"\"): %v", err)
	}
}

func TestLoadFromEnvRequired(t *testing.T) {
	for _, key := range []string{"API_WALLET_ADDRESS", "API_WALLET_PRIVATE_KEY", "API_BEARER_TOKEN"} {
		t.Run(key+" missing", func(t *testing.T) {
			envPath := isolate(t)
			setRequired(t)
			os.Unsetenv(key)

			_, err := LoadFromEnv(envPath)
			if !errors.Is(err, ErrMissingEnv) {
				t.Fatalf("error = %v, want ErrMissingEnv", err)
			}
			if !strings.Contains(err.Error(), key) {
				t.Errorf("error %q does not name %s", err, key)
			}
		})
		t.Run(key+" blank", func(t *testing.T) {
			envPath := isolate(t)
			setRequired(t)
			t.Setenv(key, "   ")

			if _, err := LoadFromEnv(envPath); !errors.Is(err, ErrEmptyEnv) {
				t.Fatalf("error = %v, want ErrEmptyEnv", err)
			}
		})
	}
}

func TestLoadFromEnvMalformed(t *testing.T) {
	tests := []struct {
		key, value string
		wantErr    bool
	}{
		{"API_WALLET_ADDRESS", "not-an-address", true},
		{"PACKAGE_ADDRESS", "0xzz", true},
		{"FULLNODE_URL", "not a url", true},
		{"WEBSOCKET_URL", "https://wrong-scheme", true},
		// Optional addresses fall back to unset.
		{"SUBACCOUNT_ADDRESS", "garbage", false},
		{"MARKET_ADDRESS", "garbage", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			envPath := isolate(t)
			setRequired(t)
			t.Setenv(tt.key, tt.value)

			cfg, err := LoadFromEnv(envPath)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && (cfg.SubaccountAddress != nil || cfg.MarketAddress != nil) {
				t.Errorf("malformed optional address was kept")
			}
		})
	}
}

func TestConfigStringMasksSecrets(t *testing.T) {
	envPath := isolate(t)
	setRequired(t)

	cfg, err := LoadFromEnv(envPath)
	if err != nil {
		t.Fatal(err)
	}
	out := cfg.String()

	if strings.Contains(out, testKey) || strings.Contains(out, testToken) {
		t.Fatalf("secret leaked:\n%s", out)
	}
	for _, want := range []string{redacted, testWallet, DefaultFullnodeURL, "None"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if gs := fmt.Sprintf("%#v", cfg); strings.Contains(gs, testToken) {
		t.Errorf("%%#v leaked secret: %s", gs)
	}
}

func TestSecret(t *testing.T) {
	s := Secret("password123")
	if s.String() != redacted {
		t.Errorf("String() = %q", s.String())
	}
	if fmt.Sprintf("%v", s) != redacted {
		t.Errorf("%%v leaked")
	}
	if Secret("").String() != "" {
		t.Errorf("empty secret should print empty")
	}
	if data, _ := json.Marshal(Secret("")); string(data) != `""` {
		t.Errorf("empty secret marshals to %s, want \"\"", data)
	}
	data, err := json.Marshal(struct{ Key Secret }{s})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "password123") {
		t.Errorf("json leaked: %s", data)
	}
	if s.Reveal() != "password123" {
		t.Errorf("Reveal() = %q", s.Reveal())
	}
}

func TestSubaccountFallsBackToPrimary(t *testing.T) {
	envPath := isolate(t)
	setRequired(t)

	cfg, err := LoadFromEnv(envPath)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Subaccount().IsZero() || cfg.Subaccount() == cfg.APIWalletAddress {
		t.Errorf("Subaccount() = %s, want derived primary subaccount", cfg.Subaccount())
	}

	explicit := cfg.APIWalletAddress
	cfg.SubaccountAddress = &explicit
	if cfg.Subaccount() != explicit {
		t.Errorf("Subaccount() ignored configured address")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); !errors.Is(err, ErrMissingEnv) {
		t.Fatalf("Validate() on defaults = %v, want ErrMissingEnv", err)
	}
}

func TestConfigAccount(t *testing.T) {
	envPath := isolate(t)
	setRequired(t)

	cfg, err := LoadFromEnv(envPath)
	if err != nil {
		t.Fatal(err)
	}
	acc, matches, err := cfg.Account()
	if err != nil {
		t.Fatalf("Account: %v", err)
	}
	if matches {
		t.Error("key should not authenticate the placeholder wallet")
	}

	cfg.APIWalletAddress = acc.Address()
	if _, matches, _ = cfg.Account(); !matches {
		t.Error("key should authenticate its own address")
	}

	cfg.APIWalletPrivateKey = "0x1234"
	if _, _, err := cfg.Account(); err == nil {
		t.Error("expected error for short key")
	}
}
