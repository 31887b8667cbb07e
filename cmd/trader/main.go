// Command trader runs the starter kit end to end: it loads markets, keeps
// them fresh, relays market data and serves the local preview API.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/uhyunpark/decibel-kit/params"
	"github.com/uhyunpark/decibel-kit/pkg/api"
	"github.com/uhyunpark/decibel-kit/pkg/client"
	"github.com/uhyunpark/decibel-kit/pkg/crypto"
	"github.com/uhyunpark/decibel-kit/pkg/market"
	"github.com/uhyunpark/decibel-kit/pkg/storage"
	"github.com/uhyunpark/decibel-kit/pkg/stream"
	"github.com/uhyunpark/decibel-kit/pkg/util"
)

func main() {
	envPath := flag.String("env", "", "path to .env file (default: ./.env)")
	fund := flag.Bool("fund", false, "mint test APT to the API wallet before starting")
	refresh := flag.Duration("refresh", 5*time.Minute, "market metadata refresh interval")
	flag.Parse()

	// Load config from .env file and environment variables
	cfg, err := params.LoadFromEnv(*envPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "level", cfg.LogLevel, "log_file", cfg.LogFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Chain / REST client ----
	c := client.New(client.OptionsFromConfig(cfg), sugar)
	if info, err := c.LedgerInfo(ctx); err != nil {
		sugar.Warnw("fullnode_unreachable", "url", cfg.FullnodeURL, "err", err)
	} else {
		sugar.Infow("fullnode_connected", "chain_id", info.ChainID, "ledger_version", info.LedgerVersion)
	}

	if *fund {
		hashes, err := c.FundAccount(ctx, cfg.APIWalletAddress, client.DefaultFundAmount)
		if err != nil {
			sugar.Fatalw("faucet_failed", "err", err)
		}
		for _, h := range hashes {
			sugar.Infow("faucet_txn", "hash", h, "explorer", crypto.ExplorerLink(h, ""))
		}
	}

	// ---- Market metadata ----
	store, err := openStore(cfg)
	if err != nil {
		sugar.Fatalw("market_store_open_failed", "dir", cfg.MarketCacheDir, "err", err)
	}
	defer store.Close()

	registry := market.NewRegistry()
	loader := market.NewLoader(c, store, registry, sugar)
	if _, err := loader.Load(ctx); err != nil {
		sugar.Warnw("markets_unavailable", "err", err)
	}
	if *refresh > 0 {
		go loader.Run(ctx, *refresh)
	}

	// ---- API Server ----
	apiServer := api.NewServer(ctx, registry, sugar)
	go func() {
		if err := apiServer.Start(cfg.APIAddr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	// ---- Market data ----
	topics := marketTopics(cfg, registry)
	if len(topics) == 0 {
		sugar.Infow("stream_disabled", "reason", "no MARKET_ADDRESS or MARKET_NAME configured")
		<-ctx.Done()
		return
	}

	sub := &stream.Subscriber{
		URL:    cfg.WebsocketURL,
		Token:  cfg.APIBearerToken.Reveal(),
		Topics: topics,
		Logger: sugar,
	}
	sugar.Infow("stream_starting", "url", cfg.WebsocketURL, "topics", topics)
	if err := sub.Run(ctx, apiServer.Relay); err != nil {
		sugar.Errorw("stream_failed", "err", err)
	}
}

func newLogger(cfg params.Config) (*zap.Logger, error) {
	if cfg.LogFile != "" {
		return util.NewLoggerWithFile(cfg.LogFile, cfg.LogLevel)
	}
	return util.NewLogger(cfg.LogLevel)
}

func openStore(cfg params.Config) (storage.MarketStore, error) {
	if cfg.MarketCacheDir == "" {
		return storage.NewMemoryStore(), nil
	}
	return storage.NewPebbleStore(cfg.MarketCacheDir)
}

// marketTopics returns the stream topics for the configured market. The
// address comes from MARKET_ADDRESS, or from the loaded metadata of
// MARKET_NAME.
func marketTopics(cfg params.Config, registry *market.Registry) []string {
	var addr string
	switch {
	case cfg.MarketAddress != nil:
		addr = cfg.MarketAddress.Hex()
	case cfg.MarketName != "":
		m, err := registry.Get(cfg.MarketName)
		if err != nil || m.MarketAddr == "" {
			return nil
		}
		addr = m.MarketAddr
	default:
		return nil
	}
	return []string{
		"depth:" + addr,
		"trades:" + addr,
		"market_price:" + addr,
	}
}
