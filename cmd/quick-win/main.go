// Command quick-win checks that the environment is configured for the kit.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/uhyunpark/decibel-kit/params"
	"github.com/uhyunpark/decibel-kit/pkg/client"
	"github.com/uhyunpark/decibel-kit/pkg/util"
)

func main() {
	envPath := flag.String("env", "", "path to .env file (default: ./.env)")
	ping := flag.Bool("ping", false, "also check fullnode connectivity")
	flag.Parse()

	cfg, err := params.LoadFromEnv(*envPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger, err := util.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	fmt.Println("Config successfully validated!")
	fmt.Print(cfg)

	acc, matches, err := cfg.Account()
	if err != nil {
		sugar.Fatalw("invalid_private_key", "err", err)
	}
	if !matches {
		sugar.Warnw("wallet_address_mismatch",
			"configured", cfg.APIWalletAddress.Hex(),
			"derived", acc.Address().Hex(),
			"note", "expected only if the key was rotated")
	}
	sugar.Infow("subaccount", "address", cfg.Subaccount().Hex(), "explicit", cfg.SubaccountAddress != nil)

	if *ping {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		info, err := client.New(client.OptionsFromConfig(cfg), sugar).LedgerInfo(ctx)
		if err != nil {
			sugar.Fatalw("fullnode_unreachable", "url", cfg.FullnodeURL, "err", err)
		}
		sugar.Infow("fullnode_ok", "chain_id", info.ChainID, "ledger_version", info.LedgerVersion)
	}
}
