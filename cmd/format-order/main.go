// Command format-order rounds one order onto a market's tick and lot grid
// and prints the chain units to submit.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/uhyunpark/decibel-kit/params"
	"github.com/uhyunpark/decibel-kit/pkg/client"
	"github.com/uhyunpark/decibel-kit/pkg/formatting"
	"github.com/uhyunpark/decibel-kit/pkg/market"
	"github.com/uhyunpark/decibel-kit/pkg/storage"
	"github.com/uhyunpark/decibel-kit/pkg/util"
)

func main() {
	var (
		price      = flag.Float64("price", 0, "limit price in human units")
		size       = flag.Float64("size", 0, "order size in human units")
		name       = flag.String("market", "BTC/USD", "market name")
		pxDecimals = flag.Uint("px-decimals", 9, "price decimals")
		szDecimals = flag.Uint("sz-decimals", 9, "size decimals")
		tick       = flag.Uint64("tick", 1_000_000, "tick size in chain units")
		lot        = flag.Uint64("lot", 10_000_000, "lot size in chain units")
		minSize    = flag.Uint64("min", 10_000_000, "minimum size in chain units")
		fetch      = flag.Bool("fetch", false, "load the market from the exchange using .env config")
		asJSON     = flag.Bool("json", false, "print JSON instead of text")
		envPath    = flag.String("env", "", "path to .env file (with -fetch)")
	)
	flag.Parse()

	logger, err := util.NewLogger(os.Getenv("LOG_LEVEL"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	m := &formatting.MarketConfig{
		MarketName: *name,
		PxDecimals: uint32(*pxDecimals),
		SzDecimals: uint32(*szDecimals),
		TickSize:   *tick,
		LotSize:    *lot,
		MinSize:    *minSize,
	}

	if *fetch {
		m, err = fetchMarket(*envPath, *name, sugar)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Println("Market:")
	fmt.Printf("  Name: %s\n", m.MarketName)
	fmt.Printf("  Tick: %v (%d units, %d decimals)\n", m.TickSizeHuman(), m.TickSize, m.PxDecimals)
	fmt.Printf("  Lot:  %v (%d units, %d decimals)\n", m.LotSizeHuman(), m.LotSize, m.SzDecimals)
	fmt.Printf("  Min:  %v\n\n", m.MinSizeHuman())

	orderParams, err := formatting.FormatOrderParams(*price, *size, m)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		out, err := json.MarshalIndent(orderParams, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(out))
		return
	}

	fmt.Println(orderParams.Format(m))
	formatting.PrintOrderParams(sugar, orderParams, m)
}

func fetchMarket(envPath, name string, sugar *zap.SugaredLogger) (*formatting.MarketConfig, error) {
	cfg, err := params.LoadFromEnv(envPath)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	reg := market.NewRegistry()
	c := client.New(client.OptionsFromConfig(cfg), sugar)
	if _, err := market.NewLoader(c, storage.NewMemoryStore(), reg, sugar).Load(ctx); err != nil {
		return nil, err
	}
	sugar.Infow("markets_fetched", "count", reg.Count())
	return reg.Get(name)
}
