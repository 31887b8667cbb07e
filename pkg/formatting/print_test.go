package formatting

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestPrintOrderParams(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core).Sugar()

	m := testMarket()
	params, err := FormatOrderParams(50000.5001, 1.5, m)
	if err != nil {
		t.Fatal(err)
	}
	PrintOrderParams(logger, params, m)

	entries := logs.FilterMessage("order_params").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 order_params entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()

	if fields["market"] != "BTC/USD" {
		t.Errorf("market = %v", fields["market"])
	}
	if fields["human_price"] != "50000.500" {
		t.Errorf("human_price = %v, want 50000.500", fields["human_price"])
	}
	if fields["human_size"] != "1.500" {
		t.Errorf("human_size = %v, want 1.500", fields["human_size"])
	}
	if fields["chain_price"] != uint64(50000500000000) {
		t.Errorf("chain_price = %v", fields["chain_price"])
	}
	if fields["chain_size"] != uint64(1500000000) {
		t.Errorf("chain_size = %v", fields["chain_size"])
	}
}

func TestOrderParamsFormat(t *testing.T) {
	m := testMarket()
	out := OrderParams{
		HumanPrice: 50000.5,
		HumanSize:  1.5,
		ChainPrice: 50000500000000,
		ChainSize:  1500000000,
	}.Format(m)

	for _, want := range []string{"BTC/USD", "50000.500", "50000500000000", "1.500", "1500000000"} {
		if !strings.Contains(out, want) {
			t.Errorf("Format output missing %q:\n%s", want, out)
		}
	}
}

func TestHumanString(t *testing.T) {
	tests := []struct {
		units    uint64
		decimals uint32
		step     uint64
		want     string
	}{
		{50000500000000, 9, 1_000_000, "50000.500"},
		{1, 9, 1, "0.000000001"},
		{250_000_000, 6, 1_000_000, "250"},
		{10, 0, 10, "10"},
	}
	for _, tt := range tests {
		if got := humanString(tt.units, tt.decimals, tt.step); got != tt.want {
			t.Errorf("humanString(%d, %d, %d) = %q, want %q", tt.units, tt.decimals, tt.step, got, tt.want)
		}
	}
}
