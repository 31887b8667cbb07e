package crypto

import (
	"fmt"
	"net/url"
	"strings"
)

const explorerBaseURL = "https://explorer.aptoslabs.com"

// DefaultExplorerNetwork is the only network the link format has been checked against.
const DefaultExplorerNetwork = "netna"

// ExplorerLink returns the explorer page of a transaction hash.
// Only tested for Netna staging; for other networks the user may need to
// pick the network from the explorer dropdown.
func ExplorerLink(hash, network string) string {
	if network == "" {
		network = DefaultExplorerNetwork
	}
	hash = strings.TrimSpace(hash)
	if !strings.HasPrefix(hash, "0x") {
		hash = "0x" + hash
	}
	return fmt.Sprintf("%s/txn/%s?network=%s", explorerBaseURL, url.PathEscape(hash), url.QueryEscape(network))
}
