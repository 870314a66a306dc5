package domain

import "fmt"

var explorers = map[int64]string{
	1: "https://etherscan.io",
	5: "https://goerli.etherscan.io",
}

// ExplorerTxURL returns a block explorer link for the transaction hash.
func ExplorerTxURL(chainID int64, hash string) string {
	base, ok := explorers[chainID]
	if !ok {
		base = explorers[1]
	}
	return fmt.Sprintf("%s/tx/%s", base, hash)
}
