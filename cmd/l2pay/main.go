// Command l2pay is a terminal wallet for a layer-2 payment exchange: it unlocks
// the exchange account of a locally held Ethereum key, shows balances and history,
// and signs transfers, deposits, withdrawals and token approvals.
//
// Usage:
//
//	l2pay setup
//	l2pay --config l2pay.yaml balances
//	l2pay transfer --token LRC --to 0x... --amount 10
//
// Required environment variables:
//
//	L2PAY_PRIVATE_KEY: hex private key of the wallet
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/vadiminshakov/l2pay/config"
)

func main() {
	app := &cli.App{
		Name:     "l2pay",
		Usage:    "layer-2 payment wallet",
		Flags:    config.Flags(),
		Commands: commands(),
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
}
