package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/urfave/cli/v2"
)

const (
	FlagConfig      = "config"
	FlagYes         = "yes"
	FlagDebug       = "debug"
	FlagExchangeURL = "exchange-url"
	FlagRPCURL      = "rpc-url"
)

// Flags global command line flags.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    FlagConfig,
			Aliases: []string{"c"},
			Usage:   "path to yaml config",
			Value:   DefaultPath,
		},
		&cli.BoolFlag{
			Name:    FlagYes,
			Aliases: []string{"y"},
			Usage:   "approve every signature and transaction without asking",
		},
		&cli.BoolFlag{
			Name:  FlagDebug,
			Usage: "development logging",
		},
		&cli.StringFlag{
			Name:  FlagExchangeURL,
			Usage: "relayer REST endpoint, overrides the config file",
		},
		&cli.StringFlag{
			Name:    FlagRPCURL,
			Usage:   "Ethereum JSON-RPC endpoint, overrides the config file",
			EnvVars: []string{"L2PAY_RPC_URL"},
		},
	}
}

// FromContext loads the config named by --config and applies flag overrides.
// The default config file is optional, an explicitly given one is not.
func FromContext(c *cli.Context) (Config, error) {
	path := c.String(FlagConfig)
	if !c.IsSet(FlagConfig) {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}

	cfg, err := Load(path)
	if err != nil {
		return Config{}, err
	}

	if v := c.String(FlagExchangeURL); v != "" {
		cfg.ExchangeURL = v
	}
	if v := c.String(FlagRPCURL); v != "" {
		cfg.RPCURL = v
	}
	return cfg, nil
}
