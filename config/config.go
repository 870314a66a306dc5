package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultPath config file looked up when --config is not given.
	DefaultPath = "l2pay.yaml"
	// PrivateKeyEnv environment variable holding the wallet private key.
	PrivateKeyEnv = "L2PAY_PRIVATE_KEY"

	defaultExchangeURL       = "https://api.loopring.io"
	defaultChainID           = 1
	defaultStateDir          = "./wal/prefs"
	defaultJournalDir        = "./wal/journal"
	defaultWebAddr           = "127.0.0.1:8080"
	defaultPageSize          = 50
	defaultRequestsPerSecond = "5"
)

type Config struct {
	ExchangeURL       string
	RPCURL            string
	ChainID           int64
	PrivateKey        string
	StateDir          string
	JournalDir        string
	WebAddr           string
	PageSize          int
	RequestsPerSecond decimal.Decimal
}

// ConfigTmp raw yaml form of Config.
type ConfigTmp struct {
	ExchangeURL          string `yaml:"exchange_url,omitempty"`
	RPCURL               string `yaml:"rpc_url,omitempty"`
	ChainIDStr           string `yaml:"chain_id,omitempty"`
	StateDir             string `yaml:"state_dir,omitempty"`
	JournalDir           string `yaml:"journal_dir,omitempty"`
	WebAddr              string `yaml:"web_addr,omitempty"`
	PageSizeStr          string `yaml:"page_size,omitempty"`
	RequestsPerSecondStr string `yaml:"requests_per_second,omitempty"`
}

// Default returns the configuration used without a config file.
func Default() Config {
	cfg, _ := fromTmp(ConfigTmp{})
	cfg.PrivateKey = os.Getenv(PrivateKeyEnv)
	return cfg
}

// Load reads a yaml config. An empty path yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}

	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var tmp ConfigTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return Config{}, fmt.Errorf("failed to parse yaml config %s: %w", path, err)
	}

	cfg, err := fromTmp(tmp)
	if err != nil {
		return Config{}, err
	}
	cfg.PrivateKey = os.Getenv(PrivateKeyEnv)
	return cfg, nil
}

// Save writes tmp as yaml to path.
func Save(path string, tmp ConfigTmp) error {
	data, err := yaml.Marshal(tmp)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}

func fromTmp(c ConfigTmp) (Config, error) {
	cfg := Config{
		ExchangeURL: c.ExchangeURL,
		RPCURL:      c.RPCURL,
		StateDir:    c.StateDir,
		JournalDir:  c.JournalDir,
		WebAddr:     c.WebAddr,
	}

	if cfg.ExchangeURL == "" {
		cfg.ExchangeURL = defaultExchangeURL
	}
	if _, err := url.ParseRequestURI(cfg.ExchangeURL); err != nil {
		return Config{}, fmt.Errorf("incorrect 'exchange_url' param in yaml config, error: %w", err)
	}
	if cfg.StateDir == "" {
		cfg.StateDir = defaultStateDir
	}
	if cfg.JournalDir == "" {
		cfg.JournalDir = defaultJournalDir
	}
	if cfg.WebAddr == "" {
		cfg.WebAddr = defaultWebAddr
	}

	if c.ChainIDStr == "" {
		cfg.ChainID = defaultChainID
	} else {
		chainID, err := strconv.ParseInt(c.ChainIDStr, 10, 64)
		if err != nil || chainID <= 0 {
			return Config{}, fmt.Errorf("incorrect 'chain_id' param in yaml config (must be a positive integer): %s", c.ChainIDStr)
		}
		cfg.ChainID = chainID
	}

	if c.PageSizeStr == "" {
		cfg.PageSize = defaultPageSize
	} else {
		pageSize, err := strconv.Atoi(c.PageSizeStr)
		if err != nil || pageSize < 1 {
			return Config{}, fmt.Errorf("incorrect 'page_size' param in yaml config (must be a positive integer): %s", c.PageSizeStr)
		}
		cfg.PageSize = pageSize
	}

	rps := c.RequestsPerSecondStr
	if rps == "" {
		rps = defaultRequestsPerSecond
	}
	requestsPerSecond, err := decimal.NewFromString(rps)
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'requests_per_second' param in yaml config (must be a decimal), error: %w", err)
	}
	if !requestsPerSecond.IsPositive() {
		return Config{}, fmt.Errorf("incorrect 'requests_per_second' param in yaml config (must be positive): %s", rps)
	}
	cfg.RequestsPerSecond = requestsPerSecond

	return cfg, nil
}
