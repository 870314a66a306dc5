package clients

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
)

// ErrNoRPC returned by chain calls when no RPC endpoint is configured.
var ErrNoRPC = errors.New("no rpc endpoint configured")

// ChainProvider connected Ethereum node plus the locally held account key.
type ChainProvider struct {
	client  *ethclient.Client
	key     *ecdsa.PrivateKey
	address common.Address
}

// ParsePrivateKey decodes a hex private key with an optional 0x prefix.
func ParsePrivateKey(privateKeyHex string) (*ecdsa.PrivateKey, common.Address, error) {
	key := privateKeyHex
	if len(key) >= 2 && (key[:2] == "0x" || key[:2] == "0X") {
		key = key[2:]
	}

	privateKey, err := crypto.HexToECDSA(key)
	if err != nil {
		return nil, common.Address{}, errors.Wrap(err, "decode private key")
	}

	pub, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, common.Address{}, fmt.Errorf("error casting public key to ECDSA")
	}

	return privateKey, crypto.PubkeyToAddress(*pub), nil
}

// NewChainProvider dials the RPC endpoint. An empty key yields a provider without accounts,
// an empty rpcURL a provider that can sign but not broadcast.
func NewChainProvider(ctx context.Context, rpcURL, privateKeyHex string) (*ChainProvider, error) {
	p := &ChainProvider{}
	if privateKeyHex != "" {
		var err error
		p.key, p.address, err = ParsePrivateKey(privateKeyHex)
		if err != nil {
			return nil, err
		}
	}

	if rpcURL != "" {
		client, err := ethclient.DialContext(ctx, rpcURL)
		if err != nil {
			return nil, errors.Wrap(err, "dial rpc")
		}
		p.client = client
	}

	return p, nil
}

// Accounts returns the addresses the provider can sign for.
func (p *ChainProvider) Accounts(_ context.Context) ([]string, error) {
	if p.key == nil {
		return nil, nil
	}
	return []string{p.address.Hex()}, nil
}

// Key returns the signing key for address.
func (p *ChainProvider) Key(address string) (*ecdsa.PrivateKey, error) {
	if p.key == nil || !common.IsHexAddress(address) || common.HexToAddress(address) != p.address {
		return nil, fmt.Errorf("no key for address %s", address)
	}
	return p.key, nil
}

// SendTransaction broadcasts a signed transaction.
func (p *ChainProvider) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if p.client == nil {
		return ErrNoRPC
	}
	return p.client.SendTransaction(ctx, tx)
}

// ChainID returns the network chain id.
func (p *ChainProvider) ChainID(ctx context.Context) (*big.Int, error) {
	if p.client == nil {
		return nil, ErrNoRPC
	}
	return p.client.ChainID(ctx)
}

// Close closes the RPC connection.
func (p *ChainProvider) Close() {
	if p.client != nil {
		p.client.Close()
	}
}
