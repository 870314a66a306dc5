package domain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// NativeSymbol symbol of the chain's native asset.
const NativeSymbol = "ETH"

// SupportedToken token recognized by the exchange.
type SupportedToken struct {
	TokenID        uint32 `json:"tokenId"`
	Symbol         string `json:"symbol"`
	Name           string `json:"name"`
	Address        string `json:"address"`
	Decimals       int32  `json:"decimals"`
	Enabled        bool   `json:"enabled"`
	DepositEnabled bool   `json:"depositEnabled"`
}

// IsNative reports whether the token is the chain's native asset.
func (t SupportedToken) IsNative() bool {
	return strings.EqualFold(t.Symbol, NativeSymbol)
}

// TokenBySymbol finds a token by symbol, case-insensitively.
func TokenBySymbol(tokens []SupportedToken, symbol string) (SupportedToken, bool) {
	for _, t := range tokens {
		if strings.EqualFold(t.Symbol, symbol) {
			return t, true
		}
	}
	return SupportedToken{}, false
}

// TokenByID finds a token by exchange id.
func TokenByID(tokens []SupportedToken, id uint32) (SupportedToken, bool) {
	for _, t := range tokens {
		if t.TokenID == id {
			return t, true
		}
	}
	return SupportedToken{}, false
}

// FromWei converts a raw integer amount into token units.
func FromWei(symbol, wei string, tokens []SupportedToken) (decimal.Decimal, error) {
	token, ok := TokenBySymbol(tokens, symbol)
	if !ok {
		return decimal.Zero, fmt.Errorf("unknown token %s", symbol)
	}
	if wei == "" {
		return decimal.Zero, nil
	}
	raw, err := decimal.NewFromString(wei)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s amount %q: %w", symbol, wei, err)
	}
	return raw.Shift(-token.Decimals), nil
}

// ToWei converts a token amount into its raw integer representation.
func ToWei(symbol string, amount decimal.Decimal, tokens []SupportedToken) (*big.Int, error) {
	token, ok := TokenBySymbol(tokens, symbol)
	if !ok {
		return nil, fmt.Errorf("unknown token %s", symbol)
	}
	return amount.Shift(token.Decimals).Truncate(0).BigInt(), nil
}
