package domain

import (
	"fmt"
	"math/big"
	"strings"
)

// OnchainFeeType kind of on-chain operation a fee applies to.
type OnchainFeeType string

const (
	OnchainFeeCreate   OnchainFeeType = "create"
	OnchainFeeDeposit  OnchainFeeType = "deposit"
	OnchainFeeWithdraw OnchainFeeType = "withdraw"
)

// TokenFee layer-2 transfer fee for a token, in wei.
type TokenFee struct {
	Token string `json:"token"`
	Fee   string `json:"fee"`
}

// OnchainFee fee in native wei charged by the exchange contract.
type OnchainFee struct {
	Type OnchainFeeType `json:"type"`
	Fee  string         `json:"fee"`
}

// ExchangeInfo exchange metadata fetched once per session.
type ExchangeInfo struct {
	ExchangeID      uint32       `json:"exchangeId"`
	ExchangeAddress string       `json:"exchangeAddress"`
	ChainID         int64        `json:"chainId"`
	TransferFees    []TokenFee   `json:"transferFees"`
	OnchainFees     []OnchainFee `json:"onchainFees"`
}

// TransferFee returns the raw transfer fee for the symbol.
func (e ExchangeInfo) TransferFee(symbol string) (string, bool) {
	for _, f := range e.TransferFees {
		if strings.EqualFold(f.Token, symbol) {
			return f.Fee, true
		}
	}
	return "", false
}

// OnchainFeeWei returns the on-chain fee of the given type as an integer.
func (e ExchangeInfo) OnchainFeeWei(feeType OnchainFeeType) (*big.Int, error) {
	for _, f := range e.OnchainFees {
		if f.Type != feeType {
			continue
		}
		fee, ok := new(big.Int).SetString(f.Fee, 10)
		if !ok {
			return nil, fmt.Errorf("invalid %s fee %q", feeType, f.Fee)
		}
		return fee, nil
	}
	return nil, fmt.Errorf("exchange has no %s fee", feeType)
}
