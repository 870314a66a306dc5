package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// TransferRequest unsigned layer-2 transfer.
type TransferRequest struct {
	ExchangeID      uint32
	ExchangeAddress string
	ChainID         int64
	Receiver        uint64
	Token           string
	Amount          decimal.Decimal
	FeeToken        string
	FeeAmount       decimal.Decimal
	Nonce           uint64
	Label           uint32
	Memo            string
}

// SignedTransfer transfer ready for submission.
type SignedTransfer struct {
	ExchangeID uint32 `json:"exchangeId"`
	Sender     uint64 `json:"accountId"`
	Receiver   uint64 `json:"receiver"`
	TokenID    uint32 `json:"token"`
	Amount     string `json:"amount"`
	FeeTokenID uint32 `json:"tokenF"`
	FeeAmount  string `json:"amountF"`
	Nonce      uint64 `json:"nonce"`
	Label      uint32 `json:"label"`
	Memo       string `json:"memo"`
	// Signature layer-2 key signature.
	Signature string `json:"signature"`
	// ECDSASig EIP-712 signature by the wallet key, sent as a header.
	ECDSASig string `json:"-"`
}

// OnchainRequest parameters of a transaction sent to the exchange contract.
type OnchainRequest struct {
	ExchangeAddress string
	ChainID         int64
	Token           SupportedToken
	// Fee exchange fee in native wei, attached as transaction value.
	Fee      *big.Int
	Amount   decimal.Decimal
	Nonce    uint64
	GasPrice *big.Int
}
