package domain

import (
	"context"
	"math/big"
)

// Provider connected chain provider exposing the accounts it can sign for.
type Provider interface {
	Accounts(ctx context.Context) ([]string, error)
}

// Wallet signing side of a connected account.
// Methods that need user approval return ErrUserAborted when it is declined.
type Wallet interface {
	Address() string
	AccountID() uint64
	KeyPair() KeyPair
	Bind(accountID uint64, keyPair KeyPair) error

	GenerateKeyPair(ctx context.Context, exchangeAddress string, keyNonce uint64) (KeyPair, error)
	APIKeySignature(ctx context.Context) (string, error)
	SignTransfer(ctx context.Context, req TransferRequest, tokens []SupportedToken) (SignedTransfer, error)
	ApproveMax(ctx context.Context, tokenAddress, exchangeAddress string, chainID int64, nonce uint64, gasPrice *big.Int) (string, error)
	DepositTo(ctx context.Context, req OnchainRequest) (string, error)
	CreateOrUpdateAccount(ctx context.Context, keyPair KeyPair, req OnchainRequest) (string, error)
	OnchainWithdrawal(ctx context.Context, req OnchainRequest) (string, error)
}
