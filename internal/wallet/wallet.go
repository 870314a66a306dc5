// Package wallet signs layer-2 requests and sends exchange contract transactions
// on behalf of a locally held Ethereum key.
package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"

	"github.com/vadiminshakov/l2pay/internal/domain"
)

const (
	keyMessageTemplate = "Sign this message to access Loopring Exchange: %s with key nonce: %d"

	approveGasLimit  = 60_000
	depositGasLimit  = 200_000
	updateGasLimit   = 300_000
	withdrawGasLimit = 300_000
)

// Backend broadcasts signed transactions.
type Backend interface {
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Confirmer asks the user to approve a signature or transaction.
type Confirmer interface {
	Confirm(ctx context.Context, action, details string) (bool, error)
}

// AutoConfirm approves every request.
type AutoConfirm struct{}

// Confirm implements Confirmer.
func (AutoConfirm) Confirm(context.Context, string, string) (bool, error) { return true, nil }

// Wallet connected account able to derive the layer-2 key and sign on its behalf.
type Wallet struct {
	key       *ecdsa.PrivateKey
	address   common.Address
	backend   Backend
	confirmer Confirmer
	exchange  abi.ABI

	mu        sync.RWMutex
	accountID uint64
	keyPair   domain.KeyPair
	l2key     *ecdsa.PrivateKey
}

// New creates a wallet for the given key.
func New(key *ecdsa.PrivateKey, backend Backend, confirmer Confirmer) (*Wallet, error) {
	if key == nil {
		return nil, errors.New("wallet key is required")
	}
	if confirmer == nil {
		confirmer = AutoConfirm{}
	}

	parsed, err := abi.JSON(strings.NewReader(exchangeABI))
	if err != nil {
		return nil, errors.Wrap(err, "parse exchange abi")
	}

	return &Wallet{
		key:       key,
		address:   crypto.PubkeyToAddress(key.PublicKey),
		backend:   backend,
		confirmer: confirmer,
		exchange:  parsed,
	}, nil
}

// Address returns the checksummed wallet address.
func (w *Wallet) Address() string {
	return w.address.Hex()
}

// AccountID returns the bound exchange account id.
func (w *Wallet) AccountID() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.accountID
}

// KeyPair returns the bound layer-2 key pair.
func (w *Wallet) KeyPair() domain.KeyPair {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.keyPair
}

// Bind attaches the exchange account and its key pair to the wallet.
func (w *Wallet) Bind(accountID uint64, keyPair domain.KeyPair) error {
	l2key, err := secretToKey(keyPair.SecretKey)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.accountID = accountID
	w.keyPair = keyPair
	w.l2key = l2key
	return nil
}

// GenerateKeyPair derives the layer-2 key pair from a signature over the exchange access message.
func (w *Wallet) GenerateKeyPair(ctx context.Context, exchangeAddress string, keyNonce uint64) (domain.KeyPair, error) {
	msg := fmt.Sprintf(keyMessageTemplate, exchangeAddress, keyNonce)
	if err := w.confirm(ctx, "Sign exchange access message", msg); err != nil {
		return domain.KeyPair{}, err
	}

	sig, err := crypto.Sign(accounts.TextHash([]byte(msg)), w.key)
	if err != nil {
		return domain.KeyPair{}, errors.Wrap(err, "sign access message")
	}

	l2key, err := crypto.ToECDSA(crypto.Keccak256(sig))
	if err != nil {
		return domain.KeyPair{}, errors.Wrap(err, "derive layer-2 key")
	}

	return domain.KeyPair{
		PublicKeyX: hexutil.EncodeBig(l2key.PublicKey.X),
		PublicKeyY: hexutil.EncodeBig(l2key.PublicKey.Y),
		SecretKey:  hexutil.Encode(crypto.FromECDSA(l2key)),
	}, nil
}

// APIKeySignature signs the API key request of the bound account.
func (w *Wallet) APIKeySignature(_ context.Context) (string, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.l2key == nil {
		return "", errors.New("wallet is not bound to an account")
	}

	hash := crypto.Keccak256(
		new(big.Int).SetUint64(w.accountID).Bytes(),
		[]byte(w.keyPair.PublicKeyX),
		[]byte(w.keyPair.PublicKeyY),
	)
	sig, err := crypto.Sign(hash, w.l2key)
	if err != nil {
		return "", errors.Wrap(err, "sign api key request")
	}
	return hexutil.Encode(sig), nil
}

func (w *Wallet) confirm(ctx context.Context, action, details string) error {
	ok, err := w.confirmer.Confirm(ctx, action, details)
	if err != nil {
		return errors.Wrap(err, "confirm "+action)
	}
	if !ok {
		return domain.ErrUserAborted
	}
	return nil
}

func secretToKey(secret string) (*ecdsa.PrivateKey, error) {
	raw, err := hexutil.Decode(secret)
	if err != nil {
		return nil, errors.Wrap(err, "decode layer-2 secret")
	}
	key, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, errors.Wrap(err, "decode layer-2 secret")
	}
	return key, nil
}

var _ domain.Wallet = (*Wallet)(nil)
