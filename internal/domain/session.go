// Package domain defines core data structures used throughout the wallet.
package domain

// KeyPair layer-2 key material derived from the wallet signature.
type KeyPair struct {
	PublicKeyX string `json:"publicKeyX"`
	PublicKeyY string `json:"publicKeyY"`
	SecretKey  string `json:"secretKey,omitempty"`
}

// Matches reports whether both public coordinates equal the account's registered ones.
func (k KeyPair) Matches(account Account) bool {
	return equalHex(k.PublicKeyX, account.PublicKeyX) && equalHex(k.PublicKeyY, account.PublicKeyY)
}

// Account exchange-side record of a registered address.
type Account struct {
	AccountID  uint64 `json:"accountId"`
	Owner      string `json:"owner"`
	PublicKeyX string `json:"publicKeyX"`
	PublicKeyY string `json:"publicKeyY"`
	// Nonce layer-2 nonce used for transfers.
	Nonce uint64 `json:"accountNonce"`
	// KeyNonce nonce the current key pair was generated with.
	KeyNonce uint64 `json:"keyNonce"`
}

// Session authenticated state of a connected wallet.
type Session struct {
	WalletAddress string
	AccountID     uint64
	KeyPair       KeyPair
	AccountNonce  uint64
}

// NewSession builds a session from the resolved account and the derived key pair.
func NewSession(address string, account Account, keyPair KeyPair) *Session {
	return &Session{
		WalletAddress: address,
		AccountID:     account.AccountID,
		KeyPair:       keyPair,
		AccountNonce:  account.Nonce,
	}
}
