package workflow

import (
	"context"
	"math/big"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/l2pay/internal/domain"
	"github.com/vadiminshakov/l2pay/internal/notify"
	"github.com/vadiminshakov/l2pay/internal/store"
)

// Initialize unlocks the exchange account of the provider's first address.
func (o *Orchestrator) Initialize(ctx context.Context, provider domain.Provider) {
	r := o.start(ctx, "initialize")

	w, err := o.firstWallet(ctx, provider)
	if err != nil {
		r.fail(notify.ErrInitialization, err)
		return
	}
	r.emit(store.ProviderConnected{Ticket: r.ticket, Connected: true})

	account, err := o.exchange.Account(ctx, w.Address())
	if err != nil {
		if domain.IsNotFound(err) {
			r.warn(notify.WarnAccountNotFound, err)
			return
		}
		r.fail(notify.ErrInitialization, err)
		return
	}

	info, err := o.exchange.ExchangeInfo(ctx)
	if err != nil {
		r.fail(notify.ErrInitialization, err)
		return
	}

	keyPair, err := w.GenerateKeyPair(ctx, info.ExchangeAddress, account.KeyNonce)
	if err != nil {
		if domain.IsUserAbort(err) {
			r.abort()
			return
		}
		r.fail(notify.ErrInitialization, err)
		return
	}

	if !keyPair.Matches(account) {
		r.fail(notify.ErrInitialization, errors.Wrapf(domain.ErrKeyMismatch, "account %d", account.AccountID))
		return
	}

	if err := w.Bind(account.AccountID, keyPair); err != nil {
		r.fail(notify.ErrInitialization, err)
		return
	}

	r.emit(store.Initialized{
		Ticket:   r.ticket,
		Session:  *domain.NewSession(w.Address(), account, keyPair),
		Wallet:   w,
		Exchange: info,
	})
	r.done("")
}

// Register creates an exchange account for the provider's first address.
// Only a definite not-found answer counts as "not registered yet"; any other
// lookup failure stops the registration.
func (o *Orchestrator) Register(ctx context.Context, provider domain.Provider) {
	r := o.start(ctx, "register")

	w, err := o.firstWallet(ctx, provider)
	if err != nil {
		r.fail(notify.ErrRegister, err)
		return
	}

	_, err = o.exchange.Account(ctx, w.Address())
	switch {
	case err == nil:
		r.warn(notify.WarnRegisterExistingAccount, nil)
		return
	case !domain.IsNotFound(err):
		r.fail(notify.ErrRegister, errors.Wrap(err, "check existing account"))
		return
	}

	info, err := o.exchange.ExchangeInfo(ctx)
	if err != nil {
		r.fail(notify.ErrRegister, err)
		return
	}
	tokens, err := o.exchange.TokenInfo(ctx)
	if err != nil {
		r.fail(notify.ErrRegister, err)
		return
	}

	fee, err := registrationFee(info)
	if err != nil {
		r.fail(notify.ErrRegister, err)
		return
	}

	eth, ok := domain.TokenBySymbol(tokens, domain.NativeSymbol)
	if !ok {
		r.fail(notify.ErrRegister, errors.New("exchange does not list ETH"))
		return
	}

	keyPair, err := w.GenerateKeyPair(ctx, info.ExchangeAddress, 0)
	if err != nil {
		if domain.IsUserAbort(err) {
			r.abort()
			return
		}
		r.fail(notify.ErrRegister, err)
		return
	}
	if keyPair.SecretKey == "" {
		r.fail(notify.ErrRegister, errors.New("failed to generate key pair"))
		return
	}

	nonce, gasPrice, err := o.txParams(ctx, w.Address())
	if err != nil {
		r.fail(notify.ErrRegister, err)
		return
	}

	hash, err := w.CreateOrUpdateAccount(ctx, keyPair, domain.OnchainRequest{
		ExchangeAddress: info.ExchangeAddress,
		ChainID:         info.ChainID,
		Token:           eth,
		Fee:             fee,
		Amount:          decimal.Zero,
		Nonce:           nonce,
		GasPrice:        gasPrice,
	})
	if err != nil {
		if domain.IsUserAbort(err) {
			r.abort()
			return
		}
		r.fail(notify.ErrRegister, err)
		return
	}

	r.emit(store.Registered{Ticket: r.ticket, Hash: hash})
	r.done(hash)
}

// registrationFee is the account creation fee plus the deposit fee.
func registrationFee(info domain.ExchangeInfo) (*big.Int, error) {
	create, err := info.OnchainFeeWei(domain.OnchainFeeCreate)
	if err != nil {
		return nil, err
	}
	deposit, err := info.OnchainFeeWei(domain.OnchainFeeDeposit)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Add(create, deposit), nil
}

func (o *Orchestrator) firstWallet(ctx context.Context, provider domain.Provider) (domain.Wallet, error) {
	if provider == nil {
		return nil, errors.New("no chain provider connected")
	}
	accounts, err := provider.Accounts(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "get provider accounts")
	}
	if len(accounts) == 0 {
		return nil, errors.New("provider exposes no accounts")
	}
	return o.connect(ctx, accounts[0])
}
