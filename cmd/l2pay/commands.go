package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/l2pay/config"
	"github.com/vadiminshakov/l2pay/internal/domain"
	"github.com/vadiminshakov/l2pay/internal/services/workflow"
	"github.com/vadiminshakov/l2pay/internal/setup"
	"github.com/vadiminshakov/l2pay/internal/storage/prefs"
	"github.com/vadiminshakov/l2pay/internal/store"
	"github.com/vadiminshakov/l2pay/internal/web"
)

var (
	tokenFlag = &cli.StringFlag{
		Name:     "token",
		Aliases:  []string{"t"},
		Usage:    "token symbol, e.g. ETH or LRC",
		Required: true,
	}
	amountFlag = &cli.StringFlag{
		Name:     "amount",
		Aliases:  []string{"a"},
		Usage:    "amount in token units",
		Required: true,
	}
)

func commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:   "setup",
			Usage:  "interactive configuration wizard",
			Action: runSetup,
		},
		{
			Name:   "login",
			Usage:  "unlock the exchange account and show the portfolio",
			Action: withEnv(true, runBalances),
		},
		{
			Name:  "balances",
			Usage: "show layer-2 balances",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "filter by symbol or name"},
			},
			Action: withEnv(true, runBalances),
		},
		{
			Name:  "history",
			Usage: "show transactions of a token",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "token", Aliases: []string{"t"}, Usage: "token symbol, defaults to the selected asset"},
				&cli.StringFlag{Name: "filter", Value: string(domain.TxFilterAll), Usage: "all, transfers, deposits or withdrawals"},
				&cli.IntFlag{Name: "limit", Usage: "page size, defaults to page_size from the config"},
			},
			Action: withEnv(true, runHistory),
		},
		{
			Name:  "transfer",
			Usage: "send tokens to another exchange account",
			Flags: []cli.Flag{
				tokenFlag,
				amountFlag,
				&cli.StringFlag{Name: "to", Usage: "receiver wallet address", Required: true},
				&cli.StringFlag{Name: "memo", Usage: "optional memo"},
			},
			Action: withEnv(true, runTransfer),
		},
		{
			Name:   "deposit",
			Usage:  "move tokens from the wallet into the exchange",
			Flags:  []cli.Flag{tokenFlag, amountFlag},
			Action: withEnv(true, runDeposit),
		},
		{
			Name:   "deposit-balance",
			Usage:  "show the on-chain wallet balance of a token",
			Flags:  []cli.Flag{tokenFlag},
			Action: withEnv(true, runDepositBalance),
		},
		{
			Name:   "withdraw",
			Usage:  "withdraw tokens from the exchange to the wallet",
			Flags:  []cli.Flag{tokenFlag, amountFlag},
			Action: withEnv(true, runWithdraw),
		},
		{
			Name:   "allowance",
			Usage:  "show how much of a token the exchange may pull from the wallet",
			Flags:  []cli.Flag{tokenFlag},
			Action: withEnv(true, runAllowance),
		},
		{
			Name:   "approve",
			Usage:  "allow the exchange to pull a token from the wallet",
			Flags:  []cli.Flag{tokenFlag},
			Action: withEnv(true, runApprove),
		},
		{
			Name:   "register",
			Usage:  "create an exchange account for the wallet",
			Action: withEnv(true, runRegister),
		},
		{
			Name:      "theme",
			Usage:     "show, set or toggle the colour theme",
			ArgsUsage: "[light|dark|toggle]",
			Action:    withEnv(true, runTheme),
		},
		{
			Name:      "fiat",
			Usage:     "show or set the valuation currency",
			ArgsUsage: "[name]",
			Action:    withEnv(true, runFiat),
		},
		{
			Name:   "serve",
			Usage:  "unlock the account and serve the status page",
			Action: withEnv(false, runServe),
		},
	}
}

func withEnv(console bool, fn func(c *cli.Context, e *env) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		e, err := newEnv(c, console)
		if err != nil {
			return err
		}
		defer e.Close()
		return fn(c, e)
	}
}

func runSetup(c *cli.Context) error {
	ps, err := prefs.NewStore(config.Default().StateDir)
	if err != nil {
		return err
	}
	return setup.RunTUI(c.String(config.FlagConfig), ps)
}

func runBalances(c *cli.Context, e *env) error {
	return e.withSession(c.Context, func(_ context.Context, st store.State) error {
		styles := e.theme.Styles()
		fmt.Println(renderAccount(styles, st))
		balances := domain.SearchBalances(st.Balances, c.String("search"))
		fmt.Println(renderBalances(styles, balances, st.SelectedAsset, st.SelectedFiat))
		return nil
	})
}

func runHistory(c *cli.Context, e *env) error {
	filter := domain.TxFilter(c.String("filter"))
	if !filter.IsValid() {
		return errors.Errorf("unknown filter %q", filter)
	}
	limit := c.Int("limit")
	if limit <= 0 {
		limit = e.cfg.PageSize
	}

	return e.withSession(c.Context, func(ctx context.Context, st store.State) error {
		symbol := c.String("token")
		if symbol == "" && st.SelectedAsset != nil {
			symbol = st.SelectedAsset.Symbol
		}
		token, err := lookupToken(st, symbol)
		if err != nil {
			return err
		}

		e.orchestrator.FetchTransactions(ctx, st.Wallet, token.Symbol, st.SupportedTokens, limit, filter)
		fmt.Println(renderTransactions(e.theme.Styles(), e.store.State().Transactions))
		return nil
	})
}

func parseAmount(c *cli.Context) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(c.String("amount"))
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "invalid amount")
	}
	if !amount.IsPositive() {
		return decimal.Zero, errors.New("amount must be positive")
	}
	return amount, nil
}

func lookupToken(st store.State, symbol string) (domain.SupportedToken, error) {
	token, ok := domain.TokenBySymbol(st.SupportedTokens, symbol)
	if !ok {
		return domain.SupportedToken{}, errors.Errorf("unknown token %q", symbol)
	}
	return token, nil
}

func runTransfer(c *cli.Context, e *env) error {
	amount, err := parseAmount(c)
	if err != nil {
		return err
	}

	return e.withSession(c.Context, func(ctx context.Context, st store.State) error {
		token, err := lookupToken(st, c.String("token"))
		if err != nil {
			return err
		}
		if b, ok := domain.BalanceBySymbol(st.Balances, token.Symbol); ok && b.Balance.LessThan(amount) {
			return errors.Errorf("insufficient %s balance: %s", token.Symbol, b.Balance)
		}

		e.orchestrator.SubmitTransfer(ctx, st.Wallet, *st.Exchange, workflow.TransferInput{
			Symbol:   token.Symbol,
			Receiver: c.String("to"),
			Memo:     c.String("memo"),
			Amount:   amount,
		}, st.SupportedTokens)

		return e.reportHash(store.HashTransfer, "transfer", st.Exchange.ChainID, false)
	})
}

func runDeposit(c *cli.Context, e *env) error {
	amount, err := parseAmount(c)
	if err != nil {
		return err
	}

	return e.withSession(c.Context, func(ctx context.Context, st store.State) error {
		token, err := lookupToken(st, c.String("token"))
		if err != nil {
			return err
		}
		if !token.DepositEnabled {
			return errors.Errorf("deposits of %s are disabled", token.Symbol)
		}

		if !token.IsNative() {
			e.orchestrator.FetchAllowance(ctx, st.Wallet, token.Symbol, st.SupportedTokens)
			allowance, ok := e.store.State().Allowance(token.Symbol)
			if !ok {
				return errors.Errorf("could not check the %s allowance", token.Symbol)
			}
			if allowance.LessThan(amount) {
				return errors.Errorf("the exchange may pull only %s %s, run `l2pay approve --token %s` first",
					allowance, token.Symbol, token.Symbol)
			}
		}

		e.orchestrator.Deposit(ctx, st.Wallet, *st.Exchange, st.SupportedTokens, token.Symbol, amount)
		return e.reportHash(store.HashDeposit, "deposit", st.Exchange.ChainID, true)
	})
}

func runDepositBalance(c *cli.Context, e *env) error {
	return e.withSession(c.Context, func(ctx context.Context, st store.State) error {
		token, err := lookupToken(st, c.String("token"))
		if err != nil {
			return err
		}

		e.orchestrator.FetchDepositBalance(ctx, st.Wallet, token.Symbol, st.SupportedTokens)
		balance := e.store.State().DepositBalance
		if balance == nil || balance.Symbol != token.Symbol {
			return errors.Errorf("could not load the %s wallet balance", token.Symbol)
		}
		fmt.Println(e.theme.Styles().Text.Render(fmt.Sprintf("%s %s in wallet", balance.Balance, balance.Symbol)))
		return nil
	})
}

func runWithdraw(c *cli.Context, e *env) error {
	amount, err := parseAmount(c)
	if err != nil {
		return err
	}

	return e.withSession(c.Context, func(ctx context.Context, st store.State) error {
		token, err := lookupToken(st, c.String("token"))
		if err != nil {
			return err
		}

		e.orchestrator.OnchainWithdrawal(ctx, st.Wallet, *st.Exchange, token.Symbol, st.SupportedTokens, amount)
		return e.reportHash(store.HashWithdrawal, "withdrawal", st.Exchange.ChainID, true)
	})
}

func runAllowance(c *cli.Context, e *env) error {
	return e.withSession(c.Context, func(ctx context.Context, st store.State) error {
		token, err := lookupToken(st, c.String("token"))
		if err != nil {
			return err
		}

		e.orchestrator.FetchAllowance(ctx, st.Wallet, token.Symbol, st.SupportedTokens)
		allowance, ok := e.store.State().Allowance(token.Symbol)
		if !ok {
			return errors.Errorf("could not load the %s allowance", token.Symbol)
		}
		fmt.Println(e.theme.Styles().Text.Render(fmt.Sprintf("allowance %s %s", allowance, token.Symbol)))
		return nil
	})
}

func runApprove(c *cli.Context, e *env) error {
	return e.withSession(c.Context, func(ctx context.Context, st store.State) error {
		token, err := lookupToken(st, c.String("token"))
		if err != nil {
			return err
		}
		if token.IsNative() {
			return errors.Errorf("%s needs no approval", token.Symbol)
		}

		e.orchestrator.GrantAllowance(ctx, st.Wallet, *st.Exchange, token.Symbol, token.Address)
		return e.reportHash(store.HashAllowance, "approval", st.Exchange.ChainID, true)
	})
}

func runRegister(c *cli.Context, e *env) error {
	e.orchestrator.Register(c.Context, e.provider)

	st := e.store.State()
	chainID := e.cfg.ChainID
	if st.Exchange != nil {
		chainID = st.Exchange.ChainID
	}
	return e.reportHash(store.HashRegistration, "registration", chainID, true)
}

// reportHash prints the hash a workflow produced and acknowledges it.
func (e *env) reportHash(kind store.HashKind, label string, chainID int64, onchain bool) error {
	hash := e.store.State().Hash(kind)
	if hash == "" {
		return errors.Errorf("%s was not submitted", label)
	}
	fmt.Println(renderHash(e.theme.Styles(), label, hash, chainID, onchain))
	e.orchestrator.ClearHash(kind)
	return nil
}

func runTheme(c *cli.Context, e *env) error {
	arg := strings.ToLower(c.Args().First())
	switch arg {
	case "":
	case "toggle":
		if _, err := e.controller.ToggleTheme(); err != nil {
			return err
		}
	default:
		t := domain.Theme(arg)
		if !t.IsValid() {
			return errors.Errorf("unknown theme %q", arg)
		}
		if err := e.theme.Set(t); err != nil {
			return err
		}
	}

	fmt.Println(e.theme.Styles().Title.Render("theme " + e.theme.Current().String()))
	return nil
}

func runFiat(c *cli.Context, e *env) error {
	if name := c.Args().First(); name != "" {
		fiat, ok := domain.FiatByName(name)
		if !ok {
			return errors.Errorf("unsupported fiat %q", name)
		}
		if err := e.controller.ChangeFiat(fiat); err != nil {
			return err
		}
	}

	current, err := e.prefs.Fiat()
	if err != nil {
		return err
	}
	styles := e.theme.Styles()
	fmt.Println(styles.Title.Render(fmt.Sprintf("fiat %s (%s)", current.Name, current.Symbol)))
	names := make([]string, 0, len(domain.SupportedFiats))
	for _, f := range domain.SupportedFiats {
		names = append(names, f.Name)
	}
	fmt.Println(styles.Muted.Render("supported: " + strings.Join(names, ", ")))
	return nil
}

func runServe(c *cli.Context, e *env) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := web.NewServer(e.l.Named("web"), e.cfg.WebAddr, e.store, e.controller, e.journal, e.theme)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(gctx)
	})
	g.Go(func() error {
		err := e.controller.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		e.orchestrator.Initialize(gctx, e.provider)
		if e.store.State().Session == nil {
			e.l.Warn("account is locked, the status page shows the anonymous state")
		}
		return nil
	})

	e.l.Info("serving status page", zap.String("addr", e.cfg.WebAddr))
	return g.Wait()
}
