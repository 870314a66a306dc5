package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/vadiminshakov/l2pay/internal/domain"
	"github.com/vadiminshakov/l2pay/pkg/retrier"
)

const (
	exchangeTimeout       = 30 * time.Second
	defaultRequestsPerSec = 5
	readRetries           = 3
	readRetryInterval     = 500 * time.Millisecond
	readRetryMaxInterval  = 4 * time.Second
	readRetryJitter       = 0.2
	codeSuccess           = 0
	codeUserNotExist      = 104002

	headerAPIKey = "X-API-KEY"
	headerAPISig = "X-API-SIG"
)

// APIError non-success answer of the relayer.
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("relayer error: status %d, code %d: %s", e.Status, e.Code, e.Message)
}

// ExchangeClient talks to the layer-2 relayer REST API.
type ExchangeClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retrier    *retrier.Retrier
}

// NewExchangeClient creates a relayer client. Requests are paced to rps per second.
func NewExchangeClient(baseURL string, rps float64) *ExchangeClient {
	if rps <= 0 {
		rps = defaultRequestsPerSec
	}
	return &ExchangeClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: exchangeTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		retrier: retrier.New(
			retrier.WithRetryIf(transient),
			retrier.WithMaxRetries(readRetries),
			retrier.WithInitialInterval(readRetryInterval),
			retrier.WithMaxInterval(readRetryMaxInterval),
			retrier.WithJitter(readRetryJitter),
		),
	}
}

// transient reports whether a failed read may succeed when repeated.
func transient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= http.StatusInternalServerError
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

type resultInfo struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type envelope struct {
	ResultInfo resultInfo      `json:"resultInfo"`
	Data       json.RawMessage `json:"data"`
}

type accountResponse struct {
	AccountID    uint64 `json:"accountId"`
	Owner        string `json:"owner"`
	PublicKeyX   string `json:"publicKeyX"`
	PublicKeyY   string `json:"publicKeyY"`
	AccountNonce uint64 `json:"accountNonce"`
	KeyNonce     uint64 `json:"keyNonce"`
}

type balanceItem struct {
	TokenID     uint32 `json:"tokenId"`
	TotalAmount string `json:"totalAmount"`
}

type priceItem struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

type transferItem struct {
	Hash            string `json:"hash"`
	Symbol          string `json:"symbol"`
	SenderAddress   string `json:"senderAddress"`
	ReceiverAddress string `json:"receiverAddress"`
	Amount          string `json:"amount"`
	FeeAmount       string `json:"feeAmount"`
	Memo            string `json:"memo"`
	Status          string `json:"status"`
	Timestamp       int64  `json:"timestamp"`
}

type depositItem struct {
	Hash        string `json:"txHash"`
	Symbol      string `json:"symbol"`
	DepositType string `json:"depositType"`
	Amount      string `json:"amount"`
	FeeAmount   string `json:"feeAmount"`
	Status      string `json:"status"`
	Timestamp   int64  `json:"timestamp"`
}

type withdrawalItem struct {
	Hash      string `json:"txHash"`
	Symbol    string `json:"symbol"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
	FeeAmount string `json:"feeAmount"`
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

type historyPage[T any] struct {
	TotalNum     int `json:"totalNum"`
	Transactions []T `json:"transactions"`
}

type allowanceItem struct {
	Symbol    string `json:"symbol"`
	Allowance string `json:"allowance"`
}

// Account looks up the exchange account owned by address.
// An unregistered address yields domain.ErrAccountNotFound.
func (c *ExchangeClient) Account(ctx context.Context, address string) (domain.Account, error) {
	var resp accountResponse
	err := c.do(ctx, http.MethodGet, "/api/v2/account", url.Values{"owner": {address}}, nil, nil, &resp)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusNotFound || apiErr.Code == codeUserNotExist) {
			return domain.Account{}, errors.Wrapf(domain.ErrAccountNotFound, "owner %s", address)
		}
		return domain.Account{}, errors.Wrap(err, "get account")
	}
	if resp.AccountID == 0 && resp.PublicKeyX == "" {
		return domain.Account{}, errors.Wrapf(domain.ErrAccountNotFound, "owner %s", address)
	}

	return domain.Account{
		AccountID:  resp.AccountID,
		Owner:      resp.Owner,
		PublicKeyX: resp.PublicKeyX,
		PublicKeyY: resp.PublicKeyY,
		Nonce:      resp.AccountNonce,
		KeyNonce:   resp.KeyNonce,
	}, nil
}

// ExchangeInfo fetches exchange metadata including fee tables.
func (c *ExchangeClient) ExchangeInfo(ctx context.Context) (domain.ExchangeInfo, error) {
	var info domain.ExchangeInfo
	if err := c.do(ctx, http.MethodGet, "/api/v2/exchange/info", nil, nil, nil, &info); err != nil {
		return domain.ExchangeInfo{}, errors.Wrap(err, "get exchange info")
	}
	return info, nil
}

// TokenInfo fetches the list of tokens known to the exchange.
func (c *ExchangeClient) TokenInfo(ctx context.Context) ([]domain.SupportedToken, error) {
	var tokens []domain.SupportedToken
	if err := c.do(ctx, http.MethodGet, "/api/v2/exchange/tokens", nil, nil, nil, &tokens); err != nil {
		return nil, errors.Wrap(err, "get token info")
	}
	return tokens, nil
}

// APIKey exchanges a signed request for the account's API key.
func (c *ExchangeClient) APIKey(ctx context.Context, accountID uint64, keyPair domain.KeyPair, signature string) (string, error) {
	query := url.Values{
		"accountId":  {strconv.FormatUint(accountID, 10)},
		"publicKeyX": {keyPair.PublicKeyX},
		"publicKeyY": {keyPair.PublicKeyY},
	}
	var apiKey string
	err := c.do(ctx, http.MethodGet, "/api/v2/apiKey", query, nil, map[string]string{headerAPISig: signature}, &apiKey)
	if err != nil {
		return "", errors.Wrap(err, "get api key")
	}
	return apiKey, nil
}

// Balances fetches layer-2 balances of the account converted to token units.
func (c *ExchangeClient) Balances(ctx context.Context, accountID uint64, apiKey string, tokens []domain.SupportedToken) ([]domain.TokenBalance, error) {
	query := url.Values{"accountId": {strconv.FormatUint(accountID, 10)}}
	var items []balanceItem
	if err := c.do(ctx, http.MethodGet, "/api/v2/user/balances", query, nil, map[string]string{headerAPIKey: apiKey}, &items); err != nil {
		return nil, errors.Wrap(err, "get balances")
	}

	result := make([]domain.TokenBalance, 0, len(items))
	for _, item := range items {
		token, ok := domain.TokenByID(tokens, item.TokenID)
		if !ok {
			continue
		}
		amount, err := domain.FromWei(token.Symbol, item.TotalAmount, tokens)
		if err != nil {
			return nil, errors.Wrap(err, "decode balance")
		}
		result = append(result, domain.TokenBalance{TokenID: item.TokenID, Amount: amount})
	}
	return result, nil
}

// Prices fetches token prices in the given fiat currency.
func (c *ExchangeClient) Prices(ctx context.Context, fiat string) ([]domain.Price, error) {
	var items []priceItem
	if err := c.do(ctx, http.MethodGet, "/api/v2/price", url.Values{"legal": {strings.ToUpper(fiat)}}, nil, nil, &items); err != nil {
		return nil, errors.Wrap(err, "get prices")
	}

	prices := make([]domain.Price, 0, len(items))
	for _, item := range items {
		price, err := decimal.NewFromString(item.Price)
		if err != nil {
			return nil, errors.Wrapf(err, "decode %s price", item.Symbol)
		}
		prices = append(prices, domain.Price{Symbol: item.Symbol, Price: price})
	}
	return prices, nil
}

// TransferHistory fetches a page of layer-2 transfers of the account.
func (c *ExchangeClient) TransferHistory(ctx context.Context, accountID uint64, symbol string, limit, offset int, apiKey string, tokens []domain.SupportedToken) ([]domain.Transfer, error) {
	var page historyPage[transferItem]
	if err := c.do(ctx, http.MethodGet, "/api/v2/user/transfers", historyQuery(accountID, symbol, limit, offset), nil, map[string]string{headerAPIKey: apiKey}, &page); err != nil {
		return nil, errors.Wrap(err, "get transfer history")
	}

	result := make([]domain.Transfer, 0, len(page.Transactions))
	for _, item := range page.Transactions {
		base, err := txBase(item.Hash, item.Symbol, item.Amount, item.FeeAmount, item.Status, item.Timestamp, tokens)
		if err != nil {
			return nil, err
		}
		result = append(result, domain.Transfer{
			TxBase:   base,
			Sender:   item.SenderAddress,
			Receiver: item.ReceiverAddress,
			Memo:     item.Memo,
		})
	}
	return result, nil
}

// DepositHistory fetches a page of deposits of the account.
func (c *ExchangeClient) DepositHistory(ctx context.Context, accountID uint64, symbol string, limit, offset int, apiKey string, tokens []domain.SupportedToken) ([]domain.Deposit, error) {
	var page historyPage[depositItem]
	if err := c.do(ctx, http.MethodGet, "/api/v2/user/deposits", historyQuery(accountID, symbol, limit, offset), nil, map[string]string{headerAPIKey: apiKey}, &page); err != nil {
		return nil, errors.Wrap(err, "get deposit history")
	}

	result := make([]domain.Deposit, 0, len(page.Transactions))
	for _, item := range page.Transactions {
		base, err := txBase(item.Hash, item.Symbol, item.Amount, item.FeeAmount, item.Status, item.Timestamp, tokens)
		if err != nil {
			return nil, err
		}
		result = append(result, domain.Deposit{TxBase: base, DepositType: item.DepositType})
	}
	return result, nil
}

// WithdrawalHistory fetches a page of on-chain withdrawals of the account.
func (c *ExchangeClient) WithdrawalHistory(ctx context.Context, accountID uint64, symbol string, limit, offset int, apiKey string, tokens []domain.SupportedToken) ([]domain.Withdrawal, error) {
	var page historyPage[withdrawalItem]
	if err := c.do(ctx, http.MethodGet, "/api/v2/user/onchainWithdrawals", historyQuery(accountID, symbol, limit, offset), nil, map[string]string{headerAPIKey: apiKey}, &page); err != nil {
		return nil, errors.Wrap(err, "get withdrawal history")
	}

	result := make([]domain.Withdrawal, 0, len(page.Transactions))
	for _, item := range page.Transactions {
		base, err := txBase(item.Hash, item.Symbol, item.Amount, item.FeeAmount, item.Status, item.Timestamp, tokens)
		if err != nil {
			return nil, err
		}
		result = append(result, domain.Withdrawal{TxBase: base, Recipient: item.Recipient})
	}
	return result, nil
}

// SubmitTransfer posts a signed transfer and returns its hash.
func (c *ExchangeClient) SubmitTransfer(ctx context.Context, transfer domain.SignedTransfer, apiKey string) (string, error) {
	headers := map[string]string{
		headerAPIKey: apiKey,
		headerAPISig: transfer.ECDSASig,
	}
	var hash string
	if err := c.do(ctx, http.MethodPost, "/api/v2/transfer", nil, transfer, headers, &hash); err != nil {
		return "", errors.Wrap(err, "submit transfer")
	}
	return hash, nil
}

// Allowance returns how much of the token the exchange contract may move on behalf of owner.
func (c *ExchangeClient) Allowance(ctx context.Context, owner, symbol string, tokens []domain.SupportedToken) (decimal.Decimal, error) {
	var items []allowanceItem
	query := url.Values{"owner": {owner}, "token": {symbol}}
	if err := c.do(ctx, http.MethodGet, "/api/v2/eth/allowances", query, nil, nil, &items); err != nil {
		return decimal.Zero, errors.Wrap(err, "get allowance")
	}
	for _, item := range items {
		if strings.EqualFold(item.Symbol, symbol) {
			return domain.FromWei(symbol, item.Allowance, tokens)
		}
	}
	return decimal.Zero, nil
}

// RecommendedGasPrice returns the relayer's gas price suggestion in wei.
func (c *ExchangeClient) RecommendedGasPrice(ctx context.Context) (*big.Int, error) {
	var raw string
	if err := c.do(ctx, http.MethodGet, "/api/v2/eth/recommendedGasPrice", nil, nil, nil, &raw); err != nil {
		return nil, errors.Wrap(err, "get gas price")
	}
	return parseWei(raw, "gas price")
}

// EthNonce returns the next on-chain nonce of the address.
func (c *ExchangeClient) EthNonce(ctx context.Context, address string) (uint64, error) {
	var nonce uint64
	if err := c.do(ctx, http.MethodGet, "/api/v2/eth/nonce", url.Values{"owner": {address}}, nil, nil, &nonce); err != nil {
		return 0, errors.Wrap(err, "get eth nonce")
	}
	return nonce, nil
}

// EthBalance returns the native balance of the address in ETH.
func (c *ExchangeClient) EthBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	var raw string
	if err := c.do(ctx, http.MethodGet, "/api/v2/eth/balance", url.Values{"owner": {address}}, nil, nil, &raw); err != nil {
		return decimal.Zero, errors.Wrap(err, "get eth balance")
	}
	wei, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "decode eth balance")
	}
	return wei.Shift(-18), nil
}

// TokenBalance returns the on-chain ERC20 balance of the address.
func (c *ExchangeClient) TokenBalance(ctx context.Context, address, symbol string, tokens []domain.SupportedToken) (decimal.Decimal, error) {
	token, ok := domain.TokenBySymbol(tokens, symbol)
	if !ok {
		return decimal.Zero, fmt.Errorf("unknown token %s", symbol)
	}
	var raw string
	query := url.Values{"owner": {address}, "token": {token.Address}}
	if err := c.do(ctx, http.MethodGet, "/api/v2/eth/tokenBalance", query, nil, nil, &raw); err != nil {
		return decimal.Zero, errors.Wrap(err, "get token balance")
	}
	return domain.FromWei(symbol, raw, tokens)
}

// do sends a request. Reads are repeated on transient failures, writes are sent once.
func (c *ExchangeClient) do(ctx context.Context, method, path string, query url.Values, body any, headers map[string]string, out any) error {
	if method != http.MethodGet {
		return c.send(ctx, method, path, query, body, headers, out)
	}
	return c.retrier.Do(ctx, func(ctx context.Context) error {
		return c.send(ctx, method, path, query, body, headers, out)
	})
}

func (c *ExchangeClient) send(ctx context.Context, method, path string, query url.Values, body any, headers map[string]string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "rate limiter")
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode == http.StatusOK {
			return errors.Wrap(err, "failed to unmarshal response")
		}
	}

	if resp.StatusCode != http.StatusOK || env.ResultInfo.Code != codeSuccess {
		msg := env.ResultInfo.Message
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return &APIError{Status: resp.StatusCode, Code: env.ResultInfo.Code, Message: msg}
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return errors.Wrap(err, "failed to unmarshal data")
	}
	return nil
}

func historyQuery(accountID uint64, symbol string, limit, offset int) url.Values {
	return url.Values{
		"accountId":   {strconv.FormatUint(accountID, 10)},
		"tokenSymbol": {symbol},
		"limit":       {strconv.Itoa(limit)},
		"offset":      {strconv.Itoa(offset)},
	}
}

func txBase(hash, symbol, amount, fee, status string, timestamp int64, tokens []domain.SupportedToken) (domain.TxBase, error) {
	value, err := domain.FromWei(symbol, amount, tokens)
	if err != nil {
		return domain.TxBase{}, errors.Wrap(err, "decode amount")
	}
	feeValue, err := domain.FromWei(symbol, fee, tokens)
	if err != nil {
		return domain.TxBase{}, errors.Wrap(err, "decode fee")
	}
	return domain.TxBase{
		Hash:      hash,
		Symbol:    symbol,
		Amount:    value,
		FeeAmount: feeValue,
		Timestamp: time.UnixMilli(timestamp),
		Status:    status,
	}, nil
}

func parseWei(raw, what string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok {
		return nil, fmt.Errorf("invalid %s %q", what, raw)
	}
	return v, nil
}
