package domain

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// TokenBalance raw balance entry returned by the exchange, already in token units.
type TokenBalance struct {
	TokenID uint32
	Amount  decimal.Decimal
}

// Price fiat price of one token unit.
type Price struct {
	Symbol string
	Price  decimal.Decimal
}

// Balance holding of a supported token together with its fiat price.
type Balance struct {
	TokenID        uint32          `json:"tokenId"`
	Symbol         string          `json:"symbol"`
	Name           string          `json:"name"`
	Address        string          `json:"address"`
	Balance        decimal.Decimal `json:"balance"`
	FiatValue      decimal.Decimal `json:"fiatValue"`
	DepositEnabled bool            `json:"depositEnabled"`
}

// Worth returns balance multiplied by the fiat price.
func (b Balance) Worth() decimal.Decimal {
	return b.Balance.Mul(b.FiatValue)
}

// BuildBalances joins enabled tokens with balances by id and prices by symbol.
// Tokens missing from either list get zero. The result is ordered by worth, highest first.
func BuildBalances(tokens []SupportedToken, balances []TokenBalance, prices []Price) []Balance {
	amounts := make(map[uint32]decimal.Decimal, len(balances))
	for _, b := range balances {
		amounts[b.TokenID] = b.Amount
	}
	fiat := make(map[string]decimal.Decimal, len(prices))
	for _, p := range prices {
		fiat[strings.ToUpper(p.Symbol)] = p.Price
	}

	result := make([]Balance, 0, len(tokens))
	for _, t := range tokens {
		if !t.Enabled {
			continue
		}
		result = append(result, Balance{
			TokenID:        t.TokenID,
			Symbol:         t.Symbol,
			Name:           t.Name,
			Address:        t.Address,
			Balance:        amounts[t.TokenID],
			FiatValue:      fiat[strings.ToUpper(t.Symbol)],
			DepositEnabled: t.DepositEnabled,
		})
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Worth().GreaterThan(result[j].Worth())
	})

	return result
}

// DefaultAsset picks the first balance with nonzero holdings, falling back to the first entry.
func DefaultAsset(balances []Balance) (Balance, bool) {
	if len(balances) == 0 {
		return Balance{}, false
	}
	for _, b := range balances {
		if !b.Balance.IsZero() {
			return b, true
		}
	}
	return balances[0], true
}

// BalanceBySymbol finds a balance entry by symbol.
func BalanceBySymbol(balances []Balance, symbol string) (Balance, bool) {
	for _, b := range balances {
		if strings.EqualFold(b.Symbol, symbol) {
			return b, true
		}
	}
	return Balance{}, false
}

// SearchBalances keeps balances whose symbol or name contains query, ignoring case.
func SearchBalances(balances []Balance, query string) []Balance {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return balances
	}

	var found []Balance
	for _, b := range balances {
		if strings.Contains(strings.ToLower(b.Symbol), query) || strings.Contains(strings.ToLower(b.Name), query) {
			found = append(found, b)
		}
	}
	return found
}
