package domain

import "strings"

// Fiat currency balances are valued in.
type Fiat struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// SupportedFiats static list of selectable currencies, the first one is the default.
var SupportedFiats = []Fiat{
	{Name: "USD", Symbol: "$"},
	{Name: "EUR", Symbol: "€"},
	{Name: "GBP", Symbol: "£"},
	{Name: "CNY", Symbol: "¥"},
	{Name: "JPY", Symbol: "¥"},
}

// DefaultFiat returns the first supported fiat.
func DefaultFiat() Fiat {
	return SupportedFiats[0]
}

// FiatByName finds a supported fiat, case-insensitively.
func FiatByName(name string) (Fiat, bool) {
	for _, f := range SupportedFiats {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return Fiat{}, false
}
