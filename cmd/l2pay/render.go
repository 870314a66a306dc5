package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/l2pay/internal/domain"
	"github.com/vadiminshakov/l2pay/internal/notify"
	"github.com/vadiminshakov/l2pay/internal/store"
	"github.com/vadiminshakov/l2pay/internal/theme"
)

var errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#c62828")).Bold(true)

// consoleNotifier prints notifications to stderr in the theme colours.
type consoleNotifier struct {
	theme *theme.Manager
}

func (n consoleNotifier) Notify(_ context.Context, msg notify.Notification) {
	styles := n.theme.Styles()
	style, mark := styles.Error, "✗"
	if msg.Level == notify.LevelWarn {
		style, mark = styles.Warning, "!"
	}
	fmt.Fprintln(os.Stderr, style.Render(mark+" "+msg.ID.Text()))
}

func renderAccount(styles theme.Styles, st store.State) string {
	if st.Session == nil {
		return styles.Muted.Render("not logged in")
	}
	fiat := ""
	if st.SelectedFiat != nil {
		fiat = st.SelectedFiat.Name
	}
	return fmt.Sprintf("%s  %s",
		styles.Title.Render(st.Session.WalletAddress),
		styles.Muted.Render(fmt.Sprintf("account #%d  %s", st.Session.AccountID, fiat)))
}

func renderBalances(styles theme.Styles, balances []domain.Balance, selected *domain.Balance, fiat *domain.Fiat) string {
	symbol := ""
	if fiat != nil {
		symbol = fiat.Symbol
	}

	var total decimal.Decimal
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(styles.Muted).
		Headers("TOKEN", "NAME", "BALANCE", "PRICE", "WORTH").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.Title
			}
			if row >= 0 && row < len(balances) && selected != nil && balances[row].Symbol == selected.Symbol {
				return styles.Title
			}
			return styles.Text
		})
	for _, b := range balances {
		total = total.Add(b.Worth())
		t.Row(b.Symbol, b.Name, b.Balance.String(), symbol+b.FiatValue.StringFixed(2), symbol+b.Worth().StringFixed(2))
	}

	return t.Render() + "\n" + styles.Text.Render("total "+symbol+total.StringFixed(2))
}

func renderTransactions(styles theme.Styles, txs []domain.Transaction) string {
	if len(txs) == 0 {
		return styles.Muted.Render("no transactions")
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(styles.Muted).
		Headers("TIME", "KIND", "AMOUNT", "FEE", "STATUS", "DETAIL").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.Title
			}
			return styles.Text
		})
	// newest first
	for i := len(txs) - 1; i >= 0; i-- {
		base := txs[i].Common()
		t.Row(
			base.Timestamp.Format("2006-01-02 15:04"),
			txKindLabel(txs[i]),
			base.Amount.String()+" "+base.Symbol,
			base.FeeAmount.String(),
			base.Status,
			txDetail(txs[i]),
		)
	}
	return t.Render()
}

func txKindLabel(tx domain.Transaction) string {
	if transfer, ok := tx.(*domain.Transfer); ok {
		if transfer.Sent {
			return "sent"
		}
		return "received"
	}
	return string(tx.Kind())
}

func txDetail(tx domain.Transaction) string {
	switch v := tx.(type) {
	case *domain.Transfer:
		peer := v.Receiver
		if !v.Sent {
			peer = v.Sender
		}
		if v.Memo != "" {
			return peer + " " + v.Memo
		}
		return peer
	case *domain.Withdrawal:
		return v.Recipient
	}
	return shortHash(tx.Common().Hash)
}

func shortHash(hash string) string {
	if len(hash) <= 14 {
		return hash
	}
	return hash[:8] + "…" + hash[len(hash)-6:]
}

func renderHash(styles theme.Styles, label, hash string, chainID int64, onchain bool) string {
	var b strings.Builder
	b.WriteString(styles.Title.Render(label))
	b.WriteString(" ")
	b.WriteString(styles.Text.Render(hash))
	if onchain {
		b.WriteString("\n")
		b.WriteString(styles.Muted.Render(domain.ExplorerTxURL(chainID, hash)))
	}
	return b.String()
}
