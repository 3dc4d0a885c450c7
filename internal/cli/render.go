package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/pterm/pterm"

	"github.com/riti-network/riti/internal/domain"
)

// ─── Table Rendering ────────────────────────────────────────────────────────

func renderTable(w io.Writer, data pterm.TableData) error {
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

func renderWallets(w io.Writer, accounts []domain.Account) error {
	if len(accounts) == 0 {
		fmt.Fprintln(w, "No wallets yet.")
		return nil
	}
	data := pterm.TableData{{"WALLET", "YUKI", "YG", "YT"}}
	for _, a := range accounts {
		data = append(data, []string{
			a.ID,
			strconv.FormatUint(a.Wallet.Yuki, 10),
			strconv.FormatUint(a.Wallet.YG, 10),
			strconv.FormatUint(a.Wallet.YT, 10),
		})
	}
	return renderTable(w, data)
}

func renderChain(w io.Writer, blocks []domain.Block) error {
	data := pterm.TableData{{"INDEX", "TIME", "WALLET", "TASK", "REWARD", "HASH", "PREVIOUS"}}
	for _, b := range blocks {
		wallet, task, reward := "-", "(genesis)", "-"
		if len(b.Transactions) > 0 {
			tx := b.Transactions[0]
			wallet, task, reward = tx.Receiver, tx.Task, strconv.FormatUint(tx.Amount, 10)
		}
		data = append(data, []string{
			strconv.FormatUint(b.Index, 10),
			time.Unix(b.Timestamp, 0).UTC().Format(time.DateTime),
			wallet,
			task,
			reward,
			short(b.Hash),
			short(b.PreviousHash),
		})
	}
	return renderTable(w, data)
}

func renderListings(w io.Writer, listings []domain.Listing) error {
	if len(listings) == 0 {
		fmt.Fprintln(w, "No listings available.")
		return nil
	}
	data := pterm.TableData{{"#", "SELLER", "PRICE/TOKEN", "AVAILABLE"}}
	for i, l := range listings {
		data = append(data, []string{
			strconv.Itoa(i + 1),
			l.Seller,
			strconv.FormatUint(l.PricePerToken, 10),
			strconv.FormatUint(l.TokensAvailable, 10),
		})
	}
	return renderTable(w, data)
}

func renderTrades(w io.Writer, trades []domain.Trade) error {
	if len(trades) == 0 {
		fmt.Fprintln(w, "No trades recorded.")
		return nil
	}
	data := pterm.TableData{{"TIME", "BUYER", "SELLER", "QTY", "PRICE", "TOTAL"}}
	for _, t := range trades {
		data = append(data, []string{
			t.ExecutedAt.UTC().Format(time.DateTime),
			t.Buyer,
			t.Seller,
			strconv.FormatUint(t.Quantity, 10),
			strconv.FormatUint(t.PricePerToken, 10),
			strconv.FormatUint(t.Total, 10),
		})
	}
	return renderTable(w, data)
}

// short truncates a hash for display.
func short(h string) string {
	if len(h) <= 16 {
		return h
	}
	return h[:16]
}
