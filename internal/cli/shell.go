package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/riti-network/riti/internal/app/session"
	"github.com/riti-network/riti/internal/domain"
)

func init() {
	rootCmd.AddCommand(shellCmd)
}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive menu for tasks, wallets and the marketplace",
	Long: `Start the interactive menu. Listings opened in the shell live until it
exits, at which point escrowed tokens are returned to their sellers.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(s *session.Session) error {
			return NewShell(s, os.Stdin, os.Stdout).Run(cmd.Context())
		})
	},
}

// errEOF ends the shell when input runs out.
var errEOF = errors.New("end of input")

// Shell is the line-oriented interactive menu.
type Shell struct {
	session *session.Session
	in      *bufio.Scanner
	out     io.Writer
}

// NewShell creates a shell reading from in and writing to out.
func NewShell(s *session.Session, in io.Reader, out io.Writer) *Shell {
	return &Shell{session: s, in: bufio.NewScanner(in), out: out}
}

// Run loops over the main menu until the user exits or input ends.
// Only persistence failures are returned; other errors are reported and the
// loop continues.
func (sh *Shell) Run(ctx context.Context) error {
	fmt.Fprintln(sh.out, pterm.LightGreen("🌱 Riti ledger ready."))
	for {
		fmt.Fprint(sh.out, "\nOptions:\n"+
			"1. Submit Task\n"+
			"2. Marketplace\n"+
			"3. View Blockchain\n"+
			"4. Create Wallet\n"+
			"5. View Wallets\n"+
			"6. Exit\n")

		choice, err := sh.prompt("Choose an option")
		if err != nil {
			return nil
		}

		switch choice {
		case "1":
			err = sh.submitTask(ctx)
		case "2":
			err = sh.marketplace(ctx)
		case "3":
			err = renderChain(sh.out, sh.session.Ledger.Blocks())
		case "4":
			err = sh.createWallet()
		case "5":
			err = renderWallets(sh.out, sh.session.Wallets.List())
		case "6":
			fmt.Fprintln(sh.out, "Exiting...")
			return nil
		default:
			sh.fail("Invalid choice. Try again!")
		}

		if errors.Is(err, errEOF) {
			return nil
		}
		if err != nil {
			if fatal(err) {
				return err
			}
			sh.fail(err.Error())
		}
	}
}

// ─── Main Menu Actions ──────────────────────────────────────────────────────

func (sh *Shell) submitTask(ctx context.Context) error {
	wallet, err := sh.prompt("Wallet address")
	if err != nil {
		return err
	}
	task, err := sh.prompt("Task name")
	if err != nil {
		return err
	}
	proof, err := sh.prompt("Proof metadata")
	if err != nil {
		return err
	}

	block, err := sh.session.Ledger.SubmitTask(ctx, wallet, task, proof)
	if err != nil {
		return err
	}
	sh.ok(fmt.Sprintf("Task verified! Block #%d added. Tokens awarded.", block.Index))
	return nil
}

func (sh *Shell) createWallet() error {
	id, err := sh.prompt("Wallet name")
	if err != nil {
		return err
	}
	if sh.session.Wallets.Exists(id) {
		fmt.Fprint(sh.out, pterm.Warning.Sprintfln("Wallet %q already exists and will be reset.", id))
	}
	if _, err := sh.session.CreateWallet(id); err != nil {
		return err
	}
	sh.ok("Wallet created: " + id)
	return nil
}

// ─── Marketplace Menu ───────────────────────────────────────────────────────

func (sh *Shell) marketplace(ctx context.Context) error {
	for {
		fmt.Fprint(sh.out, "\nMarketplace Options:\n"+
			"1. List Tokens for Sale\n"+
			"2. Buy Tokens\n"+
			"3. View Listings\n"+
			"4. Cancel Listing\n"+
			"5. Exit Marketplace\n")

		choice, err := sh.prompt("Choose an option")
		if err != nil {
			return err
		}

		switch choice {
		case "1":
			err = sh.listTokens(ctx)
		case "2":
			err = sh.buyTokens(ctx)
		case "3":
			err = renderListings(sh.out, sh.session.Market.Listings())
		case "4":
			err = sh.cancelListing(ctx)
		case "5":
			fmt.Fprintln(sh.out, "Exiting marketplace...")
			return nil
		default:
			sh.fail("Invalid choice.")
		}

		if err != nil {
			if errors.Is(err, errEOF) || fatal(err) {
				return err
			}
			sh.fail(err.Error())
		}
	}
}

func (sh *Shell) listTokens(ctx context.Context) error {
	seller, err := sh.prompt("Wallet address")
	if err != nil {
		return err
	}
	if !sh.session.Wallets.Exists(seller) {
		return fmt.Errorf("%w: %q", domain.ErrWalletNotFound, seller)
	}
	price, err := sh.promptAmount("Price per token (Yuki)")
	if err != nil {
		return err
	}
	qty, err := sh.promptAmount("Number of tokens to list")
	if err != nil {
		return err
	}

	if _, err := sh.session.Market.List(ctx, seller, price, qty); err != nil {
		return err
	}
	sh.ok("Tokens listed for sale.")
	return nil
}

func (sh *Shell) buyTokens(ctx context.Context) error {
	buyer, err := sh.prompt("Wallet address")
	if err != nil {
		return err
	}
	if !sh.session.Wallets.Exists(buyer) {
		return fmt.Errorf("%w: %q", domain.ErrWalletNotFound, buyer)
	}
	listings := sh.session.Market.Listings()
	if err := renderListings(sh.out, listings); err != nil {
		return err
	}
	if len(listings) == 0 {
		return nil
	}

	pos, err := sh.promptPosition("Listing number to buy")
	if err != nil {
		return err
	}
	label := "Number of tokens to buy"
	if pos <= len(listings) {
		label = fmt.Sprintf("%s (available: %d)", label, listings[pos-1].TokensAvailable)
	}
	qty, err := sh.promptAmount(label)
	if err != nil {
		return err
	}

	trade, err := sh.session.Market.Buy(ctx, buyer, pos, qty)
	if err != nil {
		return err
	}
	sh.ok(fmt.Sprintf("Tokens purchased successfully! %d YT for %d Yuki.", trade.Quantity, trade.Total))
	return nil
}

func (sh *Shell) cancelListing(ctx context.Context) error {
	seller, err := sh.prompt("Wallet address")
	if err != nil {
		return err
	}
	pos, err := sh.promptPosition("Listing number to cancel")
	if err != nil {
		return err
	}
	l, err := sh.session.Market.Cancel(ctx, seller, pos)
	if err != nil {
		return err
	}
	sh.ok(fmt.Sprintf("Listing cancelled. %d YT returned.", l.TokensAvailable))
	return nil
}

// ─── Prompts ────────────────────────────────────────────────────────────────

// prompt prints label and returns the trimmed next line.
func (sh *Shell) prompt(label string) (string, error) {
	fmt.Fprintf(sh.out, "%s: ", label)
	if !sh.in.Scan() {
		if err := sh.in.Err(); err != nil {
			return "", err
		}
		return "", errEOF
	}
	return strings.TrimSpace(sh.in.Text()), nil
}

func (sh *Shell) promptAmount(label string) (uint64, error) {
	line, err := sh.prompt(label)
	if err != nil {
		return 0, err
	}
	return domain.ParseAmount(line)
}

func (sh *Shell) promptPosition(label string) (int, error) {
	line, err := sh.prompt(label)
	if err != nil {
		return 0, err
	}
	return domain.ParsePosition(line)
}

func (sh *Shell) ok(msg string) {
	fmt.Fprint(sh.out, pterm.Success.Sprintln(msg))
}

func (sh *Shell) fail(msg string) {
	fmt.Fprint(sh.out, pterm.Error.Sprintln(msg))
}
