package cli

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/riti-network/riti/internal/app/session"
)

func init() {
	rootCmd.AddCommand(walletCmd)
	walletCmd.AddCommand(walletCreateCmd)
	walletCmd.AddCommand(walletListCmd)
	walletCmd.AddCommand(walletShowCmd)
}

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage wallets",
}

// ─── wallet create ──────────────────────────────────────────────────────────

var walletCreateCmd = &cobra.Command{
	Use:   "create WALLET",
	Short: "Create a wallet with the starting balance",
	Long: `Create a wallet funded with the configured starting balance.
An existing wallet with the same name is reset.`,
	Args: cobra.ExactArgs(1),
	RunE: runWalletCreate,
}

func runWalletCreate(cmd *cobra.Command, args []string) error {
	return withSession(cmd.Context(), func(s *session.Session) error {
		if s.Wallets.Exists(args[0]) {
			pterm.Warning.Printfln("Wallet %q already exists and will be reset.", args[0])
		}
		w, err := s.CreateWallet(args[0])
		if err != nil {
			return err
		}
		pterm.Success.Printfln("Wallet created: %s (%d Yuki)", args[0], w.Yuki)
		return nil
	})
}

// ─── wallet list ────────────────────────────────────────────────────────────

var walletListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all wallets and balances",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(s *session.Session) error {
			return renderWallets(os.Stdout, s.Wallets.List())
		})
	},
}

// ─── wallet show ────────────────────────────────────────────────────────────

var walletShowCmd = &cobra.Command{
	Use:   "show WALLET",
	Short: "Show one wallet's balances",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(s *session.Session) error {
			w, err := s.Wallets.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "%s\n  Yuki: %d\n  YG:   %d\n  YT:   %d\n", pterm.LightCyan(args[0]), w.Yuki, w.YG, w.YT)
			return nil
		})
	},
}
