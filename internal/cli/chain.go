package cli

import (
	"encoding/json"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/riti-network/riti/internal/app/session"
)

func init() {
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(chainCmd)
	chainCmd.AddCommand(chainShowCmd)
	chainCmd.AddCommand(chainVerifyCmd)

	chainShowCmd.Flags().Bool("json", false, "print blocks as JSON")
}

// ─── submit ─────────────────────────────────────────────────────────────────

var submitCmd = &cobra.Command{
	Use:   "submit WALLET TASK PROOF",
	Short: "Submit a completed task for a reward",
	Long: `Stake Yuki from WALLET, record TASK with its PROOF metadata in a new
block and credit the mining reward.`,
	Args: cobra.ExactArgs(3),
	RunE: runSubmit,
}

func runSubmit(cmd *cobra.Command, args []string) error {
	return withSession(cmd.Context(), func(s *session.Session) error {
		block, err := s.Ledger.SubmitTask(cmd.Context(), args[0], args[1], args[2])
		if err != nil {
			return err
		}
		pterm.Success.Printfln("Task verified! Block #%d added (%s).", block.Index, short(block.Hash))
		w, err := s.Wallets.Get(args[0])
		if err != nil {
			return err
		}
		pterm.Info.Printfln("%s now holds %d Yuki.", args[0], w.Yuki)
		return nil
	})
}

// ─── chain show ─────────────────────────────────────────────────────────────

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Inspect the ledger",
}

var chainShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print every block, genesis first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		return withSession(cmd.Context(), func(s *session.Session) error {
			blocks := s.Ledger.Blocks()
			if asJSON {
				return printJSON(blocks)
			}
			return renderChain(os.Stdout, blocks)
		})
	},
}

// ─── chain verify ───────────────────────────────────────────────────────────

var chainVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check block linkage and hashes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(s *session.Session) error {
			if err := s.Ledger.Verify(); err != nil {
				return err
			}
			pterm.Success.Printfln("Chain valid: %d blocks.", s.Ledger.Len())
			return nil
		})
	},
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
