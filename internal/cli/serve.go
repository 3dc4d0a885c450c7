package cli

import (
	"bytes"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/BurntSushi/toml"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/riti-network/riti/internal/app/session"
	"github.com/riti-network/riti/internal/daemon"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tradesCmd)
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)

	serveCmd.Flags().String("host", "", "override [api].host")
	serveCmd.Flags().Int("port", 0, "override [api].port")
	tradesCmd.Flags().Int("limit", 20, "maximum number of trades to show")
	configInitCmd.Flags().Bool("force", false, "overwrite an existing config file")
}

// ─── serve ──────────────────────────────────────────────────────────────────

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the ledger and marketplace over HTTP",
	Long: `Start the HTTP front end. Listings opened while serving are held in
memory; on shutdown their escrowed tokens are returned to the sellers.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	c := cfg
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		c.API.Host = host
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		c.API.Port = port
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pterm.Info.Printfln("Riti listening on http://%s", c.Addr())
	return daemon.Run(ctx, c, logger)
}

// ─── trades ─────────────────────────────────────────────────────────────────

var tradesCmd = &cobra.Command{
	Use:   "trades",
	Short: "Show recent marketplace trades (sqlite backend)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		if limit < 1 {
			return fmt.Errorf("--limit must be positive")
		}
		if cfg.Storage.Backend != session.BackendSQLite {
			pterm.Warning.Println("Trade history is only kept by the sqlite backend.")
			return nil
		}
		return withSession(cmd.Context(), func(s *session.Session) error {
			trades, err := s.RecentTrades(limit)
			if err != nil {
				return err
			}
			return renderTrades(os.Stdout, trades)
		})
	},
}

// ─── config ─────────────────────────────────────────────────────────────────

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the configuration file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as TOML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(os.Stdout, "# %s\n", filepath.Join(cfg.Home(), daemon.ConfigFile))
		return toml.NewEncoder(os.Stdout).Encode(cfg)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		path := filepath.Join(cfg.Home(), daemon.ConfigFile)
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(daemon.DefaultConfig()); err != nil {
			return err
		}
		if err := os.MkdirAll(cfg.Home(), 0700); err != nil {
			return fmt.Errorf("create home directory: %w", err)
		}
		if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		pterm.Success.Printfln("Config written to %s", path)
		return nil
	},
}
