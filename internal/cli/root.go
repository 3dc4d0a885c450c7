// Package cli implements the riti command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/riti-network/riti/internal/app/session"
	"github.com/riti-network/riti/internal/daemon"
	"github.com/riti-network/riti/internal/domain"
)

var (
	homeDir string
	verbose bool

	cfg    daemon.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "riti",
	Short: "Proof-of-task ledger and token marketplace",
	Long: `Riti records completed tasks on a hash-linked ledger. Each verified
task burns a stake and mints a Yuki reward. Tradable tokens (YT) can be
listed and bought on the built-in marketplace.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "data and config directory (default $RITI_HOME or ~/.riti)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// setup loads the configuration and installs the default logger.
func setup(cmd *cobra.Command, args []string) error {
	if homeDir == "" {
		homeDir = daemon.Home()
	}
	var err error
	cfg, err = daemon.Load(homeDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := cfg.LogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(pterm.NewSlogHandler(pterm.DefaultLogger.WithLevel(ptermLevel(level)).WithWriter(os.Stderr)))
	slog.SetDefault(logger)
	return nil
}

func ptermLevel(l slog.Level) pterm.LogLevel {
	switch {
	case l <= slog.LevelDebug:
		return pterm.LogLevelDebug
	case l <= slog.LevelInfo:
		return pterm.LogLevelInfo
	case l <= slog.LevelWarn:
		return pterm.LogLevelWarn
	default:
		return pterm.LogLevelError
	}
}

// withSession opens the configured session, runs fn and closes it.
func withSession(ctx context.Context, fn func(*session.Session) error) error {
	s, err := session.Open(cfg.SessionOptions(logger))
	if err != nil {
		return err
	}
	runErr := fn(s)
	if err := s.Close(ctx); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

// fatal reports whether err leaves the process in a state it must not
// continue from.
func fatal(err error) bool {
	return errors.Is(err, domain.ErrPersistence)
}
