// Package daemon holds process configuration and the long-running HTTP service.
package daemon

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/riti-network/riti/internal/app/ledger"
	"github.com/riti-network/riti/internal/app/session"
	"github.com/riti-network/riti/internal/app/wallet"
)

// ConfigFile is the file name looked up inside the home directory.
const ConfigFile = "config.toml"

// Config is the top-level configuration, read from $RITI_HOME/config.toml.
type Config struct {
	Economy   EconomyConfig   `toml:"economy"`
	Storage   StorageConfig   `toml:"storage"`
	API       APIConfig       `toml:"api"`
	Telemetry TelemetryConfig `toml:"telemetry"`

	home string // resolved home directory, not part of the file
}

// EconomyConfig holds the reward constants.
type EconomyConfig struct {
	StartingBalance uint64 `toml:"starting_balance"`
	StakeAmount     uint64 `toml:"stake_amount"`
	MiningReward    uint64 `toml:"mining_reward"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Backend    string `toml:"backend"`     // "json" or "sqlite"
	WalletFile string `toml:"wallet_file"` // JSON backend only
	DataDir    string `toml:"data_dir"`    // defaults to the home directory
}

// APIConfig controls the HTTP server.
type APIConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// TelemetryConfig controls metrics and logging.
type TelemetryConfig struct {
	Metrics  bool   `toml:"metrics"`
	LogLevel string `toml:"log_level"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		Economy: EconomyConfig{
			StartingBalance: wallet.DefaultConfig().StartingBalance,
			StakeAmount:     ledger.DefaultConfig().StakeAmount,
			MiningReward:    ledger.DefaultConfig().MiningReward,
		},
		Storage: StorageConfig{
			Backend:    session.BackendJSON,
			WalletFile: "wallets.json",
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 7420,
		},
		Telemetry: TelemetryConfig{
			Metrics:  true,
			LogLevel: "info",
		},
	}
}

// Home returns $RITI_HOME, or ~/.riti when unset.
func Home() string {
	if env := os.Getenv("RITI_HOME"); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".riti"
	}
	return filepath.Join(home, ".riti")
}

// Load reads home/config.toml over DefaultConfig. A missing file yields the
// defaults. Unknown keys are logged and otherwise ignored.
func Load(home string) (Config, error) {
	cfg := DefaultConfig()
	cfg.home = home

	path := filepath.Join(home, ConfigFile)
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, cfg.Validate()
		}
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		slog.Warn("unknown config keys ignored", "file", path, "keys", strings.Join(keys, ","))
	}
	return cfg, cfg.Validate()
}

// Validate checks the configuration for values that cannot work.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case session.BackendJSON:
		if strings.TrimSpace(c.Storage.WalletFile) == "" {
			return errors.New("storage.wallet_file must not be empty")
		}
	case session.BackendSQLite:
	default:
		return fmt.Errorf("storage.backend %q: want %q or %q", c.Storage.Backend, session.BackendJSON, session.BackendSQLite)
	}
	if c.API.Port < 1 || c.API.Port > 65535 {
		return fmt.Errorf("api.port %d out of range 1-65535", c.API.Port)
	}
	if _, err := parseLogLevel(c.Telemetry.LogLevel); err != nil {
		return err
	}
	return nil
}

// Home returns the directory the configuration was loaded from.
func (c Config) Home() string {
	if c.home == "" {
		return Home()
	}
	return c.home
}

// DataDir returns the directory holding the wallet file or database.
func (c Config) DataDir() string {
	if c.Storage.DataDir != "" {
		return c.Storage.DataDir
	}
	return c.Home()
}

// WalletPath returns the absolute JSON wallet file path.
func (c Config) WalletPath() string {
	if filepath.IsAbs(c.Storage.WalletFile) {
		return c.Storage.WalletFile
	}
	return filepath.Join(c.DataDir(), c.Storage.WalletFile)
}

// Addr returns the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

// LogLevel returns the configured slog level.
func (c Config) LogLevel() slog.Level {
	lvl, _ := parseLogLevel(c.Telemetry.LogLevel) // Validate rejects unknown names
	return lvl
}

// SessionOptions maps the configuration onto session.Options.
func (c Config) SessionOptions(logger *slog.Logger) session.Options {
	return session.Options{
		Backend:    c.Storage.Backend,
		WalletFile: c.WalletPath(),
		DataDir:    c.DataDir(),
		Wallet:     wallet.Config{StartingBalance: c.Economy.StartingBalance},
		Ledger: ledger.Config{
			StakeAmount:  c.Economy.StakeAmount,
			MiningReward: c.Economy.MiningReward,
		},
		Logger: logger,
	}
}

// parseLogLevel maps a level name onto slog.Level. Empty means info.
func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("telemetry.log_level %q: want debug, info, warn or error", s)
}
