// Package jsonfile persists the wallet store as a single JSON document:
// an object mapping account id to {balance_yuki, balance_yg, balance_yt}.
package jsonfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/riti-network/riti/internal/domain"
)

// ErrCorrupt is returned when the file exists but does not decode.
var ErrCorrupt = errors.New("wallet file is corrupt")

// Store reads and writes one wallet file.
type Store struct {
	path string
}

// New returns a store for the file at path. The file need not exist yet.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// LoadWallets decodes the wallet file. A missing file yields an empty map.
func (s *Store) LoadWallets() (map[string]domain.Wallet, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]domain.Wallet), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read wallet file: %w", err)
	}

	var wallets map[string]domain.Wallet
	if err := json.Unmarshal(data, &wallets); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}
	if wallets == nil {
		wallets = make(map[string]domain.Wallet)
	}
	return wallets, nil
}

// SaveWallets overwrites the wallet file wholesale. The document is written
// to a temporary file in the same directory and renamed into place, so a
// crash mid-write never leaves a truncated file behind.
func (s *Store) SaveWallets(wallets map[string]domain.Wallet) error {
	if wallets == nil {
		wallets = map[string]domain.Wallet{}
	}
	data, err := json.MarshalIndent(wallets, "", "  ")
	if err != nil {
		return fmt.Errorf("encode wallets: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create wallet directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".wallets-*.json")
	if err != nil {
		return fmt.Errorf("create temp wallet file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write wallet file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync wallet file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close wallet file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace wallet file: %w", err)
	}
	return nil
}
