package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"walletwatch/internal/model"
)

// JSONLWalletStore keeps wallets in memory, indexed by lower-cased address, and
// persists them as JSON lines.
type JSONLWalletStore struct {
	path string

	mu      sync.RWMutex
	wallets []model.Wallet
	byAddr  map[string][]int
}

// OpenJSONLWalletStore loads path if it exists. A missing file is an empty store.
func OpenJSONLWalletStore(path string) (*JSONLWalletStore, error) {
	s := &JSONLWalletStore{path: path, byAddr: make(map[string][]int)}
	if path == "" {
		return s, nil
	}
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open wallets file: %w", err)
	}
	defer file.Close()

	wallets, err := ReadWallets(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.setLocked(wallets)
	return s, nil
}

// ReadWallets parses JSON-lines wallets. Blank lines are ignored. Missing
// incoming_enabled defaults to true.
func ReadWallets(r io.Reader) ([]model.Wallet, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var out []model.Wallet
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		w := model.Wallet{IncomingEnabled: true}
		if err := json.Unmarshal([]byte(text), &w); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if w.Address == "" || w.Label == "" {
			return nil, fmt.Errorf("line %d: address and label are required", line)
		}
		if w.MinAmountUSD < 0 {
			return nil, fmt.Errorf("line %d: min_amount_usd must be >= 0", line)
		}
		w.Address = strings.ToLower(w.Address)
		w.Chain = strings.ToLower(w.Chain)
		out = append(out, w)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read wallets: %w", err)
	}
	return out, nil
}

// WalletsByAddress returns copies of every wallet tracking address.
func (s *JSONLWalletStore) WalletsByAddress(ctx context.Context, address string) ([]model.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.byAddr[strings.ToLower(address)]
	out := make([]model.Wallet, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.wallets[i])
	}
	return out, nil
}

// UpsertWallets replaces wallets with the same (user, label) and rewrites the file.
func (s *JSONLWalletStore) UpsertWallets(ctx context.Context, wallets []model.Wallet) error {
	if len(wallets) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	merged := append([]model.Wallet(nil), s.wallets...)
	pos := make(map[string]int, len(merged))
	for i, w := range merged {
		pos[walletKey(w)] = i
	}
	for _, w := range wallets {
		w.Address = strings.ToLower(w.Address)
		w.Chain = strings.ToLower(w.Chain)
		if i, ok := pos[walletKey(w)]; ok {
			merged[i] = w
			continue
		}
		pos[walletKey(w)] = len(merged)
		merged = append(merged, w)
	}

	if s.path != "" {
		if err := writeWallets(s.path, merged); err != nil {
			return err
		}
	}
	s.setLocked(merged)
	return nil
}

// Len returns the number of stored wallets.
func (s *JSONLWalletStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.wallets)
}

func (s *JSONLWalletStore) setLocked(wallets []model.Wallet) {
	s.wallets = wallets
	s.byAddr = make(map[string][]int, len(wallets))
	for i, w := range wallets {
		s.byAddr[w.Address] = append(s.byAddr[w.Address], i)
	}
}

func walletKey(w model.Wallet) string {
	return fmt.Sprintf("%d/%s", w.UserID, w.Label)
}

func writeWallets(path string, wallets []model.Wallet) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create wallets dir: %w", err)
		}
	}

	tmp := path + ".tmp"
	file, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open wallets file: %w", err)
	}

	writer := bufio.NewWriter(file)
	for _, w := range wallets {
		line, err := json.Marshal(w)
		if err != nil {
			file.Close()
			return fmt.Errorf("marshal wallet: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			file.Close()
			return fmt.Errorf("write wallet: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			file.Close()
			return fmt.Errorf("write newline: %w", err)
		}
	}
	if err := writer.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("flush wallets: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close wallets file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace wallets file: %w", err)
	}
	return nil
}
