package chains

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fsnotify/fsnotify"
	"github.com/mr-tron/base58"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// File is the on-disk registry override format.
type File struct {
	Chains []Override `yaml:"chains"`
}

// Override is one file entry. A nil EVM keeps the default flag; on a new chain
// it is inferred from a hex provider id.
type Override struct {
	Chain `yaml:",inline"`
	EVM   *bool `yaml:"evm"`
}

// LoadFile reads a YAML registry and merges it over the defaults by chain code.
// An empty path yields the defaults.
func LoadFile(path string) (*Registry, error) {
	list := Defaults()
	if path == "" {
		return NewRegistry(list), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry %s: %w", path, err)
	}
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}

	merged := merge(list, file.Chains)
	if err := Validate(merged); err != nil {
		return nil, err
	}
	return NewRegistry(merged), nil
}

func merge(base []Chain, overrides []Override) []Chain {
	index := make(map[string]int, len(base))
	out := make([]Chain, len(base))
	copy(out, base)
	for i, c := range out {
		index[c.Code] = i
	}
	for _, o := range overrides {
		c := o.Chain
		c.Code = strings.ToLower(strings.TrimSpace(c.Code))
		if i, ok := index[c.Code]; ok {
			out[i] = overlay(out[i], c)
			if o.EVM != nil {
				out[i].EVM = *o.EVM
			}
			continue
		}
		c.EVM = strings.HasPrefix(strings.ToLower(c.ProviderID), "0x")
		if o.EVM != nil {
			c.EVM = *o.EVM
		}
		index[c.Code] = len(out)
		out = append(out, c)
	}
	return out
}

func overlay(dst, src Chain) Chain {
	if src.Name != "" {
		dst.Name = src.Name
	}
	if src.ProviderID != "" {
		dst.ProviderID = src.ProviderID
	}
	if src.Explorer != "" {
		dst.Explorer = src.Explorer
	}
	if src.NativeSymbol != "" {
		dst.NativeSymbol = src.NativeSymbol
	}
	if src.NativeDecimals != 0 {
		dst.NativeDecimals = src.NativeDecimals
	}
	if src.CoinID != "" {
		dst.CoinID = src.CoinID
	}
	if src.Platform != "" {
		dst.Platform = src.Platform
	}
	if len(src.Routers) > 0 {
		routers := make(map[string]string, len(dst.Routers)+len(src.Routers))
		for k, v := range dst.Routers {
			routers[k] = v
		}
		for k, v := range src.Routers {
			routers[k] = v
		}
		dst.Routers = routers
	}
	return dst
}

// Validate checks codes and router address formats.
func Validate(list []Chain) error {
	seen := make(map[string]struct{}, len(list))
	for _, c := range list {
		if c.Code == "" {
			return fmt.Errorf("chain code is required")
		}
		if _, dup := seen[c.Code]; dup {
			return fmt.Errorf("duplicate chain code: %s", c.Code)
		}
		seen[c.Code] = struct{}{}
		if c.NativeDecimals < 0 || c.NativeDecimals > 36 {
			return fmt.Errorf("chain %s: native decimals out of range: %d", c.Code, c.NativeDecimals)
		}
		for name, addr := range c.Routers {
			if err := validateRouter(c, addr); err != nil {
				return fmt.Errorf("chain %s router %s: %w", c.Code, name, err)
			}
		}
	}
	return nil
}

func validateRouter(c Chain, addr string) error {
	if c.EVM {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("invalid evm address: %s", addr)
		}
		return nil
	}
	raw, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("invalid base58 program id %s: %w", addr, err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("program id %s decodes to %d bytes", addr, len(raw))
	}
	return nil
}

// Source yields the registry currently in effect.
type Source interface {
	Current() *Registry
}

// Store holds the active registry and swaps it atomically on reload.
type Store struct {
	current atomic.Pointer[Registry]
}

func NewStore(r *Registry) *Store {
	s := &Store{}
	s.current.Store(r)
	return s
}

// Current returns the registry in effect.
func (s *Store) Current() *Registry {
	return s.current.Load()
}

// Replace installs a new registry.
func (s *Store) Replace(r *Registry) {
	s.current.Store(r)
}

// Watch reloads the registry file whenever it changes. A reload that fails to
// parse or validate keeps the previous registry. Call stop to release the watcher.
func Watch(path string, store *Store, logger *zap.Logger) (stop func(), err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("registry watcher: %w", err)
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, fmt.Errorf("registry watcher add %s: %w", path, err)
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				reg, err := LoadFile(path)
				if err != nil {
					logger.Warn("registry reload failed", zap.String("path", path), zap.Error(err))
					continue
				}
				store.Replace(reg)
				logger.Info("registry reloaded", zap.String("path", path), zap.Int("chains", len(reg.Codes())))
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("registry watcher error", zap.Error(err))
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		w.Close()
	}, nil
}
