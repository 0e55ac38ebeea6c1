package chains

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Chain describes one supported network.
type Chain struct {
	Code           string            `yaml:"code"`
	Name           string            `yaml:"name"`
	ProviderID     string            `yaml:"provider_id"`
	Explorer       string            `yaml:"explorer"`
	NativeSymbol   string            `yaml:"native_symbol"`
	NativeDecimals int32             `yaml:"native_decimals"`
	CoinID         string            `yaml:"coin_id"`
	Platform       string            `yaml:"platform"`
	EVM            bool              `yaml:"-"`
	Routers        map[string]string `yaml:"routers"`
}

// TxURL returns the explorer link for a transaction hash.
func (c Chain) TxURL(txHash string) string {
	if c.Explorer == "" {
		return ""
	}
	return "https://" + c.Explorer + "/tx/" + txHash
}

// Registry indexes chains by internal code and by provider id.
type Registry struct {
	byCode     map[string]Chain
	byProvider map[string]string
	routers    map[string]map[string]string
}

// NewRegistry builds a registry; router addresses are indexed lower-cased.
func NewRegistry(list []Chain) *Registry {
	r := &Registry{
		byCode:     make(map[string]Chain, len(list)),
		byProvider: make(map[string]string, len(list)),
		routers:    make(map[string]map[string]string, len(list)),
	}
	for _, c := range list {
		code := strings.ToLower(strings.TrimSpace(c.Code))
		if code == "" {
			continue
		}
		c.Code = code
		r.byCode[code] = c
		if c.ProviderID != "" {
			r.byProvider[strings.ToLower(c.ProviderID)] = code
		}
		routers := make(map[string]string, len(c.Routers))
		for name, addr := range c.Routers {
			routers[strings.ToLower(addr)] = name
		}
		r.routers[code] = routers
	}
	return r
}

// Chain returns the chain for an internal code.
func (r *Registry) Chain(code string) (Chain, bool) {
	c, ok := r.byCode[strings.ToLower(code)]
	return c, ok
}

// CodeForProvider maps a provider chain id (e.g. "0x38") to an internal code.
func (r *Registry) CodeForProvider(providerID string) (string, bool) {
	code, ok := r.byProvider[strings.ToLower(strings.TrimSpace(providerID))]
	return code, ok
}

// Router reports the display name of a known DEX router on a chain.
func (r *Registry) Router(code, address string) (string, bool) {
	routers, ok := r.routers[strings.ToLower(code)]
	if !ok || address == "" {
		return "", false
	}
	name, ok := routers[strings.ToLower(address)]
	if !ok {
		return "", false
	}
	return DisplayName(name), true
}

// Codes returns every internal chain code.
func (r *Registry) Codes() []string {
	out := make([]string, 0, len(r.byCode))
	for code := range r.byCode {
		out = append(out, code)
	}
	return out
}

// DisplayName turns a key such as "uniswap_v2" into "Uniswap V2".
func DisplayName(key string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(key, "_", " "))
}
