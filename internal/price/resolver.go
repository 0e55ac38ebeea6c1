package price

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"walletwatch/internal/chains"
	"walletwatch/internal/metrics"
)

const DefaultFetchTimeout = 30 * time.Second

// Config holds resolver settings.
type Config struct {
	FetchTimeout time.Duration
}

// Resolver values token amounts in USD through a TTL cache in front of a Provider.
// Concurrent misses for one key share a single upstream fetch.
type Resolver struct {
	provider Provider
	chains   chains.Source
	cache    *Cache
	group    singleflight.Group
	timeout  time.Duration
	logger   *zap.Logger
}

// NewResolver builds a Resolver. The cache is owned by the resolver for its lifetime.
func NewResolver(provider Provider, source chains.Source, cache *Cache, cfg Config, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = NewCache(DefaultCacheSize, DefaultTTL)
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	return &Resolver{
		provider: provider,
		chains:   source,
		cache:    cache,
		timeout:  cfg.FetchTimeout,
		logger:   logger,
	}
}

// NativeKey is the cache key for a chain's base currency.
func NativeKey(chain string) string {
	return "native:" + strings.ToLower(chain)
}

// TokenKey is the cache key for a token contract on a chain.
func TokenKey(chain, address string) string {
	return "token:" + strings.ToLower(chain) + ":" + strings.ToLower(address)
}

// ResolveUSDValue returns amount × unit price. A non-positive amount is 0 without
// a lookup; an empty tokenAddress means the chain's native currency. Failures
// degrade to 0.
func (r *Resolver) ResolveUSDValue(ctx context.Context, chain string, amount float64, tokenAddress string) float64 {
	if amount <= 0 {
		return 0
	}
	price := r.UnitPrice(ctx, chain, tokenAddress)
	usd := amount * price
	r.logger.Debug("usd value",
		zap.String("chain", chain),
		zap.Float64("amount", amount),
		zap.Float64("price", price),
		zap.Float64("usd", usd),
	)
	return usd
}

// UnitPrice returns the USD price of one unit, served from cache when fresh.
func (r *Resolver) UnitPrice(ctx context.Context, chain, tokenAddress string) float64 {
	key := NativeKey(chain)
	if tokenAddress != "" {
		key = TokenKey(chain, tokenAddress)
	}

	if price, ok := r.cache.Get(key); ok {
		metrics.PriceLookups.WithLabelValues("hit").Inc()
		return price
	}
	metrics.PriceLookups.WithLabelValues("miss").Inc()

	v, _, _ := r.group.Do(key, func() (interface{}, error) {
		if price, ok := r.cache.Get(key); ok {
			return price, nil
		}
		price, err := r.fetch(ctx, chain, tokenAddress)
		if err != nil {
			metrics.PriceFetches.WithLabelValues("error").Inc()
			if errors.Is(err, ErrPriceNotFound) {
				r.logger.Debug("price not found", zap.String("key", key), zap.Error(err))
			} else {
				r.logger.Warn("price fetch failed", zap.String("key", key), zap.Error(err))
			}
			return 0.0, nil
		}
		metrics.PriceFetches.WithLabelValues("ok").Inc()
		if price > 0 {
			r.cache.Set(key, price)
		}
		return price, nil
	})
	return v.(float64)
}

func (r *Resolver) fetch(ctx context.Context, code, tokenAddress string) (float64, error) {
	chain, ok := r.chain(code)
	if !ok {
		return 0, fmt.Errorf("%s: %w", code, ErrUnknownChain)
	}

	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	if tokenAddress == "" {
		if chain.CoinID == "" {
			return 0, fmt.Errorf("%s has no coin id: %w", code, ErrUnknownChain)
		}
		return r.provider.NativePrice(fetchCtx, chain.CoinID)
	}
	if chain.Platform == "" {
		return 0, fmt.Errorf("%s has no platform: %w", code, ErrUnknownChain)
	}
	if chain.EVM {
		tokenAddress = strings.ToLower(tokenAddress)
	}
	return r.provider.TokenPrice(fetchCtx, chain.Platform, tokenAddress)
}

func (r *Resolver) chain(code string) (chains.Chain, bool) {
	if r.chains == nil {
		return chains.Chain{}, false
	}
	reg := r.chains.Current()
	if reg == nil {
		return chains.Chain{}, false
	}
	return reg.Chain(code)
}

// RefreshNativePrices fetches every native price in one upstream call and stores
// them all at once. Chains without a price are left out.
func (r *Resolver) RefreshNativePrices(ctx context.Context) (map[string]float64, error) {
	if r.chains == nil || r.chains.Current() == nil {
		return nil, fmt.Errorf("chain registry is nil")
	}
	reg := r.chains.Current()

	byCoin := make(map[string][]string)
	for _, code := range reg.Codes() {
		chain, _ := reg.Chain(code)
		if chain.CoinID == "" {
			continue
		}
		byCoin[chain.CoinID] = append(byCoin[chain.CoinID], code)
	}
	ids := make([]string, 0, len(byCoin))
	for id := range byCoin {
		ids = append(ids, id)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	coinPrices, err := r.provider.NativePrices(fetchCtx, ids)
	if err != nil {
		metrics.PriceFetches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("batch native prices: %w", err)
	}
	metrics.PriceFetches.WithLabelValues("ok").Inc()

	prices := make(map[string]float64, len(reg.Codes()))
	entries := make(map[string]float64, len(reg.Codes()))
	for id, codes := range byCoin {
		price, ok := coinPrices[id]
		if !ok || price <= 0 {
			continue
		}
		for _, code := range codes {
			prices[code] = price
			entries[NativeKey(code)] = price
		}
	}
	r.cache.SetMany(entries)

	r.logger.Info("batch price update", zap.Int("chains", len(prices)))
	return prices, nil
}

// Clear drops every cached price.
func (r *Resolver) Clear() {
	r.cache.Clear()
	r.logger.Info("price cache cleared")
}
