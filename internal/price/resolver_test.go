package price

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walletwatch/internal/chains"
)

type fakeProvider struct {
	mu          sync.Mutex
	native      map[string]float64
	tokens      map[string]float64
	err         error
	nativeCalls atomic.Int32
	tokenCalls  atomic.Int32
	batchCalls  atomic.Int32
	tokenArgs   []string
	gate        chan struct{}
}

func (p *fakeProvider) NativePrice(ctx context.Context, coinID string) (float64, error) {
	p.nativeCalls.Add(1)
	if p.gate != nil {
		<-p.gate
	}
	if p.err != nil {
		return 0, p.err
	}
	price, ok := p.native[coinID]
	if !ok {
		return 0, ErrPriceNotFound
	}
	return price, nil
}

func (p *fakeProvider) TokenPrice(ctx context.Context, platform, contract string) (float64, error) {
	p.tokenCalls.Add(1)
	p.mu.Lock()
	p.tokenArgs = append(p.tokenArgs, platform+"/"+contract)
	p.mu.Unlock()
	if p.err != nil {
		return 0, p.err
	}
	price, ok := p.tokens[contract]
	if !ok {
		return 0, ErrPriceNotFound
	}
	return price, nil
}

func (p *fakeProvider) NativePrices(ctx context.Context, coinIDs []string) (map[string]float64, error) {
	p.batchCalls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	out := make(map[string]float64)
	for _, id := range coinIDs {
		if price, ok := p.native[id]; ok {
			out[id] = price
		}
	}
	return out, nil
}

func newTestResolver(provider Provider) (*Resolver, *fakeClock) {
	cache, clock := newTestCache(DefaultCacheSize, DefaultTTL)
	source := chains.NewStore(chains.NewRegistry(chains.Defaults()))
	return NewResolver(provider, source, cache, Config{FetchTimeout: time.Second}, nil), clock
}

func TestResolveNonPositiveAmountSkipsLookup(t *testing.T) {
	provider := &fakeProvider{native: map[string]float64{"ethereum": 3000}}
	resolver, _ := newTestResolver(provider)

	assert.Equal(t, 0.0, resolver.ResolveUSDValue(context.Background(), "eth", 0, ""))
	assert.Equal(t, 0.0, resolver.ResolveUSDValue(context.Background(), "eth", -1, ""))
	assert.Equal(t, int32(0), provider.nativeCalls.Load())
}

func TestResolveNativeCachesWithinTTL(t *testing.T) {
	provider := &fakeProvider{native: map[string]float64{"ethereum": 3000}}
	resolver, clock := newTestResolver(provider)
	ctx := context.Background()

	assert.Equal(t, 1500.0, resolver.ResolveUSDValue(ctx, "eth", 0.5, ""))

	clock.Advance(DefaultTTL - time.Nanosecond)
	assert.Equal(t, 6000.0, resolver.ResolveUSDValue(ctx, "eth", 2, ""))
	assert.Equal(t, int32(1), provider.nativeCalls.Load(), "served from cache before expiry")

	clock.Advance(2 * time.Nanosecond)
	assert.Equal(t, 3000.0, resolver.ResolveUSDValue(ctx, "eth", 1, ""))
	assert.Equal(t, int32(2), provider.nativeCalls.Load(), "refetched after expiry")
}

func TestResolveSharesNativeKeyAcrossL2s(t *testing.T) {
	provider := &fakeProvider{native: map[string]float64{"ethereum": 3000}}
	resolver, _ := newTestResolver(provider)
	ctx := context.Background()

	resolver.ResolveUSDValue(ctx, "eth", 1, "")
	resolver.ResolveUSDValue(ctx, "arb", 1, "")
	assert.Equal(t, int32(2), provider.nativeCalls.Load(), "cache keys are per chain")
}

func TestResolveTokenLowercasesEVMAddress(t *testing.T) {
	provider := &fakeProvider{tokens: map[string]float64{"0xabcdef0000000000000000000000000000000001": 2}}
	resolver, _ := newTestResolver(provider)
	ctx := context.Background()

	usd := resolver.ResolveUSDValue(ctx, "eth", 10, "0xABCDEF0000000000000000000000000000000001")
	assert.Equal(t, 20.0, usd)

	usd = resolver.ResolveUSDValue(ctx, "eth", 5, "0xabcdef0000000000000000000000000000000001")
	assert.Equal(t, 10.0, usd)
	assert.Equal(t, int32(1), provider.tokenCalls.Load())
	assert.Equal(t, []string{"ethereum/0xabcdef0000000000000000000000000000000001"}, provider.tokenArgs)
}

func TestResolveSolanaMintKeepsCaseUpstream(t *testing.T) {
	mint := "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	provider := &fakeProvider{tokens: map[string]float64{mint: 1}}
	resolver, _ := newTestResolver(provider)

	usd := resolver.ResolveUSDValue(context.Background(), "sol", 42, mint)
	assert.Equal(t, 42.0, usd)
	assert.Equal(t, []string{"solana/" + mint}, provider.tokenArgs)
}

func TestResolveFailureYieldsZeroAndIsNotCached(t *testing.T) {
	provider := &fakeProvider{err: errors.New("boom")}
	resolver, _ := newTestResolver(provider)
	ctx := context.Background()

	assert.Equal(t, 0.0, resolver.ResolveUSDValue(ctx, "eth", 1, ""))
	assert.Equal(t, 0.0, resolver.ResolveUSDValue(ctx, "eth", 1, ""))
	assert.Equal(t, int32(2), provider.nativeCalls.Load(), "zero results must not be cached")

	provider.err = nil
	provider.native = map[string]float64{"ethereum": 10}
	assert.Equal(t, 10.0, resolver.ResolveUSDValue(ctx, "eth", 1, ""))
}

func TestResolveUnknownChain(t *testing.T) {
	provider := &fakeProvider{}
	resolver, _ := newTestResolver(provider)

	assert.Equal(t, 0.0, resolver.ResolveUSDValue(context.Background(), "doge", 1, ""))
	assert.Equal(t, int32(0), provider.nativeCalls.Load())
}

func TestResolveConcurrentMissesFetchOnce(t *testing.T) {
	provider := &fakeProvider{
		native: map[string]float64{"solana": 150},
		gate:   make(chan struct{}),
	}
	resolver, _ := newTestResolver(provider)
	ctx := context.Background()

	const callers = 8
	results := make([]float64, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = resolver.ResolveUSDValue(ctx, "sol", 2, "")
		}(i)
	}

	require.Eventually(t, func() bool { return provider.nativeCalls.Load() >= 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(provider.gate)
	wg.Wait()

	assert.Equal(t, int32(1), provider.nativeCalls.Load())
	for _, usd := range results {
		assert.Equal(t, 300.0, usd)
	}
}

func TestRefreshNativePrices(t *testing.T) {
	provider := &fakeProvider{native: map[string]float64{
		"ethereum":    3000,
		"binancecoin": 600,
		"solana":      150,
	}}
	resolver, _ := newTestResolver(provider)
	ctx := context.Background()

	prices, err := resolver.RefreshNativePrices(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), provider.batchCalls.Load())
	assert.Equal(t, 3000.0, prices["eth"])
	assert.Equal(t, 3000.0, prices["base"])
	assert.Equal(t, 600.0, prices["bsc"])
	assert.NotContains(t, prices, "polygon")

	assert.Equal(t, 300.0, resolver.ResolveUSDValue(ctx, "sol", 2, ""))
	assert.Equal(t, 3000.0, resolver.ResolveUSDValue(ctx, "op", 1, ""))
	assert.Equal(t, int32(0), provider.nativeCalls.Load(), "batch populated native keys")

	resolver.Clear()
	resolver.ResolveUSDValue(ctx, "sol", 1, "")
	assert.Equal(t, int32(1), provider.nativeCalls.Load())
}

func TestRefreshNativePricesError(t *testing.T) {
	provider := &fakeProvider{err: errors.New("down")}
	resolver, _ := newTestResolver(provider)

	_, err := resolver.RefreshNativePrices(context.Background())
	assert.Error(t, err)
}
