package price

import (
	"context"
	"errors"
)

var (
	// ErrPriceNotFound reports that the provider has no USD price for the asset.
	ErrPriceNotFound = errors.New("price not found")
	// ErrUnknownChain reports a chain with no price mapping.
	ErrUnknownChain = errors.New("unknown chain for price lookup")
)

// Provider is an upstream USD price source.
type Provider interface {
	NativePrice(ctx context.Context, coinID string) (float64, error)
	TokenPrice(ctx context.Context, platform, contract string) (float64, error)
	NativePrices(ctx context.Context, coinIDs []string) (map[string]float64, error)
}
