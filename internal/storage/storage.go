package storage

import (
	"context"

	"walletwatch/internal/model"
)

// WalletStore looks up tracked wallets. Address matching is case-insensitive and
// one address may be tracked by several users.
type WalletStore interface {
	WalletsByAddress(ctx context.Context, address string) ([]model.Wallet, error)
}

// WalletWriter persists wallets keyed by (user, label).
type WalletWriter interface {
	UpsertWallets(ctx context.Context, wallets []model.Wallet) error
}
