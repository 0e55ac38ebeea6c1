package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walletwatch/internal/model"
)

const walletsFixture = `
{"user_id":1,"chain":"ETH","address":"0xAbC0000000000000000000000000000000000001","label":"main","min_amount_usd":1000}
{"user_id":2,"chain":"eth","address":"0xabc0000000000000000000000000000000000001","label":"whale","incoming_enabled":false}

{"user_id":2,"chain":"sol","address":"So1anaAcct","label":"degen"}
`

func TestReadWallets(t *testing.T) {
	wallets, err := ReadWallets(strings.NewReader(walletsFixture))
	require.NoError(t, err)
	require.Len(t, wallets, 3)

	assert.Equal(t, "0xabc0000000000000000000000000000000000001", wallets[0].Address)
	assert.Equal(t, "eth", wallets[0].Chain)
	assert.True(t, wallets[0].IncomingEnabled, "incoming defaults to enabled")
	assert.Equal(t, 1000.0, wallets[0].MinAmountUSD)
	assert.False(t, wallets[1].IncomingEnabled)
	assert.Equal(t, "so1anaacct", wallets[2].Address)
}

func TestReadWalletsRejectsBadLines(t *testing.T) {
	_, err := ReadWallets(strings.NewReader(`{"user_id":1,"label":"x"}`))
	assert.ErrorContains(t, err, "line 1")

	_, err = ReadWallets(strings.NewReader("{\"user_id\":1,\"address\":\"a\",\"label\":\"x\"}\n{oops"))
	assert.ErrorContains(t, err, "line 2")

	_, err = ReadWallets(strings.NewReader(`{"user_id":1,"address":"a","label":"x","min_amount_usd":-1}`))
	assert.Error(t, err)
}

func TestJSONLWalletStoreLookupIsCaseInsensitive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(walletsFixture), 0o644))

	store, err := OpenJSONLWalletStore(path)
	require.NoError(t, err)

	wallets, err := store.WalletsByAddress(context.Background(), "0xABC0000000000000000000000000000000000001")
	require.NoError(t, err)
	require.Len(t, wallets, 2)
	assert.Equal(t, "main", wallets[0].Label)
	assert.Equal(t, "whale", wallets[1].Label)

	wallets, err = store.WalletsByAddress(context.Background(), "0xdead")
	require.NoError(t, err)
	assert.Empty(t, wallets)
}

func TestJSONLWalletStoreMissingFileIsEmpty(t *testing.T) {
	store, err := OpenJSONLWalletStore(filepath.Join(t.TempDir(), "absent.jsonl"))
	require.NoError(t, err)
	assert.Equal(t, 0, store.Len())
}

func TestJSONLWalletStoreUpsertPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "wallets.jsonl")
	store, err := OpenJSONLWalletStore(path)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.UpsertWallets(ctx, []model.Wallet{
		{UserID: 7, Chain: "eth", Address: "0xAAA", Label: "a", IncomingEnabled: true},
		{UserID: 7, Chain: "eth", Address: "0xBBB", Label: "b", IncomingEnabled: true},
	}))
	require.NoError(t, store.UpsertWallets(ctx, []model.Wallet{
		{UserID: 7, Chain: "eth", Address: "0xCCC", Label: "a", MinAmountUSD: 50},
	}))
	assert.Equal(t, 2, store.Len())

	got, err := store.WalletsByAddress(ctx, "0xaaa")
	require.NoError(t, err)
	assert.Empty(t, got, "label a moved to a new address")

	reopened, err := OpenJSONLWalletStore(path)
	require.NoError(t, err)
	got, err = reopened.WalletsByAddress(ctx, "0xccc")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 50.0, got[0].MinAmountUSD)
	assert.False(t, got[0].IncomingEnabled)
}
