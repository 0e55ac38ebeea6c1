package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walletwatch/internal/chains"
	"walletwatch/internal/dex"
	"walletwatch/internal/emit"
	"walletwatch/internal/model"
	"walletwatch/internal/normalize"
	"walletwatch/internal/notify"
	"walletwatch/internal/storage"
)

const (
	sender   = "0x1111111111111111111111111111111111111111"
	receiver = "0x2222222222222222222222222222222222222222"
)

type fixedValuer struct {
	unit float64
}

func (v fixedValuer) ResolveUSDValue(ctx context.Context, chain string, amount float64, token string) float64 {
	if amount <= 0 {
		return 0
	}
	return amount * v.unit
}

type capturedSend struct {
	userID int64
	text   string
}

type captureChannel struct {
	mu   sync.Mutex
	sent []capturedSend
}

func (c *captureChannel) Send(ctx context.Context, userID int64, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, capturedSend{userID: userID, text: text})
	return nil
}

type failingStore struct {
	storage.WalletStore
	bad string
}

func (s failingStore) WalletsByAddress(ctx context.Context, address string) ([]model.Wallet, error) {
	if strings.EqualFold(address, s.bad) {
		return nil, errors.New("connection reset")
	}
	return s.WalletStore.WalletsByAddress(ctx, address)
}

type recordingSink struct {
	events []model.TransactionEvent
}

func (s *recordingSink) Emit(ctx context.Context, events []model.TransactionEvent) error {
	s.events = append(s.events, events...)
	return nil
}

func (s *recordingSink) Close() error { return nil }

// ctxChannel fails sends whose context is already done, like the Telegram channel.
type ctxChannel struct {
	captureChannel
}

func (c *ctxChannel) Send(ctx context.Context, userID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.captureChannel.Send(ctx, userID, text)
}

// stalledSink behaves like an unreachable broker: it holds until its context ends.
type stalledSink struct {
	channel    *captureChannel
	sentBefore int
	err        error
}

func (s *stalledSink) Emit(ctx context.Context, events []model.TransactionEvent) error {
	s.channel.mu.Lock()
	s.sentBefore = len(s.channel.sent)
	s.channel.mu.Unlock()
	<-ctx.Done()
	s.err = ctx.Err()
	return s.err
}

func (s *stalledSink) Close() error { return nil }

type harness struct {
	coordinator *Coordinator
	channel     *captureChannel
	sink        *recordingSink
}

func newHarness(t *testing.T, unitPrice float64, wallets []model.Wallet, wrap func(storage.WalletStore) storage.WalletStore) harness {
	t.Helper()

	channel := &captureChannel{}
	sink := &recordingSink{}
	return harness{
		coordinator: newCoordinator(t, unitPrice, wallets, wrap, channel, sink),
		channel:     channel,
		sink:        sink,
	}
}

func newCoordinator(t *testing.T, unitPrice float64, wallets []model.Wallet, wrap func(storage.WalletStore) storage.WalletStore, channel notify.Channel, sink emit.Sink) *Coordinator {
	t.Helper()

	store, err := storage.OpenJSONLWalletStore("")
	require.NoError(t, err)
	require.NoError(t, store.UpsertWallets(context.Background(), wallets))

	var walletStore storage.WalletStore = store
	if wrap != nil {
		walletStore = wrap(store)
	}

	source := chains.NewStore(chains.NewRegistry(chains.Defaults()))
	decoder, err := dex.NewSwapDecoder(dex.DecoderConfig{})
	require.NoError(t, err)

	dispatcher := notify.NewDispatcher(channel, source, time.Second, nil)
	matcher := notify.NewMatcher(walletStore, dispatcher, nil)
	normalizer := normalize.New(fixedValuer{unit: unitPrice}, source, decoder, nil)
	return NewCoordinator(normalizer, matcher, sink, nil)
}

func oneEtherTransfer(hash string) model.MoralisBatch {
	return model.MoralisBatch{
		Confirmed: true,
		ChainID:   "0x1",
		Txs: []model.MoralisTx{{
			Hash:        hash,
			FromAddress: sender,
			ToAddress:   receiver,
			Value:       "1000000000000000000",
		}},
	}
}

func TestMinAmountBoundaryEndToEnd(t *testing.T) {
	wallets := []model.Wallet{{UserID: 1, Chain: "eth", Address: sender, Label: "treasury", IncomingEnabled: true, MinAmountUSD: 1000}}

	below := newHarness(t, 999.99, wallets, nil)
	res, err := below.coordinator.HandleMoralis(context.Background(), oneEtherTransfer("0xa1"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Events)
	assert.Zero(t, res.Notifications)
	assert.Empty(t, below.channel.sent)

	at := newHarness(t, 1000.00, wallets, nil)
	res, err = at.coordinator.HandleMoralis(context.Background(), oneEtherTransfer("0xa2"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Notifications)
	require.Len(t, at.channel.sent, 1)
	assert.Equal(t, int64(1), at.channel.sent[0].userID)
	assert.Contains(t, at.channel.sent[0].text, "Direction: OUT")
	assert.Contains(t, at.channel.sent[0].text, "Amount: 1.0000 ETH ($1,000)")
}

func TestIncomingToggleEndToEnd(t *testing.T) {
	wallets := []model.Wallet{{UserID: 5, Chain: "eth", Address: receiver, Label: "cold", IncomingEnabled: false}}
	h := newHarness(t, 3000, wallets, nil)

	res, err := h.coordinator.HandleMoralis(context.Background(), oneEtherTransfer("0xb1"))
	require.NoError(t, err)
	assert.Zero(t, res.Notifications, "receiver has incoming disabled")

	reverse := oneEtherTransfer("0xb2")
	reverse.Txs[0].FromAddress, reverse.Txs[0].ToAddress = receiver, sender
	res, err = h.coordinator.HandleMoralis(context.Background(), reverse)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Notifications, "same wallet as sender is still notified")
	require.Len(t, h.channel.sent, 1)
	assert.Contains(t, h.channel.sent[0].text, "Direction: OUT")
}

func TestBothSidesTrackedEndToEnd(t *testing.T) {
	wallets := []model.Wallet{
		{UserID: 1, Chain: "eth", Address: sender, Label: "a", IncomingEnabled: true},
		{UserID: 2, Chain: "eth", Address: receiver, Label: "b", IncomingEnabled: true},
	}
	h := newHarness(t, 10, wallets, nil)

	res, err := h.coordinator.HandleMoralis(context.Background(), oneEtherTransfer("0xc1"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Notifications)
	require.Len(t, h.channel.sent, 2)
	assert.Equal(t, int64(1), h.channel.sent[0].userID)
	assert.Equal(t, int64(2), h.channel.sent[1].userID)
	assert.Contains(t, h.channel.sent[1].text, "Direction: IN")
	assert.Len(t, h.sink.events, 1)
}

func TestLookupErrorIsolatedPerRecord(t *testing.T) {
	other := "0x3333333333333333333333333333333333333333"
	wallets := []model.Wallet{
		{UserID: 1, Chain: "eth", Address: receiver, Label: "r", IncomingEnabled: true},
		{UserID: 2, Chain: "eth", Address: other, Label: "o", IncomingEnabled: true},
	}
	h := newHarness(t, 10, wallets, func(s storage.WalletStore) storage.WalletStore {
		return failingStore{WalletStore: s, bad: sender}
	})

	batch := oneEtherTransfer("0xd1")
	batch.Txs = append(batch.Txs, model.MoralisTx{
		Hash:        "0xd2",
		FromAddress: "0x4444444444444444444444444444444444444444",
		ToAddress:   other,
		Value:       "2000000000000000000",
	})

	res, err := h.coordinator.HandleMoralis(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Events)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Notifications, "second record still fans out")
	require.Len(t, h.channel.sent, 1)
	assert.Equal(t, int64(2), h.channel.sent[0].userID)
}

func TestReceiverLookupErrorKeepsSenderNotification(t *testing.T) {
	wallets := []model.Wallet{
		{UserID: 1, Chain: "eth", Address: sender, Label: "s", IncomingEnabled: true},
		{UserID: 2, Chain: "eth", Address: receiver, Label: "r", IncomingEnabled: true},
	}
	h := newHarness(t, 10, wallets, func(s storage.WalletStore) storage.WalletStore {
		return failingStore{WalletStore: s, bad: receiver}
	})

	res, err := h.coordinator.HandleMoralis(context.Background(), oneEtherTransfer("0xd3"))
	require.NoError(t, err)
	assert.Equal(t, Result{Events: 1, Notifications: 1, Failed: 1}, res)
	require.Len(t, h.channel.sent, 1)
	assert.Equal(t, int64(1), h.channel.sent[0].userID)
	assert.Contains(t, h.channel.sent[0].text, "Direction: OUT")
}

func TestStalledMirrorDoesNotBlockDelivery(t *testing.T) {
	wallets := []model.Wallet{{UserID: 1, Chain: "eth", Address: sender, Label: "s", IncomingEnabled: true}}
	channel := &ctxChannel{}
	sink := &stalledSink{channel: &channel.captureChannel}
	c := newCoordinator(t, 10, wallets, nil, channel, sink)
	c.mirrorTimeout = 20 * time.Millisecond

	// The provider has already hung up on the webhook request.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := c.HandleMoralis(ctx, oneEtherTransfer("0xf1"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Notifications)
	require.Len(t, channel.sent, 1)
	assert.Equal(t, 1, sink.sentBefore, "mirror runs after the fan-out")
	assert.ErrorIs(t, sink.err, context.DeadlineExceeded)
}

func TestUnknownChainRejectsBatch(t *testing.T) {
	h := newHarness(t, 10, []model.Wallet{{UserID: 1, Address: sender, Label: "a", IncomingEnabled: true}}, nil)

	batch := oneEtherTransfer("0xe1")
	batch.ChainID = "0xdead"
	_, err := h.coordinator.HandleMoralis(context.Background(), batch)
	require.Error(t, err)
	assert.True(t, errors.Is(err, normalize.ErrUnknownChain))
	assert.Empty(t, h.channel.sent)
	assert.Empty(t, h.sink.events)
}

func TestHeliusSwapEndToEnd(t *testing.T) {
	swapper := "SwapperAcct1111111111111111111111111111111"
	wallets := []model.Wallet{{UserID: 8, Chain: "sol", Address: swapper, Label: "degen", IncomingEnabled: false, MinAmountUSD: 100}}
	h := newHarness(t, 150, wallets, nil)

	res, err := h.coordinator.HandleHelius(context.Background(), []model.HeliusTx{{
		Type:      "SWAP",
		Source:    "JUPITER",
		Signature: "5sig",
		FeePayer:  swapper,
		Events: model.HeliusEvents{Swap: &model.HeliusSwap{
			NativeInput:  &model.HeliusNativeAmount{Amount: "2000000000"},
			TokenOutputs: []model.HeliusTokenTransfer{{TokenAmount: 300, TokenSymbol: "USDC"}},
		}},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Notifications)
	require.Len(t, h.channel.sent, 1)
	text := h.channel.sent[0].text
	assert.Contains(t, text, "DEX swap detected")
	assert.Contains(t, text, "DEX: Jupiter")
	assert.Contains(t, text, "Swap: 2.0000 SOL -&gt; 300.0000 USDC")
	assert.Contains(t, text, "https://solscan.io/tx/5sig")
}
