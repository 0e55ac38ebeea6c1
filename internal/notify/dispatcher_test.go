package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walletwatch/internal/chains"
	"walletwatch/internal/model"
)

type sentMessage struct {
	userID   int64
	text     string
	deadline bool
	ctxErr   error
}

type fakeChannel struct {
	sent []sentMessage
	err  error
}

func (c *fakeChannel) Send(ctx context.Context, userID int64, text string) error {
	_, hasDeadline := ctx.Deadline()
	c.sent = append(c.sent, sentMessage{userID: userID, text: text, deadline: hasDeadline, ctxErr: ctx.Err()})
	return c.err
}

func testSource() chains.Source {
	return chains.NewStore(chains.NewRegistry(chains.Defaults()))
}

func TestDispatcherDeliverSendsOnce(t *testing.T) {
	channel := &fakeChannel{}
	d := NewDispatcher(channel, testSource(), time.Second, nil)

	d.Deliver(context.Background(), 42, "main", Message{
		Event:        model.TransactionEvent{Chain: "sol", Kind: model.NativeTransfer, DisplayAmount: "1.0000 SOL", TxHash: "sig"},
		Direction:    model.DirectionIn,
		Counterparty: "peer",
	})

	require.Len(t, channel.sent, 1)
	assert.Equal(t, int64(42), channel.sent[0].userID)
	assert.True(t, channel.sent[0].deadline, "send carries a timeout")
	assert.Contains(t, channel.sent[0].text, "Chain: Solana")
	assert.Contains(t, channel.sent[0].text, "https://solscan.io/tx/sig")
}

func TestDispatcherDeliverSwallowsErrors(t *testing.T) {
	channel := &fakeChannel{err: errors.New("blocked by user")}
	d := NewDispatcher(channel, testSource(), 0, nil)

	assert.NotPanics(t, func() {
		d.Deliver(context.Background(), 1, "x", Message{Event: model.TransactionEvent{Chain: "eth"}})
	})
	assert.Len(t, channel.sent, 1, "no retry after failure")
}

func TestDispatcherDeliverOutlivesCancelledRequest(t *testing.T) {
	channel := &fakeChannel{}
	d := NewDispatcher(channel, testSource(), time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Deliver(ctx, 7, "main", Message{Event: model.TransactionEvent{Chain: "eth"}})

	require.Len(t, channel.sent, 1)
	assert.NoError(t, channel.sent[0].ctxErr)
	assert.True(t, channel.sent[0].deadline)
}

type fakeBot struct {
	got   []tgbotapi.Chattable
	err   error
	block chan struct{}
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if b.block != nil {
		<-b.block
	}
	b.got = append(b.got, c)
	return tgbotapi.Message{}, b.err
}

func TestTelegramChannelSend(t *testing.T) {
	bot := &fakeBot{}
	channel := &TelegramChannel{bot: bot}

	require.NoError(t, channel.Send(context.Background(), 99, "<b>hi</b>"))
	require.Len(t, bot.got, 1)

	msg, ok := bot.got[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(99), msg.ChatID)
	assert.Equal(t, "<b>hi</b>", msg.Text)
	assert.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)
	assert.True(t, msg.DisableWebPagePreview)
}

func TestTelegramChannelSendError(t *testing.T) {
	channel := &TelegramChannel{bot: &fakeBot{err: errors.New("forbidden")}}
	assert.ErrorContains(t, channel.Send(context.Background(), 1, "x"), "forbidden")
}

func TestTelegramChannelSendHonorsContext(t *testing.T) {
	bot := &fakeBot{block: make(chan struct{})}
	defer close(bot.block)
	channel := &TelegramChannel{bot: bot}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := channel.Send(ctx, 1, "x")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewTelegramChannelRequiresToken(t *testing.T) {
	_, err := NewTelegramChannel("", time.Second)
	assert.Error(t, err)
}
