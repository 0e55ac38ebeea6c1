package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"walletwatch/internal/metrics"
	"walletwatch/internal/model"
	"walletwatch/internal/storage"
)

// Deliverer sends one notification to one recipient.
type Deliverer interface {
	Deliver(ctx context.Context, recipient int64, label string, msg Message)
}

// Matcher selects the wallets tracking an address and applies their filters.
type Matcher struct {
	store     storage.WalletStore
	deliverer Deliverer
	logger    *zap.Logger
}

func NewMatcher(store storage.WalletStore, deliverer Deliverer, logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{store: store, deliverer: deliverer, logger: logger}
}

// NotifyMatchingWallets delivers ev to every wallet tracking address that passes
// its filters and returns how many deliveries were attempted. With checkIncoming
// set, wallets with incoming alerts disabled are skipped. A wallet is skipped when
// the event is worth less than its minimum; an equal value passes.
func (m *Matcher) NotifyMatchingWallets(ctx context.Context, address string, direction model.Direction, ev model.TransactionEvent, counterparty string, checkIncoming bool) (int, error) {
	if address == "" {
		return 0, nil
	}

	wallets, err := m.store.WalletsByAddress(ctx, address)
	if err != nil {
		return 0, fmt.Errorf("wallets for %s: %w", address, err)
	}

	dirLabel := string(direction)
	if direction == model.DirectionNone {
		dirLabel = "SWAP"
	}

	sent := 0
	for _, w := range wallets {
		if checkIncoming && !w.IncomingEnabled {
			metrics.WalletsSkipped.WithLabelValues("incoming_disabled").Inc()
			m.logger.Debug("skip wallet: incoming disabled",
				zap.Int64("user_id", w.UserID),
				zap.String("label", w.Label),
			)
			continue
		}
		if ev.USDValue < w.MinAmountUSD {
			metrics.WalletsSkipped.WithLabelValues("below_min_amount").Inc()
			m.logger.Debug("skip wallet: below min amount",
				zap.Int64("user_id", w.UserID),
				zap.String("label", w.Label),
				zap.Float64("usd", ev.USDValue),
				zap.Float64("min_amount_usd", w.MinAmountUSD),
			)
			continue
		}

		m.logger.Info("wallet matched",
			zap.Int64("user_id", w.UserID),
			zap.String("label", w.Label),
			zap.String("direction", dirLabel),
			zap.String("chain", ev.Chain),
			zap.Float64("usd", ev.USDValue),
			zap.Float64("min_amount_usd", w.MinAmountUSD),
		)
		m.deliverer.Deliver(ctx, w.UserID, w.Label, Message{
			Event:        ev,
			Direction:    direction,
			Counterparty: counterparty,
		})
		sent++
	}
	return sent, nil
}

// NotifyEvent fans an event out to its parties. Transfers notify the sender
// (OUT) then the receiver (IN, subject to the incoming toggle); swaps notify only
// the swapper. A lookup error stops the remaining fan-out for this event.
func (m *Matcher) NotifyEvent(ctx context.Context, ev model.TransactionEvent) (int, error) {
	if ev.IsSwap() {
		return m.NotifyMatchingWallets(ctx, ev.FromAddress, model.DirectionNone, ev, ev.CounterpartyLabel, false)
	}

	outPeer := ev.CounterpartyLabel
	if outPeer == "" {
		outPeer = ev.ToAddress
	}
	sent, err := m.NotifyMatchingWallets(ctx, ev.FromAddress, model.DirectionOut, ev, outPeer, false)
	if err != nil {
		return sent, err
	}

	inPeer := ev.CounterpartyLabel
	if inPeer == "" {
		inPeer = ev.FromAddress
	}
	n, err := m.NotifyMatchingWallets(ctx, ev.ToAddress, model.DirectionIn, ev, inPeer, true)
	return sent + n, err
}
