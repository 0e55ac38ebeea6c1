package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"walletwatch/internal/emit"
	"walletwatch/internal/metrics"
	"walletwatch/internal/model"
	"walletwatch/internal/normalize"
)

// Normalizer turns a tagged payload into canonical events.
type Normalizer interface {
	Normalize(ctx context.Context, p normalize.Payload) ([]model.TransactionEvent, error)
}

// Notifier fans one event out to the wallets involved.
type Notifier interface {
	NotifyEvent(ctx context.Context, ev model.TransactionEvent) (int, error)
}

// Result summarizes one batch pass.
type Result struct {
	Events        int `json:"events"`
	Notifications int `json:"notifications"`
	Failed        int `json:"failed"`
}

// Coordinator runs one webhook batch through normalization and fan-out.
// Records are handled one at a time in provider order.
type Coordinator struct {
	normalizer    Normalizer
	notifier      Notifier
	sink          emit.Sink
	mirrorTimeout time.Duration
	logger        *zap.Logger
}

const DefaultMirrorTimeout = 5 * time.Second

func NewCoordinator(normalizer Normalizer, notifier Notifier, sink emit.Sink, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		sink = emit.Nop{}
	}
	return &Coordinator{
		normalizer:    normalizer,
		notifier:      notifier,
		sink:          sink,
		mirrorTimeout: DefaultMirrorTimeout,
		logger:        logger,
	}
}

func (c *Coordinator) HandleMoralis(ctx context.Context, batch model.MoralisBatch) (Result, error) {
	return c.Handle(ctx, normalize.Payload{Provider: normalize.ProviderMoralis, Moralis: &batch})
}

func (c *Coordinator) HandleHelius(ctx context.Context, txs []model.HeliusTx) (Result, error) {
	return c.Handle(ctx, normalize.Payload{Provider: normalize.ProviderHelius, Helius: txs})
}

// Handle processes a batch. Only a rejected batch returns an error; a lookup
// failure on one record is logged and the next record still runs.
func (c *Coordinator) Handle(ctx context.Context, p normalize.Payload) (Result, error) {
	start := time.Now()
	provider := string(p.Provider)
	defer func() {
		metrics.BatchDuration.WithLabelValues(provider).Observe(float64(time.Since(start).Milliseconds()))
	}()

	events, err := c.normalizer.Normalize(ctx, p)
	if err != nil {
		metrics.WebhookBatches.WithLabelValues(provider, "rejected").Inc()
		c.logger.Warn("batch rejected", zap.String("provider", provider), zap.Error(err))
		return Result{}, err
	}
	if len(events) == 0 {
		metrics.WebhookBatches.WithLabelValues(provider, "empty").Inc()
		return Result{}, nil
	}

	res := Result{Events: len(events)}
	for _, ev := range events {
		n, err := c.notifier.NotifyEvent(ctx, ev)
		res.Notifications += n
		if err != nil {
			res.Failed++
			c.logger.Error("record fan-out aborted",
				zap.String("chain", ev.Chain),
				zap.String("tx_hash", ev.TxHash),
				zap.Error(err),
			)
		}
	}

	c.mirror(ctx, provider, events)

	metrics.WebhookBatches.WithLabelValues(provider, "processed").Inc()
	c.logger.Info("batch processed",
		zap.String("provider", provider),
		zap.Int("events", res.Events),
		zap.Int("notifications", res.Notifications),
		zap.Int("failed", res.Failed),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// mirror runs after the fan-out on a context detached from the request, so a
// slow broker never delays or cancels notifications.
func (c *Coordinator) mirror(ctx context.Context, provider string, events []model.TransactionEvent) {
	mctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.mirrorTimeout)
	defer cancel()
	if err := c.sink.Emit(mctx, events); err != nil {
		c.logger.Warn("event mirror failed", zap.String("provider", provider), zap.Error(err))
	}
}
