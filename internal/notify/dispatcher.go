package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"walletwatch/internal/chains"
	"walletwatch/internal/metrics"
)

const DefaultSendTimeout = 30 * time.Second

// Dispatcher renders and sends one message per matched wallet. Send failures
// are logged and dropped; nothing is retried or queued.
type Dispatcher struct {
	channel Channel
	chains  chains.Source
	timeout time.Duration
	logger  *zap.Logger
}

func NewDispatcher(channel Channel, source chains.Source, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	return &Dispatcher{channel: channel, chains: source, timeout: timeout, logger: logger}
}

// Deliver makes exactly one outbound call for the recipient.
func (d *Dispatcher) Deliver(ctx context.Context, recipient int64, label string, msg Message) {
	var chain chains.Chain
	if d.chains != nil {
		if reg := d.chains.Current(); reg != nil {
			chain, _ = reg.Chain(msg.Event.Chain)
		}
	}
	text := Render(label, chain, msg)

	// A provider hanging up on the webhook must not cancel sends in flight.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	if err := d.channel.Send(sendCtx, recipient, text); err != nil {
		metrics.Notifications.WithLabelValues("failed").Inc()
		d.logger.Error("notification failed",
			zap.Int64("user_id", recipient),
			zap.String("label", label),
			zap.String("tx_hash", msg.Event.TxHash),
			zap.Error(err),
		)
		return
	}
	metrics.Notifications.WithLabelValues("sent").Inc()
	d.logger.Info("notification sent",
		zap.Int64("user_id", recipient),
		zap.String("label", label),
		zap.String("type", msg.Event.Kind.String()),
	)
}
