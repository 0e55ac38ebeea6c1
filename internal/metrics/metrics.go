package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebhookBatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "walletwatch_webhook_batches_total",
		Help: "Inbound webhook batches, labelled by provider and outcome.",
	}, []string{"provider", "outcome"})

	EventsNormalized = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "walletwatch_events_normalized_total",
		Help: "Canonical transaction events produced, labelled by kind.",
	}, []string{"kind"})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "walletwatch_notifications_total",
		Help: "Notification deliveries, labelled by outcome.",
	}, []string{"outcome"})

	WalletsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "walletwatch_wallets_skipped_total",
		Help: "Matched wallets filtered out, labelled by reason.",
	}, []string{"reason"})

	PriceLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "walletwatch_price_cache_lookups_total",
		Help: "Price cache lookups, labelled by result (hit, miss).",
	}, []string{"result"})

	PriceFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "walletwatch_price_fetches_total",
		Help: "Upstream price fetches, labelled by outcome.",
	}, []string{"outcome"})

	BatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "walletwatch_batch_duration_ms",
		Help:    "Webhook batch processing latency in milliseconds.",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	}, []string{"provider"})
)
