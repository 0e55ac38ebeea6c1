package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"walletwatch/internal/chains"
	"walletwatch/internal/config"
	"walletwatch/internal/dex"
	"walletwatch/internal/emit"
	"walletwatch/internal/normalize"
	"walletwatch/internal/notify"
	"walletwatch/internal/pipeline"
	"walletwatch/internal/price"
	"walletwatch/internal/storage"
	"walletwatch/internal/storage/postgres"
)

// app is the wired pipeline shared by serve and replay.
type app struct {
	chains      *chains.Store
	resolver    *price.Resolver
	coordinator *pipeline.Coordinator
	closers     []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func loadConfig(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func newRegistry(cfg config.Config, logger *zap.Logger, watch bool) (*chains.Store, func(), error) {
	reg, err := chains.LoadFile(cfg.Registry)
	if err != nil {
		return nil, nil, err
	}
	store := chains.NewStore(reg)
	if !watch || cfg.Registry == "" {
		return store, func() {}, nil
	}
	stop, err := chains.Watch(cfg.Registry, store, logger.Named("registry"))
	if err != nil {
		return nil, nil, err
	}
	return store, stop, nil
}

func newResolver(cfg config.Config, source chains.Source, logger *zap.Logger) *price.Resolver {
	provider := price.NewCoinGecko(cfg.CoinGeckoURL, cfg.CoinGeckoAPIKey, cfg.FetchTimeout)
	cache := price.NewCache(cfg.PriceCacheSize, cfg.PriceTTL)
	return price.NewResolver(provider, source, cache, price.Config{FetchTimeout: cfg.FetchTimeout}, logger.Named("price"))
}

// openWalletStore prefers Postgres and falls back to the JSONL file.
func openWalletStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (storage.WalletStore, storage.WalletWriter, func(), error) {
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, nil, nil, err
		}
		logger.Info("wallet store", zap.String("backend", "postgres"))
		return store, store, store.Close, nil
	}

	store, err := storage.OpenJSONLWalletStore(cfg.WalletsFile)
	if err != nil {
		return nil, nil, nil, err
	}
	logger.Info("wallet store",
		zap.String("backend", "jsonl"),
		zap.String("path", cfg.WalletsFile),
		zap.Int("wallets", store.Len()),
	)
	return store, store, func() {}, nil
}

func newChannel(cfg config.Config, logger *zap.Logger) (notify.Channel, error) {
	if !cfg.UseTelegram() {
		logger.Info("notifications go to the log", zap.Bool("dry_run", cfg.DryRun))
		return notify.NewLogChannel(logger.Named("notify")), nil
	}
	return notify.NewTelegramChannel(cfg.TelegramToken, cfg.SendTimeout)
}

func newSink(cfg config.Config, logger *zap.Logger) (emit.Sink, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return emit.Nop{}, nil
	}
	return emit.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic, logger.Named("emit"))
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger, watchRegistry bool) (*app, error) {
	a := &app{}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	registry, stop, err := newRegistry(cfg, logger, watchRegistry)
	if err != nil {
		return nil, err
	}
	a.chains = registry
	a.closers = append(a.closers, stop)

	a.resolver = newResolver(cfg, registry, logger)

	decoder, err := dex.NewSwapDecoder(dex.DecoderConfig{})
	if err != nil {
		return nil, err
	}

	wallets, _, closeWallets, err := openWalletStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("wallet store: %w", err)
	}
	a.closers = append(a.closers, closeWallets)

	channel, err := newChannel(cfg, logger)
	if err != nil {
		return nil, err
	}

	sink, err := newSink(cfg, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() {
		if err := sink.Close(); err != nil {
			logger.Warn("close event sink", zap.Error(err))
		}
	})

	dispatcher := notify.NewDispatcher(channel, registry, cfg.SendTimeout, logger.Named("notify"))
	matcher := notify.NewMatcher(wallets, dispatcher, logger.Named("match"))
	normalizer := normalize.New(a.resolver, registry, decoder, logger.Named("normalize"))
	a.coordinator = pipeline.NewCoordinator(normalizer, matcher, sink, logger.Named("pipeline"))

	ok = true
	return a, nil
}
