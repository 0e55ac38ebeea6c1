package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "walletwatch",
		Short:        "Multi-chain wallet webhook notifier",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("registry", "", "chain registry YAML overriding the built-in chains")
	root.PersistentFlags().String("pg-dsn", "", "Postgres DSN for the wallet store")
	root.PersistentFlags().String("wallets-file", "./data/wallets.jsonl", "JSONL wallet store used when no Postgres DSN is set")
	root.PersistentFlags().String("coingecko-url", "https://api.coingecko.com/api/v3", "CoinGecko API base URL")
	root.PersistentFlags().String("coingecko-api-key", "", "CoinGecko demo API key")
	root.PersistentFlags().Duration("fetch-timeout", 30*time.Second, "upstream price fetch timeout")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the webhook endpoints",
		RunE:  runServe,
	}
	serveCmd.Flags().String("listen", ":8080", "HTTP listen address")
	addPipelineFlags(serveCmd)
	root.AddCommand(serveCmd)

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Run one saved webhook payload through the pipeline",
		RunE:  runReplay,
	}
	replayCmd.Flags().String("provider", "moralis", "payload provider (moralis, helius)")
	replayCmd.Flags().String("in", "", "payload JSON file")
	addPipelineFlags(replayCmd)
	root.AddCommand(replayCmd)

	pricesCmd := &cobra.Command{
		Use:   "prices",
		Short: "Fetch and print native prices for every chain",
		RunE:  runPrices,
	}
	root.AddCommand(pricesCmd)

	walletsCmd := &cobra.Command{
		Use:   "wallets",
		Short: "Manage tracked wallets",
	}
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Upsert wallets from a JSONL file into the wallet store",
		RunE:  runWalletsImport,
	}
	importCmd.Flags().String("in", "", "input wallets JSONL")
	walletsCmd.AddCommand(importCmd)
	root.AddCommand(walletsCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().String("telegram-token", "", "Telegram bot token")
	cmd.Flags().Bool("dry-run", false, "log notifications instead of sending them")
	cmd.Flags().Duration("price-ttl", 5*time.Minute, "price cache TTL")
	cmd.Flags().Int("price-cache-size", 500, "price cache capacity")
	cmd.Flags().Duration("send-timeout", 30*time.Second, "notification send timeout")
	cmd.Flags().StringSlice("kafka-brokers", nil, "Kafka brokers for the event mirror (comma-separated)")
	cmd.Flags().String("kafka-topic", "walletwatch.events", "Kafka topic for the event mirror")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
