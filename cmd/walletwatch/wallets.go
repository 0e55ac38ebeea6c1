package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"walletwatch/internal/storage"
)

func runWalletsImport(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	in, _ := cmd.Flags().GetString("in")
	if in == "" {
		return fmt.Errorf("input path is required")
	}
	file, err := os.Open(in)
	if err != nil {
		return fmt.Errorf("open wallets: %w", err)
	}
	defer file.Close()

	wallets, err := storage.ReadWallets(file)
	if err != nil {
		return fmt.Errorf("%s: %w", in, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, writer, closeStore, err := openWalletStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := writer.UpsertWallets(ctx, wallets); err != nil {
		return err
	}
	logger.Info("wallets imported", zap.String("in", in), zap.Int("count", len(wallets)))
	return nil
}
