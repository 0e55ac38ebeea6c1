package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"walletwatch/internal/normalize"
)

func runReplay(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	in, _ := cmd.Flags().GetString("in")
	provider, _ := cmd.Flags().GetString("provider")
	if in == "" {
		return fmt.Errorf("input path is required")
	}

	body, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("read payload: %w", err)
	}
	payload, err := normalize.DecodePayload(normalize.Provider(provider), body)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger, false)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.coordinator.Handle(ctx, payload)
	if err != nil {
		return err
	}
	logger.Info("replay done", zap.String("in", in), zap.String("provider", provider))

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
