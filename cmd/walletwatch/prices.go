package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"
)

func runPrices(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	registry, stop, err := newRegistry(cfg, logger, false)
	if err != nil {
		return err
	}
	defer stop()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	prices, err := newResolver(cfg, registry, logger).RefreshNativePrices(ctx)
	if err != nil {
		return err
	}

	codes := make([]string, 0, len(prices))
	for code := range prices {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	reg := registry.Current()
	out := cmd.OutOrStdout()
	for _, code := range codes {
		chain, _ := reg.Chain(code)
		fmt.Fprintf(out, "%-8s %-6s %12.4f\n", code, chain.NativeSymbol, prices[code])
	}
	return nil
}
