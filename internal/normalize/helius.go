package normalize

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"walletwatch/internal/chains"
	"walletwatch/internal/model"
)

const (
	solanaCode     = "sol"
	heliusSwapType = "SWAP"
	defaultSolDex  = "Jupiter/Raydium"
)

// Helius normalizes Helius enhanced-transaction webhooks for Solana.
type Helius struct {
	valuer Valuer
	chains chains.Source
	logger *zap.Logger
}

func NewHelius(valuer Valuer, source chains.Source, logger *zap.Logger) *Helius {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Helius{valuer: valuer, chains: source, logger: logger}
}

// Normalize emits one swap per SWAP transaction; other transactions emit their
// native transfers then their token transfers. Errored transactions are dropped.
func (h *Helius) Normalize(ctx context.Context, txs []model.HeliusTx) ([]model.TransactionEvent, error) {
	reg := h.chains.Current()
	if reg == nil {
		return nil, fmt.Errorf("%s: %w", solanaCode, ErrUnknownChain)
	}
	chain, ok := reg.Chain(solanaCode)
	if !ok {
		return nil, fmt.Errorf("%s: %w", solanaCode, ErrUnknownChain)
	}

	h.logger.Info("processing helius batch", zap.Int("txs", len(txs)))

	var events []model.TransactionEvent
	for _, tx := range txs {
		if tx.Failed() {
			h.logger.Debug("skipping failed tx", zap.String("tx_hash", tx.Signature))
			continue
		}
		if strings.EqualFold(tx.Type, heliusSwapType) {
			events = append(events, h.swap(ctx, chain, tx))
			continue
		}
		for _, nt := range tx.NativeTransfers {
			if ev, ok := h.nativeTransfer(ctx, chain, tx.Signature, nt); ok {
				events = append(events, ev)
			}
		}
		for _, tt := range tx.TokenTransfers {
			events = append(events, h.tokenTransfer(ctx, chain, tx.Signature, tt))
		}
	}
	return events, nil
}

func (h *Helius) nativeTransfer(ctx context.Context, chain chains.Chain, signature string, nt model.HeliusNativeTransfer) (model.TransactionEvent, bool) {
	if nt.Amount == 0 {
		return model.TransactionEvent{}, false
	}
	amount := lamports(decimal.NewFromBigInt(new(big.Int).SetUint64(nt.Amount), 0), chain)
	return model.TransactionEvent{
		Chain:         chain.Code,
		FromAddress:   strings.ToLower(nt.FromUserAccount),
		ToAddress:     strings.ToLower(nt.ToUserAccount),
		Kind:          model.NativeTransfer,
		DisplayAmount: displayAmount(amount, chain.NativeSymbol),
		USDValue:      h.valuer.ResolveUSDValue(ctx, chain.Code, amount, ""),
		TxHash:        signature,
	}, true
}

// tokenTransfer keeps the mint's case for pricing; Solana mints are case-sensitive.
func (h *Helius) tokenTransfer(ctx context.Context, chain chains.Chain, signature string, tt model.HeliusTokenTransfer) model.TransactionEvent {
	var usd float64
	if tt.Mint != "" {
		usd = h.valuer.ResolveUSDValue(ctx, chain.Code, tt.TokenAmount, tt.Mint)
	}
	return model.TransactionEvent{
		Chain:         chain.Code,
		FromAddress:   strings.ToLower(tt.FromUserAccount),
		ToAddress:     strings.ToLower(tt.ToUserAccount),
		Kind:          model.TokenTransfer,
		DisplayAmount: displayAmount(tt.TokenAmount, tt.TokenSymbol),
		USDValue:      usd,
		TxHash:        signature,
	}
}

func (h *Helius) swap(ctx context.Context, chain chains.Chain, tx model.HeliusTx) model.TransactionEvent {
	var (
		sell, buy string
		usd       float64
	)
	if s := tx.Events.Swap; s != nil {
		switch {
		case s.NativeInput != nil && s.NativeInput.Amount != "":
			amount := h.nativeAmount(chain, tx.Signature, s.NativeInput.Amount)
			sell = displayAmount(amount, chain.NativeSymbol)
			usd = h.valuer.ResolveUSDValue(ctx, chain.Code, amount, "")
		case len(s.TokenInputs) > 0:
			in := s.TokenInputs[0]
			sell = displayAmount(in.TokenAmount, in.TokenSymbol)
			if in.Mint != "" {
				usd = h.valuer.ResolveUSDValue(ctx, chain.Code, in.TokenAmount, in.Mint)
			}
		}
		switch {
		case s.NativeOutput != nil && s.NativeOutput.Amount != "":
			buy = displayAmount(h.nativeAmount(chain, tx.Signature, s.NativeOutput.Amount), chain.NativeSymbol)
		case len(s.TokenOutputs) > 0:
			out := s.TokenOutputs[0]
			buy = displayAmount(out.TokenAmount, out.TokenSymbol)
		}
	}

	summary := tx.Description
	if sell != "" && buy != "" {
		summary = sell + " -> " + buy
	}
	if summary == "" {
		summary = unknownSwap
	}

	ev := model.TransactionEvent{
		Chain:             chain.Code,
		FromAddress:       strings.ToLower(tx.FeePayer),
		Kind:              model.Swap,
		DisplayAmount:     summary,
		USDValue:          usd,
		TxHash:            tx.Signature,
		CounterpartyLabel: dexLabel(tx.Source),
	}
	h.logger.Info("solana swap",
		zap.String("tx_hash", tx.Signature),
		zap.String("dex", ev.CounterpartyLabel),
		zap.String("summary", summary),
		zap.Float64("usd", usd),
	)
	return ev
}

func (h *Helius) nativeAmount(chain chains.Chain, signature string, q model.Quantity) float64 {
	raw, err := parseRaw(q)
	if err != nil {
		h.logger.Debug("bad lamport amount", zap.String("tx_hash", signature), zap.Error(err))
		return 0
	}
	return lamports(raw, chain)
}

func lamports(raw decimal.Decimal, chain chains.Chain) float64 {
	decimals := chain.NativeDecimals
	if decimals == 0 {
		decimals = 9
	}
	return scaleDown(raw, decimals)
}

// dexLabel names the venue from the Helius source, e.g. "RAYDIUM" -> "Raydium".
func dexLabel(source string) string {
	source = strings.TrimSpace(source)
	if source == "" || strings.EqualFold(source, "UNKNOWN") {
		return defaultSolDex
	}
	return chains.DisplayName(strings.ToLower(source))
}
