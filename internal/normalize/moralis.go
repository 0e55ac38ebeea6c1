package normalize

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"walletwatch/internal/chains"
	"walletwatch/internal/dex"
	"walletwatch/internal/model"
)

// Moralis normalizes Moralis Streams batches for the EVM chains.
type Moralis struct {
	valuer  Valuer
	chains  chains.Source
	decoder *dex.SwapDecoder
	logger  *zap.Logger
}

func NewMoralis(valuer Valuer, source chains.Source, decoder *dex.SwapDecoder, logger *zap.Logger) *Moralis {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Moralis{valuer: valuer, chains: source, decoder: decoder, logger: logger}
}

// txContext is what a batch knows about one transaction hash beyond the tx entry.
type txContext struct {
	logs      []model.LogRecord
	transfers []model.MoralisTransfer
}

// Normalize emits native transfers and swaps from txs, then token transfers.
// Unconfirmed batches produce nothing; an unmapped chain id rejects the batch.
func (m *Moralis) Normalize(ctx context.Context, batch model.MoralisBatch) ([]model.TransactionEvent, error) {
	if !batch.Confirmed {
		m.logger.Debug("skipping unconfirmed batch", zap.String("chain_id", batch.ChainID))
		return nil, nil
	}

	reg := m.chains.Current()
	if reg == nil {
		return nil, fmt.Errorf("chain id %q: %w", batch.ChainID, ErrUnknownChain)
	}
	code, ok := reg.CodeForProvider(batch.ChainID)
	if !ok {
		m.logger.Warn("unknown chain id", zap.String("chain_id", batch.ChainID))
		return nil, fmt.Errorf("chain id %q: %w", batch.ChainID, ErrUnknownChain)
	}
	chain, _ := reg.Chain(code)

	m.logger.Info("processing moralis batch",
		zap.String("chain", code),
		zap.Int("txs", len(batch.Txs)),
		zap.Int("erc20_transfers", len(batch.ERC20Transfers)),
	)

	byTx := indexByTx(batch)
	events := make([]model.TransactionEvent, 0, len(batch.Txs)+len(batch.ERC20Transfers))

	for _, tx := range batch.Txs {
		ev, ok := m.nativeTx(ctx, reg, chain, tx, byTx[strings.ToLower(tx.Hash)])
		if ok {
			events = append(events, ev)
		}
	}
	for _, transfer := range batch.ERC20Transfers {
		ev, ok := m.tokenTransfer(ctx, chain, transfer)
		if ok {
			events = append(events, ev)
		}
	}
	return events, nil
}

func indexByTx(batch model.MoralisBatch) map[string]*txContext {
	out := make(map[string]*txContext)
	get := func(hash string) *txContext {
		key := strings.ToLower(hash)
		c, ok := out[key]
		if !ok {
			c = &txContext{}
			out[key] = c
		}
		return c
	}
	for _, log := range batch.Logs {
		if log.TxHash == "" {
			continue
		}
		c := get(log.TxHash)
		c.logs = append(c.logs, log)
	}
	for _, t := range batch.ERC20Transfers {
		if t.TransactionHash == "" {
			continue
		}
		c := get(t.TransactionHash)
		c.transfers = append(c.transfers, t)
	}
	return out
}

func (m *Moralis) nativeTx(ctx context.Context, reg *chains.Registry, chain chains.Chain, tx model.MoralisTx, related *txContext) (model.TransactionEvent, bool) {
	raw, err := parseRaw(tx.Value)
	if err != nil {
		m.logger.Warn("skipping tx with bad value", zap.String("tx_hash", tx.Hash), zap.Error(err))
		return model.TransactionEvent{}, false
	}
	if raw.IsZero() {
		return m.swap(ctx, reg, chain, tx, related)
	}

	amount := scaleDown(raw, chain.NativeDecimals)
	ev := model.TransactionEvent{
		Chain:         chain.Code,
		FromAddress:   strings.ToLower(tx.FromAddress),
		ToAddress:     strings.ToLower(tx.ToAddress),
		Kind:          model.NativeTransfer,
		DisplayAmount: displayAmount(amount, chain.NativeSymbol),
		USDValue:      m.valuer.ResolveUSDValue(ctx, chain.Code, amount, ""),
		TxHash:        tx.Hash,
	}
	m.logger.Debug("native tx",
		zap.String("chain", chain.Code),
		zap.String("tx_hash", tx.Hash),
		zap.String("amount", ev.DisplayAmount),
		zap.Float64("usd", ev.USDValue),
	)
	return ev, true
}

// swap handles a zero-value call. Only calls into a known router become events.
func (m *Moralis) swap(ctx context.Context, reg *chains.Registry, chain chains.Chain, tx model.MoralisTx, related *txContext) (model.TransactionEvent, bool) {
	dexName, ok := reg.Router(chain.Code, tx.ToAddress)
	if !ok {
		return model.TransactionEvent{}, false
	}

	logs := tx.Logs
	if len(logs) == 0 && related != nil {
		logs = related.logs
	}
	amounts := model.SwapAmounts{Summary: unknownSwap}
	if m.decoder != nil {
		var failures []model.DecodeError
		amounts, failures = m.decoder.Decode(logs, unknownSwap)
		for _, f := range failures {
			m.logger.Debug("swap log decode failed",
				zap.String("tx_hash", tx.Hash),
				zap.Int("index", f.Index),
				zap.String("topic0", f.Topic0),
				zap.String("error", f.Error),
			)
		}
	}

	swapper := strings.ToLower(tx.FromAddress)
	ev := model.TransactionEvent{
		Chain:             chain.Code,
		FromAddress:       swapper,
		Kind:              model.Swap,
		DisplayAmount:     amounts.Summary,
		USDValue:          m.swapValue(ctx, chain, swapper, related),
		TxHash:            tx.Hash,
		CounterpartyLabel: dexName,
	}
	m.logger.Info("dex swap detected",
		zap.String("chain", chain.Code),
		zap.String("tx_hash", tx.Hash),
		zap.String("dex", dexName),
		zap.String("summary", amounts.Summary),
	)
	return ev, true
}

// swapValue prices the sell side from the swapper's first token transfer in the
// same tx. Without one the swap stays unpriced.
func (m *Moralis) swapValue(ctx context.Context, chain chains.Chain, swapper string, related *txContext) float64 {
	if related == nil {
		return 0
	}
	for _, t := range related.transfers {
		if !strings.EqualFold(t.From, swapper) {
			continue
		}
		meta, amount, err := transferAmount(t)
		if err != nil || meta.Address == "" {
			return 0
		}
		return m.valuer.ResolveUSDValue(ctx, chain.Code, amount, meta.Address)
	}
	return 0
}

func (m *Moralis) tokenTransfer(ctx context.Context, chain chains.Chain, t model.MoralisTransfer) (model.TransactionEvent, bool) {
	meta, amount, err := transferAmount(t)
	if err != nil {
		m.logger.Warn("skipping transfer with bad value", zap.String("tx_hash", t.TransactionHash), zap.Error(err))
		return model.TransactionEvent{}, false
	}

	var usd float64
	if meta.Address != "" {
		usd = m.valuer.ResolveUSDValue(ctx, chain.Code, amount, meta.Address)
	}
	ev := model.TransactionEvent{
		Chain:         chain.Code,
		FromAddress:   strings.ToLower(t.From),
		ToAddress:     strings.ToLower(t.To),
		Kind:          model.TokenTransfer,
		DisplayAmount: displayAmount(amount, meta.Symbol),
		USDValue:      usd,
		TxHash:        t.TransactionHash,
	}
	m.logger.Debug("erc20 transfer",
		zap.String("chain", chain.Code),
		zap.String("tx_hash", t.TransactionHash),
		zap.String("amount", ev.DisplayAmount),
		zap.Float64("usd", usd),
	)
	return ev, true
}

func transferAmount(t model.MoralisTransfer) (model.TokenMeta, float64, error) {
	meta := model.TokenMeta{
		Address:  strings.ToLower(t.Contract),
		Decimals: tokenDecimals(t.TokenDecimals),
		Symbol:   t.TokenSymbol,
		Name:     t.TokenName,
	}
	raw, err := parseRaw(t.Value)
	if err != nil {
		return meta, 0, err
	}
	return meta, scaleDown(raw, int32(meta.Decimals)), nil
}
