package normalize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"walletwatch/internal/chains"
	"walletwatch/internal/dex"
	"walletwatch/internal/metrics"
	"walletwatch/internal/model"
)

// ErrUnknownChain rejects a batch whose provider chain id has no internal code.
var ErrUnknownChain = errors.New("unknown chain id")

// ErrUnknownProvider rejects a payload tagged with a provider we do not parse.
var ErrUnknownProvider = errors.New("unknown provider")

const unknownSwap = "Unknown swap"

// Valuer prices an amount in USD. An empty token means the chain's native currency.
type Valuer interface {
	ResolveUSDValue(ctx context.Context, chain string, amount float64, tokenAddress string) float64
}

type Provider string

const (
	ProviderMoralis Provider = "moralis"
	ProviderHelius  Provider = "helius"
)

// Payload is one inbound webhook body tagged with the provider that sent it.
// Exactly one of Moralis or Helius is set.
type Payload struct {
	Provider Provider
	Moralis  *model.MoralisBatch
	Helius   []model.HeliusTx
}

// DecodePayload parses a raw webhook body. Helius bodies may be a single
// transaction object instead of an array.
func DecodePayload(provider Provider, body []byte) (Payload, error) {
	switch provider {
	case ProviderMoralis:
		var batch model.MoralisBatch
		if err := json.Unmarshal(body, &batch); err != nil {
			return Payload{}, fmt.Errorf("decode moralis payload: %w", err)
		}
		return Payload{Provider: provider, Moralis: &batch}, nil
	case ProviderHelius:
		trimmed := bytes.TrimSpace(body)
		if len(trimmed) > 0 && trimmed[0] == '{' {
			var tx model.HeliusTx
			if err := json.Unmarshal(trimmed, &tx); err != nil {
				return Payload{}, fmt.Errorf("decode helius payload: %w", err)
			}
			return Payload{Provider: provider, Helius: []model.HeliusTx{tx}}, nil
		}
		var txs []model.HeliusTx
		if err := json.Unmarshal(trimmed, &txs); err != nil {
			return Payload{}, fmt.Errorf("decode helius payload: %w", err)
		}
		return Payload{Provider: provider, Helius: txs}, nil
	default:
		return Payload{}, fmt.Errorf("%q: %w", provider, ErrUnknownProvider)
	}
}

// Normalizer dispatches tagged payloads to the provider-specific normalizers.
type Normalizer struct {
	moralis *Moralis
	helius  *Helius
}

func New(valuer Valuer, source chains.Source, decoder *dex.SwapDecoder, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{
		moralis: NewMoralis(valuer, source, decoder, logger),
		helius:  NewHelius(valuer, source, logger),
	}
}

// Normalize turns a payload into canonical events in provider order.
func (n *Normalizer) Normalize(ctx context.Context, p Payload) ([]model.TransactionEvent, error) {
	var (
		events []model.TransactionEvent
		err    error
	)
	switch p.Provider {
	case ProviderMoralis:
		if p.Moralis == nil {
			return nil, nil
		}
		events, err = n.moralis.Normalize(ctx, *p.Moralis)
	case ProviderHelius:
		events, err = n.helius.Normalize(ctx, p.Helius)
	default:
		return nil, fmt.Errorf("%q: %w", p.Provider, ErrUnknownProvider)
	}
	if err != nil {
		return nil, err
	}
	for _, ev := range events {
		metrics.EventsNormalized.WithLabelValues(ev.Kind.String()).Inc()
	}
	return events, nil
}
