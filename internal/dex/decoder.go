package dex

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"

	"walletwatch/internal/model"
)

const (
	wordSize          = 32
	defaultDecimals   = 18
	constantSumWords  = 4
	signedDeltaWords  = 2
	swapSummaryFormat = "%.4f -> %.4f"
)

var (
	twoTo255 = new(big.Int).Lsh(big.NewInt(1), 255)
	twoTo256 = new(big.Int).Lsh(big.NewInt(1), 256)
)

type logKind int

const (
	unknownLog logKind = iota
	constantSumLog
	signedDeltaLog
)

// DecoderConfig configures token scaling. Zero values mean 18 decimals.
type DecoderConfig struct {
	Token0Decimals uint8
	Token1Decimals uint8
}

// SwapDecoder turns swap logs of a transaction into in/out amounts.
type SwapDecoder struct {
	topics    map[string]logKind
	decimals0 int32
	decimals1 int32
}

// NewSwapDecoder builds a decoder for the constant-sum and signed-delta swap events.
func NewSwapDecoder(cfg DecoderConfig) (*SwapDecoder, error) {
	constantSum, err := ConstantSumSwapEvent()
	if err != nil {
		return nil, fmt.Errorf("parse swap abi: %w", err)
	}
	signedDelta, err := SignedDeltaSwapEvent()
	if err != nil {
		return nil, fmt.Errorf("parse swap abi: %w", err)
	}

	d := &SwapDecoder{
		topics: map[string]logKind{
			strings.ToLower(constantSum.ID.Hex()): constantSumLog,
			strings.ToLower(signedDelta.ID.Hex()): signedDeltaLog,
		},
		decimals0: defaultDecimals,
		decimals1: defaultDecimals,
	}
	if cfg.Token0Decimals != 0 {
		d.decimals0 = int32(cfg.Token0Decimals)
	}
	if cfg.Token1Decimals != 0 {
		d.decimals1 = int32(cfg.Token1Decimals)
	}
	return d, nil
}

// CanDecode checks if the topic0 is one of the known swap signatures.
func (d *SwapDecoder) CanDecode(topic0 string) bool {
	return d.kind(topic0) != unknownLog
}

func (d *SwapDecoder) kind(topic0 string) logKind {
	if topic0 == "" {
		return unknownLog
	}
	return d.topics[strings.ToLower(topic0)]
}

// Decode walks logs in order; every decodable swap log replaces the previous
// result, so the last one wins. Zero-amount logs are skipped without touching the
// result and malformed ones are reported and skipped. When nothing decodes the
// summary is the fallback and both amounts are zero.
func (d *SwapDecoder) Decode(logs []model.LogRecord, fallback string) (model.SwapAmounts, []model.DecodeError) {
	result := model.SwapAmounts{Summary: fallback}
	var failures []model.DecodeError

	for i, log := range logs {
		var (
			amountIn, amountOut float64
			ok                  bool
			err                 error
		)
		switch d.kind(log.Topic0) {
		case constantSumLog:
			amountIn, amountOut, ok, err = d.decodeConstantSum(log.Data)
		case signedDeltaLog:
			amountIn, amountOut, ok, err = d.decodeSignedDelta(log.Data)
		default:
			continue
		}
		if err != nil {
			failures = append(failures, model.DecodeError{
				TxHash: log.TxHash,
				Index:  i,
				Topic0: log.Topic0,
				Error:  err.Error(),
			})
			continue
		}
		if !ok {
			continue
		}

		result = model.SwapAmounts{
			AmountIn:  amountIn,
			AmountOut: amountOut,
			Summary:   fmt.Sprintf(swapSummaryFormat, amountIn, amountOut),
			Decoded:   true,
		}
	}

	return result, failures
}

func (d *SwapDecoder) decodeConstantSum(data string) (float64, float64, bool, error) {
	words, err := splitWords(data, constantSumWords)
	if err != nil {
		return 0, 0, false, err
	}
	amount0In, amount1In, amount0Out, amount1Out := words[0], words[1], words[2], words[3]

	switch {
	case amount0In.Sign() > 0 && amount1Out.Sign() > 0:
		return scale(amount0In, d.decimals0), scale(amount1Out, d.decimals1), true, nil
	case amount1In.Sign() > 0 && amount0Out.Sign() > 0:
		return scale(amount1In, d.decimals1), scale(amount0Out, d.decimals0), true, nil
	default:
		return 0, 0, false, nil
	}
}

func (d *SwapDecoder) decodeSignedDelta(data string) (float64, float64, bool, error) {
	words, err := splitWords(data, signedDeltaWords)
	if err != nil {
		return 0, 0, false, err
	}
	amount0 := toSigned(words[0])
	amount1 := toSigned(words[1])

	if amount0.Sign() == 0 && amount1.Sign() == 0 {
		return 0, 0, false, nil
	}

	if amount0.Sign() < 0 {
		in := amount1
		if in.Sign() < 0 {
			in = new(big.Int)
		}
		return scale(in, d.decimals1), scale(new(big.Int).Abs(amount0), d.decimals0), true, nil
	}
	return scale(amount0, d.decimals0), scale(new(big.Int).Abs(amount1), d.decimals1), true, nil
}

// splitWords decodes the hex payload and returns its first n 32-byte words as
// unsigned big-endian integers.
func splitWords(data string, n int) ([]*big.Int, error) {
	if !strings.HasPrefix(data, "0x") && !strings.HasPrefix(data, "0X") {
		data = "0x" + data
	}
	raw, err := hexutil.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	if len(raw) < n*wordSize {
		return nil, fmt.Errorf("data too short: %d bytes, need %d", len(raw), n*wordSize)
	}
	words := make([]*big.Int, n)
	for i := range words {
		words[i] = new(big.Int).SetBytes(raw[i*wordSize : (i+1)*wordSize])
	}
	return words, nil
}

// toSigned reinterprets an unsigned 256-bit word as two's-complement.
func toSigned(v *big.Int) *big.Int {
	if v.Cmp(twoTo255) >= 0 {
		return new(big.Int).Sub(v, twoTo256)
	}
	return v
}

func scale(v *big.Int, decimals int32) float64 {
	return decimal.NewFromBigInt(v, -decimals).InexactFloat64()
}
