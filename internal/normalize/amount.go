package normalize

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"

	"walletwatch/internal/model"
)

const defaultTokenDecimals = 18

// parseRaw reads an integer base-unit quantity, decimal or 0x-hex. Empty is zero.
func parseRaw(q model.Quantity) (decimal.Decimal, error) {
	s := strings.TrimSpace(string(q))
	if s == "" {
		return decimal.Zero, nil
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		digits := strings.TrimLeft(s[2:], "0")
		if digits == "" {
			return decimal.Zero, nil
		}
		v, err := hexutil.DecodeBig("0x" + digits)
		if err != nil {
			return decimal.Zero, fmt.Errorf("quantity %q: %w", s, err)
		}
		return decimal.NewFromBigInt(v, 0), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return decimal.Zero, fmt.Errorf("quantity %q: not an integer", s)
	}
	if v.Sign() < 0 {
		return decimal.Zero, fmt.Errorf("quantity %q: negative", s)
	}
	return decimal.NewFromBigInt(v, 0), nil
}

// tokenDecimals reads a decimals field, falling back to 18 when absent or unusable.
func tokenDecimals(q model.Quantity) uint8 {
	n, err := strconv.ParseUint(strings.TrimSpace(string(q)), 10, 8)
	if err != nil {
		return defaultTokenDecimals
	}
	return uint8(n)
}

// scaleDown converts base units to whole units.
func scaleDown(raw decimal.Decimal, decimals int32) float64 {
	return raw.Shift(-decimals).InexactFloat64()
}

func displayAmount(amount float64, symbol string) string {
	if symbol == "" {
		symbol = "???"
	}
	return fmt.Sprintf("%.4f %s", amount, symbol)
}
