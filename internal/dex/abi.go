package dex

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Swap events of the two pool families the decoder understands. Only the event
// entries are needed: their IDs are the topic0 values matched against logs.
const swapABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "sender", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amount0In", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "amount1In", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "amount0Out", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "amount1Out", "type": "uint256"},
      {"indexed": true, "internalType": "address", "name": "to", "type": "address"}
    ],
    "name": "Swap",
    "type": "event"
  }
]`

const deltaSwapABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "sender", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "recipient", "type": "address"},
      {"indexed": false, "internalType": "int256", "name": "amount0", "type": "int256"},
      {"indexed": false, "internalType": "int256", "name": "amount1", "type": "int256"},
      {"indexed": false, "internalType": "uint160", "name": "sqrtPriceX96", "type": "uint160"},
      {"indexed": false, "internalType": "uint128", "name": "liquidity", "type": "uint128"},
      {"indexed": false, "internalType": "int24", "name": "tick", "type": "int24"}
    ],
    "name": "Swap",
    "type": "event"
  }
]`

var (
	constantSumABI, signedDeltaABI abi.ABI
	swapABIOnce                    sync.Once
	swapABIErr                     error
)

func loadSwapABIs() error {
	swapABIOnce.Do(func() {
		constantSumABI, swapABIErr = abi.JSON(strings.NewReader(swapABIJSON))
		if swapABIErr != nil {
			return
		}
		signedDeltaABI, swapABIErr = abi.JSON(strings.NewReader(deltaSwapABIJSON))
	})
	return swapABIErr
}

// ConstantSumSwapEvent returns the four-amount swap event (Uniswap V2 style).
func ConstantSumSwapEvent() (abi.Event, error) {
	if err := loadSwapABIs(); err != nil {
		return abi.Event{}, err
	}
	return constantSumABI.Events["Swap"], nil
}

// SignedDeltaSwapEvent returns the signed-delta swap event (Uniswap V3 style).
func SignedDeltaSwapEvent() (abi.Event, error) {
	if err := loadSwapABIs(); err != nil {
		return abi.Event{}, err
	}
	return signedDeltaABI.Events["Swap"], nil
}
