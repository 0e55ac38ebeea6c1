package model

// SwapAmounts is the decoded result of a transaction's swap logs.
type SwapAmounts struct {
	AmountIn  float64 `json:"amount_in"`
	AmountOut float64 `json:"amount_out"`
	Summary   string  `json:"summary"`
	Decoded   bool    `json:"decoded"`
}
