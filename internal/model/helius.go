package model

import "encoding/json"

// HeliusTx is one entry of a Helius enhanced-transaction webhook.
type HeliusTx struct {
	Type             string                 `json:"type"`
	Source           string                 `json:"source"`
	Signature        string                 `json:"signature"`
	FeePayer         string                 `json:"feePayer"`
	Description      string                 `json:"description"`
	NativeTransfers  []HeliusNativeTransfer `json:"nativeTransfers"`
	TokenTransfers   []HeliusTokenTransfer  `json:"tokenTransfers"`
	Events           HeliusEvents           `json:"events"`
	TransactionError json.RawMessage        `json:"transactionError"`
}

// Failed reports whether the provider flagged the transaction as errored.
func (t HeliusTx) Failed() bool {
	raw := string(t.TransactionError)
	return raw != "" && raw != "null"
}

// HeliusNativeTransfer moves lamports between accounts.
type HeliusNativeTransfer struct {
	FromUserAccount string `json:"fromUserAccount"`
	ToUserAccount   string `json:"toUserAccount"`
	Amount          uint64 `json:"amount"`
}

// HeliusTokenTransfer moves an SPL token; TokenAmount is already decimal-adjusted.
type HeliusTokenTransfer struct {
	FromUserAccount string  `json:"fromUserAccount"`
	ToUserAccount   string  `json:"toUserAccount"`
	TokenAmount     float64 `json:"tokenAmount"`
	TokenSymbol     string  `json:"tokenSymbol"`
	Mint            string  `json:"mint"`
}

// HeliusEvents carries decoded program events.
type HeliusEvents struct {
	Swap *HeliusSwap `json:"swap"`
}

// HeliusSwap is the swap event summary.
type HeliusSwap struct {
	NativeInput  *HeliusNativeAmount   `json:"nativeInput"`
	NativeOutput *HeliusNativeAmount   `json:"nativeOutput"`
	TokenInputs  []HeliusTokenTransfer `json:"tokenInputs"`
	TokenOutputs []HeliusTokenTransfer `json:"tokenOutputs"`
}

// HeliusNativeAmount is a lamport amount attached to an account.
type HeliusNativeAmount struct {
	Account string   `json:"account"`
	Amount  Quantity `json:"amount"`
}
