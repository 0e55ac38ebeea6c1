package model

// Kind classifies a normalized transaction event.
type Kind int

const (
	NativeTransfer Kind = iota + 1
	TokenTransfer
	Swap
)

// String returns the label used in notifications.
func (k Kind) String() string {
	switch k {
	case NativeTransfer:
		return "Transfer"
	case TokenTransfer:
		return "Token Transfer"
	case Swap:
		return "DEX Swap"
	default:
		return "Unknown"
	}
}

// MarshalText keeps the kind readable in JSON output.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Direction is the side of a transfer a tracked wallet is on.
type Direction string

const (
	DirectionNone Direction = ""
	DirectionIn   Direction = "IN"
	DirectionOut  Direction = "OUT"
)

// TransactionEvent is the canonical event produced from any provider payload.
type TransactionEvent struct {
	Chain             string  `json:"chain"`
	FromAddress       string  `json:"from_address"`
	ToAddress         string  `json:"to_address,omitempty"`
	Kind              Kind    `json:"kind"`
	DisplayAmount     string  `json:"display_amount"`
	USDValue          float64 `json:"usd_value"`
	TxHash            string  `json:"tx_hash"`
	CounterpartyLabel string  `json:"counterparty_label,omitempty"`
}

// IsSwap reports whether the event is a DEX swap.
func (e TransactionEvent) IsSwap() bool {
	return e.Kind == Swap
}
