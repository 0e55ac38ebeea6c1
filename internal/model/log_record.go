package model

// LogRecord is a raw event log attached to a provider transaction.
type LogRecord struct {
	Address string `json:"address,omitempty"`
	TxHash  string `json:"transactionHash,omitempty"`
	Topic0  string `json:"topic0"`
	Data    string `json:"data"`
}
