package model

// DecodeError records a swap log that could not be decoded.
type DecodeError struct {
	TxHash string `json:"tx_hash"`
	Index  int    `json:"index"`
	Topic0 string `json:"topic0"`
	Error  string `json:"error"`
}
