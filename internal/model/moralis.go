package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MoralisBatch is a Moralis Streams webhook body.
type MoralisBatch struct {
	Confirmed      bool              `json:"confirmed"`
	ChainID        string            `json:"chainId"`
	Txs            []MoralisTx       `json:"txs"`
	ERC20Transfers []MoralisTransfer `json:"erc20Transfers"`
	Logs           []LogRecord       `json:"logs"`
}

// MoralisTx is a native transaction entry.
type MoralisTx struct {
	Hash        string      `json:"hash"`
	FromAddress string      `json:"fromAddress"`
	ToAddress   string      `json:"toAddress"`
	Value       Quantity    `json:"value"`
	Logs        []LogRecord `json:"logs"`
}

// MoralisTransfer is an ERC20 transfer entry.
type MoralisTransfer struct {
	TransactionHash string   `json:"transactionHash"`
	Contract        string   `json:"contract"`
	From            string   `json:"from"`
	To              string   `json:"to"`
	Value           Quantity `json:"value"`
	TokenDecimals   Quantity `json:"tokenDecimals"`
	TokenSymbol     string   `json:"tokenSymbol"`
	TokenName       string   `json:"tokenName"`
}

// Quantity holds a numeric field that providers send either quoted or bare.
type Quantity string

// UnmarshalJSON accepts strings, numbers and null.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*q = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*q = Quantity(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("quantity: %w", err)
	}
	*q = Quantity(n.String())
	return nil
}
