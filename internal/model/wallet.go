package model

// Wallet is a tracked address owned by a user.
type Wallet struct {
	UserID          int64   `json:"user_id"`
	Chain           string  `json:"chain"`
	Address         string  `json:"address"`
	Label           string  `json:"label"`
	IncomingEnabled bool    `json:"incoming_enabled"`
	MinAmountUSD    float64 `json:"min_amount_usd"`
}
