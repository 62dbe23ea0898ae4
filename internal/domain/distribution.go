package domain

import "time"

// Distribution is the split of one confirmed fee event. Never mutated.
// Corresponds to distributions table in PostgreSQL.
type Distribution struct {
	ID                string    `json:"id"` // deterministic hash of the source signature
	TotalFeeAmount    uint64    `json:"total_fee_amount"`
	RewardAmount      uint64    `json:"reward_amount"`
	BurnAmount        uint64    `json:"burn_amount"`
	OpsAmount         uint64    `json:"ops_amount"` // absorbs rounding remainder
	SourceTxSignature string    `json:"source_tx_signature"`
	Timestamp         time.Time `json:"timestamp"`
}

// Balanced reports whether the three shares sum exactly to the fee amount.
func (d *Distribution) Balanced() bool {
	return d.RewardAmount+d.BurnAmount+d.OpsAmount == d.TotalFeeAmount &&
		d.RewardAmount <= d.TotalFeeAmount && d.BurnAmount <= d.TotalFeeAmount
}
