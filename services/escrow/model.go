package escrow

import "time"

// JobEscrow tracks the funds locked for a job. Release and refund are mutually exclusive.
type JobEscrow struct {
	ID            string    `gorm:"column:id;primaryKey" json:"id"`
	JobID         string    `gorm:"column:job_id;uniqueIndex" json:"job_id"`
	ChainRef      int64     `gorm:"column:chain_ref" json:"chain_ref"`
	Amount        int64     `gorm:"column:amount" json:"amount"`
	LockTxHash    string    `gorm:"column:lock_tx_hash" json:"lock_tx_hash"`
	ReleaseTxHash *string   `gorm:"column:release_tx_hash" json:"release_tx_hash,omitempty"`
	RefundTxHash  *string   `gorm:"column:refund_tx_hash" json:"refund_tx_hash,omitempty"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (JobEscrow) TableName() string { return "job_escrows" }

func (e *JobEscrow) Settled() bool {
	return e.ReleaseTxHash != nil || e.RefundTxHash != nil
}
