package badge

import "time"

// BadgeToken is the soul-bound tier badge held by a user. One per user.
type BadgeToken struct {
	ID         string    `gorm:"column:id;primaryKey" json:"id"`
	UserID     string    `gorm:"column:user_id;uniqueIndex" json:"user_id"`
	TokenID    int64     `gorm:"column:token_id" json:"token_id"`
	Tier       string    `gorm:"column:tier" json:"tier"`
	LastTxHash string    `gorm:"column:last_tx_hash" json:"last_tx_hash"`
	CreatedAt  time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (BadgeToken) TableName() string { return "badge_tokens" }
