package user

import "time"

// User is the external participant. TrustScore and Tier are read-model caches: only the trust
// ledger writes TrustScore and only the tier state machine writes Tier.
type User struct {
	ID            string    `gorm:"column:id;primaryKey" json:"id"`
	WalletAddress *string   `gorm:"column:wallet_address;uniqueIndex" json:"wallet_address,omitempty"`
	TrustScore    int64     `gorm:"column:trust_score;not null;default:0" json:"trust_score"`
	Tier          string    `gorm:"column:tier;not null;default:Dust" json:"tier"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (User) TableName() string { return "users" }

// Wallet returns the payout address or empty when none is linked.
func (u *User) Wallet() string {
	if u == nil || u.WalletAddress == nil {
		return ""
	}
	return *u.WalletAddress
}
