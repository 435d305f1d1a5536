package points

import "time"

type PointsBalance struct {
	ID                    string    `gorm:"column:id;primaryKey" json:"id"`
	UserID                string    `gorm:"column:user_id;uniqueIndex;not null" json:"user_id"`
	Balance               int64     `gorm:"column:balance;not null;default:0" json:"balance"`
	DailyEarned           int64     `gorm:"column:daily_earned;not null;default:0" json:"daily_earned"`
	DailyEarnedCheckpoint time.Time `gorm:"column:daily_earned_checkpoint" json:"daily_earned_checkpoint"`
	LastReason            string    `gorm:"column:last_reason" json:"last_reason,omitempty"`
	CreatedAt             time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt             time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (PointsBalance) TableName() string { return "points_balances" }

type RewardResult struct {
	Credited int64 `json:"credited"`
	Balance  int64 `json:"balance"`
}
