package tier

import "time"

type Tier string

const (
	Dust  Tier = "Dust"
	Spark Tier = "Spark"
	Flare Tier = "Flare"
	Nova  Tier = "Nova"
)

type threshold struct {
	Tier Tier
	Min  int64
}

// ascending by minimum score
var thresholds = []threshold{
	{Dust, 0},
	{Spark, 300},
	{Flare, 600},
	{Nova, 800},
}

// Resolve returns the highest tier whose inclusive minimum is <= score.
func Resolve(score int64) Tier {
	resolved := Dust
	for _, t := range thresholds {
		if score >= t.Min {
			resolved = t.Tier
		}
	}
	return resolved
}

// Rank orders tiers; unknown labels rank below Dust.
func Rank(t Tier) int {
	for i, th := range thresholds {
		if th.Tier == t {
			return i
		}
	}
	return -1
}

// MinScore returns the inclusive lower bound of t.
func MinScore(t Tier) int64 {
	for _, th := range thresholds {
		if th.Tier == t {
			return th.Min
		}
	}
	return 0
}

type TierHistory struct {
	ID        string    `gorm:"column:id;primaryKey" json:"id"`
	UserID    string    `gorm:"column:user_id;index" json:"user_id"`
	Tier      Tier      `gorm:"column:tier" json:"tier"`
	Score     int64     `gorm:"column:score" json:"score"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (TierHistory) TableName() string { return "tier_histories" }

type TierView struct {
	Tier    Tier           `json:"tier"`
	History []*TierHistory `json:"history"`
}
