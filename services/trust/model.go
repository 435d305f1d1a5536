package trust

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

const (
	MinScore int64 = 0
	MaxScore int64 = 1000
)

// TrustEvent is an immutable score delta. The sum over a user's events is the source of truth.
type TrustEvent struct {
	ID        string    `gorm:"column:id;primaryKey" json:"id"`
	UserID    string    `gorm:"column:user_id;index" json:"user_id"`
	Source    string    `gorm:"column:source" json:"source"`
	Delta     int64     `gorm:"column:delta" json:"delta"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (TrustEvent) TableName() string { return "trust_events" }

// TrustSnapshot is the append-only audit trail of recalculations and proof requests.
type TrustSnapshot struct {
	ID        string         `gorm:"column:id;primaryKey" json:"id"`
	UserID    string         `gorm:"column:user_id;index" json:"user_id"`
	Score     int64          `gorm:"column:score" json:"score"`
	Metadata  datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (TrustSnapshot) TableName() string { return "trust_snapshots" }

const (
	SnapshotRecalculated   = "recalculated"
	SnapshotProofRequested = "proof_requested"
)

// SnapshotMetadata builds the metadata column for a snapshot.
func SnapshotMetadata(reason string, attrs map[string]any) datatypes.JSON {
	m := map[string]any{"reason": reason}
	for k, v := range attrs {
		m[k] = v
	}
	b, _ := json.Marshal(m)
	return datatypes.JSON(b)
}
