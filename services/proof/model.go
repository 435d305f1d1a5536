package proof

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Proof certifies score >= MinScore at issuance time. Rows are immutable.
type Proof struct {
	ID           string         `gorm:"column:id;primaryKey" json:"id"`
	UserID       string         `gorm:"column:user_id;index:idx_proofs_user_min" json:"user_id"`
	MinScore     int64          `gorm:"column:min_score;index:idx_proofs_user_min" json:"min_score"`
	Proof        string         `gorm:"column:proof;type:text" json:"proof"`
	PublicInputs datatypes.JSON `gorm:"column:public_inputs" json:"public_inputs"`
	CreatedAt    time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (Proof) TableName() string { return "proofs" }

func (p *Proof) Inputs() []string {
	var out []string
	_ = json.Unmarshal(p.PublicInputs, &out)
	return out
}

type IssueResult struct {
	ProofID      string   `json:"proof_id"`
	Proof        string   `json:"proof"`
	PublicInputs []string `json:"public_inputs"`
}
