package job

import (
	"encoding/json"
	"strings"
	"time"

	"trustmarket/services/escrow"

	"gorm.io/datatypes"
)

type Status string

const (
	StatusOpen      Status = "OPEN"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

type ApplicationStatus string

const (
	ApplicationApplied   ApplicationStatus = "APPLIED"
	ApplicationSubmitted ApplicationStatus = "SUBMITTED"
	ApplicationConfirmed ApplicationStatus = "CONFIRMED"
)

type Job struct {
	ID               string         `gorm:"column:id;primaryKey" json:"id"`
	CreatorID        string         `gorm:"column:creator_id;index" json:"creator_id"`
	ChainRef         int64          `gorm:"column:chain_ref;uniqueIndex" json:"chain_ref"`
	Title            string         `gorm:"column:title" json:"title"`
	Description      string         `gorm:"column:description;type:text" json:"description"`
	CompanyName      string         `gorm:"column:company_name" json:"company_name,omitempty"`
	CompanyLogo      string         `gorm:"column:company_logo" json:"company_logo,omitempty"`
	Location         string         `gorm:"column:location" json:"location,omitempty"`
	JobType          string         `gorm:"column:job_type" json:"job_type,omitempty"`
	Requirements     datatypes.JSON `gorm:"column:requirements" json:"requirements"`
	SalaryMin        *int64         `gorm:"column:salary_min" json:"salary_min,omitempty"`
	SalaryMax        *int64         `gorm:"column:salary_max" json:"salary_max,omitempty"`
	CloseAt          *time.Time     `gorm:"column:close_at" json:"close_at,omitempty"`
	MinTrustScore    int64          `gorm:"column:min_trust_score" json:"min_trust_score"`
	Reward           int64          `gorm:"column:reward" json:"reward"`
	Status           Status         `gorm:"column:status;index" json:"status"`
	OnchainJobID     *int64         `gorm:"column:onchain_job_id" json:"onchain_job_id,omitempty"`
	OnchainCreateTx  *string        `gorm:"column:onchain_create_tx" json:"onchain_create_tx,omitempty"`
	OnchainApproveTx *string        `gorm:"column:onchain_approve_tx" json:"onchain_approve_tx,omitempty"`
	CreatedAt        time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"column:updated_at" json:"updated_at"`
}

func (Job) TableName() string { return "jobs" }

// ContractJobID is the id used with the jobs contract, falling back to the local chain ref.
func (j *Job) ContractJobID() int64 {
	if j.OnchainJobID != nil {
		return *j.OnchainJobID
	}
	return j.ChainRef
}

type JobApplication struct {
	ID                 string            `gorm:"column:id;primaryKey" json:"id"`
	JobID              string            `gorm:"column:job_id;uniqueIndex:idx_job_applications_job_worker" json:"job_id"`
	WorkerID           string            `gorm:"column:worker_id;uniqueIndex:idx_job_applications_job_worker;index" json:"worker_id"`
	Status             ApplicationStatus `gorm:"column:status" json:"status"`
	CvURL              string            `gorm:"column:cv_url" json:"cv_url,omitempty"`
	PortfolioLinks     datatypes.JSON    `gorm:"column:portfolio_links" json:"portfolio_links"`
	ExtraMetadata      datatypes.JSON    `gorm:"column:extra_metadata" json:"extra_metadata,omitempty"`
	WorkSubmissionText *string           `gorm:"column:work_submission_text;type:text" json:"work_submission_text,omitempty"`
	ConfirmationTxHash *string           `gorm:"column:confirmation_tx_hash" json:"confirmation_tx_hash,omitempty"`
	Rating             *int              `gorm:"column:rating" json:"rating,omitempty"`
	CreatedAt          time.Time         `gorm:"column:created_at" json:"created_at"`
	UpdatedAt          time.Time         `gorm:"column:updated_at" json:"updated_at"`
}

func (JobApplication) TableName() string { return "job_applications" }

type CreateJobRequest struct {
	Title         string     `json:"title" binding:"required"`
	Description   string     `json:"description"`
	CompanyName   string     `json:"company_name"`
	CompanyLogo   string     `json:"company_logo"`
	Location      string     `json:"location"`
	JobType       string     `json:"job_type"`
	Requirements  []string   `json:"requirements"`
	SalaryMin     *int64     `json:"salary_min"`
	SalaryMax     *int64     `json:"salary_max"`
	CloseAt       *time.Time `json:"close_at"`
	MinTrustScore int64      `json:"min_trust_score"`
	Reward        int64      `json:"reward"`
	ZkProofID     string     `json:"zk_proof_id"`
}

type ApplyRequest struct {
	CvURL          string         `json:"cv_url"`
	PortfolioLinks []string       `json:"portfolio_links"`
	ExtraMetadata  map[string]any `json:"extra_metadata"`
	ZkProofID      string         `json:"zk_proof_id"`
}

type SubmitRequest struct {
	WorkSubmissionText string `json:"work_submission_text"`
}

type ConfirmRequest struct {
	TxHash string `json:"tx_hash"`
	Rating *int   `json:"rating"`
}

// JobView is a job with its applications and escrow, as listed to its creator.
type JobView struct {
	*Job
	Applications []*JobApplication  `json:"applications"`
	Escrow       *escrow.JobEscrow `json:"escrow,omitempty"`
}

type JobSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	CompanyName string `json:"company_name,omitempty"`
	JobType     string `json:"job_type,omitempty"`
	Reward      int64  `json:"reward"`
	Status      Status `json:"status"`
}

type ApplicationView struct {
	*JobApplication
	Job *JobSummary `json:"job,omitempty"`
}

type WorkerSummary struct {
	ID            string  `json:"id"`
	WalletAddress *string `json:"wallet_address,omitempty"`
	Tier          string  `json:"tier"`
}

type ApplicantView struct {
	*JobApplication
	Worker *WorkerSummary `json:"worker,omitempty"`
}

// normalize trims entries and drops empty ones.
func normalize(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func jsonOf(v any) datatypes.JSON {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

func (j *Job) RequirementList() []string {
	var out []string
	_ = json.Unmarshal(j.Requirements, &out)
	return out
}

func (a *JobApplication) Links() []string {
	var out []string
	_ = json.Unmarshal(a.PortfolioLinks, &out)
	return out
}
