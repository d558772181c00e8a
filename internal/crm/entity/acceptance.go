package entity

import "time"

// AcceptanceStatus 验收单状态
const (
	AcceptanceStatusDraft        = "draft"
	AcceptanceStatusSubmittedBOD = "submitted_bod"
	AcceptanceStatusApproved     = "approved"
	AcceptanceStatusRejected     = "rejected"
)

// Acceptance 验收单。当所有关联任务都离开
// waiting_acceptance/submitted 后进入终态：全部 approved 则 approved，
// 否则 rejected。
type Acceptance struct {
	ID         string     `json:"id" gorm:"primaryKey;size:36"`
	Code       string     `json:"code" gorm:"size:32;uniqueIndex;not null"`
	ProjectID  string     `json:"project_id" gorm:"size:36;not null;index"`
	ContractID string     `json:"contract_id" gorm:"size:36;not null;index"`
	Status     string     `json:"status" gorm:"size:20;not null;default:draft"`
	Comment    string     `json:"comment" gorm:"type:text"`
	Evidence   JSONBArray `json:"evidence" gorm:"type:jsonb"` // [{name,url}]

	CreatedBy   string     `json:"created_by" gorm:"size:36;not null"`
	SubmittedAt *time.Time `json:"submitted_at"`
	DecidedAt   *time.Time `json:"decided_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// 关联
	Jobs    []AcceptanceJob `json:"jobs,omitempty" gorm:"foreignKey:AcceptanceID"`
	Project *Project        `json:"project,omitempty" gorm:"foreignKey:ProjectID"`
}

func (Acceptance) TableName() string {
	return "crm_acceptances"
}

// AcceptanceJob 验收单-任务关联行
type AcceptanceJob struct {
	ID           string    `json:"id" gorm:"primaryKey;size:36"`
	AcceptanceID string    `json:"acceptance_id" gorm:"size:36;not null;index"`
	JobID        string    `json:"job_id" gorm:"size:36;not null;index"`
	SortOrder    int       `json:"sort_order" gorm:"default:0"`
	CreatedAt    time.Time `json:"created_at"`

	Job *Job `json:"job,omitempty" gorm:"foreignKey:JobID"`
}

func (AcceptanceJob) TableName() string {
	return "crm_acceptance_jobs"
}
