package entity

import "time"

// ContractStatus 合同状态
const (
	ContractStatusActive    = "active"
	ContractStatusCompleted = "completed"
)

// Contract 合同，商机转化时创建
type Contract struct {
	ID            string    `json:"id" gorm:"primaryKey;size:36"`
	Code          string    `json:"code" gorm:"size:32;uniqueIndex;not null"`
	OpportunityID string    `json:"opportunity_id" gorm:"size:36;not null;uniqueIndex"`
	QuoteID       string    `json:"quote_id" gorm:"size:36;not null"`
	TotalValue    float64   `json:"total_value" gorm:"type:decimal(15,2);default:0"`
	Status        string    `json:"status" gorm:"size:20;not null;default:active"`
	CreatedBy     string    `json:"created_by" gorm:"size:36;not null"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Opportunity *Opportunity `json:"opportunity,omitempty" gorm:"foreignKey:OpportunityID"`
	Quote       *Quote       `json:"quote,omitempty" gorm:"foreignKey:QuoteID"`
}

func (Contract) TableName() string {
	return "crm_contracts"
}

// ProjectStatus 项目状态
const (
	ProjectStatusActive    = "active"
	ProjectStatusCompleted = "completed"
)

// Project 交付项目
type Project struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	Code       string    `json:"code" gorm:"size:32;uniqueIndex;not null"`
	ContractID string    `json:"contract_id" gorm:"size:36;not null;index"`
	Name       string    `json:"name" gorm:"size:200;not null"`
	Status     string    `json:"status" gorm:"size:20;not null;default:active"`
	CreatedBy  string    `json:"created_by" gorm:"size:36;not null"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Contract *Contract `json:"contract,omitempty" gorm:"foreignKey:ContractID"`
	Jobs     []Job     `json:"jobs,omitempty" gorm:"foreignKey:ProjectID"`
}

func (Project) TableName() string {
	return "crm_projects"
}

// JobStatus 任务状态。验收流程只在
// waiting_acceptance → submitted → approved|rejected 之间流转。
const (
	JobStatusPending           = "pending"
	JobStatusInProgress        = "in_progress"
	JobStatusDone              = "done"
	JobStatusWaitingAcceptance = "waiting_acceptance"
	JobStatusSubmitted         = "submitted"
	JobStatusApproved          = "approved"
	JobStatusRejected          = "rejected"
)

// Job 项目任务
type Job struct {
	ID        string     `json:"id" gorm:"primaryKey;size:36"`
	ProjectID string     `json:"project_id" gorm:"size:36;not null;index"`
	Name      string     `json:"name" gorm:"size:200;not null"`
	Status    string     `json:"status" gorm:"size:30;not null;default:pending;index"`
	Notes     string     `json:"notes" gorm:"type:text"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	Project *Project `json:"project,omitempty" gorm:"foreignKey:ProjectID"`
}

func (Job) TableName() string {
	return "crm_jobs"
}

// IsAcceptanceTerminal 任务是否已有验收终态
func (j *Job) IsAcceptanceTerminal() bool {
	return j.Status == JobStatusApproved || j.Status == JobStatusRejected
}
