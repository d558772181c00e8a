package entity

import "time"

// ServiceStatus 服务目录状态
const (
	ServiceStatusActive   = "active"
	ServiceStatusInactive = "inactive"
)

// Service 服务目录主数据，核心流程只读
type Service struct {
	ID        string     `json:"id" gorm:"primaryKey;size:36"`
	Code      string     `json:"code" gorm:"size:32;uniqueIndex;not null"`
	Name      string     `json:"name" gorm:"size:200;not null"`
	BaseCost  float64    `json:"base_cost" gorm:"type:decimal(15,2);not null"`
	Unit      string     `json:"unit" gorm:"size:20;default:package"`
	Status    string     `json:"status" gorm:"size:20;default:active"`
	Notes     string     `json:"notes" gorm:"type:text"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at" gorm:"index"`
}

func (Service) TableName() string {
	return "crm_services"
}
