package entity

import "time"

// CustomerStatus 客户状态
const (
	CustomerStatusActive   = "active"
	CustomerStatusInactive = "inactive"
)

// Customer 客户。上游字段形态在 handler 边界归一化为此固定结构。
type Customer struct {
	ID          string     `json:"id" gorm:"primaryKey;size:36"`
	Code        string     `json:"code" gorm:"size:32;uniqueIndex;not null"`
	Name        string     `json:"name" gorm:"size:200;not null"`
	ContactName string     `json:"contact_name" gorm:"size:100"`
	Phone       string     `json:"phone" gorm:"size:20"`
	Email       string     `json:"email" gorm:"size:128"`
	Address     string     `json:"address" gorm:"size:500"`
	TaxCode     string     `json:"tax_code" gorm:"size:50"`
	Source      string     `json:"source" gorm:"size:16;default:direct"` // direct/referral
	ReferralID  string     `json:"referral_id" gorm:"size:36;index"`
	Status      string     `json:"status" gorm:"size:20;default:active"`
	Notes       string     `json:"notes" gorm:"type:text"`
	CreatedBy   string     `json:"created_by" gorm:"size:36"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at" gorm:"index"`

	Referral *ReferralPartner `json:"referral,omitempty" gorm:"foreignKey:ReferralID"`
}

func (Customer) TableName() string {
	return "crm_customers"
}

// ReferralPartner 渠道引荐方
type ReferralPartner struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	Code        string    `json:"code" gorm:"size:32;uniqueIndex;not null"`
	Name        string    `json:"name" gorm:"size:200;not null"`
	ContactName string    `json:"contact_name" gorm:"size:100"`
	Phone       string    `json:"phone" gorm:"size:20"`
	Email       string    `json:"email" gorm:"size:128"`
	Status      string    `json:"status" gorm:"size:20;default:active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (ReferralPartner) TableName() string {
	return "crm_referral_partners"
}
