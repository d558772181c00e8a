package entity

import "time"

// OpportunityStatus 商机状态
const (
	OppStatusDraft           = "draft"
	OppStatusWaitingBOD      = "waiting_bod_approval"
	OppStatusApproved        = "approved"
	OppStatusQuoted          = "quoted"
	OppStatusQuoteRejected   = "quote_rejected"
	OppStatusContractCreated = "contract_created"
	OppStatusRejected        = "rejected"
)

// OpportunityPriority 商机优先级
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// CustomerSource 客户来源
const (
	CustomerSourceDirect   = "direct"
	CustomerSourceReferral = "referral"
)

// Opportunity 销售商机
type Opportunity struct {
	ID                   string     `json:"id" gorm:"primaryKey;size:36"`
	Code                 string     `json:"code" gorm:"size:32;uniqueIndex;not null"`
	Name                 string     `json:"name" gorm:"size:200;not null"`
	Description          string     `json:"description" gorm:"type:text"`
	Status               string     `json:"status" gorm:"size:30;not null;default:draft;index"`
	Priority             string     `json:"priority" gorm:"size:16;default:medium"`
	Region               string     `json:"region" gorm:"size:100"`
	BusinessField        string     `json:"business_field" gorm:"size:50;not null"`
	ImplementationMonths int        `json:"implementation_months" gorm:"default:1"`
	SuccessRate          int        `json:"success_rate" gorm:"default:0"` // 0-100
	StartDate            *time.Time `json:"start_date"`
	EndDate              *time.Time `json:"end_date"`

	// 金额：expected_price 由报价计算器从服务目录推导
	ExpectedPrice   float64 `json:"expected_price" gorm:"type:decimal(15,2);default:0"`
	PriceIncomplete bool    `json:"price_incomplete" gorm:"default:false"` // 含无法解析的服务行
	ExpectedRevenue float64 `json:"expected_revenue" gorm:"type:decimal(15,2);default:0"`
	ExpectedBudget  float64 `json:"expected_budget" gorm:"type:decimal(15,2);default:0"`

	// 客户：customer_id 与 customer_temp 二选一
	CustomerSource string `json:"customer_source" gorm:"size:16;default:direct"` // direct/referral
	CustomerID     string `json:"customer_id" gorm:"size:36;index"`
	CustomerTemp   JSONB  `json:"customer_temp" gorm:"type:jsonb"`
	ReferralID     string `json:"referral_id" gorm:"size:36"`

	Attachments JSONBArray `json:"attachments" gorm:"type:jsonb"` // [{name,url,type}]

	CreatedBy  string     `json:"created_by" gorm:"size:36;not null"`
	ApprovedBy string     `json:"approved_by" gorm:"size:36"`
	ApprovedAt *time.Time `json:"approved_at"`
	RejectedBy string     `json:"rejected_by" gorm:"size:36"`
	RejectedAt *time.Time `json:"rejected_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	DeletedAt  *time.Time `json:"deleted_at" gorm:"index"`

	// 关联
	Customer *Customer            `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	Referral *ReferralPartner     `json:"referral,omitempty" gorm:"foreignKey:ReferralID"`
	Services []OpportunityService `json:"services,omitempty" gorm:"foreignKey:OpportunityID"`
	Quotes   []Quote              `json:"quotes,omitempty" gorm:"foreignKey:OpportunityID"`
}

func (Opportunity) TableName() string {
	return "crm_opportunities"
}

// HasCustomerInfo 审批前置条件：已关联客户或填写了临时客户
func (o *Opportunity) HasCustomerInfo() bool {
	return o.CustomerID != "" || len(o.CustomerTemp) > 0
}

// OpportunityService 商机服务行项
type OpportunityService struct {
	ID            string     `json:"id" gorm:"primaryKey;size:36"`
	OpportunityID string     `json:"opportunity_id" gorm:"size:36;not null;index"`
	ServiceID     string     `json:"service_id" gorm:"size:36;not null;index"`
	Quantity      int        `json:"quantity" gorm:"not null;default:1"`
	ProposedPrice *float64   `json:"proposed_price" gorm:"type:decimal(15,2)"` // 报价前为空
	SortOrder     int        `json:"sort_order" gorm:"default:0"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	Service *Service `json:"service,omitempty" gorm:"foreignKey:ServiceID"`
}

func (OpportunityService) TableName() string {
	return "crm_opportunity_services"
}
