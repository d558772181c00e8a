package entity

import "time"

// QuoteStatus 报价单状态
const (
	QuoteStatusPending  = "pending"
	QuoteStatusApproved = "approved"
	QuoteStatusRejected = "rejected"
)

// Quote 报价单。重新报价时插入新记录并将旧记录 is_active 置 false，
// 历史报价与审批意见保留可查。
type Quote struct {
	ID            string `json:"id" gorm:"primaryKey;size:36"`
	Code          string `json:"code" gorm:"size:32;uniqueIndex;not null"`
	OpportunityID string `json:"opportunity_id" gorm:"size:36;not null;index"`
	Status        string `json:"status" gorm:"size:20;not null;default:pending"`
	IsActive      bool   `json:"is_active" gorm:"default:true;index"`

	TotalRevenue float64 `json:"total_revenue" gorm:"type:decimal(15,2);default:0"`
	TotalCost    float64 `json:"total_cost" gorm:"type:decimal(15,2);default:0"`
	MarginPct    float64 `json:"margin_pct" gorm:"type:decimal(8,4);default:0"`

	Note      string     `json:"note" gorm:"type:text"`
	CreatedBy string     `json:"created_by" gorm:"size:36;not null"`
	DecidedBy string     `json:"decided_by" gorm:"size:36"`
	DecidedAt *time.Time `json:"decided_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// 关联
	Items       []QuoteItem  `json:"items,omitempty" gorm:"foreignKey:QuoteID"`
	Opportunity *Opportunity `json:"opportunity,omitempty" gorm:"foreignKey:OpportunityID"`
}

func (Quote) TableName() string {
	return "crm_quotes"
}

// QuoteItem 报价行项。base_cost 为报价时点的服务成本快照。
type QuoteItem struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	QuoteID   string    `json:"quote_id" gorm:"size:36;not null;index"`
	ServiceID string    `json:"service_id" gorm:"size:36;not null"`
	Quantity  int       `json:"quantity" gorm:"not null;default:1"`
	UnitPrice float64   `json:"unit_price" gorm:"type:decimal(15,2);not null"`
	BaseCost  float64   `json:"base_cost" gorm:"type:decimal(15,2);not null"`
	Amount    float64   `json:"amount" gorm:"type:decimal(15,2);not null"`
	SortOrder int       `json:"sort_order" gorm:"default:0"`
	CreatedAt time.Time `json:"created_at"`

	Service *Service `json:"service,omitempty" gorm:"foreignKey:ServiceID"`
}

func (QuoteItem) TableName() string {
	return "crm_quote_items"
}
