package entity

import "time"

// UserRole 用户角色
const (
	RoleSales = "sales"
	RoleBOD   = "bod"
	RoleAdmin = "admin"
)

// User 用户实体
type User struct {
	ID           string     `json:"id" gorm:"primaryKey;size:36"`
	Username     string     `json:"username" gorm:"size:64;not null;uniqueIndex"`
	PasswordHash string     `json:"-" gorm:"size:128;not null"`
	Name         string     `json:"name" gorm:"size:64;not null"`
	Email        string     `json:"email" gorm:"size:128;uniqueIndex"`
	Role         string     `json:"role" gorm:"size:16;not null;default:sales"`
	Status       string     `json:"status" gorm:"size:16;not null;default:active"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at" gorm:"index"`
}

func (User) TableName() string {
	return "crm_users"
}

// IsApprover BOD 审批权限
func (u *User) IsApprover() bool {
	return u.Role == RoleBOD || u.Role == RoleAdmin
}
