package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-crm/internal/crm/entity"
	"gorm.io/gorm"
)

// CustomerRepository 客户/引荐方仓库
type CustomerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// CustomerListParams 客户列表查询参数
type CustomerListParams struct {
	Status     string
	Source     string
	ReferralID string
	Keyword    string
	Page       int
	PageSize   int
}

// FindAll 查询客户列表
func (r *CustomerRepository) FindAll(ctx context.Context, params CustomerListParams) ([]entity.Customer, int64, error) {
	var items []entity.Customer
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Customer{})

	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.Source != "" {
		query = query.Where("source = ?", params.Source)
	}
	if params.ReferralID != "" {
		query = query.Where("referral_id = ?", params.ReferralID)
	}
	if params.Keyword != "" {
		query = query.Where("name ILIKE ?", "%"+params.Keyword+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := params.Page
	if page < 1 {
		page = 1
	}
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找客户
func (r *CustomerRepository) FindByID(ctx context.Context, id string) (*entity.Customer, error) {
	var customer entity.Customer
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&customer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &customer, nil
}

// Create 创建客户
func (r *CustomerRepository) Create(ctx context.Context, customer *entity.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

// Update 更新客户
func (r *CustomerRepository) Update(ctx context.Context, customer *entity.Customer) error {
	return r.db.WithContext(ctx).Save(customer).Error
}

// --- ReferralPartner ---

// FindReferralByID 根据ID查找引荐方
func (r *CustomerRepository) FindReferralByID(ctx context.Context, id string) (*entity.ReferralPartner, error) {
	var referral entity.ReferralPartner
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&referral).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &referral, nil
}

// FindAllReferrals 查询引荐方列表
func (r *CustomerRepository) FindAllReferrals(ctx context.Context) ([]entity.ReferralPartner, error) {
	var items []entity.ReferralPartner
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&items).Error
	return items, err
}

// CreateReferral 创建引荐方
func (r *CustomerRepository) CreateReferral(ctx context.Context, referral *entity.ReferralPartner) error {
	return r.db.WithContext(ctx).Create(referral).Error
}
