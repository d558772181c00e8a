package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-crm/internal/crm/entity"
	"gorm.io/gorm"
)

// OpportunityRepository 商机仓库
type OpportunityRepository struct {
	db *gorm.DB
}

func NewOpportunityRepository(db *gorm.DB) *OpportunityRepository {
	return &OpportunityRepository{db: db}
}

// OpportunityListParams 商机列表查询参数
type OpportunityListParams struct {
	Status        string
	Priority      string
	BusinessField string
	CreatedBy     string
	Keyword       string
	Page          int
	PageSize      int
}

// FindAll 查询商机列表
func (r *OpportunityRepository) FindAll(ctx context.Context, params OpportunityListParams) ([]entity.Opportunity, int64, error) {
	var items []entity.Opportunity
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Opportunity{})

	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.Priority != "" {
		query = query.Where("priority = ?", params.Priority)
	}
	if params.BusinessField != "" {
		query = query.Where("business_field = ?", params.BusinessField)
	}
	if params.CreatedBy != "" {
		query = query.Where("created_by = ?", params.CreatedBy)
	}
	if params.Keyword != "" {
		query = query.Where("name ILIKE ? OR code ILIKE ?", "%"+params.Keyword+"%", "%"+params.Keyword+"%")
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
		Preload("Customer").
		Preload("Services").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找商机（含服务行）
func (r *OpportunityRepository) FindByID(ctx context.Context, id string) (*entity.Opportunity, error) {
	var opp entity.Opportunity
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Preload("Referral").
		Preload("Services", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Preload("Services.Service").
		Where("id = ?", id).
		First(&opp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &opp, nil
}

// FindAllForReport 读取聚合所需的商机快照（含服务行，不分页）
func (r *OpportunityRepository) FindAllForReport(ctx context.Context) ([]entity.Opportunity, error) {
	var items []entity.Opportunity
	err := r.db.WithContext(ctx).
		Preload("Services").
		Find(&items).Error
	return items, err
}

// Create 创建商机及服务行
func (r *OpportunityRepository) Create(ctx context.Context, opp *entity.Opportunity) error {
	return r.db.WithContext(ctx).Create(opp).Error
}

// Update 更新商机
func (r *OpportunityRepository) Update(ctx context.Context, opp *entity.Opportunity) error {
	return r.db.WithContext(ctx).Save(opp).Error
}

// UpdateStatusGuarded 状态守卫更新：仅当当前状态等于 from 时更新为 to，
// 返回受影响的行数。并发竞争的失败方会看到 0 行。
func (r *OpportunityRepository) UpdateStatusGuarded(ctx context.Context, id, from, to string, extra map[string]interface{}) (int64, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).Model(&entity.Opportunity{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// ReplaceServices 替换商机服务行
func (r *OpportunityRepository) ReplaceServices(ctx context.Context, oppID string, lines []entity.OpportunityService) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("opportunity_id = ?", oppID).Delete(&entity.OpportunityService{}).Error; err != nil {
			return err
		}
		if len(lines) == 0 {
			return nil
		}
		return tx.Create(&lines).Error
	})
}
