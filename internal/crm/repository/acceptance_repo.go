package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-crm/internal/crm/entity"
	"gorm.io/gorm"
)

// AcceptanceRepository 验收单仓库
type AcceptanceRepository struct {
	db *gorm.DB
}

func NewAcceptanceRepository(db *gorm.DB) *AcceptanceRepository {
	return &AcceptanceRepository{db: db}
}

// AcceptanceListParams 验收单列表查询参数
type AcceptanceListParams struct {
	ProjectID  string
	ContractID string
	Status     string
	Page       int
	PageSize   int
}

// FindAll 查询验收单列表
func (r *AcceptanceRepository) FindAll(ctx context.Context, params AcceptanceListParams) ([]entity.Acceptance, int64, error) {
	var items []entity.Acceptance
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Acceptance{})

	if params.ProjectID != "" {
		query = query.Where("project_id = ?", params.ProjectID)
	}
	if params.ContractID != "" {
		query = query.Where("contract_id = ?", params.ContractID)
	}
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
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
		Preload("Jobs").
		Preload("Jobs.Job").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找验收单（含任务关联）
func (r *AcceptanceRepository) FindByID(ctx context.Context, id string) (*entity.Acceptance, error) {
	var acc entity.Acceptance
	err := r.db.WithContext(ctx).
		Preload("Jobs", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Preload("Jobs.Job").
		Where("id = ?", id).
		First(&acc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &acc, nil
}

// Create 创建验收单及任务关联
func (r *AcceptanceRepository) Create(ctx context.Context, acc *entity.Acceptance) error {
	return r.db.WithContext(ctx).Create(acc).Error
}

// UpdateStatusGuarded 状态守卫更新，返回受影响行数
func (r *AcceptanceRepository) UpdateStatusGuarded(ctx context.Context, id, from, to string, extra map[string]interface{}) (int64, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).Model(&entity.Acceptance{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}
