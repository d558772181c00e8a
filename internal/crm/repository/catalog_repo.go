package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-crm/internal/crm/entity"
	"gorm.io/gorm"
)

// CatalogRepository 服务目录仓库，工作流核心只读
type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// FindAll 查询服务目录
func (r *CatalogRepository) FindAll(ctx context.Context, status string) ([]entity.Service, error) {
	var items []entity.Service
	query := r.db.WithContext(ctx).Model(&entity.Service{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Order("code ASC").Find(&items).Error
	return items, err
}

// FindByID 根据ID查找服务
func (r *CatalogRepository) FindByID(ctx context.Context, id string) (*entity.Service, error) {
	var svc entity.Service
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&svc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &svc, nil
}

// FindMapByIDs 按ID集合加载服务映射，供报价计算器使用
func (r *CatalogRepository) FindMapByIDs(ctx context.Context, ids []string) (map[string]entity.Service, error) {
	catalog := make(map[string]entity.Service, len(ids))
	if len(ids) == 0 {
		return catalog, nil
	}
	var items []entity.Service
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	for _, svc := range items {
		catalog[svc.ID] = svc
	}
	return catalog, nil
}

// Create 创建服务（目录管理协作方入口）
func (r *CatalogRepository) Create(ctx context.Context, svc *entity.Service) error {
	return r.db.WithContext(ctx).Create(svc).Error
}

// Update 更新服务
func (r *CatalogRepository) Update(ctx context.Context, svc *entity.Service) error {
	return r.db.WithContext(ctx).Save(svc).Error
}
