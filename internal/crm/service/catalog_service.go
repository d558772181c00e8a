package service

import (
	"context"

	"github.com/bitfantasy/nimo-crm/internal/crm/apperr"
	"github.com/bitfantasy/nimo-crm/internal/crm/entity"
	"github.com/bitfantasy/nimo-crm/internal/crm/repository"
	"github.com/google/uuid"
)

// CatalogService 服务目录管理。工作流核心只读目录，
// 增改入口属于目录管理协作方。
type CatalogService struct {
	repo *repository.CatalogRepository
}

func NewCatalogService(repo *repository.CatalogRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

// CreateServiceRequest 创建服务请求
type CreateServiceRequest struct {
	Name     string  `json:"name" binding:"required"`
	BaseCost float64 `json:"base_cost" binding:"required,gt=0"`
	Unit     string  `json:"unit"`
	Notes    string  `json:"notes"`
}

// Create 创建服务
func (s *CatalogService) Create(ctx context.Context, req CreateServiceRequest) (*entity.Service, error) {
	if req.BaseCost <= 0 {
		return nil, apperr.Validation("base_cost", "服务成本必须大于0")
	}
	unit := req.Unit
	if unit == "" {
		unit = "package"
	}
	svc := &entity.Service{
		ID:       uuid.New().String(),
		Code:     generateCode("SVC"),
		Name:     req.Name,
		BaseCost: req.BaseCost,
		Unit:     unit,
		Status:   entity.ServiceStatusActive,
		Notes:    req.Notes,
	}
	if err := s.repo.Create(ctx, svc); err != nil {
		return nil, apperr.Upstream("服务目录", err)
	}
	return svc, nil
}

// Get 获取服务
func (s *CatalogService) Get(ctx context.Context, id string) (*entity.Service, error) {
	svc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, apperr.NotFound("服务")
		}
		return nil, apperr.Upstream("服务目录", err)
	}
	return svc, nil
}

// List 查询服务目录
func (s *CatalogService) List(ctx context.Context, status string) ([]entity.Service, error) {
	items, err := s.repo.FindAll(ctx, status)
	if err != nil {
		return nil, apperr.Upstream("服务目录", err)
	}
	return items, nil
}
