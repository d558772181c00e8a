package service

import (
	"context"

	"github.com/bitfantasy/nimo-crm/internal/crm/apperr"
	"github.com/bitfantasy/nimo-crm/internal/crm/entity"
	"github.com/bitfantasy/nimo-crm/internal/crm/repository"
	"github.com/google/uuid"
)

// DirectoryService 客户与引荐方目录
type DirectoryService struct {
	repo *repository.CustomerRepository
}

func NewDirectoryService(repo *repository.CustomerRepository) *DirectoryService {
	return &DirectoryService{repo: repo}
}

// CreateCustomerRequest 创建客户请求。上游导入的字段形态不统一
// （name/customer_name/full_name），在这里归一化成固定结构，
// 核心流程不再做字段猜测。
type CreateCustomerRequest struct {
	Name         string `json:"name"`
	CustomerName string `json:"customer_name"`
	FullName     string `json:"full_name"`
	ContactName  string `json:"contact_name"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	Address      string `json:"address"`
	TaxCode      string `json:"tax_code"`
	Source       string `json:"source"`
	ReferralID   string `json:"referral_id"`
	Notes        string `json:"notes"`
}

// normalizedName 归一化客户名称
func (r CreateCustomerRequest) normalizedName() string {
	if r.Name != "" {
		return r.Name
	}
	if r.CustomerName != "" {
		return r.CustomerName
	}
	return r.FullName
}

// CreateCustomer 创建客户
func (s *DirectoryService) CreateCustomer(ctx context.Context, req CreateCustomerRequest, actor Actor) (*entity.Customer, error) {
	name := req.normalizedName()
	if name == "" {
		return nil, apperr.Validation("name", "客户名称不能为空")
	}

	source := req.Source
	if source == "" {
		source = entity.CustomerSourceDirect
	}
	if source == entity.CustomerSourceReferral {
		if req.ReferralID == "" {
			return nil, apperr.Validation("referral_id", "引荐来源的客户必须关联引荐方")
		}
		if _, err := s.repo.FindReferralByID(ctx, req.ReferralID); err != nil {
			if err == repository.ErrNotFound {
				return nil, apperr.NotFound("引荐方")
			}
			return nil, apperr.Upstream("客户目录", err)
		}
	}

	customer := &entity.Customer{
		ID:          uuid.New().String(),
		Code:        generateCode("CUS"),
		Name:        name,
		ContactName: req.ContactName,
		Phone:       req.Phone,
		Email:       req.Email,
		Address:     req.Address,
		TaxCode:     req.TaxCode,
		Source:      source,
		ReferralID:  req.ReferralID,
		Status:      entity.CustomerStatusActive,
		Notes:       req.Notes,
		CreatedBy:   actor.ID,
	}
	if err := s.repo.Create(ctx, customer); err != nil {
		return nil, apperr.Upstream("客户", err)
	}
	return customer, nil
}

// GetCustomer 获取客户
func (s *DirectoryService) GetCustomer(ctx context.Context, id string) (*entity.Customer, error) {
	customer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, apperr.NotFound("客户")
		}
		return nil, apperr.Upstream("客户", err)
	}
	return customer, nil
}

// ListCustomers 查询客户列表
func (s *DirectoryService) ListCustomers(ctx context.Context, params repository.CustomerListParams) ([]entity.Customer, int64, error) {
	items, total, err := s.repo.FindAll(ctx, params)
	if err != nil {
		return nil, 0, apperr.Upstream("客户", err)
	}
	return items, total, nil
}

// CreateReferralRequest 创建引荐方请求
type CreateReferralRequest struct {
	Name        string `json:"name" binding:"required"`
	ContactName string `json:"contact_name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
}

// CreateReferral 创建引荐方
func (s *DirectoryService) CreateReferral(ctx context.Context, req CreateReferralRequest) (*entity.ReferralPartner, error) {
	if req.Name == "" {
		return nil, apperr.Validation("name", "引荐方名称不能为空")
	}
	referral := &entity.ReferralPartner{
		ID:     uuid.New().String(),
		Code:   generateCode("REF"),
		Name:   req.Name,
		ContactName: req.ContactName,
		Phone:  req.Phone,
		Email:  req.Email,
		Status: "active",
	}
	if err := s.repo.CreateReferral(ctx, referral); err != nil {
		return nil, apperr.Upstream("引荐方", err)
	}
	return referral, nil
}

// ListReferrals 查询引荐方列表
func (s *DirectoryService) ListReferrals(ctx context.Context) ([]entity.ReferralPartner, error) {
	items, err := s.repo.FindAllReferrals(ctx)
	if err != nil {
		return nil, apperr.Upstream("引荐方", err)
	}
	return items, nil
}
