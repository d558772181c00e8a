package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-crm/internal/crm/apperr"
	"github.com/bitfantasy/nimo-crm/internal/crm/entity"
	"github.com/bitfantasy/nimo-crm/internal/crm/pricing"
	"github.com/bitfantasy/nimo-crm/internal/crm/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OpportunityService 商机状态机：
// draft → waiting_bod_approval → approved → quoted ⇄ quote_rejected → contract_created，
// waiting_bod_approval 可进入终态 rejected。
type OpportunityService struct {
	db          *gorm.DB
	repo        *repository.OpportunityRepository
	customerRepo *repository.CustomerRepository
	catalogRepo *repository.CatalogRepository
	quoteRepo   *repository.QuoteRepository
	projectRepo *repository.ProjectRepository
	policy      pricing.Policy
}

func NewOpportunityService(db *gorm.DB, repos *repository.Repositories, policy pricing.Policy) *OpportunityService {
	return &OpportunityService{
		db:           db,
		repo:         repos.Opportunity,
		customerRepo: repos.Customer,
		catalogRepo:  repos.Catalog,
		quoteRepo:    repos.Quote,
		projectRepo:  repos.Project,
		policy:       policy,
	}
}

// ServiceLineInput 服务行输入
type ServiceLineInput struct {
	ServiceID     string   `json:"service_id" binding:"required"`
	Quantity      int      `json:"quantity" binding:"required,min=1"`
	ProposedPrice *float64 `json:"proposed_price"`
}

// AttachmentInput 附件输入
type AttachmentInput struct {
	Name string `json:"name"`
	URL  string `json:"url" binding:"required"`
	Type string `json:"type"` // file/link
}

// CreateOpportunityRequest 创建商机请求
type CreateOpportunityRequest struct {
	Name                 string             `json:"name" binding:"required"`
	Description          string             `json:"description" binding:"required"`
	BusinessField        string             `json:"business_field" binding:"required"`
	Priority             string             `json:"priority"`
	Region               string             `json:"region"`
	ExpectedRevenue      float64            `json:"expected_revenue" binding:"required"`
	ExpectedBudget       float64            `json:"expected_budget" binding:"required"`
	SuccessRate          int                `json:"success_rate"`
	StartDate            string             `json:"start_date" binding:"required"`
	EndDate              string             `json:"end_date" binding:"required"`
	ImplementationMonths int                `json:"implementation_months" binding:"required,min=1"`
	CustomerSource       string             `json:"customer_source"`
	CustomerID           string             `json:"customer_id"`
	CustomerTemp         entity.JSONB       `json:"customer_temp"`
	ReferralID           string             `json:"referral_id"`
	Attachments          []AttachmentInput  `json:"attachments"`
	Services             []ServiceLineInput `json:"services" binding:"required,min=1"`
}

// UpdateCustomerInfoRequest 审批前客户信息修改请求
type UpdateCustomerInfoRequest struct {
	CustomerSource string       `json:"customer_source"`
	CustomerID     string       `json:"customer_id"`
	CustomerTemp   entity.JSONB `json:"customer_temp"`
	ReferralID     string       `json:"referral_id"`
}

// Create 创建商机，初始状态为 draft
func (s *OpportunityService) Create(ctx context.Context, req CreateOpportunityRequest, actor Actor) (*entity.Opportunity, error) {
	if len(req.Services) == 0 {
		return nil, apperr.Validation("services", "至少需要一个服务行")
	}
	for i, line := range req.Services {
		if line.ServiceID == "" {
			return nil, apperr.Validationf("services", "第%d个服务行缺少 service_id", i+1)
		}
		if line.Quantity < 1 {
			return nil, apperr.Validationf("services", "第%d个服务行数量必须大于等于1", i+1)
		}
	}
	if req.SuccessRate < 0 || req.SuccessRate > 100 {
		return nil, apperr.Validation("success_rate", "成功率必须在0-100之间")
	}
	if len(req.Attachments) > 5 {
		return nil, apperr.Validation("attachments", "附件不能超过5个")
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, apperr.Validation("start_date", "无效的开始日期")
	}
	endDate, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, apperr.Validation("end_date", "无效的结束日期")
	}
	if endDate.Before(startDate) {
		return nil, apperr.Validation("end_date", "结束日期不能早于开始日期")
	}

	source := req.CustomerSource
	if source == "" {
		source = entity.CustomerSourceDirect
	}
	if err := s.validateCustomerInfo(ctx, source, req.CustomerID, req.CustomerTemp, req.ReferralID); err != nil {
		return nil, err
	}

	priority := req.Priority
	if priority == "" {
		priority = entity.PriorityMedium
	}

	// 从服务目录解析成本并计算预期价格
	serviceIDs := make([]string, 0, len(req.Services))
	for _, line := range req.Services {
		serviceIDs = append(serviceIDs, line.ServiceID)
	}
	catalog, err := s.catalogRepo.FindMapByIDs(ctx, serviceIDs)
	if err != nil {
		return nil, apperr.Upstream("服务目录", err)
	}

	opp := &entity.Opportunity{
		ID:                   uuid.New().String(),
		Code:                 generateCode("OPP"),
		Name:                 req.Name,
		Description:          req.Description,
		Status:               entity.OppStatusDraft,
		Priority:             priority,
		Region:               req.Region,
		BusinessField:        req.BusinessField,
		ImplementationMonths: req.ImplementationMonths,
		SuccessRate:          req.SuccessRate,
		StartDate:            &startDate,
		EndDate:              &endDate,
		ExpectedRevenue:      req.ExpectedRevenue,
		ExpectedBudget:       req.ExpectedBudget,
		CustomerSource:       source,
		CustomerID:           req.CustomerID,
		CustomerTemp:         req.CustomerTemp,
		ReferralID:           req.ReferralID,
		CreatedBy:            actor.ID,
	}

	for _, att := range req.Attachments {
		attType := att.Type
		if attType == "" {
			attType = "file"
		}
		opp.Attachments = append(opp.Attachments, map[string]interface{}{
			"name": att.Name,
			"url":  att.URL,
			"type": attType,
		})
	}

	lines := make([]entity.OpportunityService, 0, len(req.Services))
	for i, line := range req.Services {
		lines = append(lines, entity.OpportunityService{
			ID:            uuid.New().String(),
			OpportunityID: opp.ID,
			ServiceID:     line.ServiceID,
			Quantity:      line.Quantity,
			ProposedPrice: line.ProposedPrice,
			SortOrder:     i,
		})
	}
	opp.Services = lines

	priceRes := pricing.ExpectedPrice(lines, catalog)
	opp.ExpectedPrice = priceRes.Amount
	opp.PriceIncomplete = priceRes.Incomplete

	if err := s.repo.Create(ctx, opp); err != nil {
		return nil, apperr.Upstream("商机", err)
	}
	return s.repo.FindByID(ctx, opp.ID)
}

// validateCustomerInfo 客户信息规则：customer_id 与 customer_temp 二选一，
// referral 来源必须携带 referral_id
func (s *OpportunityService) validateCustomerInfo(ctx context.Context, source, customerID string, customerTemp entity.JSONB, referralID string) error {
	if customerID != "" && len(customerTemp) > 0 {
		return apperr.Validation("customer_id", "customer_id 与 customer_temp 不能同时填写")
	}
	if source == entity.CustomerSourceReferral && referralID == "" {
		return apperr.Validation("referral_id", "引荐来源的商机必须关联引荐方")
	}
	if source != entity.CustomerSourceDirect && source != entity.CustomerSourceReferral {
		return apperr.Validation("customer_source", "无效的客户来源")
	}
	if customerID != "" {
		if _, err := s.customerRepo.FindByID(ctx, customerID); err != nil {
			if err == repository.ErrNotFound {
				return apperr.NotFound("客户")
			}
			return apperr.Upstream("客户目录", err)
		}
	}
	if referralID != "" {
		if _, err := s.customerRepo.FindReferralByID(ctx, referralID); err != nil {
			if err == repository.ErrNotFound {
				return apperr.NotFound("引荐方")
			}
			return apperr.Upstream("客户目录", err)
		}
	}
	return nil
}

// Get 获取商机详情
func (s *OpportunityService) Get(ctx context.Context, id string) (*entity.Opportunity, error) {
	opp, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, apperr.NotFound("商机")
		}
		return nil, apperr.Upstream("商机", err)
	}
	return opp, nil
}

// List 查询商机列表
func (s *OpportunityService) List(ctx context.Context, params repository.OpportunityListParams) ([]entity.Opportunity, int64, error) {
	items, total, err := s.repo.FindAll(ctx, params)
	if err != nil {
		return nil, 0, apperr.Upstream("商机", err)
	}
	return items, total, nil
}

// UpdateCustomerInfo 审批通过前允许修改客户信息
func (s *OpportunityService) UpdateCustomerInfo(ctx context.Context, id string, req UpdateCustomerInfoRequest) (*entity.Opportunity, error) {
	opp, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if opp.Status != entity.OppStatusDraft && opp.Status != entity.OppStatusWaitingBOD {
		return nil, apperr.InvalidTransition("商机", opp.Status, "update_customer_info")
	}

	source := req.CustomerSource
	if source == "" {
		source = opp.CustomerSource
	}
	if err := s.validateCustomerInfo(ctx, source, req.CustomerID, req.CustomerTemp, req.ReferralID); err != nil {
		return nil, err
	}

	opp.CustomerSource = source
	opp.CustomerID = req.CustomerID
	opp.CustomerTemp = req.CustomerTemp
	opp.ReferralID = req.ReferralID
	if err := s.repo.Update(ctx, opp); err != nil {
		return nil, apperr.Upstream("商机", err)
	}
	return s.Get(ctx, id)
}

// Submit 提交BOD审批：draft → waiting_bod_approval
func (s *OpportunityService) Submit(ctx context.Context, id string) (*entity.Opportunity, error) {
	opp, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.UpdateStatusGuarded(ctx, id, entity.OppStatusDraft, entity.OppStatusWaitingBOD, nil)
	if err != nil {
		return nil, apperr.Upstream("商机", err)
	}
	if rows == 0 {
		return nil, apperr.InvalidTransition("商机", opp.Status, "submit")
	}
	return s.Get(ctx, id)
}

// Approve BOD审批通过：waiting_bod_approval → approved。
// 前置条件：客户信息必须已填写（customer_id 或 customer_temp）。
func (s *OpportunityService) Approve(ctx context.Context, id string, actor Actor) (*entity.Opportunity, error) {
	if !actor.IsApprover() {
		return nil, apperr.Authorization("只有BOD或管理员可以审批商机")
	}
	opp, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if opp.Status != entity.OppStatusWaitingBOD {
		return nil, apperr.InvalidTransition("商机", opp.Status, "approve")
	}
	if !opp.HasCustomerInfo() {
		return nil, apperr.Precondition("商机", "缺少客户信息：需要关联客户或填写临时客户")
	}

	now := time.Now()
	rows, err := s.repo.UpdateStatusGuarded(ctx, id, entity.OppStatusWaitingBOD, entity.OppStatusApproved, map[string]interface{}{
		"approved_by": actor.ID,
		"approved_at": now,
	})
	if err != nil {
		return nil, apperr.Upstream("商机", err)
	}
	if rows == 0 {
		// 并发竞争：重读后报告实际状态
		current, gerr := s.Get(ctx, id)
		if gerr != nil {
			return nil, gerr
		}
		return nil, apperr.InvalidTransition("商机", current.Status, "approve")
	}
	return s.Get(ctx, id)
}

// Reject BOD驳回：waiting_bod_approval → rejected（终态）
func (s *OpportunityService) Reject(ctx context.Context, id string, actor Actor) (*entity.Opportunity, error) {
	if !actor.IsApprover() {
		return nil, apperr.Authorization("只有BOD或管理员可以驳回商机")
	}
	opp, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	rows, err := s.repo.UpdateStatusGuarded(ctx, id, entity.OppStatusWaitingBOD, entity.OppStatusRejected, map[string]interface{}{
		"rejected_by": actor.ID,
		"rejected_at": now,
	})
	if err != nil {
		return nil, apperr.Upstream("商机", err)
	}
	if rows == 0 {
		return nil, apperr.InvalidTransition("商机", opp.Status, "reject")
	}
	return s.Get(ctx, id)
}

// ConvertToContract 转化为合同：quoted → contract_created。
// 前置条件：当前生效报价单已审批通过。
func (s *OpportunityService) ConvertToContract(ctx context.Context, id string, actor Actor) (*entity.Contract, error) {
	opp, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if opp.Status != entity.OppStatusQuoted {
		return nil, apperr.InvalidTransition("商机", opp.Status, "convert_to_contract")
	}

	quote, err := s.quoteRepo.FindActiveByOpportunity(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, apperr.Precondition("商机", "商机没有生效的报价单")
		}
		return nil, apperr.Upstream("报价单", err)
	}
	if quote.Status != entity.QuoteStatusApproved {
		return nil, apperr.Precondition("商机", fmt.Sprintf("报价单尚未审批通过（当前状态: %s）", quote.Status))
	}

	contract := &entity.Contract{
		ID:            uuid.New().String(),
		Code:          generateCode("CT"),
		OpportunityID: opp.ID,
		QuoteID:       quote.ID,
		TotalValue:    quote.TotalRevenue,
		Status:        entity.ContractStatusActive,
		CreatedBy:     actor.ID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entity.Opportunity{}).
			Where("id = ? AND status = ?", id, entity.OppStatusQuoted).
			Update("status", entity.OppStatusContractCreated)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.InvalidTransition("商机", opp.Status, "convert_to_contract")
		}
		return tx.Create(contract).Error
	})
	if err != nil {
		if apperr.IsKind(err, apperr.KindInvalidTransition) {
			return nil, err
		}
		return nil, apperr.Upstream("合同", err)
	}
	return contract, nil
}

// generateCode 业务编码：前缀 + 日期 + 随机尾号
func generateCode(prefix string) string {
	return fmt.Sprintf("%s-%s%04d", prefix, time.Now().Format("20060102"), time.Now().UnixNano()%10000)
}
