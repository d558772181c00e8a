package service

import (
	"context"
	"time"

	"github.com/bitfantasy/nimo-crm/internal/crm/apperr"
	"github.com/bitfantasy/nimo-crm/internal/crm/entity"
	"github.com/bitfantasy/nimo-crm/internal/crm/pricing"
	"github.com/bitfantasy/nimo-crm/internal/crm/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QuoteService 报价子流程：pending → approved|rejected。
// 驳回后重新报价会插入新报价记录并替换旧记录（is_active），
// 商机状态随之 quote_rejected → quoted。
type QuoteService struct {
	db          *gorm.DB
	repo        *repository.QuoteRepository
	oppRepo     *repository.OpportunityRepository
	catalogRepo *repository.CatalogRepository
	policy      pricing.Policy
}

func NewQuoteService(db *gorm.DB, repos *repository.Repositories, policy pricing.Policy) *QuoteService {
	return &QuoteService{
		db:          db,
		repo:        repos.Quote,
		oppRepo:     repos.Opportunity,
		catalogRepo: repos.Catalog,
		policy:      policy,
	}
}

// QuoteLineInput 报价行输入
type QuoteLineInput struct {
	ServiceID string  `json:"service_id" binding:"required"`
	Quantity  int     `json:"quantity" binding:"required,min=1"`
	UnitPrice float64 `json:"unit_price" binding:"required,gt=0"`
}

// CreateQuoteRequest 创建报价请求
type CreateQuoteRequest struct {
	Lines []QuoteLineInput `json:"lines" binding:"required,min=1"`
	Note  string           `json:"note"`
}

// CreateOrReplace 创建或重新报价。
// 要求商机状态为 approved（首次）或 quote_rejected（重新报价）；
// 成功后商机状态置为 quoted。
func (s *QuoteService) CreateOrReplace(ctx context.Context, oppID string, req CreateQuoteRequest, actor Actor) (*entity.Quote, error) {
	if len(req.Lines) == 0 {
		return nil, apperr.Validation("lines", "至少需要一个报价行")
	}
	for i, line := range req.Lines {
		if line.Quantity < 1 {
			return nil, apperr.Validationf("lines", "第%d个报价行数量必须大于等于1", i+1)
		}
		if line.UnitPrice <= 0 {
			return nil, apperr.Validationf("lines", "第%d个报价行单价必须大于0", i+1)
		}
	}

	opp, err := s.oppRepo.FindByID(ctx, oppID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, apperr.NotFound("商机")
		}
		return nil, apperr.Upstream("商机", err)
	}
	if opp.Status != entity.OppStatusApproved && opp.Status != entity.OppStatusQuoteRejected {
		return nil, apperr.InvalidTransition("商机", opp.Status, "quote")
	}

	// 报价行必须能从服务目录解析成本快照
	serviceIDs := make([]string, 0, len(req.Lines))
	for _, line := range req.Lines {
		serviceIDs = append(serviceIDs, line.ServiceID)
	}
	catalog, err := s.catalogRepo.FindMapByIDs(ctx, serviceIDs)
	if err != nil {
		return nil, apperr.Upstream("服务目录", err)
	}
	for _, line := range req.Lines {
		if _, ok := catalog[line.ServiceID]; !ok {
			return nil, apperr.Validationf("lines", "服务 %s 不存在于服务目录", line.ServiceID)
		}
	}

	quote := &entity.Quote{
		ID:            uuid.New().String(),
		Code:          generateCode("QT"),
		OpportunityID: oppID,
		Status:        entity.QuoteStatusPending,
		IsActive:      true,
		Note:          req.Note,
		CreatedBy:     actor.ID,
	}

	totalLines := make([]pricing.QuoteLine, 0, len(req.Lines))
	for i, line := range req.Lines {
		svc := catalog[line.ServiceID]
		quote.Items = append(quote.Items, entity.QuoteItem{
			ID:        uuid.New().String(),
			QuoteID:   quote.ID,
			ServiceID: line.ServiceID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			BaseCost:  svc.BaseCost,
			Amount:    float64(line.Quantity) * line.UnitPrice,
			SortOrder: i,
		})
		totalLines = append(totalLines, pricing.QuoteLine{
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			BaseCost:  svc.BaseCost,
		})
	}
	totals := pricing.QuoteTotals(totalLines)
	quote.TotalRevenue = totals.TotalRevenue
	quote.TotalCost = totals.TotalCost
	quote.MarginPct = totals.MarginPct

	fromStatus := opp.Status
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 替换旧报价
		if err := tx.Model(&entity.Quote{}).
			Where("opportunity_id = ? AND is_active = ?", oppID, true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		if err := tx.Create(quote).Error; err != nil {
			return err
		}
		res := tx.Model(&entity.Opportunity{}).
			Where("id = ? AND status = ?", oppID, fromStatus).
			Update("status", entity.OppStatusQuoted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.InvalidTransition("商机", fromStatus, "quote")
		}
		return nil
	})
	if err != nil {
		if apperr.IsKind(err, apperr.KindInvalidTransition) {
			return nil, err
		}
		return nil, apperr.Upstream("报价单", err)
	}
	return s.repo.FindByID(ctx, quote.ID)
}

// Get 获取报价单详情
func (s *QuoteService) Get(ctx context.Context, id string) (*entity.Quote, error) {
	quote, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, apperr.NotFound("报价单")
		}
		return nil, apperr.Upstream("报价单", err)
	}
	return quote, nil
}

// GetActiveByOpportunity 获取商机当前生效的报价单
func (s *QuoteService) GetActiveByOpportunity(ctx context.Context, oppID string) (*entity.Quote, error) {
	quote, err := s.repo.FindActiveByOpportunity(ctx, oppID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, apperr.NotFound("报价单")
		}
		return nil, apperr.Upstream("报价单", err)
	}
	return quote, nil
}

// ListByOpportunity 查询商机报价历史
func (s *QuoteService) ListByOpportunity(ctx context.Context, oppID string) ([]entity.Quote, error) {
	quotes, err := s.repo.FindAllByOpportunity(ctx, oppID)
	if err != nil {
		return nil, apperr.Upstream("报价单", err)
	}
	return quotes, nil
}

// Approve BOD审批通过报价：pending → approved
func (s *QuoteService) Approve(ctx context.Context, id, note string, actor Actor) (*entity.Quote, error) {
	if !actor.IsApprover() {
		return nil, apperr.Authorization("只有BOD或管理员可以审批报价")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	now := time.Now()
	updates := map[string]interface{}{
		"decided_by": actor.ID,
		"decided_at": now,
	}
	if note != "" {
		updates["note"] = note
	}
	rows, err := s.repo.UpdateStatusGuarded(ctx, id, entity.QuoteStatusPending, entity.QuoteStatusApproved, updates)
	if err != nil {
		return nil, apperr.Upstream("报价单", err)
	}
	if rows == 0 {
		current, gerr := s.Get(ctx, id)
		if gerr != nil {
			return nil, gerr
		}
		return nil, apperr.InvalidTransition("报价单", current.Status, "approve")
	}
	return s.Get(ctx, id)
}

// Reject BOD驳回报价：pending → rejected，并级联商机 quoted → quote_rejected
func (s *QuoteService) Reject(ctx context.Context, id, note string, actor Actor) (*entity.Quote, error) {
	if !actor.IsApprover() {
		return nil, apperr.Authorization("只有BOD或管理员可以驳回报价")
	}
	quote, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if quote.Status != entity.QuoteStatusPending {
		return nil, apperr.InvalidTransition("报价单", quote.Status, "reject")
	}

	now := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":     entity.QuoteStatusRejected,
			"decided_by": actor.ID,
			"decided_at": now,
		}
		if note != "" {
			updates["note"] = note
		}
		res := tx.Model(&entity.Quote{}).
			Where("id = ? AND status = ?", id, entity.QuoteStatusPending).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.InvalidTransition("报价单", quote.Status, "reject")
		}
		// 商机回到可重新报价状态
		return tx.Model(&entity.Opportunity{}).
			Where("id = ? AND status = ?", quote.OpportunityID, entity.OppStatusQuoted).
			Update("status", entity.OppStatusQuoteRejected).Error
	})
	if err != nil {
		if apperr.IsKind(err, apperr.KindInvalidTransition) {
			return nil, err
		}
		return nil, apperr.Upstream("报价单", err)
	}
	return s.Get(ctx, id)
}

// Bounds 按服务成本返回最低/建议售价
func (s *QuoteService) Bounds(ctx context.Context, serviceID string) (*pricing.QuoteBounds, error) {
	svc, err := s.catalogRepo.FindByID(ctx, serviceID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, apperr.NotFound("服务")
		}
		return nil, apperr.Upstream("服务目录", err)
	}
	bounds := pricing.Bounds(svc.BaseCost, s.policy)
	return &bounds, nil
}
