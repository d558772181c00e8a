package handler

import (
	"github.com/bitfantasy/nimo-crm/internal/crm/repository"
	"github.com/bitfantasy/nimo-crm/internal/crm/service"
	"github.com/gin-gonic/gin"
)

// OpportunityHandler 商机处理器
type OpportunityHandler struct {
	svc *service.OpportunityService
}

func NewOpportunityHandler(svc *service.OpportunityService) *OpportunityHandler {
	return &OpportunityHandler{svc: svc}
}

// ListOpportunities 商机列表
// GET /api/v1/crm/opportunities?status=xxx&priority=xxx&business_field=xxx&search=xxx
func (h *OpportunityHandler) ListOpportunities(c *gin.Context) {
	page, pageSize := GetPagination(c)
	params := repository.OpportunityListParams{
		Status:        c.Query("status"),
		Priority:      c.Query("priority"),
		BusinessField: c.Query("business_field"),
		CreatedBy:     c.Query("created_by"),
		Keyword:       c.Query("search"),
		Page:          page,
		PageSize:      pageSize,
	}

	items, total, err := h.svc.List(c.Request.Context(), params)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, ListResponse{
		Items: items,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: totalPages(total, pageSize),
		},
	})
}

// GetOpportunity 商机详情
// GET /api/v1/crm/opportunities/:id
func (h *OpportunityHandler) GetOpportunity(c *gin.Context) {
	opp, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, opp)
}

// CreateOpportunity 创建商机
// POST /api/v1/crm/opportunities
func (h *OpportunityHandler) CreateOpportunity(c *gin.Context) {
	var req service.CreateOpportunityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	opp, err := h.svc.Create(c.Request.Context(), req, GetActor(c))
	if err != nil {
		RespondError(c, err)
		return
	}

	Created(c, opp)
}

// UpdateCustomerInfo 补充客户信息
// PUT /api/v1/crm/opportunities/:id/customer
func (h *OpportunityHandler) UpdateCustomerInfo(c *gin.Context) {
	var req service.UpdateCustomerInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	opp, err := h.svc.UpdateCustomerInfo(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, opp)
}

// SubmitOpportunity 提交商机进入BOD审批
// POST /api/v1/crm/opportunities/:id/submit
func (h *OpportunityHandler) SubmitOpportunity(c *gin.Context) {
	opp, err := h.svc.Submit(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, opp)
}

// ApproveOpportunity BOD批准商机
// POST /api/v1/crm/opportunities/:id/approve
func (h *OpportunityHandler) ApproveOpportunity(c *gin.Context) {
	opp, err := h.svc.Approve(c.Request.Context(), c.Param("id"), GetActor(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, opp)
}

// RejectOpportunity BOD驳回商机
// POST /api/v1/crm/opportunities/:id/reject
func (h *OpportunityHandler) RejectOpportunity(c *gin.Context) {
	opp, err := h.svc.Reject(c.Request.Context(), c.Param("id"), GetActor(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, opp)
}

// ConvertToContract 商机转合同
// POST /api/v1/crm/opportunities/:id/convert
func (h *OpportunityHandler) ConvertToContract(c *gin.Context) {
	contract, err := h.svc.ConvertToContract(c.Request.Context(), c.Param("id"), GetActor(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, contract)
}
