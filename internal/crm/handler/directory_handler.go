package handler

import (
	"github.com/bitfantasy/nimo-crm/internal/crm/repository"
	"github.com/bitfantasy/nimo-crm/internal/crm/service"
	"github.com/gin-gonic/gin"
)

// DirectoryHandler 客户/介绍人目录处理器
type DirectoryHandler struct {
	svc *service.DirectoryService
}

func NewDirectoryHandler(svc *service.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{svc: svc}
}

// ListCustomers 客户列表
// GET /api/v1/crm/customers?status=xxx&source=xxx&search=xxx
func (h *DirectoryHandler) ListCustomers(c *gin.Context) {
	page, pageSize := GetPagination(c)
	params := repository.CustomerListParams{
		Status:     c.Query("status"),
		Source:     c.Query("source"),
		ReferralID: c.Query("referral_id"),
		Keyword:    c.Query("search"),
		Page:       page,
		PageSize:   pageSize,
	}

	items, total, err := h.svc.ListCustomers(c.Request.Context(), params)
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

// GetCustomer 客户详情
// GET /api/v1/crm/customers/:id
func (h *DirectoryHandler) GetCustomer(c *gin.Context) {
	customer, err := h.svc.GetCustomer(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, customer)
}

// CreateCustomer 创建客户
// POST /api/v1/crm/customers
func (h *DirectoryHandler) CreateCustomer(c *gin.Context) {
	var req service.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	customer, err := h.svc.CreateCustomer(c.Request.Context(), req, GetActor(c))
	if err != nil {
		RespondError(c, err)
		return
	}

	Created(c, customer)
}

// ListReferrals 介绍人列表
// GET /api/v1/crm/referrals
func (h *DirectoryHandler) ListReferrals(c *gin.Context) {
	items, err := h.svc.ListReferrals(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, items)
}

// CreateReferral 创建介绍人
// POST /api/v1/crm/referrals
func (h *DirectoryHandler) CreateReferral(c *gin.Context) {
	var req service.CreateReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	referral, err := h.svc.CreateReferral(c.Request.Context(), req)
	if err != nil {
		RespondError(c, err)
		return
	}

	Created(c, referral)
}
