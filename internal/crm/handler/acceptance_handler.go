package handler

import (
	"github.com/bitfantasy/nimo-crm/internal/crm/repository"
	"github.com/bitfantasy/nimo-crm/internal/crm/service"
	"github.com/gin-gonic/gin"
)

// AcceptanceHandler 验收处理器
type AcceptanceHandler struct {
	svc *service.AcceptanceService
}

func NewAcceptanceHandler(svc *service.AcceptanceService) *AcceptanceHandler {
	return &AcceptanceHandler{svc: svc}
}

// ListAcceptances 验收单列表
// GET /api/v1/crm/acceptances?project_id=xxx&contract_id=xxx&status=xxx
func (h *AcceptanceHandler) ListAcceptances(c *gin.Context) {
	page, pageSize := GetPagination(c)
	params := repository.AcceptanceListParams{
		ProjectID:  c.Query("project_id"),
		ContractID: c.Query("contract_id"),
		Status:     c.Query("status"),
		Page:       page,
		PageSize:   pageSize,
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

// GetAcceptance 验收单详情
// GET /api/v1/crm/acceptances/:id
func (h *AcceptanceHandler) GetAcceptance(c *gin.Context) {
	acc, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, acc)
}

// CreateAcceptance 创建验收草稿
// POST /api/v1/crm/acceptances
func (h *AcceptanceHandler) CreateAcceptance(c *gin.Context) {
	var req service.CreateAcceptanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	acc, err := h.svc.CreateDraft(c.Request.Context(), req, GetActor(c))
	if err != nil {
		RespondError(c, err)
		return
	}

	Created(c, acc)
}

// SubmitAcceptance 提交验收进入BOD审批
// POST /api/v1/crm/acceptances/:id/submit
func (h *AcceptanceHandler) SubmitAcceptance(c *gin.Context) {
	acc, err := h.svc.Submit(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, acc)
}

type acceptanceDecisionRequest struct {
	JobIDs []string `json:"job_ids" binding:"required,min=1"`
}

// ApproveJobs 批量通过验收任务
// POST /api/v1/crm/acceptances/:id/approve-jobs
func (h *AcceptanceHandler) ApproveJobs(c *gin.Context) {
	var req acceptanceDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.svc.ApproveJobs(c.Request.Context(), c.Param("id"), req.JobIDs, GetActor(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, result)
}

// RejectJobs 批量驳回验收任务
// POST /api/v1/crm/acceptances/:id/reject-jobs
func (h *AcceptanceHandler) RejectJobs(c *gin.Context) {
	var req acceptanceDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.svc.RejectJobs(c.Request.Context(), c.Param("id"), req.JobIDs, GetActor(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, result)
}
