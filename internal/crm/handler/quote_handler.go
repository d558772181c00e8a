package handler

import (
	"github.com/bitfantasy/nimo-crm/internal/crm/service"
	"github.com/gin-gonic/gin"
)

// QuoteHandler 报价处理器
type QuoteHandler struct {
	svc *service.QuoteService
}

func NewQuoteHandler(svc *service.QuoteService) *QuoteHandler {
	return &QuoteHandler{svc: svc}
}

// CreateQuote 提交报价（重报时自动作废旧报价）
// POST /api/v1/crm/opportunities/:id/quotes
func (h *QuoteHandler) CreateQuote(c *gin.Context) {
	var req service.CreateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	quote, err := h.svc.CreateOrReplace(c.Request.Context(), c.Param("id"), req, GetActor(c))
	if err != nil {
		RespondError(c, err)
		return
	}

	Created(c, quote)
}

// ListQuotes 商机下的报价历史
// GET /api/v1/crm/opportunities/:id/quotes
func (h *QuoteHandler) ListQuotes(c *gin.Context) {
	items, err := h.svc.ListByOpportunity(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, items)
}

// GetActiveQuote 商机当前生效报价
// GET /api/v1/crm/opportunities/:id/quotes/active
func (h *QuoteHandler) GetActiveQuote(c *gin.Context) {
	quote, err := h.svc.GetActiveByOpportunity(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, quote)
}

// GetQuote 报价详情
// GET /api/v1/crm/quotes/:id
func (h *QuoteHandler) GetQuote(c *gin.Context) {
	quote, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, quote)
}

type quoteDecisionRequest struct {
	Note string `json:"note"`
}

// ApproveQuote BOD批准报价
// POST /api/v1/crm/quotes/:id/approve
func (h *QuoteHandler) ApproveQuote(c *gin.Context) {
	var req quoteDecisionRequest
	_ = c.ShouldBindJSON(&req)

	quote, err := h.svc.Approve(c.Request.Context(), c.Param("id"), req.Note, GetActor(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, quote)
}

// RejectQuote BOD驳回报价，商机回到 quote_rejected
// POST /api/v1/crm/quotes/:id/reject
func (h *QuoteHandler) RejectQuote(c *gin.Context) {
	var req quoteDecisionRequest
	_ = c.ShouldBindJSON(&req)

	quote, err := h.svc.Reject(c.Request.Context(), c.Param("id"), req.Note, GetActor(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, quote)
}

// GetQuoteBounds 单个服务的报价参考区间
// GET /api/v1/crm/services/:id/quote-bounds
func (h *QuoteHandler) GetQuoteBounds(c *gin.Context) {
	bounds, err := h.svc.Bounds(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, bounds)
}
