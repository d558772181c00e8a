package handler

import (
	"strconv"

	"github.com/bitfantasy/nimo-crm/internal/crm/service"
	"github.com/gin-gonic/gin"
)

// ReportHandler 报表处理器
type ReportHandler struct {
	svc *service.ReportService
}

func NewReportHandler(svc *service.ReportService) *ReportHandler {
	return &ReportHandler{svc: svc}
}

// StatusSummary 商机状态分布
// GET /api/v1/crm/reports/status-summary
func (h *ReportHandler) StatusSummary(c *gin.Context) {
	summary, err := h.svc.StatusSummary(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, summary)
}

// CreatedBuckets 近 N 天商机创建趋势
// GET /api/v1/crm/reports/created-trend?days=30
func (h *ReportHandler) CreatedBuckets(c *gin.Context) {
	days := 30
	if d := c.Query("days"); d != "" {
		if v, err := strconv.Atoi(d); err == nil && v > 0 && v <= 365 {
			days = v
		}
	}

	buckets, err := h.svc.CreatedBuckets(c.Request.Context(), days)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, buckets)
}

// PopularServices 服务热度排行
// GET /api/v1/crm/reports/popular-services
func (h *ReportHandler) PopularServices(c *gin.Context) {
	usage, err := h.svc.PopularServices(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, usage)
}

// ExportOpportunities 商机台账导出
// GET /api/v1/crm/reports/opportunities/export
func (h *ReportHandler) ExportOpportunities(c *gin.Context) {
	f, filename, err := h.svc.ExportOpportunities(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		Error(c, 50000, "write excel: "+err.Error())
	}
}
