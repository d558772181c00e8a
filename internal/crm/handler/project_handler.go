package handler

import (
	"github.com/bitfantasy/nimo-crm/internal/crm/service"
	"github.com/gin-gonic/gin"
)

// ProjectHandler 合同/项目/任务处理器
type ProjectHandler struct {
	svc *service.ProjectService
}

func NewProjectHandler(svc *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{svc: svc}
}

// ListContracts 合同列表
// GET /api/v1/crm/contracts
func (h *ProjectHandler) ListContracts(c *gin.Context) {
	items, err := h.svc.ListContracts(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, items)
}

// GetContract 合同详情
// GET /api/v1/crm/contracts/:id
func (h *ProjectHandler) GetContract(c *gin.Context) {
	contract, err := h.svc.GetContract(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, contract)
}

// ListProjects 项目列表
// GET /api/v1/crm/projects?contract_id=xxx
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	items, err := h.svc.ListProjects(c.Request.Context(), c.Query("contract_id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, items)
}

// GetProject 项目详情
// GET /api/v1/crm/projects/:id
func (h *ProjectHandler) GetProject(c *gin.Context) {
	project, err := h.svc.GetProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, project)
}

// CreateProject 创建项目
// POST /api/v1/crm/projects
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req service.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	project, err := h.svc.CreateProject(c.Request.Context(), req, GetActor(c))
	if err != nil {
		RespondError(c, err)
		return
	}

	Created(c, project)
}

// CreateJob 项目下创建任务
// POST /api/v1/crm/projects/:id/jobs
func (h *ProjectHandler) CreateJob(c *gin.Context) {
	var req service.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	job, err := h.svc.CreateJob(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		RespondError(c, err)
		return
	}

	Created(c, job)
}

// StartJob 开始任务
// POST /api/v1/crm/jobs/:id/start
func (h *ProjectHandler) StartJob(c *gin.Context) {
	job, err := h.svc.StartJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, job)
}

// CompleteJob 完成任务并等待验收
// POST /api/v1/crm/jobs/:id/complete
func (h *ProjectHandler) CompleteJob(c *gin.Context) {
	job, err := h.svc.CompleteJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, job)
}
