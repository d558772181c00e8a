package handler

import (
	"time"

	"github.com/bitfantasy/nimo-crm/internal/crm/service"
	"github.com/gin-gonic/gin"
)

// UploadHandler 附件上传处理器
type UploadHandler struct {
	svc *service.AttachmentService
}

func NewUploadHandler(svc *service.AttachmentService) *UploadHandler {
	return &UploadHandler{svc: svc}
}

// Upload 上传附件
// POST /api/v1/crm/attachments
func (h *UploadHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "缺少上传文件: "+err.Error())
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		BadRequest(c, "读取上传文件失败: "+err.Error())
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	result, err := h.svc.Upload(c.Request.Context(), fileHeader.Filename, file, fileHeader.Size, contentType)
	if err != nil {
		RespondError(c, err)
		return
	}

	Created(c, result)
}

// GetDownloadURL 获取附件临时下载链接
// GET /api/v1/crm/attachments/url?object=xxx
func (h *UploadHandler) GetDownloadURL(c *gin.Context) {
	objectName := c.Query("object")
	if objectName == "" {
		BadRequest(c, "缺少 object 参数")
		return
	}

	url, err := h.svc.PresignedURL(c.Request.Context(), objectName, 15*time.Minute)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"url": url, "expires_in": 900})
}
