package handler

import (
	"strconv"

	"github.com/bitfantasy/nimo-crm/internal/crm/apperr"
	"github.com/bitfantasy/nimo-crm/internal/crm/service"
	"github.com/gin-gonic/gin"
)

// Handlers CRM处理器集合
type Handlers struct {
	Auth        *AuthHandler
	Opportunity *OpportunityHandler
	Quote       *QuoteHandler
	Acceptance  *AcceptanceHandler
	Report      *ReportHandler
	Directory   *DirectoryHandler
	Catalog     *CatalogHandler
	Project     *ProjectHandler
	Upload      *UploadHandler
}

// NewHandlers 创建CRM处理器集合
func NewHandlers(svcs *service.Services) *Handlers {
	return &Handlers{
		Auth:        NewAuthHandler(svcs.Auth),
		Opportunity: NewOpportunityHandler(svcs.Opportunity),
		Quote:       NewQuoteHandler(svcs.Quote),
		Acceptance:  NewAcceptanceHandler(svcs.Acceptance),
		Report:      NewReportHandler(svcs.Report),
		Directory:   NewDirectoryHandler(svcs.Directory),
		Catalog:     NewCatalogHandler(svcs.Catalog),
		Project:     NewProjectHandler(svcs.Project),
		Upload:      NewUploadHandler(svcs.Attachment),
	}
}

// === 响应辅助函数 ===

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

// kindCodes 错误类别到业务码的映射，code/100 即 HTTP 状态码
var kindCodes = map[apperr.Kind]int{
	apperr.KindValidation:        40001,
	apperr.KindAuthorization:     40301,
	apperr.KindNotFound:          40401,
	apperr.KindInvalidTransition: 40901,
	apperr.KindPrecondition:      42201,
	apperr.KindUpstream:          50301,
}

// RespondError 把服务层结构化错误翻译成响应
func RespondError(c *gin.Context, err error) {
	code, ok := kindCodes[apperr.KindOf(err)]
	if !ok {
		code = 50000
	}
	Error(c, code, err.Error())
}

// GetActor 从上下文取当前操作者，由 JWT 中间件注入
func GetActor(c *gin.Context) service.Actor {
	actor := service.Actor{}
	if v, ok := c.Get("user_id"); ok {
		actor.ID, _ = v.(string)
	}
	if v, ok := c.Get("user_name"); ok {
		actor.Name, _ = v.(string)
	}
	if v, ok := c.Get("role"); ok {
		actor.Role, _ = v.(string)
	}
	return actor
}

func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}

func totalPages(total int64, pageSize int) int {
	pages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		pages++
	}
	return pages
}
