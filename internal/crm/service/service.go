package service

import (
	"github.com/bitfantasy/nimo-crm/internal/config"
	"github.com/bitfantasy/nimo-crm/internal/crm/entity"
	"github.com/bitfantasy/nimo-crm/internal/crm/pricing"
	"github.com/bitfantasy/nimo-crm/internal/crm/repository"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Actor 当前操作者，由 JWT 中间件注入
type Actor struct {
	ID   string
	Name string
	Role string
}

// IsApprover BOD 审批权限
func (a Actor) IsApprover() bool {
	return a.Role == entity.RoleBOD || a.Role == entity.RoleAdmin
}

// Services CRM服务集合
type Services struct {
	Auth        *AuthService
	Opportunity *OpportunityService
	Quote       *QuoteService
	Acceptance  *AcceptanceService
	Report      *ReportService
	Attachment  *AttachmentService
	Directory   *DirectoryService
	Catalog     *CatalogService
	Project     *ProjectService
}

// NewServices 创建CRM服务集合
func NewServices(repos *repository.Repositories, db *gorm.DB, rdb *redis.Client, cfg *config.Config) *Services {
	policy := pricing.Policy{
		MinMarkup:       cfg.Pricing.MinMarkup,
		SuggestedMarkup: cfg.Pricing.SuggestedMarkup,
	}
	if policy.MinMarkup <= 0 {
		policy = pricing.DefaultPolicy
	}

	var minioClient *minio.Client
	if cfg.MinIO.Endpoint != "" {
		client, err := minio.New(cfg.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
			Secure: cfg.MinIO.UseSSL,
		})
		if err == nil {
			minioClient = client
		}
	}

	return &Services{
		Auth:        NewAuthService(repos.User, rdb, cfg),
		Opportunity: NewOpportunityService(db, repos, policy),
		Quote:       NewQuoteService(db, repos, policy),
		Acceptance:  NewAcceptanceService(db, repos),
		Report:      NewReportService(db, repos, rdb),
		Attachment:  NewAttachmentService(minioClient, cfg.MinIO.Bucket),
		Directory:   NewDirectoryService(repos.Customer),
		Catalog:     NewCatalogService(repos.Catalog),
		Project:     NewProjectService(repos.Project),
	}
}
