package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitfantasy/nimo-crm/internal/config"
	"github.com/bitfantasy/nimo-crm/internal/crm/entity"
	"github.com/bitfantasy/nimo-crm/internal/crm/handler"
	"github.com/bitfantasy/nimo-crm/internal/crm/repository"
	"github.com/bitfantasy/nimo-crm/internal/crm/service"
	"github.com/bitfantasy/nimo-crm/internal/middleware"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting nimo-crm service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := entity.AutoMigrate(db); err != nil {
		zapLogger.Fatal("Failed to migrate database", zap.Error(err))
	}
	zapLogger.Info("Database migration completed")

	// 初始化Redis
	rdb := initRedis(cfg.Redis)

	// 初始化依赖
	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, db, rdb, cfg)
	handlers := handler.NewHandlers(services)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	registerRoutes(router, handlers, cfg)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	// API v1
	v1 := r.Group("/api/v1")
	{
		// 认证 (无需登录)
		v1.POST("/auth/login", h.Auth.Login)

		// 需要认证的接口
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(cfg.JWT.Secret))
		{
			// 当前用户
			authorized.GET("/auth/me", h.Auth.Me)
			authorized.POST("/auth/logout", h.Auth.Logout)

			// 用户管理（管理员）
			authorized.POST("/crm/users", middleware.RequireRole(entity.RoleAdmin), h.Auth.CreateUser)

			crm := authorized.Group("/crm")
			{
				// 商机
				opps := crm.Group("/opportunities")
				{
					opps.GET("", h.Opportunity.ListOpportunities)
					opps.POST("", h.Opportunity.CreateOpportunity)
					opps.GET("/:id", h.Opportunity.GetOpportunity)
					opps.PUT("/:id/customer", h.Opportunity.UpdateCustomerInfo)
					opps.POST("/:id/submit", h.Opportunity.SubmitOpportunity)
					opps.POST("/:id/approve", middleware.RequireRole(entity.RoleBOD, entity.RoleAdmin), h.Opportunity.ApproveOpportunity)
					opps.POST("/:id/reject", middleware.RequireRole(entity.RoleBOD, entity.RoleAdmin), h.Opportunity.RejectOpportunity)
					opps.POST("/:id/convert", h.Opportunity.ConvertToContract)

					// 报价子流程
					opps.POST("/:id/quotes", h.Quote.CreateQuote)
					opps.GET("/:id/quotes", h.Quote.ListQuotes)
					opps.GET("/:id/quotes/active", h.Quote.GetActiveQuote)
				}

				// 报价
				quotes := crm.Group("/quotes")
				{
					quotes.GET("/:id", h.Quote.GetQuote)
					quotes.POST("/:id/approve", middleware.RequireRole(entity.RoleBOD, entity.RoleAdmin), h.Quote.ApproveQuote)
					quotes.POST("/:id/reject", middleware.RequireRole(entity.RoleBOD, entity.RoleAdmin), h.Quote.RejectQuote)
				}

				// 合同与项目
				contracts := crm.Group("/contracts")
				{
					contracts.GET("", h.Project.ListContracts)
					contracts.GET("/:id", h.Project.GetContract)
				}
				projects := crm.Group("/projects")
				{
					projects.GET("", h.Project.ListProjects)
					projects.POST("", h.Project.CreateProject)
					projects.GET("/:id", h.Project.GetProject)
					projects.POST("/:id/jobs", h.Project.CreateJob)
				}
				jobs := crm.Group("/jobs")
				{
					jobs.POST("/:id/start", h.Project.StartJob)
					jobs.POST("/:id/complete", h.Project.CompleteJob)
				}

				// 验收
				acceptances := crm.Group("/acceptances")
				{
					acceptances.GET("", h.Acceptance.ListAcceptances)
					acceptances.POST("", h.Acceptance.CreateAcceptance)
					acceptances.GET("/:id", h.Acceptance.GetAcceptance)
					acceptances.POST("/:id/submit", h.Acceptance.SubmitAcceptance)
					acceptances.POST("/:id/approve-jobs", middleware.RequireRole(entity.RoleBOD, entity.RoleAdmin), h.Acceptance.ApproveJobs)
					acceptances.POST("/:id/reject-jobs", middleware.RequireRole(entity.RoleBOD, entity.RoleAdmin), h.Acceptance.RejectJobs)
				}

				// 客户与介绍人
				customers := crm.Group("/customers")
				{
					customers.GET("", h.Directory.ListCustomers)
					customers.POST("", h.Directory.CreateCustomer)
					customers.GET("/:id", h.Directory.GetCustomer)
				}
				referrals := crm.Group("/referrals")
				{
					referrals.GET("", h.Directory.ListReferrals)
					referrals.POST("", h.Directory.CreateReferral)
				}

				// 服务目录
				catalog := crm.Group("/services")
				{
					catalog.GET("", h.Catalog.ListServices)
					catalog.POST("", middleware.RequireRole(entity.RoleAdmin), h.Catalog.CreateService)
					catalog.GET("/:id", h.Catalog.GetService)
					catalog.GET("/:id/quote-bounds", h.Quote.GetQuoteBounds)
				}

				// 报表
				reports := crm.Group("/reports")
				{
					reports.GET("/status-summary", h.Report.StatusSummary)
					reports.GET("/created-trend", h.Report.CreatedBuckets)
					reports.GET("/popular-services", h.Report.PopularServices)
					reports.GET("/opportunities/export", h.Report.ExportOpportunities)
				}

				// 附件
				attachments := crm.Group("/attachments")
				{
					attachments.POST("", h.Upload.Upload)
					attachments.GET("/url", h.Upload.GetDownloadURL)
				}
			}
		}
	}
}
