package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailfoxes/backend/internal/config"
	"mailfoxes/backend/internal/health"
	"mailfoxes/backend/internal/middleware"
	"mailfoxes/backend/internal/monitoring"
	"mailfoxes/backend/internal/service"
)

// Handler 聚合所有 HTTP 处理逻辑。
type Handler struct {
	emails   *service.EmailService
	sources  *service.SourceService
	analysis *service.AnalysisService
	metrics  *monitoring.Metrics
	logger   *zap.Logger
}

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config          *config.Config
	EmailService    *service.EmailService
	SourceService   *service.SourceService
	AnalysisService *service.AnalysisService
	Metrics         *monitoring.Metrics
	Health          *health.HealthChecker // 可选，nil 时只注册静态 /health
	Logger          *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	// 使用自定义中间件替代默认中间件
	router.Use(middleware.RecoveryHandler(deps.Logger, deps.Metrics))
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())

	// 入站邮件整封走表单提交，限制放宽到 10MB
	router.Use(middleware.BodySizeLimit(10 * 1024 * 1024))

	if deps.Metrics != nil {
		router.Use(middleware.MetricsCollector(deps.Metrics))
	}

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins:     deps.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// 如果允许所有来源，则需清空凭证支持。
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	// 创建处理器
	handler := &Handler{
		emails:   deps.EmailService,
		sources:  deps.SourceService,
		analysis: deps.AnalysisService,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
	}

	// 服务标识
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": "mailfoxes", "status": "running"})
	})

	// 健康检查
	if deps.Health != nil {
		router.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, deps.Health.CheckHealth())
		})
		router.GET("/health/live", gin.WrapF(deps.Health.LiveEndpoint))
		router.GET("/health/ready", gin.WrapF(deps.Health.ReadyEndpoint))
	} else {
		router.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
	}

	// Prometheus 指标
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	// ========== Webhook 摄入口 ==========
	// 供给方回调端点。配置了 Token 时要求 Bearer 认证。
	webhookAuth := middleware.TokenAuth(deps.Config.Webhook.Token)
	router.POST("/parse-email", webhookAuth, handler.parseEmail)

	// ========== Email Routes ==========
	emailRoutes := router.Group("/emails")
	{
		emailRoutes.GET("", handler.listEmails)
		emailRoutes.GET("/:id", handler.getEmail)
		emailRoutes.POST("/:id/processed", handler.markEmailProcessed)
	}

	// 垃圾分回填（可选运维端点）
	if deps.Config.Spam.Enabled {
		router.POST("/spam/backfill", handler.backfillSpamScores)
	}

	// ========== Source Routes ==========
	sourceRoutes := router.Group("/sources")
	{
		sourceRoutes.POST("", handler.createSource)
		sourceRoutes.GET("", handler.listSources)
		sourceRoutes.GET("/:id", handler.getSource)
		sourceRoutes.PATCH("/:id", handler.updateSource)
		sourceRoutes.DELETE("/:id", handler.deleteSource)
		sourceRoutes.POST("/:id/consolidate", handler.consolidateSource)
	}

	// ========== Analysis Routes ==========
	router.GET("/analysis", handler.analyze)

	return router
}
