package httptransport

import (
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"floodwatch/backend/internal/config"
	"floodwatch/backend/internal/health"
	"floodwatch/backend/internal/middleware"
	"floodwatch/backend/internal/monitoring"
	"floodwatch/backend/internal/service"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config           *config.Config
	GateService      *service.GateService
	SearchService    *service.SearchService
	DuplicateService *service.DuplicateService
	ReportService    *service.ReportService
	HealthChecker    *health.Checker
	Metrics          *monitoring.Metrics
	Logger           *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
//
// /api/v1 下的业务端点全部经过 API 密钥网关；健康探针与指标端点
// 不设门禁，供编排系统和采集器直接访问。
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RecoveryHandler(deps.Metrics, deps.Logger))
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.HTTPMetrics(deps.Metrics))
	router.Use(middleware.BodySizeLimit(middleware.DefaultBodyLimit))

	corsConfig := gincors.Config{
		AllowOrigins:     deps.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-API-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	// 允许所有来源时必须关闭凭证支持
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	// 健康探针与指标端点（不设门禁）
	router.GET("/health", gin.WrapF(deps.HealthChecker.LiveHandler()))
	router.GET("/health/live", gin.WrapF(deps.HealthChecker.LiveHandler()))
	router.GET("/health/ready", gin.WrapF(deps.HealthChecker.ReadyHandler()))
	router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))

	gate := middleware.NewAPIKeyGate(deps.GateService, deps.Metrics, deps.Logger)
	searchHandler := NewSearchHandler(deps.SearchService, deps.Metrics, deps.Logger)
	duplicateHandler := NewDuplicateHandler(deps.DuplicateService, deps.Metrics, deps.Logger)
	reportHandler := NewReportHandler(deps.ReportService, deps.Logger)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/search", gate.Gate("search"), searchHandler.Search)
		v1.POST("/check-duplicates", gate.Gate("check-duplicates"), duplicateHandler.CheckDuplicates)
		v1.POST("/reports", gate.Gate("save-report"), reportHandler.SaveReport)
	}

	return router
}
