package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"floodwatch/backend/internal/config"
	"floodwatch/backend/internal/embedding"
	"floodwatch/backend/internal/health"
	"floodwatch/backend/internal/logger"
	"floodwatch/backend/internal/monitoring"
	"floodwatch/backend/internal/service"
	"floodwatch/backend/internal/storage"
	"floodwatch/backend/internal/storage/hybrid"
	"floodwatch/backend/internal/storage/memory"
	"floodwatch/backend/internal/storage/sql"
	httptransport "floodwatch/backend/internal/transport/http"
)

// 审计日志清理周期
const usagePurgeInterval = time.Hour

// main 启动灾情报告匹配引擎。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 设置 Gin 模式（基于开发环境标志）
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化日志系统
	log, err := logger.New(logger.Options{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("starting floodwatch matching engine",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	// 初始化存储层
	store, err := initializeStorage(cfg, log)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize storage: %v", err))
	}
	defer store.Close()

	// 初始化监控与健康检查
	metrics := monitoring.NewMetrics()
	healthChecker := health.NewChecker(store, log)

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 初始化向量服务（未配置密钥时语义检索降级为 none）
	var provider embedding.Provider
	if cfg.Gemini.APIKey != "" {
		gemini, err := embedding.NewGeminiProvider(ctx, embedding.GeminiOptions{
			APIKey:         cfg.Gemini.APIKey,
			Model:          cfg.Gemini.EmbeddingModel,
			Timeout:        cfg.Gemini.Timeout,
			RequestsPerSec: cfg.Gemini.RequestsPerSec,
			Metrics:        metrics,
		}, log)
		if err != nil {
			panic(fmt.Sprintf("failed to initialize embedding provider: %v", err))
		}
		defer gemini.Close()
		provider = gemini
		log.Info("embedding provider initialized",
			zap.String("model", cfg.Gemini.EmbeddingModel))
	} else {
		log.Warn("no embedding provider configured, semantic search disabled")
	}

	// 初始化服务层
	gateService := service.NewGateService(store, log)
	searchService := service.NewSearchService(store, provider, log, service.SearchOptions{
		DefaultLimit:      cfg.Search.DefaultLimit,
		SemanticThreshold: cfg.Search.SemanticThreshold,
	})
	duplicateService := service.NewDuplicateService(store, log, service.DuplicateOptions{
		Threshold: cfg.Search.DuplicateThreshold,
		Limit:     cfg.Search.DuplicateLimit,
	})
	reportService := service.NewReportService(store, log)

	// 创建 HTTP 服务器
	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:           cfg,
		GateService:      gateService,
		SearchService:    searchService,
		DuplicateService: duplicateService,
		ReportService:    reportService,
		HealthChecker:    healthChecker,
		Metrics:          metrics,
		Logger:           log,
	})

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	// HTTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// 定时清理过期审计记录 goroutine
	group.Go(func() error {
		ticker := time.NewTicker(usagePurgeInterval)
		defer ticker.Stop()

		log.Info("starting usage event retention task",
			zap.Duration("interval", usagePurgeInterval),
			zap.Duration("retention", cfg.Usage.Retention))

		for {
			select {
			case <-groupCtx.Done():
				log.Info("usage event retention task stopped")
				return nil
			case <-ticker.C:
				count, err := gateService.PurgeUsageEvents(groupCtx, cfg.Usage.Retention)
				if err != nil {
					log.Error("failed to purge usage events", zap.Error(err))
				} else if count > 0 {
					metrics.UsageEventsPurged.Add(float64(count))
					log.Info("purged expired usage events", zap.Int("count", count))
				}
			}
		}
	})

	// 优雅停机 goroutine
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited with error", zap.Error(err))
	}
	log.Info("server stopped")
}

// initializeStorage 根据配置选择存储后端
//
// 提供 DSN 时使用 PostgreSQL（可选叠加 Redis 密钥缓存），
// 否则退回内存存储（开发模式）。
func initializeStorage(cfg *config.Config, log *zap.Logger) (storage.Store, error) {
	if cfg.Database.DSN == "" {
		log.Info("using memory storage (development mode)")
		return memory.NewStore(), nil
	}

	pool := sql.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}

	if cfg.Redis.Address != "" {
		log.Info("using hybrid storage",
			zap.String("redis", cfg.Redis.Address))
		return hybrid.NewStore(hybrid.Options{
			PostgresDSN:   cfg.Database.DSN,
			Pool:          pool,
			RedisAddr:     cfg.Redis.Address,
			RedisPassword: cfg.Redis.Password,
			RedisDB:       cfg.Redis.DB,
		})
	}

	log.Info("using postgresql storage")
	return sql.NewStore(cfg.Database.DSN, pool)
}
