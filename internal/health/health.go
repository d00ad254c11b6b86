package health

import (
	"context"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"

	"floodwatch/backend/internal/storage"
)

// 单次存储探活超时
const storageCheckTimeout = 5 * time.Second

// Checker 健康检查器
//
// liveness 恒为通过（进程存活即可）；readiness 依赖存储后端探活，
// 混合存储下覆盖数据库与 Redis 两条链路。
type Checker struct {
	handler healthcheck.Handler
	store   storage.Store
	logger  *zap.Logger
}

// NewChecker 创建健康检查器
func NewChecker(store storage.Store, logger *zap.Logger) *Checker {
	c := &Checker{
		handler: healthcheck.NewHandler(),
		store:   store,
		logger:  logger,
	}

	c.handler.AddReadinessCheck("storage", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), storageCheckTimeout)
		defer cancel()

		if err := c.store.Health(ctx); err != nil {
			c.logger.Warn("storage readiness check failed", zap.Error(err))
			return err
		}
		return nil
	})

	return c
}

// LiveHandler 存活探针处理器
func (c *Checker) LiveHandler() http.HandlerFunc {
	return c.handler.LiveEndpoint
}

// ReadyHandler 就绪探针处理器
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return c.handler.ReadyEndpoint
}
