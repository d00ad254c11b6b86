package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"floodwatch/backend/internal/domain"
	"floodwatch/backend/internal/monitoring"
	"floodwatch/backend/internal/service"
)

// 上下文键：网关放行后写入的密钥 ID
const ContextKeyAPIKeyID = "apiKeyID"

// APIKeyGate API 密钥网关中间件
//
// 所有对外检索端点共用同一个网关：X-API-Key 校验、滚动限流、
// 请求完成后写入一条用量审计记录。
type APIKeyGate struct {
	gate    *service.GateService
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewAPIKeyGate 创建网关中间件
func NewAPIKeyGate(gate *service.GateService, metrics *monitoring.Metrics, logger *zap.Logger) *APIKeyGate {
	return &APIKeyGate{
		gate:    gate,
		metrics: metrics,
		logger:  logger,
	}
}

// Gate 返回指定端点的网关处理器
//
// 处理流程：
//  1. 读取 X-API-Key 并交给网关服务校验
//  2. 拒绝时立即响应 401/429，并记录一条失败审计（无效密钥的
//     记录密钥 ID 为空串，超限的使用真实 ID）
//  3. 放行时将密钥 ID 写入上下文，待处理器完成后按最终状态码
//     记录一条审计（状态码 < 400 视为成功）
//
// 参数:
//   - endpoint: 审计记录中的端点标识，如 "search"
func (m *APIKeyGate) Gate(endpoint string) gin.HandlerFunc {
	return func(c *gin.Context) {
		keyValue := c.GetHeader("X-API-Key")

		key, err := m.gate.Authorize(c.Request.Context(), keyValue)
		if err != nil {
			m.deny(c, endpoint, key, err)
			return
		}

		c.Set(ContextKeyAPIKeyID, key.ID)
		c.Next()

		success := c.Writer.Status() < http.StatusBadRequest
		m.gate.LogUsage(c.Request.Context(), key.ID, endpoint, success)
	}
}

// deny 拒绝请求并记录审计
func (m *APIKeyGate) deny(c *gin.Context, endpoint string, key *domain.APIKey, err error) {
	var rateErr *service.RateLimitExceededError
	switch {
	case errors.As(err, &rateErr):
		// 超限时网关返回了真实密钥，审计用真实 ID
		m.metrics.RateLimitBlocksTotal.Inc()
		m.gate.LogUsage(c.Request.Context(), key.ID, endpoint, false)
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": err.Error(),
			"kind":  "rate_limit_exceeded",
		})

	case errors.Is(err, service.ErrAPIKeyRequired):
		m.metrics.AuthDeniedTotal.WithLabelValues("missing_key").Inc()
		m.gate.LogUsage(c.Request.Context(), "", endpoint, false)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "API key is required",
			"kind":  "auth_error",
		})

	case errors.Is(err, service.ErrAPIKeyInvalid):
		// 无效密钥同样留痕，密钥 ID 为空串
		m.metrics.AuthDeniedTotal.WithLabelValues("invalid_key").Inc()
		m.gate.LogUsage(c.Request.Context(), "", endpoint, false)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "Invalid API key",
			"kind":  "auth_error",
		})

	default:
		// 存储故障：校验无法完成，按服务端错误处理，同样留痕
		m.logger.Error("gate authorization failed",
			zap.String("endpoint", endpoint),
			zap.Error(err))
		m.metrics.ErrorsTotal.WithLabelValues("gate").Inc()
		m.gate.LogUsage(c.Request.Context(), "", endpoint, false)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
			"kind":  "internal_error",
		})
	}
}
