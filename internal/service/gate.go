package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"floodwatch/backend/internal/domain"
	"floodwatch/backend/internal/storage"
)

// 滚动限流窗口长度
const rateLimitWindow = time.Minute

// GateService API 网关服务：密钥校验、滚动限流、用量审计
type GateService struct {
	store  storage.Store
	logger *zap.Logger
	now    func() time.Time // 可注入时钟，便于测试
}

// NewGateService 创建网关服务
func NewGateService(store storage.Store, logger *zap.Logger) *GateService {
	return &GateService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Authorize 校验 API 密钥并执行滚动限流
//
// 校验流程：
//  1. 密钥为空 -> ErrAPIKeyRequired
//  2. 查找激活状态的密钥，未找到 -> ErrAPIKeyInvalid
//  3. 统计该密钥最近 60 秒的调用次数，达到配额 -> RateLimitExceededError
//  4. 尽力更新 last_used_at（失败仅记日志，不影响请求）
//
// 配额超限时同时返回密钥对象，调用方据此以真实密钥 ID 记录拒绝审计。
//
// 返回值:
//   - *domain.APIKey: 命中的密钥（密钥无效时为 nil）
//   - error: 校验失败原因
func (s *GateService) Authorize(ctx context.Context, keyValue string) (*domain.APIKey, error) {
	if keyValue == "" {
		return nil, ErrAPIKeyRequired
	}

	key, err := s.store.GetAPIKeyByKey(ctx, keyValue)
	if err != nil {
		if errors.Is(err, storage.ErrAPIKeyNotFound) {
			return nil, ErrAPIKeyInvalid
		}
		return nil, err
	}

	// 滚动窗口计数：以审计记录为准，先计数后写入。并发请求可能
	// 短暂超出配额一两次，属于可接受的最终一致语义。
	since := s.now().Add(-rateLimitWindow)
	count, err := s.store.CountUsageEventsSince(ctx, key.ID, since)
	if err != nil {
		return nil, err
	}
	if count >= key.RateLimitPerMinute {
		return key, &RateLimitExceededError{Limit: key.RateLimitPerMinute}
	}

	// last_used_at 仅为观测信息，更新失败不拦截请求
	if err := s.store.UpdateAPIKeyLastUsed(ctx, key.ID, s.now()); err != nil {
		s.logger.Warn("failed to update api key last_used_at",
			zap.String("api_key_id", key.ID),
			zap.Error(err))
	}

	return key, nil
}

// LogUsage 追加一条用量审计记录
//
// 每次被网关处理的请求（放行、拒绝均含）都对应一条记录。无效密钥的
// 拒绝记录 apiKeyID 为空字符串，保留审计痕迹。
func (s *GateService) LogUsage(ctx context.Context, apiKeyID, endpoint string, success bool) {
	event := &domain.UsageEvent{
		ID:        uuid.New().String(),
		APIKeyID:  apiKeyID,
		Endpoint:  endpoint,
		Success:   success,
		CreatedAt: s.now(),
	}
	if err := s.store.AppendUsageEvent(ctx, event); err != nil {
		s.logger.Error("failed to append usage event",
			zap.String("api_key_id", apiKeyID),
			zap.String("endpoint", endpoint),
			zap.Error(err))
	}
}

// PurgeUsageEvents 删除超过保留期的审计记录，返回删除数量
func (s *GateService) PurgeUsageEvents(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := s.now().Add(-retention)
	return s.store.DeleteUsageEventsBefore(ctx, cutoff)
}
