package hybrid

import (
	"context"
	"fmt"
	"time"

	"floodwatch/backend/internal/domain"
	"floodwatch/backend/internal/storage/redis"
	"floodwatch/backend/internal/storage/sql"
)

// API 密钥缓存过期时间。密钥变更频率低，短 TTL 足以兜底
// 未经 InvalidateAPIKey 的外部改动。
const apiKeyCacheTTL = 5 * time.Minute

// Store 混合存储实现，结合 PostgreSQL 和 Redis
//
// 报告与审计记录直接落库；API 密钥查找走 Redis 缓存，未命中回源
// 数据库并回填。限流计数不缓存，保证与审计记录一致。
type Store struct {
	sql   *sql.Store
	redis *redis.Cache
}

// Options 混合存储构建参数
type Options struct {
	PostgresDSN   string
	Pool          sql.Options
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// NewStore 创建混合存储实例
func NewStore(opts Options) (*Store, error) {
	dbStore, err := sql.NewStore(opts.PostgresDSN, opts.Pool)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	redisCache, err := redis.NewCache(opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
	if err != nil {
		dbStore.Close()
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	return &Store{sql: dbStore, redis: redisCache}, nil
}

// ========== Report Repository ==========

// SaveReport 保存灾情报告
func (s *Store) SaveReport(ctx context.Context, report *domain.Report) error {
	return s.sql.SaveReport(ctx, report)
}

// GetReport 按 ID 获取报告
func (s *Store) GetReport(ctx context.Context, id string) (*domain.Report, error) {
	return s.sql.GetReport(ctx, id)
}

// GetReportsByIDs 批量获取报告
func (s *Store) GetReportsByIDs(ctx context.Context, ids []string) ([]domain.Report, error) {
	return s.sql.GetReportsByIDs(ctx, ids)
}

// SearchReportsText 按文本条件检索报告
func (s *Store) SearchReportsText(ctx context.Context, criteria domain.ReportSearchCriteria) ([]domain.Report, error) {
	return s.sql.SearchReportsText(ctx, criteria)
}

// SearchReportsByEmbedding 按向量相似度检索报告
func (s *Store) SearchReportsByEmbedding(ctx context.Context, embedding []float32, threshold float64, limit int) ([]domain.SimilarityMatch, error) {
	return s.sql.SearchReportsByEmbedding(ctx, embedding, threshold, limit)
}

// ========== APIKey Repository ==========

// SaveAPIKey 保存 API 密钥并使缓存失效
func (s *Store) SaveAPIKey(ctx context.Context, key *domain.APIKey) error {
	if err := s.sql.SaveAPIKey(ctx, key); err != nil {
		return err
	}
	// 缓存失效失败不影响写入结果，短 TTL 会自然过期
	_ = s.redis.InvalidateAPIKey(ctx, key.Key)
	return nil
}

// GetAPIKeyByKey 按密钥值查找激活状态的密钥
//
// 先查 Redis 缓存，未命中回源数据库并回填。
func (s *Store) GetAPIKeyByKey(ctx context.Context, keyValue string) (*domain.APIKey, error) {
	if key, err := s.redis.GetCachedAPIKey(ctx, keyValue); err == nil {
		return key, nil
	}

	key, err := s.sql.GetAPIKeyByKey(ctx, keyValue)
	if err != nil {
		return nil, err
	}

	_ = s.redis.CacheAPIKey(ctx, key, apiKeyCacheTTL)
	return key, nil
}

// UpdateAPIKeyLastUsed 更新密钥最近使用时间
//
// last_used_at 仅为观测信息，不使缓存失效。
func (s *Store) UpdateAPIKeyLastUsed(ctx context.Context, id string, usedAt time.Time) error {
	return s.sql.UpdateAPIKeyLastUsed(ctx, id, usedAt)
}

// ========== UsageEvent Repository ==========

// AppendUsageEvent 追加一条用量审计记录
func (s *Store) AppendUsageEvent(ctx context.Context, event *domain.UsageEvent) error {
	return s.sql.AppendUsageEvent(ctx, event)
}

// CountUsageEventsSince 统计某密钥自 since 起的调用次数
func (s *Store) CountUsageEventsSince(ctx context.Context, apiKeyID string, since time.Time) (int, error) {
	return s.sql.CountUsageEventsSince(ctx, apiKeyID, since)
}

// DeleteUsageEventsBefore 删除 cutoff 之前的审计记录
func (s *Store) DeleteUsageEventsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return s.sql.DeleteUsageEventsBefore(ctx, cutoff)
}

// ========== Lifecycle ==========

// Health 检查数据库与 Redis 连通性
func (s *Store) Health(ctx context.Context) error {
	if err := s.sql.Health(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := s.redis.Health(ctx); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}

// Close 关闭所有后端连接
func (s *Store) Close() error {
	redisErr := s.redis.Close()
	if err := s.sql.Close(); err != nil {
		return err
	}
	return redisErr
}
