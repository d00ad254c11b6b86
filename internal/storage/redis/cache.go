package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"floodwatch/backend/internal/domain"
)

// ErrCacheMiss 缓存未命中
var ErrCacheMiss = errors.New("cache miss")

// Cache Redis 缓存实现
//
// 仅缓存 API 密钥查找结果（按密钥值索引），降低网关对数据库的读取
// 压力。滚动限流计数不走缓存，始终以审计记录为准。
type Cache struct {
	client *redis.Client
}

// NewCache 创建 Redis 缓存实例
//
// 参数:
//   - addr: Redis 服务地址
//   - password: 认证密码，留空表示无密码
//   - db: 数据库编号
//
// 返回值:
//   - *Cache: 缓存实例
//   - error: 连接失败时返回错误
func NewCache(addr, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: 10,
	})

	// 测试连接
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// ========== API 密钥缓存 ==========

// apiKeyCacheKey 密钥值 -> 缓存键
func apiKeyCacheKey(keyValue string) string {
	return fmt.Sprintf("apikey:%s", keyValue)
}

// CacheAPIKey 缓存 API 密钥查找结果
func (c *Cache) CacheAPIKey(ctx context.Context, key *domain.APIKey, ttl time.Duration) error {
	data, err := json.Marshal(key)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, apiKeyCacheKey(key.Key), data, ttl).Err()
}

// GetCachedAPIKey 获取缓存的 API 密钥，未命中返回 ErrCacheMiss
func (c *Cache) GetCachedAPIKey(ctx context.Context, keyValue string) (*domain.APIKey, error) {
	data, err := c.client.Get(ctx, apiKeyCacheKey(keyValue)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	var key domain.APIKey
	if err := json.Unmarshal([]byte(data), &key); err != nil {
		return nil, err
	}
	return &key, nil
}

// InvalidateAPIKey 删除密钥缓存（密钥变更或停用时调用）
func (c *Cache) InvalidateAPIKey(ctx context.Context, keyValue string) error {
	return c.client.Del(ctx, apiKeyCacheKey(keyValue)).Err()
}

// ========== Lifecycle ==========

// Health 检查 Redis 连通性
func (c *Cache) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close 关闭 Redis 连接
func (c *Cache) Close() error {
	return c.client.Close()
}
