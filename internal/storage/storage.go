package storage

import (
	"context"
	"errors"
	"time"

	"floodwatch/backend/internal/domain"
)

var (
	// ErrReportNotFound 报告未找到错误
	ErrReportNotFound = errors.New("report not found")
	// ErrAPIKeyNotFound API 密钥未找到错误
	ErrAPIKeyNotFound = errors.New("api key not found")
)

// ReportRepository 定义灾情报告数据存取操作。
type ReportRepository interface {
	SaveReport(ctx context.Context, report *domain.Report) error
	GetReport(ctx context.Context, id string) (*domain.Report, error)
	GetReportsByIDs(ctx context.Context, ids []string) ([]domain.Report, error)
	// SearchReportsText 按文本条件检索报告，按 updated_at 降序排列
	SearchReportsText(ctx context.Context, criteria domain.ReportSearchCriteria) ([]domain.Report, error)
	// SearchReportsByEmbedding 按向量相似度检索，返回相似度不低于 threshold 的
	// 报告，按相似度降序排列，最多 limit 条
	SearchReportsByEmbedding(ctx context.Context, embedding []float32, threshold float64, limit int) ([]domain.SimilarityMatch, error)
}

// APIKeyRepository 定义 API 密钥数据存取操作。
type APIKeyRepository interface {
	SaveAPIKey(ctx context.Context, key *domain.APIKey) error
	// GetAPIKeyByKey 按密钥值查找激活状态的密钥，未找到或已停用返回 ErrAPIKeyNotFound
	GetAPIKeyByKey(ctx context.Context, keyValue string) (*domain.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id string, usedAt time.Time) error
}

// UsageEventRepository 定义用量审计记录存取操作。
type UsageEventRepository interface {
	AppendUsageEvent(ctx context.Context, event *domain.UsageEvent) error
	// CountUsageEventsSince 统计某密钥自 since 起（含）的调用次数
	CountUsageEventsSince(ctx context.Context, apiKeyID string, since time.Time) (int, error)
	// DeleteUsageEventsBefore 删除 cutoff 之前的审计记录，返回删除数量
	DeleteUsageEventsBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// Store 组合所有存储接口，提供完整的数据存取能力。
type Store interface {
	ReportRepository
	APIKeyRepository
	UsageEventRepository

	// Health 检查存储后端连通性
	Health(ctx context.Context) error
	Close() error
}
