package sql

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"floodwatch/backend/internal/domain"
	"floodwatch/backend/internal/storage"
)

// Store PostgreSQL 数据库存储实现
//
// 相似度检索委托给数据库端的 find_similar_reports 函数（pgvector），
// 文本检索使用 ILIKE 多字段匹配。
type Store struct {
	db *gorm.DB
}

// Options 数据库连接池配置
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewStore 创建 PostgreSQL 存储
//
// 参数:
//   - dsn: PostgreSQL 连接字符串
//   - opts: 连接池配置
//
// 返回值:
//   - *Store: 存储实例，已完成自动迁移
//   - error: 连接或迁移失败时返回错误
func NewStore(dsn string, opts Options) (*Store, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access underlying connection: %w", err)
	}

	// 设置连接池参数
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate 执行数据库迁移（使用 GORM AutoMigrate）
func (s *Store) migrate() error {
	return s.db.AutoMigrate(
		&domain.Report{},
		&domain.APIKey{},
		&domain.UsageEvent{},
	)
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health 检查数据库健康状态
func (s *Store) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// ========== Report Repository ==========

// SaveReport 保存灾情报告（存在则覆盖）
func (s *Store) SaveReport(ctx context.Context, report *domain.Report) error {
	return s.db.WithContext(ctx).Save(report).Error
}

// GetReport 按 ID 获取报告
func (s *Store) GetReport(ctx context.Context, id string) (*domain.Report, error) {
	var report domain.Report
	err := s.db.WithContext(ctx).First(&report, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// GetReportsByIDs 批量获取报告，未找到的 ID 被跳过
func (s *Store) GetReportsByIDs(ctx context.Context, ids []string) ([]domain.Report, error) {
	if len(ids) == 0 {
		return []domain.Report{}, nil
	}
	var reports []domain.Report
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}

// SearchReportsText 按文本条件检索报告
//
// 关键词对姓名、姓氏、地址、上报人、健康状况、所需援助、补充信息做
// ILIKE 匹配，电话号码为 JSON 数组成员精确匹配；紧急级别为精确过滤。
// 结果按 updated_at 降序排列。
func (s *Store) SearchReportsText(ctx context.Context, criteria domain.ReportSearchCriteria) ([]domain.Report, error) {
	query := s.db.WithContext(ctx).Model(&domain.Report{})

	trimmed := strings.TrimSpace(criteria.Query)
	if trimmed != "" {
		pattern := "%" + escapeLike(trimmed) + "%"
		query = query.Where(
			s.db.Where("name ILIKE ?", pattern).
				Or("lastname ILIKE ?", pattern).
				Or("address ILIKE ?", pattern).
				Or("reporter_name ILIKE ?", pattern).
				Or("health_condition ILIKE ?", pattern).
				Or("help_needed ILIKE ?", pattern).
				Or("additional_info ILIKE ?", pattern).
				Or("jsonb_exists(CAST(phone AS jsonb), ?)", trimmed),
		)
	}

	if criteria.UrgencyFilter != nil {
		query = query.Where("urgency_level = ?", *criteria.UrgencyFilter)
	}

	query = query.Order("updated_at DESC")
	if criteria.Limit > 0 {
		query = query.Limit(criteria.Limit)
	}

	var reports []domain.Report
	if err := query.Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}

// escapeLike 转义 LIKE 模式中的通配符
func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}

// SearchReportsByEmbedding 按向量相似度检索报告
//
// 委托给数据库端的 find_similar_reports(query_embedding, threshold, limit)
// 函数，结果已按相似度降序排列。
func (s *Store) SearchReportsByEmbedding(ctx context.Context, embedding []float32, threshold float64, limit int) ([]domain.SimilarityMatch, error) {
	var rows []struct {
		ID         string
		Similarity float64
	}
	err := s.db.WithContext(ctx).
		Raw("SELECT id, similarity FROM find_similar_reports(?::vector, ?, ?)",
			vectorLiteral(embedding), threshold, limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	matches := make([]domain.SimilarityMatch, 0, len(rows))
	for _, row := range rows {
		matches = append(matches, domain.SimilarityMatch{ReportID: row.ID, Score: row.Similarity})
	}
	return matches, nil
}

// vectorLiteral 将向量序列化为 pgvector 文本格式 "[0.1,0.2,...]"
func vectorLiteral(embedding []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range embedding {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// ========== APIKey Repository ==========

// SaveAPIKey 保存 API 密钥（存在则覆盖）
func (s *Store) SaveAPIKey(ctx context.Context, key *domain.APIKey) error {
	return s.db.WithContext(ctx).Save(key).Error
}

// GetAPIKeyByKey 按密钥值查找激活状态的密钥
func (s *Store) GetAPIKeyByKey(ctx context.Context, keyValue string) (*domain.APIKey, error) {
	var key domain.APIKey
	err := s.db.WithContext(ctx).
		Where("api_key = ? AND is_active = ?", keyValue, true).
		First(&key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrAPIKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// UpdateAPIKeyLastUsed 更新密钥最近使用时间
func (s *Store) UpdateAPIKeyLastUsed(ctx context.Context, id string, usedAt time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&domain.APIKey{}).
		Where("id = ?", id).
		Update("last_used_at", usedAt)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrAPIKeyNotFound
	}
	return nil
}

// ========== UsageEvent Repository ==========

// AppendUsageEvent 追加一条用量审计记录
func (s *Store) AppendUsageEvent(ctx context.Context, event *domain.UsageEvent) error {
	return s.db.WithContext(ctx).Create(event).Error
}

// CountUsageEventsSince 统计某密钥自 since 起（含）的调用次数
func (s *Store) CountUsageEventsSince(ctx context.Context, apiKeyID string, since time.Time) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&domain.UsageEvent{}).
		Where("api_key_id = ? AND created_at >= ?", apiKeyID, since).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// DeleteUsageEventsBefore 删除 cutoff 之前的审计记录
func (s *Store) DeleteUsageEventsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	result := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&domain.UsageEvent{})
	if result.Error != nil {
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}
