package memory

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"floodwatch/backend/internal/domain"
	"floodwatch/backend/internal/storage"
)

// Store 内存存储实现，用于开发模式和测试。
// 所有操作均为深拷贝语义，调用方修改返回值不会影响存储内容。
type Store struct {
	mu          sync.RWMutex
	reports     map[string]domain.Report
	apiKeys     map[string]domain.APIKey // 按 ID 索引
	keysByValue map[string]string        // 密钥值 -> ID
	usageEvents []domain.UsageEvent
}

// NewStore 创建内存存储实例
func NewStore() *Store {
	return &Store{
		reports:     make(map[string]domain.Report),
		apiKeys:     make(map[string]domain.APIKey),
		keysByValue: make(map[string]string),
	}
}

// ========== Report Repository ==========

// SaveReport 保存灾情报告（存在则覆盖）
func (s *Store) SaveReport(ctx context.Context, report *domain.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[report.ID] = cloneReport(*report)
	return nil
}

// GetReport 按 ID 获取报告
func (s *Store) GetReport(ctx context.Context, id string) (*domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.reports[id]
	if !ok {
		return nil, storage.ErrReportNotFound
	}
	copied := cloneReport(report)
	return &copied, nil
}

// GetReportsByIDs 批量获取报告，未找到的 ID 被跳过
func (s *Store) GetReportsByIDs(ctx context.Context, ids []string) ([]domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results := make([]domain.Report, 0, len(ids))
	for _, id := range ids {
		if report, ok := s.reports[id]; ok {
			results = append(results, cloneReport(report))
		}
	}
	return results, nil
}

// SearchReportsText 按文本条件检索报告
//
// 匹配规则：
//   - 关键词对姓名、姓氏、地址、上报人、健康状况、所需援助、补充信息
//     做大小写不敏感的子串匹配，电话号码为精确成员匹配，任一命中即可
//   - 紧急级别过滤为精确匹配，与关键词为「与」关系
//   - 结果按 updated_at 降序排列，最多 Limit 条
func (s *Store) SearchReportsText(ctx context.Context, criteria domain.ReportSearchCriteria) ([]domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := strings.ToLower(strings.TrimSpace(criteria.Query))

	matched := make([]domain.Report, 0)
	for _, report := range s.reports {
		if criteria.UrgencyFilter != nil && report.UrgencyLevel != *criteria.UrgencyFilter {
			continue
		}
		if query != "" && !matchesQuery(&report, query) {
			continue
		}
		matched = append(matched, cloneReport(report))
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].UpdatedAt.Equal(matched[j].UpdatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})

	if criteria.Limit > 0 && len(matched) > criteria.Limit {
		matched = matched[:criteria.Limit]
	}
	return matched, nil
}

// matchesQuery 判断报告是否命中关键词（query 已转为小写）
func matchesQuery(report *domain.Report, query string) bool {
	fields := []string{
		report.Name,
		report.Lastname,
		report.Address,
		report.ReporterName,
		report.HealthCondition,
		report.HelpNeeded,
		report.AdditionalInfo,
	}
	for _, field := range fields {
		if field != "" && strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	// 电话号码为数组成员精确匹配
	return report.Phone.Contains(query)
}

// SearchReportsByEmbedding 按向量余弦相似度检索报告
//
// 没有向量的报告被跳过；结果按相似度降序排列，相似度相同时按 ID 升序，
// 保证结果确定性。
func (s *Store) SearchReportsByEmbedding(ctx context.Context, embedding []float32, threshold float64, limit int) ([]domain.SimilarityMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]domain.SimilarityMatch, 0)
	for _, report := range s.reports {
		if !report.HasEmbedding() {
			continue
		}
		score := cosineSimilarity(embedding, report.Embedding)
		if score >= threshold {
			matches = append(matches, domain.SimilarityMatch{ReportID: report.ID, Score: score})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score == matches[j].Score {
			return matches[i].ReportID < matches[j].ReportID
		}
		return matches[i].Score > matches[j].Score
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// cosineSimilarity 计算两个向量的余弦相似度
//
// 使用 float64 累加避免精度损失；维度不一致或零向量返回 0。
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// ========== APIKey Repository ==========

// SaveAPIKey 保存 API 密钥（存在则覆盖）
func (s *Store) SaveAPIKey(ctx context.Context, key *domain.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *key
	s.apiKeys[copied.ID] = copied
	s.keysByValue[copied.Key] = copied.ID
	return nil
}

// GetAPIKeyByKey 按密钥值查找激活状态的密钥
func (s *Store) GetAPIKeyByKey(ctx context.Context, keyValue string) (*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.keysByValue[keyValue]
	if !ok {
		return nil, storage.ErrAPIKeyNotFound
	}
	key, ok := s.apiKeys[id]
	if !ok || !key.IsActive {
		return nil, storage.ErrAPIKeyNotFound
	}
	copied := key
	return &copied, nil
}

// UpdateAPIKeyLastUsed 更新密钥最近使用时间
func (s *Store) UpdateAPIKeyLastUsed(ctx context.Context, id string, usedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.apiKeys[id]
	if !ok {
		return storage.ErrAPIKeyNotFound
	}
	key.LastUsedAt = &usedAt
	s.apiKeys[id] = key
	return nil
}

// ========== UsageEvent Repository ==========

// AppendUsageEvent 追加一条用量审计记录
func (s *Store) AppendUsageEvent(ctx context.Context, event *domain.UsageEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usageEvents = append(s.usageEvents, *event)
	return nil
}

// CountUsageEventsSince 统计某密钥自 since 起（含）的调用次数
func (s *Store) CountUsageEventsSince(ctx context.Context, apiKeyID string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, event := range s.usageEvents {
		if event.APIKeyID == apiKeyID && !event.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// DeleteUsageEventsBefore 删除 cutoff 之前的审计记录
func (s *Store) DeleteUsageEventsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.usageEvents[:0]
	deleted := 0
	for _, event := range s.usageEvents {
		if event.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, event)
	}
	s.usageEvents = kept
	return deleted, nil
}

// ========== Lifecycle ==========

// Health 内存存储始终健康
func (s *Store) Health(ctx context.Context) error {
	return nil
}

// Close 关闭存储（内存存储无需释放资源）
func (s *Store) Close() error {
	return nil
}

// cloneReport 深拷贝报告，切片字段独立分配
func cloneReport(report domain.Report) domain.Report {
	copied := report
	if report.Phone != nil {
		copied.Phone = append(domain.Strings(nil), report.Phone...)
	}
	if report.HelpCategories != nil {
		copied.HelpCategories = append(domain.Strings(nil), report.HelpCategories...)
	}
	if report.Embedding != nil {
		copied.Embedding = append(domain.Vector(nil), report.Embedding...)
	}
	return copied
}
