package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"floodwatch/backend/internal/domain"
	"floodwatch/backend/internal/embedding"
	"floodwatch/backend/internal/storage"
)

// SearchService 分层检索服务
//
// 检索按「先精确后语义」分层：文本检索命中即返回；未命中时降级为
// 向量相似度检索；未配置向量服务时语义层按「不可用」处理，返回空
// 结果而非错误。
type SearchService struct {
	store    storage.Store
	provider embedding.Provider // 可为 nil，表示语义检索未配置
	logger   *zap.Logger

	defaultLimit      int
	semanticThreshold float64
}

// SearchOptions 检索服务初始化参数
type SearchOptions struct {
	DefaultLimit      int     // 默认返回条数，默认 100
	SemanticThreshold float64 // 语义检索相似度阈值，默认 0.5
}

// NewSearchService 创建检索服务
//
// 参数:
//   - store: 存储后端
//   - provider: 向量服务，传 nil 表示未配置
//   - logger: 日志记录器
//   - opts: 阈值参数
func NewSearchService(store storage.Store, provider embedding.Provider, logger *zap.Logger, opts SearchOptions) *SearchService {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 100
	}
	if opts.SemanticThreshold == 0 {
		opts.SemanticThreshold = 0.5
	}
	return &SearchService{
		store:             store,
		provider:          provider,
		logger:            logger,
		defaultLimit:      opts.DefaultLimit,
		semanticThreshold: opts.SemanticThreshold,
	}
}

// SearchInput 检索输入
type SearchInput struct {
	Query         string // 检索关键词（必填）
	UrgencyFilter *int   // 紧急级别过滤（可选）
	Limit         int    // 返回条数上限，非正数使用默认值
	ForceSemantic bool   // 跳过文本层，直接语义检索
}

// Search 执行分层检索
//
// 检索流程：
//  1. 文本层：多字段模糊匹配，命中即返回 searchType=exact；
//     ForceSemantic 为 true 时跳过
//  2. 文本层出错时记录日志并继续降级，不中断请求
//  3. 语义层：向量化关键词后按相似度检索，返回 searchType=semantic，
//     结果按相似度降序排列
//  4. 向量服务未配置时返回空结果，searchType=none
//
// 返回值:
//   - *domain.SearchResult: 检索结果与命中层级
//   - error: 关键词为空返回 ErrQueryRequired；语义层失败返回 UpstreamError
func (s *SearchService) Search(ctx context.Context, input SearchInput) (*domain.SearchResult, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, ErrQueryRequired
	}

	limit := input.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}

	criteria := domain.ReportSearchCriteria{
		Query:         query,
		UrgencyFilter: input.UrgencyFilter,
		Limit:         limit,
	}

	if !input.ForceSemantic {
		reports, err := s.store.SearchReportsText(ctx, criteria)
		if err != nil {
			// 文本层失败不中断检索，继续尝试语义层
			s.logger.Warn("text search failed, falling back to semantic tier",
				zap.String("query", query),
				zap.Error(err))
		} else if len(reports) > 0 {
			return &domain.SearchResult{Reports: reports, Tier: domain.SearchTierExact}, nil
		}
	}

	return s.semanticSearch(ctx, query, criteria)
}

// semanticSearch 语义层检索
func (s *SearchService) semanticSearch(ctx context.Context, query string, criteria domain.ReportSearchCriteria) (*domain.SearchResult, error) {
	if s.provider == nil {
		// 未配置向量服务：空结果是正常响应，不是错误
		return &domain.SearchResult{Reports: []domain.Report{}, Tier: domain.SearchTierNone}, nil
	}

	vector, err := s.provider.EmbedText(ctx, query)
	if err != nil {
		return nil, &UpstreamError{Upstream: "embedding", Err: err}
	}

	matches, err := s.store.SearchReportsByEmbedding(ctx, vector, s.semanticThreshold, criteria.Limit)
	if err != nil {
		return nil, &UpstreamError{Upstream: "similarity-search", Err: err}
	}
	if len(matches) == 0 {
		return &domain.SearchResult{Reports: []domain.Report{}, Tier: domain.SearchTierSemantic}, nil
	}

	ids := make([]string, 0, len(matches))
	for _, match := range matches {
		ids = append(ids, match.ReportID)
	}

	reports, err := s.store.GetReportsByIDs(ctx, ids)
	if err != nil {
		return nil, &UpstreamError{Upstream: "similarity-search", Err: err}
	}

	// 批量读取不保证顺序，按相似度排名重排
	ordered := orderBySimilarity(reports, matches)

	if criteria.UrgencyFilter != nil {
		filtered := ordered[:0]
		for _, report := range ordered {
			if report.UrgencyLevel == *criteria.UrgencyFilter {
				filtered = append(filtered, report)
			}
		}
		ordered = filtered
	}

	return &domain.SearchResult{Reports: ordered, Tier: domain.SearchTierSemantic}, nil
}

// orderBySimilarity 将报告按相似度排名重排，未命中排名的报告被丢弃
func orderBySimilarity(reports []domain.Report, matches []domain.SimilarityMatch) []domain.Report {
	byID := make(map[string]domain.Report, len(reports))
	for _, report := range reports {
		byID[report.ID] = report
	}

	ordered := make([]domain.Report, 0, len(matches))
	for _, match := range matches {
		if report, ok := byID[match.ReportID]; ok {
			ordered = append(ordered, report)
		}
	}
	return ordered
}
