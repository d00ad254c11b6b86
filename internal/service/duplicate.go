package service

import (
	"context"

	"go.uber.org/zap"

	"floodwatch/backend/internal/domain"
	"floodwatch/backend/internal/storage"
)

// 查重默认参数
const (
	defaultDuplicateThreshold = 0.85
	defaultDuplicateLimit     = 5
)

// DuplicateService 重复上报检测服务
//
// 入口在新上报入库前调用：用候选记录的语义向量在库内检索高相似度
// 报告，由人工复核决定是否合并。
type DuplicateService struct {
	store  storage.Store
	logger *zap.Logger

	threshold float64
	limit     int
}

// DuplicateOptions 查重服务初始化参数
type DuplicateOptions struct {
	Threshold float64 // 相似度阈值，默认 0.85
	Limit     int     // 候选条数上限，默认 5
}

// NewDuplicateService 创建查重服务
func NewDuplicateService(store storage.Store, logger *zap.Logger, opts DuplicateOptions) *DuplicateService {
	if opts.Threshold == 0 {
		opts.Threshold = defaultDuplicateThreshold
	}
	if opts.Limit <= 0 {
		opts.Limit = defaultDuplicateLimit
	}
	return &DuplicateService{
		store:     store,
		logger:    logger,
		threshold: opts.Threshold,
		limit:     opts.Limit,
	}
}

// CheckDuplicatesInput 查重输入
type CheckDuplicatesInput struct {
	Embedding []float32 // 候选记录的语义向量（必填）
	Threshold *float64  // 相似度阈值，nil 使用默认值
	Limit     *int      // 候选条数上限，nil 使用默认值
}

// CheckDuplicates 检测疑似重复的上报记录
//
// 候选按相似度降序排列；阈值与条数允许按请求覆盖默认值。
//
// 返回值:
//   - []domain.DuplicateCandidate: 疑似重复的报告及相似度
//   - error: 向量非法返回 domain 校验错误；检索失败返回 UpstreamError
func (s *DuplicateService) CheckDuplicates(ctx context.Context, input CheckDuplicatesInput) ([]domain.DuplicateCandidate, error) {
	if err := domain.ValidateEmbedding(input.Embedding); err != nil {
		return nil, err
	}

	threshold := s.threshold
	if input.Threshold != nil {
		threshold = *input.Threshold
	}
	limit := s.limit
	if input.Limit != nil && *input.Limit > 0 {
		limit = *input.Limit
	}

	matches, err := s.store.SearchReportsByEmbedding(ctx, input.Embedding, threshold, limit)
	if err != nil {
		return nil, &UpstreamError{Upstream: "similarity-search", Err: err}
	}
	if len(matches) == 0 {
		return []domain.DuplicateCandidate{}, nil
	}

	ids := make([]string, 0, len(matches))
	scores := make(map[string]float64, len(matches))
	for _, match := range matches {
		ids = append(ids, match.ReportID)
		scores[match.ReportID] = match.Score
	}

	reports, err := s.store.GetReportsByIDs(ctx, ids)
	if err != nil {
		return nil, &UpstreamError{Upstream: "similarity-search", Err: err}
	}

	byID := make(map[string]domain.Report, len(reports))
	for _, report := range reports {
		byID[report.ID] = report
	}

	// 保持相似度排名顺序
	candidates := make([]domain.DuplicateCandidate, 0, len(matches))
	for _, match := range matches {
		report, ok := byID[match.ReportID]
		if !ok {
			// 检索与读取之间记录被删除，跳过
			s.logger.Debug("duplicate candidate vanished between search and fetch",
				zap.String("report_id", match.ReportID))
			continue
		}
		candidates = append(candidates, domain.DuplicateCandidate{
			ReportID: report.ID,
			Score:    scores[match.ReportID],
			Report:   report,
		})
	}

	return candidates, nil
}
