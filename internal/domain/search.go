package domain

// SearchTier 检索层级标识
type SearchTier string

const (
	// SearchTierExact 文本层命中
	SearchTierExact SearchTier = "exact"
	// SearchTierSemantic 语义层命中
	SearchTierSemantic SearchTier = "semantic"
	// SearchTierNone 未配置向量服务且文本层无命中
	SearchTierNone SearchTier = "none"
)

// ReportSearchCriteria 文本层检索条件
type ReportSearchCriteria struct {
	Query         string // 搜索关键词（必填）
	UrgencyFilter *int   // 紧急程度筛选（不做范围钳制，原样下推）
	Limit         int    // 返回条数上限
}

// SearchResult 分层检索结果
type SearchResult struct {
	Reports []Report   `json:"reports"`
	Tier    SearchTier `json:"searchType"`
}

// SimilarityMatch 相似度匹配结果，仅在单次请求内存在，从不落库
type SimilarityMatch struct {
	ReportID string  `json:"id"`
	Score    float64 `json:"score"` // 余弦相似度，理论区间 [-1,1]，本向量空间实际 [0,1]
}

// DuplicateCandidate 查重候选：id 与 score 平铺在顶层，report 附带完整记录
type DuplicateCandidate struct {
	ReportID string  `json:"id"`
	Score    float64 `json:"score"`
	Report   Report  `json:"report"`
}
