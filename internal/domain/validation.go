package domain

import (
	"errors"
	"math"
	"strings"
)

// 验证相关的错误定义
var (
	ErrReportNameRequired  = errors.New("name is required")
	ErrRawMessageRequired  = errors.New("raw_message is required")
	ErrEmbeddingEmpty      = errors.New("embedding must be a non-empty numeric vector")
	ErrEmbeddingNotFinite  = errors.New("embedding must contain only finite numbers")
	ErrUnknownHelpCategory = errors.New("unknown help category")
)

// HelpCategoryValues 上游抽取流程允许的求助类别
var HelpCategoryValues = []string{
	"water", "food", "power", "shelter", "medical", "missing",
	"evacuation", "medicine", "clothes", "bathing", "drowning",
	"trapped", "unreachable",
}

// ReportValidator 灾情上报校验器
type ReportValidator struct {
	knownCategories map[string]bool
}

// NewReportValidator 创建灾情上报校验器
func NewReportValidator() *ReportValidator {
	known := make(map[string]bool, len(HelpCategoryValues))
	for _, c := range HelpCategoryValues {
		known[c] = true
	}
	return &ReportValidator{knownCategories: known}
}

// ValidateForSave 校验待保存的上报记录
//
// 只有 name 和 raw_message 是硬性要求，其余字段允许为空：
// 提报渠道常常只拿得到残缺信息。
func (v *ReportValidator) ValidateForSave(report *Report) error {
	if strings.TrimSpace(report.Name) == "" {
		return ErrReportNameRequired
	}
	if strings.TrimSpace(report.RawMessage) == "" {
		return ErrRawMessageRequired
	}
	return nil
}

// ValidateCategories 校验求助类别是否均为已知取值
func (v *ReportValidator) ValidateCategories(categories []string) error {
	for _, c := range categories {
		if !v.knownCategories[c] {
			return ErrUnknownHelpCategory
		}
	}
	return nil
}

// ValidateEmbedding 校验查重请求携带的语义向量
//
// 向量必须非空且每个分量都是有限数；维度不做校验，
// 由存储层的相似度原语负责与库内向量对齐。
func ValidateEmbedding(embedding []float32) error {
	if len(embedding) == 0 {
		return ErrEmbeddingEmpty
	}
	for _, component := range embedding {
		value := float64(component)
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return ErrEmbeddingNotFinite
		}
	}
	return nil
}
