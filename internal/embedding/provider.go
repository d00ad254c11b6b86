package embedding

import "context"

// Provider 文本向量化服务抽象
//
// 语义检索与查重通过该接口获取查询向量。未配置向量服务时调用方持有
// nil Provider，语义能力按「未配置」处理而非报错。
type Provider interface {
	// EmbedText 将文本转换为语义向量
	EmbedText(ctx context.Context, text string) ([]float32, error)
	// Dimension 返回向量维度
	Dimension() int
}
