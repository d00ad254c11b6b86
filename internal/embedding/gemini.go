package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

// text-embedding-004 固定输出 768 维向量
const geminiEmbeddingDimension = 768

// MetricsRecorder 记录出站向量化调用的指标
type MetricsRecorder interface {
	ObserveEmbeddingRequest(status string, elapsed time.Duration)
}

// GeminiProvider 基于 Gemini Embedding API 的向量化实现
type GeminiProvider struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
	metrics MetricsRecorder
	logger  *zap.Logger
}

// GeminiOptions Gemini 向量服务构建参数
type GeminiOptions struct {
	APIKey         string          // API 密钥（必填）
	Model          string          // 模型名称，默认 text-embedding-004
	Timeout        time.Duration   // 单次调用超时，默认 30s
	RequestsPerSec float64         // 出站速率上限，默认 5
	Metrics        MetricsRecorder // 指标记录器（可选）
}

// NewGeminiProvider 创建 Gemini 向量服务
//
// 参数:
//   - ctx: 用于建立 API 连接的上下文
//   - opts: 构建参数
//   - logger: 日志记录器
//
// 返回值:
//   - *GeminiProvider: 向量服务实例
//   - error: 密钥为空或连接建立失败时返回错误
func NewGeminiProvider(ctx context.Context, opts GeminiOptions, logger *zap.Logger) (*GeminiProvider, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if opts.Model == "" {
		opts.Model = "text-embedding-004"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RequestsPerSec <= 0 {
		opts.RequestsPerSec = 5
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(opts.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiProvider{
		client:  client,
		model:   opts.Model,
		timeout: opts.Timeout,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSec), 1),
		metrics: opts.Metrics,
		logger:  logger,
	}, nil
}

// EmbedText 将文本转换为语义向量
//
// 出站调用受速率限制器约束，超时由 timeout 控制。
//
// 返回值:
//   - []float32: 768 维语义向量
//   - error: 速率等待被取消或 API 调用失败时返回错误
func (p *GeminiProvider) EmbedText(ctx context.Context, text string) ([]float32, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, fmt.Errorf("text for embedding is empty")
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	result, err := p.client.EmbeddingModel(p.model).EmbedContent(callCtx, genai.Text(trimmed))
	elapsed := time.Since(start)

	if err != nil {
		p.record("error", elapsed)
		p.logger.Warn("embedding request failed",
			zap.String("model", p.model),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return nil, fmt.Errorf("embed content: %w", err)
	}

	if result.Embedding == nil || len(result.Embedding.Values) == 0 {
		p.record("error", elapsed)
		return nil, fmt.Errorf("embedding response is empty")
	}

	p.record("success", elapsed)

	p.logger.Debug("embedding request completed",
		zap.String("model", p.model),
		zap.Int("dimension", len(result.Embedding.Values)),
		zap.Duration("elapsed", elapsed))

	return result.Embedding.Values, nil
}

func (p *GeminiProvider) record(status string, elapsed time.Duration) {
	if p.metrics != nil {
		p.metrics.ObserveEmbeddingRequest(status, elapsed)
	}
}

// Dimension 返回向量维度
func (p *GeminiProvider) Dimension() int {
	return geminiEmbeddingDimension
}

// Close 关闭底层 API 连接
func (p *GeminiProvider) Close() error {
	return p.client.Close()
}
