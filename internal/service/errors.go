package service

import (
	"errors"
	"fmt"
)

var (
	// ErrAPIKeyRequired 请求未携带 API 密钥
	ErrAPIKeyRequired = errors.New("API key is required")
	// ErrAPIKeyInvalid API 密钥不存在或已停用
	ErrAPIKeyInvalid = errors.New("invalid API key")
	// ErrQueryRequired 检索关键词为空
	ErrQueryRequired = errors.New("query is required")
)

// RateLimitExceededError 密钥超出每分钟调用配额
type RateLimitExceededError struct {
	Limit int // 每分钟配额
}

func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("Rate limit exceeded. Maximum %d requests per minute.", e.Limit)
}

// IsRateLimitExceeded 判断错误是否为配额超限
func IsRateLimitExceeded(err error) bool {
	var rateErr *RateLimitExceededError
	return errors.As(err, &rateErr)
}

// UpstreamError 上游依赖（向量服务、数据库相似度检索）调用失败
type UpstreamError struct {
	Upstream string // 上游标识，如 "embedding"、"similarity-search"
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s failed: %v", e.Upstream, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
