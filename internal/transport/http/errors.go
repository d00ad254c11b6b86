package httptransport

import (
	"errors"
	"net/http"

	"floodwatch/backend/internal/domain"
	"floodwatch/backend/internal/service"
)

// 机器可读的错误类别，随错误响应一并返回
const (
	KindAuthError         = "auth_error"
	KindRateLimitExceeded = "rate_limit_exceeded"
	KindValidationError   = "validation_error"
	KindUpstreamError     = "upstream_error"
	KindInternalError     = "internal_error"
)

// 校验类业务错误的对外消息
var validationMessages = map[error]string{
	service.ErrQueryRequired:      "Query is required",
	domain.ErrReportNameRequired:  "Name is required",
	domain.ErrRawMessageRequired:  "Raw message is required",
	domain.ErrEmbeddingEmpty:      "Embedding must be a non-empty numeric vector",
	domain.ErrEmbeddingNotFinite:  "Embedding must contain only finite numbers",
	domain.ErrUnknownHelpCategory: "Unknown help category",
}

// classifyError 将业务错误映射为 HTTP 状态码、错误类别与对外消息
//
// 上游失败（向量服务、相似度检索）统一对外 502，类别为
// upstream_error；未识别的错误一律按服务端内部错误处理，不泄露
// 内部细节。
func classifyError(err error) (status int, kind, message string) {
	for known, msg := range validationMessages {
		if errors.Is(err, known) {
			return http.StatusBadRequest, KindValidationError, msg
		}
	}

	var upstream *service.UpstreamError
	if errors.As(err, &upstream) {
		return http.StatusBadGateway, KindUpstreamError, "Upstream dependency failed"
	}

	return http.StatusInternalServerError, KindInternalError, "Internal server error"
}
