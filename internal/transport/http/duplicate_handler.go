package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"floodwatch/backend/internal/domain"
	"floodwatch/backend/internal/monitoring"
	"floodwatch/backend/internal/service"
)

// DuplicateHandler 查重接口处理器
type DuplicateHandler struct {
	duplicates *service.DuplicateService
	metrics    *monitoring.Metrics
	logger     *zap.Logger
}

// NewDuplicateHandler 创建查重处理器
func NewDuplicateHandler(duplicates *service.DuplicateService, metrics *monitoring.Metrics, logger *zap.Logger) *DuplicateHandler {
	return &DuplicateHandler{
		duplicates: duplicates,
		metrics:    metrics,
		logger:     logger,
	}
}

// checkDuplicatesRequest 查重请求体
type checkDuplicatesRequest struct {
	Embedding []float32 `json:"embedding"`
	Threshold *float64  `json:"threshold"`
	Limit     *int      `json:"limit"`
}

// checkDuplicatesResponse 查重响应体
type checkDuplicatesResponse struct {
	Duplicates []domain.DuplicateCandidate `json:"duplicates"`
	Count      int                         `json:"count"`
}

// CheckDuplicates 处理 POST /api/v1/check-duplicates
func (h *DuplicateHandler) CheckDuplicates(c *gin.Context) {
	var req checkDuplicatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, KindValidationError, "Invalid JSON body")
		return
	}

	candidates, err := h.duplicates.CheckDuplicates(c.Request.Context(), service.CheckDuplicatesInput{
		Embedding: req.Embedding,
		Threshold: req.Threshold,
		Limit:     req.Limit,
	})
	if err != nil {
		h.metrics.ErrorsTotal.WithLabelValues("check_duplicates").Inc()
		h.logger.Warn("duplicate check failed", zap.Error(err))
		writeClassifiedError(c, err)
		return
	}

	h.metrics.DuplicateChecksTotal.Inc()
	h.metrics.DuplicatesFound.Add(float64(len(candidates)))

	c.JSON(http.StatusOK, checkDuplicatesResponse{
		Duplicates: candidates,
		Count:      len(candidates),
	})
}
