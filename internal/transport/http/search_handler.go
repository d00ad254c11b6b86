package httptransport

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"floodwatch/backend/internal/monitoring"
	"floodwatch/backend/internal/service"
)

// SearchHandler 检索接口处理器
type SearchHandler struct {
	search  *service.SearchService
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewSearchHandler 创建检索处理器
func NewSearchHandler(search *service.SearchService, metrics *monitoring.Metrics, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{
		search:  search,
		metrics: metrics,
		logger:  logger,
	}
}

// searchRequest 检索请求体（字段名与仪表盘既有契约一致）
type searchRequest struct {
	Query         string `json:"query"`
	UrgencyFilter *int   `json:"urgencyFilter"`
	Limit         int    `json:"limit"`
	ForceSemantic bool   `json:"forceSemanticSearch"`
}

// searchResponse 检索响应体
type searchResponse struct {
	Reports    interface{} `json:"reports"`
	Count      int         `json:"count"`
	SearchType string      `json:"searchType"`
}

// Search 处理 POST /api/v1/search
func (h *SearchHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, KindValidationError, "Invalid JSON body")
		return
	}

	result, err := h.search.Search(c.Request.Context(), service.SearchInput{
		Query:         req.Query,
		UrgencyFilter: req.UrgencyFilter,
		Limit:         req.Limit,
		ForceSemantic: req.ForceSemantic,
	})
	if err != nil {
		if errors.Is(err, service.ErrQueryRequired) {
			writeError(c, http.StatusBadRequest, KindValidationError, "Query is required")
			return
		}
		h.logger.Error("search failed",
			zap.String("query", req.Query),
			zap.Error(err))
		h.metrics.ErrorsTotal.WithLabelValues("search").Inc()
		writeClassifiedError(c, err)
		return
	}

	tier := string(result.Tier)
	h.metrics.SearchesTotal.WithLabelValues(tier).Inc()
	h.metrics.SearchResultCount.WithLabelValues(tier).Observe(float64(len(result.Reports)))

	c.JSON(http.StatusOK, searchResponse{
		Reports:    result.Reports,
		Count:      len(result.Reports),
		SearchType: tier,
	})
}
