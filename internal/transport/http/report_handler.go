package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"floodwatch/backend/internal/service"
)

// ReportHandler 上报接口处理器
type ReportHandler struct {
	reports *service.ReportService
	logger  *zap.Logger
}

// NewReportHandler 创建上报处理器
func NewReportHandler(reports *service.ReportService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		reports: reports,
		logger:  logger,
	}
}

// saveReportRequest 上报保存请求体
//
// 字段名与提报渠道（LINE 机器人抽取流程）的载荷保持一致。
type saveReportRequest struct {
	Name             string    `json:"name"`
	Lastname         string    `json:"lastname"`
	ReporterName     string    `json:"reporter_name"`
	Phone            []string  `json:"phone"`
	Address          string    `json:"address"`
	MapLink          *string   `json:"map_link"`
	LocationLat      *float64  `json:"location_lat"`
	LocationLong     *float64  `json:"location_long"`
	NumberOfAdults   int       `json:"number_of_adults"`
	NumberOfChildren int       `json:"number_of_children"`
	NumberOfInfants  int       `json:"number_of_infants"`
	NumberOfSeniors  int       `json:"number_of_seniors"`
	NumberOfPatients int       `json:"number_of_patients"`
	HealthCondition  string    `json:"health_condition"`
	HelpNeeded       string    `json:"help_needed"`
	HelpCategories   []string  `json:"help_categories"`
	AdditionalInfo   string    `json:"additional_info"`
	UrgencyLevel     int       `json:"urgency_level"`
	RawMessage       string    `json:"raw_message"`
	Embedding        []float32 `json:"embedding"`
}

// saveReportResponse 上报保存响应体
type saveReportResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      string `json:"id"`
}

// SaveReport 处理 POST /api/v1/reports
func (h *ReportHandler) SaveReport(c *gin.Context) {
	var req saveReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, KindValidationError, "Invalid JSON body")
		return
	}

	report, err := h.reports.SaveReport(c.Request.Context(), service.SaveReportInput{
		Name:             req.Name,
		Lastname:         req.Lastname,
		ReporterName:     req.ReporterName,
		Phone:            req.Phone,
		Address:          req.Address,
		MapLink:          req.MapLink,
		LocationLat:      req.LocationLat,
		LocationLong:     req.LocationLong,
		NumberOfAdults:   req.NumberOfAdults,
		NumberOfChildren: req.NumberOfChildren,
		NumberOfInfants:  req.NumberOfInfants,
		NumberOfSeniors:  req.NumberOfSeniors,
		NumberOfPatients: req.NumberOfPatients,
		HealthCondition:  req.HealthCondition,
		HelpNeeded:       req.HelpNeeded,
		HelpCategories:   req.HelpCategories,
		AdditionalInfo:   req.AdditionalInfo,
		UrgencyLevel:     req.UrgencyLevel,
		RawMessage:       req.RawMessage,
		Embedding:        req.Embedding,
	})
	if err != nil {
		h.logger.Warn("report save failed", zap.Error(err))
		writeClassifiedError(c, err)
		return
	}

	c.JSON(http.StatusCreated, saveReportResponse{
		Success: true,
		Message: "Report saved",
		ID:      report.ID,
	})
}
