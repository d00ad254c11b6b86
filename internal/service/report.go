package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"floodwatch/backend/internal/domain"
	"floodwatch/backend/internal/storage"
)

// ReportService 灾情上报服务
type ReportService struct {
	store     storage.Store
	validator *domain.ReportValidator
	logger    *zap.Logger
	now       func() time.Time
}

// NewReportService 创建上报服务
func NewReportService(store storage.Store, logger *zap.Logger) *ReportService {
	return &ReportService{
		store:     store,
		validator: domain.NewReportValidator(),
		logger:    logger,
		now:       time.Now,
	}
}

// SaveReportInput 上报保存输入
//
// 字段语义与提报渠道的结构化抽取结果一致；除 Name 和 RawMessage 外
// 均允许缺省。
type SaveReportInput struct {
	Name             string
	Lastname         string
	ReporterName     string
	Phone            []string
	Address          string
	MapLink          *string
	LocationLat      *float64
	LocationLong     *float64
	NumberOfAdults   int
	NumberOfChildren int
	NumberOfInfants  int
	NumberOfSeniors  int
	NumberOfPatients int
	HealthCondition  string
	HelpNeeded       string
	HelpCategories   []string
	AdditionalInfo   string
	UrgencyLevel     int
	RawMessage       string
	Embedding        []float32
}

// SaveReport 保存一条灾情上报
//
// 紧急级别缺省或越界时钳制到合法区间；状态固定为 pending，
// 由后续救援流程推进。
//
// 返回值:
//   - *domain.Report: 已保存的报告
//   - error: 校验失败或落库失败
func (s *ReportService) SaveReport(ctx context.Context, input SaveReportInput) (*domain.Report, error) {
	now := s.now().UTC()
	report := &domain.Report{
		ID:               uuid.New().String(),
		Name:             strings.TrimSpace(input.Name),
		Lastname:         strings.TrimSpace(input.Lastname),
		ReporterName:     strings.TrimSpace(input.ReporterName),
		Phone:            domain.Strings(input.Phone),
		Address:          strings.TrimSpace(input.Address),
		MapLink:          input.MapLink,
		LocationLat:      input.LocationLat,
		LocationLong:     input.LocationLong,
		NumberOfAdults:   input.NumberOfAdults,
		NumberOfChildren: input.NumberOfChildren,
		NumberOfInfants:  input.NumberOfInfants,
		NumberOfSeniors:  input.NumberOfSeniors,
		NumberOfPatients: input.NumberOfPatients,
		HealthCondition:  input.HealthCondition,
		HelpNeeded:       input.HelpNeeded,
		HelpCategories:   domain.Strings(input.HelpCategories),
		AdditionalInfo:   input.AdditionalInfo,
		UrgencyLevel:     clampUrgency(input.UrgencyLevel),
		Status:           domain.ReportStatusPending,
		RawMessage:       input.RawMessage,
		Embedding:        domain.Vector(input.Embedding),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.validator.ValidateForSave(report); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateCategories(report.HelpCategories); err != nil {
		return nil, err
	}

	if err := s.store.SaveReport(ctx, report); err != nil {
		return nil, err
	}

	s.logger.Info("report saved",
		zap.String("report_id", report.ID),
		zap.Int("urgency_level", report.UrgencyLevel))
	return report, nil
}

// clampUrgency 将紧急级别钳制到合法区间，缺省视为中间档
func clampUrgency(level int) int {
	if level == 0 {
		return 3
	}
	if level < domain.UrgencyLevelMin {
		return domain.UrgencyLevelMin
	}
	if level > domain.UrgencyLevelMax {
		return domain.UrgencyLevelMax
	}
	return level
}
