package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sharetrust/sharetrust/internal/models"
	"github.com/sharetrust/sharetrust/internal/repositories"
)

var (
	ErrReportTargetMissing = errors.New("举报必须指定用户或拼团")
	ErrReportSelf          = errors.New("不能举报自己")
	ErrReportNotFound      = errors.New("举报不存在")
	ErrReportClosed        = errors.New("举报已处理完毕")
	ErrInvalidReportStatus = errors.New("举报状态无效")
)

// ReportService 用户举报与处理
type ReportService struct {
	reportRepo   *repositories.ReportRepository
	trustService *TrustService
	logger       *zap.Logger
}

func NewReportService(
	reportRepo *repositories.ReportRepository,
	trustService *TrustService,
	logger *zap.Logger,
) *ReportService {
	return &ReportService{
		reportRepo:   reportRepo,
		trustService: trustService,
		logger:       logger,
	}
}

// SubmitReportRequest 提交举报请求
type SubmitReportRequest struct {
	ReportedUserID  string `json:"reported_user_id"`
	ReportedGroupID string `json:"reported_group_id"`
	Reason          string `json:"reason" binding:"required"`
	Description     string `json:"description" binding:"required"`
}

// ReportResponse 举报响应
type ReportResponse struct {
	ID              string     `json:"id"`
	ReporterID      string     `json:"reporter_id"`
	ReportedUserID  string     `json:"reported_user_id,omitempty"`
	ReportedGroupID string     `json:"reported_group_id,omitempty"`
	Reason          string     `json:"reason"`
	Description     string     `json:"description"`
	Status          string     `json:"status"`
	AdminNotes      string     `json:"admin_notes,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
}

func toReportResponse(r *models.Report) *ReportResponse {
	return &ReportResponse{
		ID:              r.ID,
		ReporterID:      r.ReporterID,
		ReportedUserID:  r.ReportedUserID,
		ReportedGroupID: r.ReportedGroupID,
		Reason:          r.Reason,
		Description:     r.Description,
		Status:          r.Status,
		AdminNotes:      r.AdminNotes,
		CreatedAt:       r.CreatedAt,
		ResolvedAt:      r.ResolvedAt,
	}
}

// Submit 提交举报
func (s *ReportService) Submit(reporterID string, req *SubmitReportRequest) (*ReportResponse, error) {
	if req.ReportedUserID == "" && req.ReportedGroupID == "" {
		return nil, ErrReportTargetMissing
	}
	if req.ReportedUserID == reporterID {
		return nil, ErrReportSelf
	}

	report := &models.Report{
		ID:              uuid.NewString(),
		ReporterID:      reporterID,
		ReportedUserID:  req.ReportedUserID,
		ReportedGroupID: req.ReportedGroupID,
		Reason:          req.Reason,
		Description:     req.Description,
		Status:          models.ReportStatusPending,
	}
	if err := s.reportRepo.Create(report); err != nil {
		return nil, err
	}
	return toReportResponse(report), nil
}

// ListMine 列出用户提交的举报
func (s *ReportService) ListMine(reporterID string) ([]*ReportResponse, error) {
	reports, err := s.reportRepo.ListByReporter(reporterID)
	if err != nil {
		return nil, err
	}
	out := make([]*ReportResponse, 0, len(reports))
	for i := range reports {
		out = append(out, toReportResponse(&reports[i]))
	}
	return out, nil
}

// ListOpen 管理端列出未处理举报
func (s *ReportService) ListOpen(limit, offset int) ([]*ReportResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	reports, err := s.reportRepo.ListOpen(limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]*ReportResponse, 0, len(reports))
	for i := range reports {
		out = append(out, toReportResponse(&reports[i]))
	}
	return out, nil
}

// ResolveReportRequest 处理举报请求
type ResolveReportRequest struct {
	Status     string `json:"status" binding:"required"` // under_review, resolved, dismissed
	AdminNotes string `json:"admin_notes"`
	// resolved 且确认违规时记一笔扣分
	ApplyPenalty bool `json:"apply_penalty"`
}

// Resolve 管理员推进举报状态
// resolved + 确认违规时给被举报用户记 violation_reported 扣分
func (s *ReportService) Resolve(adminID, reportID string, req *ResolveReportRequest) (*ReportResponse, error) {
	switch req.Status {
	case models.ReportStatusUnderReview, models.ReportStatusResolved, models.ReportStatusDismissed:
	default:
		return nil, ErrInvalidReportStatus
	}

	report, err := s.reportRepo.GetByID(reportID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	if report.Status == models.ReportStatusResolved ||
		report.Status == models.ReportStatusDismissed {
		return nil, ErrReportClosed
	}

	var resolvedAt *time.Time
	if req.Status == models.ReportStatusResolved || req.Status == models.ReportStatusDismissed {
		now := time.Now()
		resolvedAt = &now
	}

	if err := s.reportRepo.UpdateStatus(reportID, req.Status, req.AdminNotes, resolvedAt); err != nil {
		return nil, err
	}
	report.Status = req.Status
	report.AdminNotes = req.AdminNotes
	report.ResolvedAt = resolvedAt

	if req.Status == models.ReportStatusResolved && req.ApplyPenalty &&
		report.ReportedUserID != "" {
		if _, err := s.trustService.Record(report.ReportedUserID,
			models.TrustEventViolationReported,
			"Report resolved against user", "report", report.ID); err != nil {
			s.logger.Warn("记录违规扣分失败",
				zap.String("report_id", report.ID), zap.Error(err))
		}
	}

	return toReportResponse(report), nil
}
