package repositories

import (
	"time"

	"gorm.io/gorm"

	"github.com/sharetrust/sharetrust/internal/models"
)

type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create 提交举报
func (r *ReportRepository) Create(report *models.Report) error {
	return r.db.Create(report).Error
}

// GetByID 根据 ID 获取举报
func (r *ReportRepository) GetByID(id string) (*models.Report, error) {
	var report models.Report
	if err := r.db.Where("id = ?", id).First(&report).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

// ListByReporter 列出用户提交的举报
func (r *ReportRepository) ListByReporter(reporterID string) ([]models.Report, error) {
	var reports []models.Report
	err := r.db.Where("reporter_id = ?", reporterID).
		Order("created_at DESC").Find(&reports).Error
	return reports, err
}

// ListOpen 列出未处理的举报（pending 或 under_review，管理端）
func (r *ReportRepository) ListOpen(limit, offset int) ([]models.Report, error) {
	var reports []models.Report
	err := r.db.Where("status IN ?",
		[]string{models.ReportStatusPending, models.ReportStatusUnderReview}).
		Order("created_at ASC").Limit(limit).Offset(offset).Find(&reports).Error
	return reports, err
}

// UpdateStatus 推进举报处理状态
func (r *ReportRepository) UpdateStatus(id, status, adminNotes string, resolvedAt *time.Time) error {
	fields := map[string]any{
		"status":      status,
		"admin_notes": adminNotes,
	}
	if resolvedAt != nil {
		fields["resolved_at"] = resolvedAt
	}
	return r.db.Model(&models.Report{}).Where("id = ?", id).Updates(fields).Error
}

// CountOpenAgainstUser 统计针对某用户的未处理举报数
func (r *ReportRepository) CountOpenAgainstUser(userID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Report{}).
		Where("reported_user_id = ? AND status IN ?",
			userID, []string{models.ReportStatusPending, models.ReportStatusUnderReview}).
		Count(&count).Error
	return count, err
}
