package repositories

import (
	"time"

	"gorm.io/gorm"

	"github.com/sharetrust/sharetrust/internal/models"
)

type VerificationRepository struct {
	db *gorm.DB
}

func NewVerificationRepository(db *gorm.DB) *VerificationRepository {
	return &VerificationRepository{db: db}
}

// Create 提交验证申请
func (r *VerificationRepository) Create(v *models.Verification) error {
	return r.db.Create(v).Error
}

// GetByID 根据 ID 获取验证申请
func (r *VerificationRepository) GetByID(id string) (*models.Verification, error) {
	var v models.Verification
	if err := r.db.Where("id = ?", id).First(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

// ListByUser 列出用户的验证申请
func (r *VerificationRepository) ListByUser(userID string) ([]models.Verification, error) {
	var vs []models.Verification
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&vs).Error
	return vs, err
}

// ListPending 列出待审核的验证申请（管理端）
func (r *VerificationRepository) ListPending(limit, offset int) ([]models.Verification, error) {
	var vs []models.Verification
	err := r.db.Where("status = ?", models.VerificationStatusPending).
		Order("created_at ASC").Limit(limit).Offset(offset).Find(&vs).Error
	return vs, err
}

// Review 记录审核结果
func (r *VerificationRepository) Review(id, status, reviewerID string, reviewedAt time.Time) error {
	return r.db.Model(&models.Verification{}).Where("id = ?", id).
		Updates(map[string]any{
			"status":      status,
			"verified_by": reviewerID,
			"verified_at": reviewedAt,
		}).Error
}

// HasApproved 检查用户是否已有某类型的通过记录
func (r *VerificationRepository) HasApproved(userID, vType string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Verification{}).
		Where("user_id = ? AND type = ? AND status = ?",
			userID, vType, models.VerificationStatusApproved).
		Count(&count).Error
	return count > 0, err
}

// HasPending 检查用户是否已有某类型的待审申请，避免重复提交
func (r *VerificationRepository) HasPending(userID, vType string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Verification{}).
		Where("user_id = ? AND type = ? AND status = ?",
			userID, vType, models.VerificationStatusPending).
		Count(&count).Error
	return count > 0, err
}
