package repositories

import (
	"time"

	"gorm.io/gorm"

	"github.com/sharetrust/sharetrust/internal/models"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create 写入新会话
func (r *SessionRepository) Create(session *models.UserSession) error {
	return r.db.Create(session).Error
}

// GetByID 根据会话 ID 获取会话
func (r *SessionRepository) GetByID(id string) (*models.UserSession, error) {
	var session models.UserSession
	if err := r.db.Where("id = ?", id).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// Rotate 轮换 refresh token：换哈希、刷新使用时间并顺延过期
func (r *SessionRepository) Rotate(id, newTokenHash string, expiresAt time.Time) error {
	return r.db.Model(&models.UserSession{}).Where("id = ?", id).
		Updates(map[string]any{
			"token_hash":   newTokenHash,
			"last_used_at": time.Now(),
			"expires_at":   expiresAt,
		}).Error
}

// End 吊销会话
func (r *SessionRepository) End(id string) error {
	now := time.Now()
	return r.db.Model(&models.UserSession{}).
		Where("id = ? AND ended_at IS NULL", id).
		Update("ended_at", now).Error
}

// EndAllForUser 吊销用户的全部会话
func (r *SessionRepository) EndAllForUser(userID string) error {
	now := time.Now()
	return r.db.Model(&models.UserSession{}).
		Where("user_id = ? AND ended_at IS NULL", userID).
		Update("ended_at", now).Error
}

// DeleteExpired 清理已过期超过保留期的会话
func (r *SessionRepository) DeleteExpired(before time.Time) (int64, error) {
	res := r.db.Where("expires_at < ?", before).Delete(&models.UserSession{})
	return res.RowsAffected, res.Error
}
