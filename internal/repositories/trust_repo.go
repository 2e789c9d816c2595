package repositories

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sharetrust/sharetrust/internal/models"
)

// TrustRepository 信任分账本仓储。
type TrustRepository struct {
	db *gorm.DB
}

func NewTrustRepository(db *gorm.DB) *TrustRepository {
	return &TrustRepository{db: db}
}

// RecordEvent 写入账本并同步物化余额
// 实现逻辑：同一事务内插入 trust_events，再按事件增量更新
// profiles.trust_score / trust_level。二者要么都落库要么都回滚，
// 账本求和与物化余额不会出现偏差。
func (r *TrustRepository) RecordEvent(event *models.TrustEvent) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(event).Error; err != nil {
			return err
		}

		// 行锁住档案，读当前分数
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", event.UserID).First(&profile).Error; err != nil {
			return err
		}

		newScore := profile.TrustScore + event.ScoreChange
		if newScore < 0 {
			newScore = 0
		}
		newLevel := models.TrustLevelForScore(newScore)

		if err := tx.Model(&models.Profile{}).Where("id = ?", event.UserID).
			Updates(map[string]any{
				"trust_score": newScore,
				"trust_level": newLevel,
			}).Error; err != nil {
			return err
		}

		profile.TrustScore = newScore
		profile.TrustLevel = newLevel
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// ListEvents 列出用户的信任分历史
func (r *TrustRepository) ListEvents(userID string, limit, offset int) ([]models.TrustEvent, error) {
	var events []models.TrustEvent
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").Limit(limit).Offset(offset).Find(&events).Error
	return events, err
}

// SumScore 对账本求和，用于核对物化余额
func (r *TrustRepository) SumScore(userID string) (int, error) {
	var sum int64
	err := r.db.Model(&models.TrustEvent{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(score_change), 0)").Scan(&sum).Error
	return int(sum), err
}
