package repositories

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sharetrust/sharetrust/internal/models"
)

const groupSeqKeyPrefix = "group:seq:" // Redis String, INCR 产生群内序号

type MessageRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewMessageRepository(db *gorm.DB, redis *redis.Client) *MessageRepository {
	return &MessageRepository{db: db, redis: redis}
}

// Create 落库一条消息
func (r *MessageRepository) Create(msg *models.Message) error {
	return r.db.Create(msg).Error
}

// NextSeq 用 Redis INCR 产生群内单调序号
// Redis 不可用时退化为 0，排序仍可依赖 snowflake ID
func (r *MessageRepository) NextSeq(groupID string) int64 {
	if r.redis == nil {
		return 0
	}
	seq, err := r.redis.Incr(context.Background(), groupSeqKeyPrefix+groupID).Result()
	if err != nil {
		return 0
	}
	return seq
}

// ListByGroup 按时间倒序分页列出群消息，预加载发送者
func (r *MessageRepository) ListByGroup(groupID string, limit, offset int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.Preload("Sender").Where("group_id = ?", groupID).
		Order("id DESC").Limit(limit).Offset(offset).Find(&msgs).Error
	return msgs, err
}

// GetByID 根据 ID 获取消息
func (r *MessageRepository) GetByID(id int64) (*models.Message, error) {
	var msg models.Message
	if err := r.db.Preload("Sender").Where("id = ?", id).First(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// Flag 标记消息违规
func (r *MessageRepository) Flag(id int64) error {
	return r.db.Model(&models.Message{}).Where("id = ?", id).
		Update("is_flagged", true).Error
}

// CountByGroup 统计群消息数
func (r *MessageRepository) CountByGroup(groupID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Message{}).Where("group_id = ?", groupID).Count(&count).Error
	return count, err
}
