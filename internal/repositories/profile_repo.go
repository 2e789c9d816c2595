package repositories

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sharetrust/sharetrust/internal/models"
)

const (
	profileCacheKeyPrefix = "profile:info:" // Redis String, 值是 profile JSON
	profileCacheTTL       = 1 * time.Hour
)

type ProfileRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewProfileRepository(db *gorm.DB, redis *redis.Client) *ProfileRepository {
	return &ProfileRepository{db: db, redis: redis}
}

// Create 创建档案
func (r *ProfileRepository) Create(profile *models.Profile) error {
	return r.db.Create(profile).Error
}

// GetByID 根据 ID 获取档案 (带缓存)
func (r *ProfileRepository) GetByID(id string) (*models.Profile, error) {
	if r.redis != nil {
		key := profileCacheKeyPrefix + id
		val, err := r.redis.Get(context.Background(), key).Result()
		if err == nil {
			var profile models.Profile
			if json.Unmarshal([]byte(val), &profile) == nil {
				return &profile, nil
			}
		}
	}

	var profile models.Profile
	if err := r.db.Where("id = ?", id).First(&profile).Error; err != nil {
		return nil, err
	}

	// 回填 Redis
	if r.redis != nil {
		key := profileCacheKeyPrefix + id
		if data, err := json.Marshal(&profile); err == nil {
			r.redis.Set(context.Background(), key, data, profileCacheTTL)
		}
	}

	return &profile, nil
}

// GetByLineUserID 根据 LINE 用户 ID 获取档案
func (r *ProfileRepository) GetByLineUserID(lineUserID string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.Where("line_user_id = ?", lineUserID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// Update 更新档案 (同时清除缓存)
func (r *ProfileRepository) Update(profile *models.Profile) error {
	if err := r.db.Save(profile).Error; err != nil {
		return err
	}
	r.invalidate(profile.ID)
	return nil
}

// UpdateFields 更新部分字段 (同时清除缓存)
func (r *ProfileRepository) UpdateFields(id string, fields map[string]any) error {
	if err := r.db.Model(&models.Profile{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		return err
	}
	r.invalidate(id)
	return nil
}

// SetVerified 标记档案已认证 (同时清除缓存)
func (r *ProfileRepository) SetVerified(id string) error {
	return r.UpdateFields(id, map[string]any{"is_verified": true})
}

func (r *ProfileRepository) invalidate(id string) {
	if r.redis != nil {
		r.redis.Del(context.Background(), profileCacheKeyPrefix+id)
	}
}

// InvalidateCache 供其他仓储在同事务更新档案后清除缓存
func (r *ProfileRepository) InvalidateCache(id string) {
	r.invalidate(id)
}
