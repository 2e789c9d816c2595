package models

import "time"

// UserSession 登录会话。TokenHash 是 refresh token 秘密部分的 bcrypt 哈希，
// 明文只在签发响应中出现一次。EndedAt 非空即视为已吊销。
type UserSession struct {
	ID        string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	UserID    string `gorm:"index;not null;type:varchar(64)" json:"user_id"`
	TokenHash string `gorm:"not null;type:varchar(128)" json:"-"`

	CreatedAt  time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	LastUsedAt time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"last_used_at"`
	ExpiresAt  time.Time  `gorm:"not null" json:"expires_at"`
	EndedAt    *time.Time `gorm:"index" json:"ended_at"`
}

func (UserSession) TableName() string {
	return "user_sessions"
}
