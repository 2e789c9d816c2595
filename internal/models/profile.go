package models

import (
	"time"
)

// Trust levels derived from the running trust score.
const (
	TrustLevelNew         = 1 // 0-4
	TrustLevelBasic       = 2 // 5-19
	TrustLevelEstablished = 3 // 20-49
	TrustLevelTrusted     = 4 // 50-99
	TrustLevelHigh        = 5 // 100+
)

// TrustLevelForScore maps a trust score to its level band.
func TrustLevelForScore(score int) int {
	switch {
	case score >= 100:
		return TrustLevelHigh
	case score >= 50:
		return TrustLevelTrusted
	case score >= 20:
		return TrustLevelEstablished
	case score >= 5:
		return TrustLevelBasic
	default:
		return TrustLevelNew
	}
}

// Profile 是应用本地的用户档案，与 LINE 的身份记录分离。
// trust_score 由 trust_events 账本驱动，二者在同一事务内更新。
type Profile struct {
	ID          string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	LineUserID  string `gorm:"column:line_user_id;uniqueIndex;not null;type:varchar(64)" json:"line_user_id"`
	DisplayName string `gorm:"type:varchar(255)" json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
	Phone       string `gorm:"type:varchar(32)" json:"phone"`
	Email       string `gorm:"type:varchar(255)" json:"email"`
	TrustScore  int    `gorm:"not null;default:0" json:"trust_score"`
	TrustLevel  int    `gorm:"not null;default:1" json:"trust_level"`
	IsVerified  bool   `gorm:"not null;default:false" json:"is_verified"`
	Role        string `gorm:"not null;default:'authenticated'" json:"role"` // authenticated, admin

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}
