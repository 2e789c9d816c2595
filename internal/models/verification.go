package models

import (
	"time"

	"gorm.io/gorm"
)

// Verification types and states.
const (
	VerificationTypePhone     = "phone"
	VerificationTypeIDCard    = "id_card"
	VerificationTypePromptPay = "promptpay"

	VerificationStatusPending  = "pending"
	VerificationStatusApproved = "approved"
	VerificationStatusRejected = "rejected"
)

// Verification 实名/联系方式验证申请。
type Verification struct {
	ID         string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	UserID     string `gorm:"index;not null;type:varchar(64)" json:"user_id"`
	Type       string `gorm:"not null;type:varchar(16)" json:"type"`
	Data       string `gorm:"type:text" json:"data"` // JSON payload submitted by the user
	Status     string `gorm:"not null;default:'pending';type:varchar(16)" json:"status"`
	VerifiedBy string `gorm:"type:varchar(64)" json:"verified_by"`

	CreatedAt  time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	VerifiedAt *time.Time     `json:"verified_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Verification) TableName() string {
	return "verifications"
}
