package models

import "time"

// Membership states.
const (
	MemberStatusPending  = "pending"
	MemberStatusApproved = "approved"
	MemberStatusRejected = "rejected"
	MemberStatusLeft     = "left"
)

// Member payment states.
const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusRefunded = "refunded"
)

// GroupMember 加入记录。group_id + user_id 唯一，重复加入直接冲突。
type GroupMember struct {
	ID            string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	GroupID       string `gorm:"uniqueIndex:idx_group_user;not null;type:varchar(64)" json:"group_id"`
	UserID        string `gorm:"uniqueIndex:idx_group_user;index;not null;type:varchar(64)" json:"user_id"`
	Status        string `gorm:"not null;default:'pending';type:varchar(16)" json:"status"`
	PaymentStatus string `gorm:"not null;default:'pending';type:varchar(16)" json:"payment_status"`

	JoinedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"joined_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Profile *Profile `gorm:"foreignKey:UserID" json:"profile,omitempty"`
}

func (GroupMember) TableName() string {
	return "group_members"
}
