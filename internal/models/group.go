package models

import "time"

// Group lifecycle states.
const (
	GroupStatusActive    = "active"
	GroupStatusCompleted = "completed"
	GroupStatusCancelled = "cancelled"
	GroupStatusExpired   = "expired"
)

// Escrow states. Funds custody is tracked as a label on the group; the
// transition to funded/released/refunded is owned by PaymentService.
const (
	EscrowStatusPending  = "pending"
	EscrowStatusFunded   = "funded"
	EscrowStatusReleased = "released"
	EscrowStatusRefunded = "refunded"
)

// SharingGroup 订阅拼团。current_members 只能通过条件更新修改，
// 保证不超过 max_members。
type SharingGroup struct {
	ID             string  `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Title          string  `gorm:"not null;type:varchar(255)" json:"title"`
	Description    string  `json:"description"`
	CategoryID     string  `gorm:"index;not null;type:varchar(64)" json:"category_id"`
	CreatorID      string  `gorm:"index;not null;type:varchar(64)" json:"creator_id"`
	MaxMembers     int     `gorm:"not null" json:"max_members"`
	CurrentMembers int     `gorm:"not null;default:1" json:"current_members"`
	PricePerPerson float64 `gorm:"not null" json:"price_per_person"`
	Currency       string  `gorm:"not null;default:THB;type:varchar(8)" json:"currency"`
	BillingCycle   string  `gorm:"default:'monthly';type:varchar(16)" json:"billing_cycle"`
	Status         string  `gorm:"index;not null;default:'active';type:varchar(16)" json:"status"`
	EscrowStatus   string  `gorm:"not null;default:'pending';type:varchar(16)" json:"escrow_status"`
	LineGroupURL   string  `json:"line_group_url"`

	ExpiresAt *time.Time `json:"expires_at"`
	CreatedAt time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Creator  *Profile  `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

func (SharingGroup) TableName() string {
	return "sharing_groups"
}
