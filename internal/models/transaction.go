package models

import "time"

// Transaction types.
const (
	TxTypePayment       = "payment"
	TxTypeRefund        = "refund"
	TxTypeEscrowRelease = "escrow_release"
)

// Transaction states.
const (
	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
	TxStatusFailed    = "failed"
	TxStatusCancelled = "cancelled"
)

// Transaction 支付/退款/托管释放记录，仅追加。
type Transaction struct {
	ID               string  `gorm:"primaryKey;type:varchar(64)" json:"id"`
	GroupID          string  `gorm:"index;not null;type:varchar(64)" json:"group_id"`
	UserID           string  `gorm:"index;not null;type:varchar(64)" json:"user_id"`
	Type             string  `gorm:"not null;type:varchar(16)" json:"type"`
	Amount           float64 `gorm:"not null" json:"amount"`
	Currency         string  `gorm:"not null;type:varchar(8)" json:"currency"`
	PaymentMethod    string  `gorm:"type:varchar(16)" json:"payment_method"` // promptpay, stripe, bank_transfer
	PaymentReference string  `gorm:"type:varchar(128)" json:"payment_reference"`
	Status           string  `gorm:"not null;default:'pending';type:varchar(16)" json:"status"`

	CreatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	CompletedAt *time.Time `json:"completed_at"`

	Group *SharingGroup `gorm:"foreignKey:GroupID" json:"group,omitempty"`
}

func (Transaction) TableName() string {
	return "transactions"
}
