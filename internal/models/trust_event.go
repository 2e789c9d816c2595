package models

import "time"

// Trust event types and their default score deltas.
const (
	TrustEventProfileCreated    = "profile_created"
	TrustEventPhoneVerified     = "phone_verified"
	TrustEventIDVerified        = "id_verified"
	TrustEventPaymentCompleted  = "payment_completed"
	TrustEventGroupCreated      = "group_created"
	TrustEventGroupJoined       = "group_joined"
	TrustEventGroupCompleted    = "group_completed"
	TrustEventViolationReported = "violation_reported"
	TrustEventPenaltyApplied    = "penalty_applied"
)

// TrustEvent 信任分账本条目，仅追加。profiles.trust_score 是该账本的
// 物化余额，二者在同一事务内写入。
type TrustEvent struct {
	ID            string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	UserID        string `gorm:"index;not null;type:varchar(64)" json:"user_id"`
	EventType     string `gorm:"not null;type:varchar(32)" json:"event_type"`
	Reason        string `gorm:"not null" json:"reason"`
	ScoreChange   int    `gorm:"not null" json:"score_change"`
	ReferenceType string `gorm:"type:varchar(32)" json:"reference_type"`
	ReferenceID   string `gorm:"type:varchar(64)" json:"reference_id"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (TrustEvent) TableName() string {
	return "trust_events"
}

// DefaultScoreChange returns the standard delta for a trust event type.
func DefaultScoreChange(eventType string) int {
	switch eventType {
	case TrustEventProfileCreated:
		return 1
	case TrustEventPhoneVerified:
		return 5
	case TrustEventIDVerified:
		return 10
	case TrustEventPaymentCompleted:
		return 3
	case TrustEventGroupCreated:
		return 2
	case TrustEventGroupJoined:
		return 1
	case TrustEventGroupCompleted:
		return 5
	case TrustEventViolationReported:
		return -10
	case TrustEventPenaltyApplied:
		return -20
	default:
		return 0
	}
}
